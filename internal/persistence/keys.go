package persistence

// Storage keys shared by the services. They mirror the keys the admin panel
// kept in browser local storage so persisted state stays interchangeable.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyTokenExpiry  = "tokenExpiry"
	KeyUserData     = "userData"
	KeyRememberMe   = "rememberMe"
	KeyMembers      = "gym_members_data"
	KeyPlans        = "gym_plans_data"
)

// SessionKeys lists every key removed on logout.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyTokenExpiry, KeyUserData}
