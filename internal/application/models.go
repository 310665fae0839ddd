package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// Envelope is the uniform wrapper returned by every repository operation.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message"`
}

func envelope[T any](data T, message string) Envelope[T] {
	return Envelope[T]{Success: true, Data: data, Message: message}
}

// MemberStatus is the membership state derived from the expiry date.
type MemberStatus string

const (
	MemberActive  MemberStatus = "Active"
	MemberPending MemberStatus = "Pending"
	MemberExpired MemberStatus = "Expired"
)

// Valid reports whether s is one of the known statuses.
func (s MemberStatus) Valid() bool {
	switch s {
	case MemberActive, MemberPending, MemberExpired:
		return true
	}
	return false
}

// PlanStatus marks whether a plan can be sold.
type PlanStatus string

const (
	PlanActive   PlanStatus = "Active"
	PlanInactive PlanStatus = "Inactive"
)

// Member is a gym member record as persisted.
type Member struct {
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone"`
	Plan       string          `json:"plan"`
	StartDate  string          `json:"startDate"`
	ExpiryDate string          `json:"expiryDate"`
	DueAmount  decimal.Decimal `json:"dueAmount"`
	Status     MemberStatus    `json:"status"`
}

// MemberInput carries caller supplied member fields. Nil pointers mean the
// field was not supplied.
type MemberInput struct {
	Name       *string       `json:"name,omitempty"`
	Email      *string       `json:"email,omitempty"`
	Phone      *string       `json:"phone,omitempty"`
	Plan       *string       `json:"plan,omitempty"`
	StartDate  *string       `json:"startDate,omitempty"`
	ExpiryDate *string       `json:"expiryDate,omitempty"`
	Amount     *string       `json:"amount,omitempty"`
	Status     *MemberStatus `json:"status,omitempty"`
}

// Plan is a membership plan as persisted. The total is never stored.
type Plan struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Duration    int             `json:"duration"`
	Price       decimal.Decimal `json:"price"`
	Tax         decimal.Decimal `json:"tax"`
	Description string          `json:"description"`
	Status      PlanStatus      `json:"status"`
}

// Total returns price plus tax.
func (p Plan) Total() decimal.Decimal {
	return p.Price.Add(p.Tax)
}

// PricedPlan is the read model of a plan with its computed total.
type PricedPlan struct {
	Plan
	Total decimal.Decimal `json:"total"`
}

// Priced attaches the computed total.
func (p Plan) Priced() PricedPlan {
	return PricedPlan{Plan: p, Total: p.Total()}
}

// PlanInput carries caller supplied plan fields.
type PlanInput struct {
	Name        *string          `json:"name,omitempty"`
	Duration    *int             `json:"duration,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Tax         *decimal.Decimal `json:"tax,omitempty"`
	Description *string          `json:"description,omitempty"`
	Status      *PlanStatus      `json:"status,omitempty"`
}

// Role distinguishes administrators from staff.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// SessionUser is the principal attached to a login session.
type SessionUser struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Name  string `json:"name"`
}

// IsAdmin reports whether the user holds the admin role.
func (u SessionUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsStaff reports whether the user holds the staff role.
func (u SessionUser) IsStaff() bool {
	return u.Role == RoleStaff
}

// LoginParams wraps submitted credentials.
type LoginParams struct {
	Email      string
	Password   string
	RememberMe bool
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    int         `json:"expiresIn"`
	User         SessionUser `json:"user"`
}

// SessionState is the token authority's lifecycle state.
type SessionState string

const (
	SessionNone    SessionState = "NoSession"
	SessionValid   SessionState = "Valid"
	SessionExpired SessionState = "Expired"
)

// TokenInfo is a read-only snapshot of the stored token state.
type TokenInfo struct {
	HasToken        bool          `json:"hasToken"`
	HasRefreshToken bool          `json:"hasRefreshToken"`
	IsExpired       bool          `json:"isExpired"`
	ExpiresAt       *time.Time    `json:"expiresAt,omitempty"`
	TimeUntilExpiry time.Duration `json:"timeUntilExpiry"`
}

// MemberFilter narrows a member listing. Empty fields match everything.
type MemberFilter struct {
	Search string
	Status MemberStatus
	Plan   string
}

// DashboardStats summarises members and plans.
type DashboardStats struct {
	TotalMembers    int             `json:"totalMembers"`
	ActiveMembers   int             `json:"activeMembers"`
	PendingMembers  int             `json:"pendingMembers"`
	ExpiredMembers  int             `json:"expiredMembers"`
	ExpiringSoon    int             `json:"expiringSoon"`
	OutstandingDues decimal.Decimal `json:"outstandingDues"`
	MembersByPlan   map[string]int  `json:"membersByPlan"`
	ActivePlans     int             `json:"activePlans"`
	AveragePlanCost decimal.Decimal `json:"averagePlanCost"`
	GeneratedAt     time.Time       `json:"generatedAt"`
}
