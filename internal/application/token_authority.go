package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/example/gym-admin/internal/persistence"
)

// CredentialPolicy selects how Login treats submitted credentials.
type CredentialPolicy string

const (
	// PolicyOpen accepts any credentials and derives the user from the email.
	PolicyOpen CredentialPolicy = "open"
	// PolicyDirectory checks credentials against a CredentialDirectory.
	PolicyDirectory CredentialPolicy = "directory"
)

// DefaultAccessTTL is the lifetime of an access token.
const DefaultAccessTTL = time.Hour

// TokenAuthorityConfig configures a TokenAuthority.
type TokenAuthorityConfig struct {
	Policy             CredentialPolicy
	Directory          CredentialDirectory
	AccessTTL          time.Duration
	SigningSecret      []byte
	RotateRefreshToken bool
}

// TokenAuthority owns the access/refresh token lifecycle. Token state lives
// in the persistent store so sessions survive process restarts.
type TokenAuthority struct {
	store          *persistence.Store
	simulator      *Simulator
	config         TokenAuthorityConfig
	verifyPassword PasswordVerifier
	tokenGenerator func() string
	now            func() time.Time
	logger         *slog.Logger
}

type accessClaims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// NewTokenAuthority constructs a TokenAuthority with the provided dependencies.
func NewTokenAuthority(store *persistence.Store, simulator *Simulator, config TokenAuthorityConfig, tokenGenerator func() string, now func() time.Time) *TokenAuthority {
	return NewTokenAuthorityWithLogger(store, simulator, config, tokenGenerator, now, nil)
}

// NewTokenAuthorityWithLogger constructs a TokenAuthority with a specified logger.
func NewTokenAuthorityWithLogger(store *persistence.Store, simulator *Simulator, config TokenAuthorityConfig, tokenGenerator func() string, now func() time.Time, logger *slog.Logger) *TokenAuthority {
	if store == nil {
		store = persistence.NewStore(nil)
	}
	if config.Policy == "" {
		config.Policy = PolicyOpen
	}
	if config.AccessTTL <= 0 {
		config.AccessTTL = DefaultAccessTTL
	}
	if len(config.SigningSecret) == 0 {
		config.SigningSecret = []byte(uuid.NewString())
	}
	if tokenGenerator == nil {
		tokenGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &TokenAuthority{
		store:          store,
		simulator:      simulator,
		config:         config,
		verifyPassword: VerifyPassword,
		tokenGenerator: tokenGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (a *TokenAuthority) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, a.logger, "TokenAuthority", operation, attrs...)
}

// Login issues a new token pair for the submitted credentials.
func (a *TokenAuthority) Login(ctx context.Context, params LoginParams) (result LoginResult, err error) {
	if a == nil {
		err = fmt.Errorf("TokenAuthority is nil")
		return
	}

	email := strings.TrimSpace(params.Email)
	logger := a.loggerWith(ctx, "Login", "email", email, "policy", string(a.config.Policy))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID, "role", string(result.User.Role)).InfoContext(ctx, "login succeeded")
	}()

	if err = a.simulator.Delay(ctx, LatencyLogin); err != nil {
		return
	}

	var user SessionUser
	user, err = a.resolveUser(email, params.Password)
	if err != nil {
		return
	}

	now := a.now()
	var access string
	access, err = a.mintAccessToken(user, now)
	if err != nil {
		return
	}
	refresh := a.tokenGenerator()

	a.persistTokens(ctx, access, now.Add(a.config.AccessTTL))
	a.store.SaveString(ctx, persistence.KeyRefreshToken, refresh)
	a.store.SaveJSON(ctx, persistence.KeyUserData, user)
	if params.RememberMe {
		a.store.SaveString(ctx, persistence.KeyRememberMe, "true")
	} else {
		a.store.Remove(ctx, persistence.KeyRememberMe)
	}

	result = LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(a.config.AccessTTL / time.Second),
		User:         user,
	}
	return
}

func (a *TokenAuthority) resolveUser(email, password string) (SessionUser, error) {
	switch a.config.Policy {
	case PolicyDirectory:
		if email == "" || password == "" || a.config.Directory == nil {
			return SessionUser{}, ErrInvalidCredentials
		}
		account, found := a.config.Directory.Lookup(email)
		if !found {
			return SessionUser{}, ErrInvalidCredentials
		}
		if err := a.verifyPassword(account.PasswordHash, password); err != nil {
			return SessionUser{}, ErrInvalidCredentials
		}
		return SessionUser{ID: account.ID, Email: account.Email, Role: account.Role, Name: account.Name}, nil
	default:
		role := RoleStaff
		if strings.Contains(email, "admin") {
			role = RoleAdmin
		}
		name, _, _ := strings.Cut(email, "@")
		return SessionUser{ID: 1, Email: email, Role: role, Name: name}, nil
	}
}

func (a *TokenAuthority) mintAccessToken(user SessionUser, now time.Time) (string, error) {
	claims := accessClaims{
		Email: user.Email,
		Role:  user.Role,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        a.tokenGenerator(),
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.AccessTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.config.SigningSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}

func (a *TokenAuthority) persistTokens(ctx context.Context, access string, expiresAt time.Time) {
	a.store.SaveString(ctx, persistence.KeyAccessToken, access)
	a.store.SaveString(ctx, persistence.KeyTokenExpiry, strconv.FormatInt(expiresAt.UnixMilli(), 10))
}

// Refresh issues a new access token using the stored refresh token. The
// refresh token itself is kept unless rotation is enabled.
func (a *TokenAuthority) Refresh(ctx context.Context) (token string, err error) {
	if a == nil {
		err = fmt.Errorf("TokenAuthority is nil")
		return
	}

	logger := a.loggerWith(ctx, "Refresh", "rotate", a.config.RotateRefreshToken)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "token refresh failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "token refreshed")
	}()

	if err = a.simulator.Delay(ctx, LatencyRefresh); err != nil {
		err = fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		return
	}

	refresh, found := a.store.LoadString(ctx, persistence.KeyRefreshToken)
	if !found || refresh == "" {
		err = ErrNoRefreshToken
		return
	}

	user, _ := a.User(ctx)
	now := a.now()
	token, err = a.mintAccessToken(user, now)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		return
	}

	a.persistTokens(ctx, token, now.Add(a.config.AccessTTL))
	if a.config.RotateRefreshToken {
		a.store.SaveString(ctx, persistence.KeyRefreshToken, a.tokenGenerator())
	}
	return
}

// Logout clears all token and user state.
func (a *TokenAuthority) Logout(ctx context.Context) {
	a.store.Remove(ctx, persistence.SessionKeys...)
	a.loggerWith(ctx, "Logout").InfoContext(ctx, "session cleared")
}

// Token returns the stored access token, or "" when there is none.
func (a *TokenAuthority) Token(ctx context.Context) string {
	token, _ := a.store.LoadString(ctx, persistence.KeyAccessToken)
	return token
}

// User returns the stored session user.
func (a *TokenAuthority) User(ctx context.Context) (SessionUser, bool) {
	var user SessionUser
	if !a.store.LoadJSON(ctx, persistence.KeyUserData, &user) {
		return SessionUser{}, false
	}
	return user, true
}

// RememberMe reports whether the last login asked to be remembered.
func (a *TokenAuthority) RememberMe(ctx context.Context) bool {
	value, _ := a.store.LoadString(ctx, persistence.KeyRememberMe)
	return value == "true"
}

func (a *TokenAuthority) expiresAt(ctx context.Context) (time.Time, bool) {
	raw, found := a.store.LoadString(ctx, persistence.KeyTokenExpiry)
	if !found {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// IsExpired reports whether the access token has expired. A missing expiry
// counts as expired.
func (a *TokenAuthority) IsExpired(ctx context.Context) bool {
	expiry, found := a.expiresAt(ctx)
	if !found {
		return true
	}
	return a.now().After(expiry)
}

// State reports the lifecycle state of the stored session.
func (a *TokenAuthority) State(ctx context.Context) SessionState {
	if a.Token(ctx) == "" {
		return SessionNone
	}
	if a.IsExpired(ctx) {
		return SessionExpired
	}
	return SessionValid
}

// Info returns a snapshot of the stored token state.
func (a *TokenAuthority) Info(ctx context.Context) TokenInfo {
	_, hasRefresh := a.store.LoadString(ctx, persistence.KeyRefreshToken)
	info := TokenInfo{
		HasToken:        a.Token(ctx) != "",
		HasRefreshToken: hasRefresh,
		IsExpired:       a.IsExpired(ctx),
	}
	if expiry, found := a.expiresAt(ctx); found {
		info.ExpiresAt = &expiry
		if remaining := expiry.Sub(a.now()); remaining > 0 {
			info.TimeUntilExpiry = remaining
		}
	}
	return info
}

// SimulateExpiry backdates the stored expiry so the next call sees an
// expired token.
func (a *TokenAuthority) SimulateExpiry(ctx context.Context) {
	a.store.SaveString(ctx, persistence.KeyTokenExpiry, strconv.FormatInt(a.now().Add(-time.Second).UnixMilli(), 10))
	a.loggerWith(ctx, "SimulateExpiry").InfoContext(ctx, "token expiry simulated")
}

// Validate checks a bearer token presented to the mock backend. The token
// must be the current access token, unexpired, and carry a valid signature.
func (a *TokenAuthority) Validate(ctx context.Context, token string) (user SessionUser, err error) {
	if a == nil {
		err = fmt.Errorf("TokenAuthority is nil")
		return
	}

	token = strings.TrimSpace(token)
	if token == "" || token != a.Token(ctx) || a.IsExpired(ctx) {
		err = ErrUnauthorized
		return
	}

	claims := &accessClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.config.SigningSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		err = errors.Join(ErrUnauthorized, err)
		return
	}

	id, _ := strconv.Atoi(claims.Subject)
	user = SessionUser{ID: id, Email: claims.Email, Role: claims.Role, Name: claims.Name}
	return
}
