package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/gym-admin/internal/application"
)

// Authenticator is the token authority as seen by the session.
type Authenticator interface {
	Login(ctx context.Context, params application.LoginParams) (application.LoginResult, error)
	Logout(ctx context.Context)
	State(ctx context.Context) application.SessionState
	User(ctx context.Context) (application.SessionUser, bool)
}

// Refresher performs a coordinated token refresh, normally the gateway.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Session drives the login lifecycle of the admin panel.
type Session struct {
	auth      Authenticator
	refresher Refresher
	logger    *slog.Logger
}

// NewSession builds a session. A nil logger uses slog.Default.
func NewSession(auth Authenticator, refresher Refresher, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{auth: auth, refresher: refresher, logger: logger}
}

// Login authenticates and returns the session user.
func (s *Session) Login(ctx context.Context, params application.LoginParams) (application.SessionUser, error) {
	result, err := s.auth.Login(ctx, params)
	if err != nil {
		return application.SessionUser{}, err
	}
	return result.User, nil
}

// Logout clears the session.
func (s *Session) Logout(ctx context.Context) {
	s.auth.Logout(ctx)
}

// Restore resumes a stored session at start-up. A valid token yields its
// user. An expired token is refreshed through the refresher; if that fails
// the session is cleared and the refresh error returned. Without a token the
// stored state is cleared and ok is false.
func (s *Session) Restore(ctx context.Context) (user application.SessionUser, ok bool, err error) {
	switch s.auth.State(ctx) {
	case application.SessionValid:
	case application.SessionExpired:
		if _, err = s.refresher.Refresh(ctx); err != nil {
			s.logger.WarnContext(ctx, "stored session could not be refreshed", "error", err, "error_kind", application.ErrorKind(err))
			s.auth.Logout(ctx)
			err = fmt.Errorf("restore session: %w", err)
			return
		}
	default:
		s.auth.Logout(ctx)
		return
	}

	user, ok = s.auth.User(ctx)
	if !ok {
		s.logger.WarnContext(ctx, "stored session has no user data")
		s.auth.Logout(ctx)
		return
	}
	s.logger.InfoContext(ctx, "session restored", "user_id", user.ID, "role", string(user.Role))
	return
}
