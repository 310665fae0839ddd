package http

import (
	"context"
	"log/slog"

	"github.com/example/gym-admin/internal/application"
	"github.com/example/gym-admin/internal/logging"
)

type contextKey string

const (
	userContextKey       contextKey = "session_user"
	resourceIDContextKey contextKey = "resource_id"
)

// ContextWithUser returns a derived context containing the authenticated user.
func ContextWithUser(ctx context.Context, user application.SessionUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the authenticated user from context if available.
func UserFromContext(ctx context.Context) (application.SessionUser, bool) {
	user, ok := ctx.Value(userContextKey).(application.SessionUser)
	return user, ok
}

// RequireAdmin returns application.ErrForbidden unless the session user holds
// the admin role.
func RequireAdmin(ctx context.Context) error {
	user, ok := UserFromContext(ctx)
	if !ok || !user.IsAdmin() {
		return application.ErrForbidden
	}
	return nil
}

// ContextWithResourceID injects the numeric identifier resolved from the request path.
func ContextWithResourceID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, resourceIDContextKey, id)
}

// ResourceIDFromContext extracts an identifier previously associated with the context.
func ResourceIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(resourceIDContextKey).(int)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
