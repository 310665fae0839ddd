package application

import "errors"

var (
	// ErrUnauthorized is returned when a request carries no valid access token.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the session's role does not allow the action.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrTransientNetwork is the synthetic network fault injected into list calls.
	ErrTransientNetwork = errors.New("application: network error")
	// ErrNoRefreshToken is returned by Refresh when no refresh token is stored.
	ErrNoRefreshToken = errors.New("application: no refresh token available")
	// ErrRefreshFailed wraps any other failure of a token refresh.
	ErrRefreshFailed = errors.New("application: token refresh failed")
	// ErrInvalidCredentials is returned when the credential directory rejects a login.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// NotFoundError reports a missing entity. It matches ErrNotFound under errors.Is.
type NotFoundError struct {
	Resource string
	ID       int
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NetworkError is the synthetic fault raised by list calls. It matches
// ErrTransientNetwork under errors.Is.
type NetworkError struct {
	Resource string
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return "Network error: Failed to fetch " + e.Resource
}

// Is reports whether target is ErrTransientNetwork.
func (e *NetworkError) Is(target error) bool {
	return target == ErrTransientNetwork
}
