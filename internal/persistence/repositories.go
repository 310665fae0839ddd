package persistence

import "context"

// Backend is the raw key/value surface a Store persists through.
//
// Get returns ErrNotFound when the key is absent. Implementations must be safe
// for concurrent use; read-modify-write atomicity is provided by Store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Closer is implemented by backends holding external resources.
type Closer interface {
	Close() error
}
