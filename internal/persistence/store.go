package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/example/gym-admin/internal/logging"
)

// Store mediates every read and write of persisted state. It owns a per-key
// mutex so callers can perform read-modify-write sequences atomically.
//
// Write failures are logged and swallowed: the persisted copy is best effort
// and callers keep operating on the values they already hold.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore constructs a store over the provided backend.
func NewStore(backend Backend) *Store {
	return NewStoreWithLogger(backend, nil)
}

// NewStoreWithLogger constructs a store with a specified logger.
func NewStoreWithLogger(backend Backend, logger *slog.Logger) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend: backend,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Backend exposes the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

func (s *Store) loggerFor(ctx context.Context, key string) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = s.logger
	}
	return logger.With("component", "store", "key", key)
}

// Lock acquires the mutex guarding key and returns its release function.
func (s *Store) Lock(key string) func() {
	s.mu.Lock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// LoadString returns the raw value stored under key. Missing keys and read
// failures both report ok == false.
func (s *Store) LoadString(ctx context.Context, key string) (value string, ok bool) {
	raw, found := s.read(ctx, key)
	if !found {
		return "", false
	}
	return string(raw), true
}

// SaveString stores value under key.
func (s *Store) SaveString(ctx context.Context, key, value string) {
	s.write(ctx, key, []byte(value))
}

// LoadJSON decodes the value under key into dst. Corrupt payloads are logged
// and reported as absent.
func (s *Store) LoadJSON(ctx context.Context, key string, dst any) bool {
	raw, found := s.read(ctx, key)
	if !found {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.loggerFor(ctx, key).WarnContext(ctx, "discarding unreadable value", "error", err)
		return false
	}
	return true
}

// ReadJSON decodes the value under key into dst. A missing key or a corrupt
// payload reports found == false with a nil error; any other backend failure
// is returned so read-modify-write callers can abort.
func (s *Store) ReadJSON(ctx context.Context, key string, dst any) (found bool, err error) {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		s.loggerFor(ctx, key).ErrorContext(ctx, "failed to read value", "error", err, "error_kind", "storage_read")
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.loggerFor(ctx, key).WarnContext(ctx, "discarding unreadable value", "error", err)
		return false, nil
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func (s *Store) SaveJSON(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.loggerFor(ctx, key).ErrorContext(ctx, "failed to encode value", "error", err, "error_kind", "storage_write")
		return
	}
	s.write(ctx, key, raw)
}

// Remove deletes every supplied key. Absent keys are ignored.
func (s *Store) Remove(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			s.loggerFor(ctx, key).ErrorContext(ctx, "failed to remove value", "error", err, "error_kind", "storage_write")
		}
	}
}

func (s *Store) read(ctx context.Context, key string) ([]byte, bool) {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.loggerFor(ctx, key).ErrorContext(ctx, "failed to read value", "error", err, "error_kind", "storage_read")
		}
		return nil, false
	}
	return raw, true
}

func (s *Store) write(ctx context.Context, key string, raw []byte) {
	if err := s.backend.Set(ctx, key, raw); err != nil {
		s.loggerFor(ctx, key).ErrorContext(ctx, "failed to persist value", "error", err, "error_kind", "storage_write")
	}
}
