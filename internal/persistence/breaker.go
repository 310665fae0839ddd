package persistence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings configures the circuit breaker guarding a backend.
type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// BreakerBackend wraps a Backend in a circuit breaker so a failing external
// store degrades to seed data quickly instead of stalling every call.
type BreakerBackend struct {
	next    Backend
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerBackend wraps next with a circuit breaker.
func NewBreakerBackend(next Backend, settings BreakerSettings, logger *slog.Logger) *BreakerBackend {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.Name == "" {
		settings.Name = "storage"
	}
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 3
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("storage circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &BreakerBackend{next: next, breaker: breaker}
}

// State reports the breaker's current state.
func (b *BreakerBackend) State() gobreaker.State {
	return b.breaker.State()
}

// Get implements Backend.
func (b *BreakerBackend) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.Get(ctx, key)
	})
	if err != nil {
		return nil, mapBreakerError(err)
	}
	raw, _ := out.([]byte)
	return raw, nil
}

// Set implements Backend.
func (b *BreakerBackend) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.next.Set(ctx, key, value)
	})
	return mapBreakerError(err)
}

// Delete implements Backend.
func (b *BreakerBackend) Delete(ctx context.Context, key string) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.next.Delete(ctx, key)
	})
	return mapBreakerError(err)
}

// Close releases the wrapped backend when it holds resources.
func (b *BreakerBackend) Close() error {
	if closer, ok := b.next.(Closer); ok {
		return closer.Close()
	}
	return nil
}

func mapBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrBackendUnavailable, err)
	}
	return err
}
