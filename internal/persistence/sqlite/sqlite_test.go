package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/example/gym-admin/internal/persistence"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "gymadmin.db")
	backend, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("failed to open backend: %v", err)
	}
	t.Cleanup(func() {
		_ = backend.Close()
	})
	return backend
}

func TestBackend(t *testing.T) {
	t.Parallel()

	t.Run("reports missing keys as not found", func(t *testing.T) {
		t.Parallel()
		backend := newTestBackend(t)

		_, err := backend.Get(context.Background(), "missing")
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("upserts and deletes values", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		backend := newTestBackend(t)

		if err := backend.Set(ctx, persistence.KeyMembers, []byte(`[{"id":1}]`)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := backend.Set(ctx, persistence.KeyMembers, []byte(`[]`)); err != nil {
			t.Fatalf("second Set failed: %v", err)
		}

		got, err := backend.Get(ctx, persistence.KeyMembers)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "[]" {
			t.Fatalf("expected overwritten value, got %q", got)
		}

		keys, err := backend.Keys(ctx)
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		if len(keys) != 1 || keys[0] != persistence.KeyMembers {
			t.Fatalf("unexpected keys: %v", keys)
		}

		if err := backend.Delete(ctx, persistence.KeyMembers); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := backend.Delete(ctx, persistence.KeyMembers); err != nil {
			t.Fatalf("deleting an absent key should succeed, got %v", err)
		}
		if _, err := backend.Get(ctx, persistence.KeyMembers); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("persists across reopen", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		dsn := filepath.Join(t.TempDir(), "reopen.db")

		first, err := Open(ctx, dsn)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if err := first.Set(ctx, persistence.KeyAccessToken, []byte("token")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := first.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		second, err := Open(ctx, dsn)
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		defer second.Close()

		got, err := second.Get(ctx, persistence.KeyAccessToken)
		if err != nil {
			t.Fatalf("Get after reopen failed: %v", err)
		}
		if string(got) != "token" {
			t.Fatalf("expected persisted token, got %q", got)
		}
	})

	t.Run("serves a collection through the store", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		store := persistence.NewStore(newTestBackend(t))
		plans := persistence.NewCollection(store, persistence.KeyPlans, func() []string { return []string{"seed"} })

		if got := plans.Load(ctx); len(got) != 1 || got[0] != "seed" {
			t.Fatalf("expected seed on empty database, got %v", got)
		}
		if _, err := plans.Update(ctx, func(items []string) ([]string, error) {
			return append(items, "added"), nil
		}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if got := plans.Load(ctx); len(got) != 2 || got[1] != "added" {
			t.Fatalf("expected persisted update, got %v", got)
		}
	})
}

func TestErrorMapper(t *testing.T) {
	t.Parallel()

	mapper := ErrorMapper{}
	if err := mapper.MapError(errors.New("database is locked (5)")); !errors.Is(err, errDatabaseLocked) {
		t.Fatalf("expected locked error, got %v", err)
	}
	other := errors.New("syntax error")
	if err := mapper.MapError(other); err != other {
		t.Fatalf("expected unmapped error to pass through, got %v", err)
	}
}

func TestRetryHelper(t *testing.T) {
	t.Parallel()

	helper := NewRetryHelper(RetryConfig{MaxRetries: 2, BackoffFactor: 1})
	attempts := 0
	err := helper.WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}
