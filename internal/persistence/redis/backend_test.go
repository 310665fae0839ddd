package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/example/gym-admin/internal/persistence"
)

type mockClient struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
}

func newMockClient() *mockClient {
	return &mockClient{data: make(map[string]string)}
}

func (m *mockClient) Get(ctx context.Context, key string) *goredis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := goredis.NewStringCmd(ctx)
	value, ok := m.data[key]
	if !ok {
		cmd.SetErr(goredis.Nil)
		return cmd
	}
	cmd.SetVal(value)
	return cmd
}

func (m *mockClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := goredis.NewStatusCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	m.data[key] = string(value.([]byte))
	cmd.SetVal("OK")
	return cmd
}

func (m *mockClient) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := goredis.NewIntCmd(ctx)
	var removed int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func TestBackend(t *testing.T) {
	t.Parallel()

	t.Run("prefixes keys and round trips values", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		client := newMockClient()
		backend := New(client, "gym:")

		if err := backend.Set(ctx, persistence.KeyRefreshToken, []byte("refresh")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if _, ok := client.data["gym:"+persistence.KeyRefreshToken]; !ok {
			t.Fatalf("expected prefixed key, got %v", client.data)
		}

		got, err := backend.Get(ctx, persistence.KeyRefreshToken)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "refresh" {
			t.Fatalf("expected refresh, got %q", got)
		}
	})

	t.Run("maps redis nil to not found", func(t *testing.T) {
		t.Parallel()
		backend := New(newMockClient(), "")

		if _, err := backend.Get(context.Background(), "absent"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("surfaces write errors", func(t *testing.T) {
		t.Parallel()
		client := newMockClient()
		client.setErr = errors.New("READONLY")
		backend := New(client, "")

		if err := backend.Set(context.Background(), "k", []byte("v")); err == nil {
			t.Fatalf("expected write error")
		}
	})

	t.Run("deletes keys", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		backend := New(newMockClient(), "")

		_ = backend.Set(ctx, "k", []byte("v"))
		if err := backend.Delete(ctx, "k"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := backend.Get(ctx, "k"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})
}
