package jobs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/gym-admin/internal/application"
)

// TokenInspector reports the stored token state.
type TokenInspector interface {
	Info(ctx context.Context) application.TokenInfo
}

// Refresher renews the access token through the single-flight coordinator.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// SessionKeeper refreshes the access token on a cron schedule before it
// expires.
type SessionKeeper struct {
	cron      *cron.Cron
	tokens    TokenInspector
	refresher Refresher
	schedule  string
	window    time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	entryID cron.EntryID
}

// NewSessionKeeper constructs a keeper that refreshes once the token has less
// than window left. Overlapping runs are skipped.
func NewSessionKeeper(tokens TokenInspector, refresher Refresher, schedule string, window time.Duration, logger *slog.Logger) *SessionKeeper {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &SessionKeeper{
		cron:      c,
		tokens:    tokens,
		refresher: refresher,
		schedule:  schedule,
		window:    window,
		logger:    logger.With("job", "SessionKeeper"),
	}
}

// Start registers the check and starts the scheduler in the background.
func (k *SessionKeeper) Start() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.entryID != 0 {
		return nil
	}
	id, err := k.cron.AddFunc(k.schedule, func() {
		_, _ = k.Check(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule session keeper %q: %w", k.schedule, err)
	}
	k.entryID = id
	k.cron.Start()
	k.logger.Info("session keeper started", "schedule", k.schedule, "refresh_window", k.window)
	return nil
}

// Stop halts the scheduler. The returned context is done once a running
// check has finished.
func (k *SessionKeeper) Stop() context.Context {
	ctx := k.cron.Stop()
	k.logger.Info("session keeper stopped")
	return ctx
}

// Next returns the next scheduled run, or the zero time before Start.
func (k *SessionKeeper) Next() time.Time {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.entryID == 0 {
		return time.Time{}
	}
	return k.cron.Entry(k.entryID).Next
}

// Check refreshes the token when it is expired or inside the refresh window.
// It reports whether a refresh happened.
func (k *SessionKeeper) Check(ctx context.Context) (refreshed bool, err error) {
	info := k.tokens.Info(ctx)
	if !info.HasToken || !info.HasRefreshToken {
		k.logger.DebugContext(ctx, "no session to keep alive")
		return false, nil
	}
	if !info.IsExpired && info.TimeUntilExpiry > k.window {
		k.logger.DebugContext(ctx, "token still fresh", "time_until_expiry", info.TimeUntilExpiry)
		return false, nil
	}

	if _, err = k.refresher.Refresh(ctx); err != nil {
		k.logger.ErrorContext(ctx, "proactive refresh failed", "error", err, "error_kind", application.ErrorKind(err))
		return false, err
	}
	k.logger.InfoContext(ctx, "token refreshed ahead of expiry", "was_expired", info.IsExpired)
	return true, nil
}
