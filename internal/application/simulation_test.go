package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSimulator_Delay(t *testing.T) {
	t.Parallel()

	t.Run("scales the nominal latency", func(t *testing.T) {
		t.Parallel()
		var slept time.Duration
		sim := NewSimulator(0.5, func(ctx context.Context, d time.Duration) error {
			slept = d
			return nil
		})
		if err := sim.Delay(context.Background(), LatencyMemberList); err != nil {
			t.Fatalf("Delay returned error: %v", err)
		}
		if slept != 400*time.Millisecond {
			t.Fatalf("expected 400ms, got %s", slept)
		}
	})

	t.Run("honours cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := NewSimulator(1, nil).Delay(ctx, time.Hour); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestFaultInjector(t *testing.T) {
	t.Parallel()

	if NewFaultInjector(0, 1).Fail() {
		t.Fatalf("rate 0 must never fail")
	}
	if !NewFaultInjector(1, 1).Fail() {
		t.Fatalf("rate 1 must always fail")
	}

	first := NewFaultInjector(0.1, 42)
	second := NewFaultInjector(0.1, 42)
	failures := 0
	for i := 0; i < 1000; i++ {
		a, b := first.Fail(), second.Fail()
		if a != b {
			t.Fatalf("seeded injectors diverged at sample %d", i)
		}
		if a {
			failures++
		}
	}
	if failures < 50 || failures > 150 {
		t.Fatalf("expected roughly 10%% failures, got %d/1000", failures)
	}
}
