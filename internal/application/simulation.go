package application

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Simulated round-trip latencies of the mock backend.
const (
	LatencyMemberList   = 800 * time.Millisecond
	LatencyPlanList     = 600 * time.Millisecond
	LatencyCreate       = 500 * time.Millisecond
	LatencyUpdate       = 500 * time.Millisecond
	LatencyDelete       = 300 * time.Millisecond
	LatencyGet          = 300 * time.Millisecond
	LatencyLogin        = 1000 * time.Millisecond
	LatencyRefresh      = 500 * time.Millisecond
	LatencyValidate     = 200 * time.Millisecond
	DefaultMemberFaults = 0.1
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Simulator emulates network latency. A scale of 0 disables delays; 1 keeps
// the nominal latencies.
type Simulator struct {
	scale float64
	sleep SleepFunc
}

// NewSimulator constructs a simulator. A nil sleep uses Sleep.
func NewSimulator(scale float64, sleep SleepFunc) *Simulator {
	if scale < 0 {
		scale = 0
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &Simulator{scale: scale, sleep: sleep}
}

// Delay waits for the scaled latency d.
func (s *Simulator) Delay(ctx context.Context, d time.Duration) error {
	if s == nil || s.scale == 0 {
		return ctx.Err()
	}
	return s.sleep(ctx, time.Duration(float64(d)*s.scale))
}

// FaultInjector decides whether a call fails with a synthetic network fault.
type FaultInjector struct {
	mu   sync.Mutex
	rate float64
	rng  *rand.Rand
}

// NewFaultInjector returns an injector failing with probability rate. A
// non-zero seed makes the sequence deterministic.
func NewFaultInjector(rate float64, seed uint64) *FaultInjector {
	var rng *rand.Rand
	if seed != 0 {
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	return &FaultInjector{rate: rate, rng: rng}
}

// Fail samples the injector once.
func (f *FaultInjector) Fail() bool {
	if f == nil || f.rate <= 0 {
		return false
	}
	if f.rate >= 1 {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rng != nil {
		return f.rng.Float64() < f.rate
	}
	return rand.Float64() < f.rate
}
