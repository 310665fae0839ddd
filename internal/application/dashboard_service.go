package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

const dashboardCacheKey = "dashboard"

// DashboardService aggregates member and plan analytics for the dashboard.
type DashboardService struct {
	members   *MemberService
	plans     *PlanService
	simulator *Simulator
	now       func() time.Time
	cache     *statsCache
	logger    *slog.Logger
}

// NewDashboardService constructs a dashboard service. Cached statistics are
// dropped whenever members or plans change.
func NewDashboardService(members *MemberService, plans *PlanService, simulator *Simulator, now func() time.Time) *DashboardService {
	return NewDashboardServiceWithLogger(members, plans, simulator, now, nil)
}

// NewDashboardServiceWithLogger constructs a dashboard service with a specified logger.
func NewDashboardServiceWithLogger(members *MemberService, plans *PlanService, simulator *Simulator, now func() time.Time, logger *slog.Logger) *DashboardService {
	if now == nil {
		now = time.Now
	}
	s := &DashboardService{
		members:   members,
		plans:     plans,
		simulator: simulator,
		now:       now,
		cache:     newStatsCache(30*time.Second, now),
		logger:    defaultLogger(logger),
	}
	if members != nil {
		members.OnChange(s.cache.Invalidate)
	}
	if plans != nil {
		plans.OnChange(s.cache.Invalidate)
	}
	return s
}

func (s *DashboardService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DashboardService", operation, attrs...)
}

// Stats returns the dashboard statistics, computing them when not cached.
func (s *DashboardService) Stats(ctx context.Context) (result Envelope[DashboardStats], err error) {
	if s == nil || s.members == nil || s.plans == nil {
		err = fmt.Errorf("DashboardService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "Stats")
	if err = s.simulator.Delay(ctx, LatencyGet); err != nil {
		logger.ErrorContext(ctx, "dashboard load interrupted", "error", err, "error_kind", ErrorKind(err))
		return
	}

	if cached, hit := s.cache.Get(dashboardCacheKey); hit {
		logger.DebugContext(ctx, "dashboard stats served from cache")
		result = envelope(cached, "Dashboard fetched successfully")
		return
	}

	gen := s.cache.Generation()
	stats := ComputeStats(s.members.Snapshot(ctx), s.plans.Snapshot(ctx), s.now())
	if !s.cache.Store(dashboardCacheKey, stats, gen) {
		logger.DebugContext(ctx, "dashboard stats not cached, data changed during computation")
	}
	logger.With("total_members", stats.TotalMembers).InfoContext(ctx, "dashboard stats computed")
	result = envelope(stats, "Dashboard fetched successfully")
	return
}

// ComputeStats derives dashboard statistics from raw collections.
func ComputeStats(members []Member, plans []Plan, now time.Time) DashboardStats {
	stats := DashboardStats{
		TotalMembers:    len(members),
		OutstandingDues: decimal.Zero,
		MembersByPlan:   make(map[string]int),
		AveragePlanCost: decimal.Zero,
		GeneratedAt:     now,
	}

	for _, m := range members {
		switch m.Status {
		case MemberActive:
			stats.ActiveMembers++
		case MemberPending:
			stats.PendingMembers++
		case MemberExpired:
			stats.ExpiredMembers++
		}
		if deriveStatusFromDate(m.ExpiryDate, now) == MemberPending {
			stats.ExpiringSoon++
		}
		stats.OutstandingDues = stats.OutstandingDues.Add(m.DueAmount)
		if m.Plan != "" {
			stats.MembersByPlan[m.Plan]++
		}
	}

	total := decimal.Zero
	for _, p := range plans {
		if p.Status != PlanActive {
			continue
		}
		stats.ActivePlans++
		total = total.Add(p.Total())
	}
	if stats.ActivePlans > 0 {
		stats.AveragePlanCost = total.Div(decimal.NewFromInt(int64(stats.ActivePlans))).Round(2)
	}
	return stats
}
