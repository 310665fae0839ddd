package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/example/gym-admin/internal/persistence"
)

// PlanDurations lists the supported plan lengths in months.
var PlanDurations = []int{1, 3, 6, 12}

// PlanService is the plans repository of the mock backend.
type PlanService struct {
	plans     *persistence.Collection[Plan]
	simulator *Simulator
	faults    *FaultInjector
	logger    *slog.Logger

	mu        sync.Mutex
	listeners []func()
}

// NewPlanService constructs a plan service with the provided dependencies. A
// nil fault injector never fails.
func NewPlanService(store *persistence.Store, simulator *Simulator, faults *FaultInjector) *PlanService {
	return NewPlanServiceWithLogger(store, simulator, faults, nil)
}

// NewPlanServiceWithLogger constructs a plan service with a specified logger.
func NewPlanServiceWithLogger(store *persistence.Store, simulator *Simulator, faults *FaultInjector, logger *slog.Logger) *PlanService {
	if store == nil {
		store = persistence.NewStore(nil)
	}
	return &PlanService{
		plans:     persistence.NewCollection(store, persistence.KeyPlans, SeedPlans),
		simulator: simulator,
		faults:    faults,
		logger:    defaultLogger(logger),
	}
}

func (s *PlanService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PlanService", operation, attrs...)
}

// OnChange registers fn to run after every successful mutation.
func (s *PlanService) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *PlanService) changed() {
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Snapshot returns the stored plans without latency or fault injection.
func (s *PlanService) Snapshot(ctx context.Context) []Plan {
	return s.plans.Load(ctx)
}

// List returns every plan with its computed total.
func (s *PlanService) List(ctx context.Context) (result Envelope[[]PricedPlan], err error) {
	if s == nil {
		err = fmt.Errorf("PlanService is nil")
		return
	}

	logger := s.loggerWith(ctx, "List")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list plans", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(result.Data)).InfoContext(ctx, "plans listed")
	}()

	if err = s.simulator.Delay(ctx, LatencyPlanList); err != nil {
		return
	}
	if s.faults.Fail() {
		err = &NetworkError{Resource: "plans"}
		return
	}

	plans := s.plans.Load(ctx)
	priced := make([]PricedPlan, 0, len(plans))
	for _, plan := range plans {
		priced = append(priced, plan.Priced())
	}
	result = envelope(priced, "Plans fetched successfully")
	return
}

// Get returns a single plan.
func (s *PlanService) Get(ctx context.Context, id int) (result Envelope[PricedPlan], err error) {
	if s == nil {
		err = fmt.Errorf("PlanService is nil")
		return
	}
	if err = s.simulator.Delay(ctx, LatencyGet); err != nil {
		return
	}

	plans := s.plans.Load(ctx)
	idx := indexOfPlan(plans, id)
	if idx < 0 {
		err = &NotFoundError{Resource: "Plan", ID: id}
		s.loggerWith(ctx, "Get", "plan_id", id).ErrorContext(ctx, "failed to fetch plan", "error", err, "error_kind", ErrorKind(err))
		return
	}
	result = envelope(plans[idx].Priced(), "Plan fetched successfully")
	return
}

// Create validates input and appends an Active plan with the next id.
func (s *PlanService) Create(ctx context.Context, input PlanInput) (result Envelope[PricedPlan], err error) {
	if s == nil {
		err = fmt.Errorf("PlanService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create plan", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("plan_id", result.Data.ID).InfoContext(ctx, "plan created")
	}()

	if vErr := validatePlanInput(input, true); vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.simulator.Delay(ctx, LatencyCreate); err != nil {
		return
	}

	var created Plan
	_, err = s.plans.Update(ctx, func(plans []Plan) ([]Plan, error) {
		created = mergePlan(Plan{ID: nextPlanID(plans)}, input)
		created.Status = PlanActive
		return append(plans, created), nil
	})
	if err != nil {
		return
	}

	s.changed()
	result = envelope(created.Priced(), "Plan added successfully")
	return
}

// Update validates and merges input over an existing plan.
func (s *PlanService) Update(ctx context.Context, id int, input PlanInput) (result Envelope[PricedPlan], err error) {
	if s == nil {
		err = fmt.Errorf("PlanService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Update", "plan_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update plan", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "plan updated")
	}()

	if vErr := validatePlanInput(input, false); vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.simulator.Delay(ctx, LatencyUpdate); err != nil {
		return
	}

	var updated Plan
	_, err = s.plans.Update(ctx, func(plans []Plan) ([]Plan, error) {
		idx := indexOfPlan(plans, id)
		if idx < 0 {
			return nil, &NotFoundError{Resource: "Plan", ID: id}
		}
		updated = mergePlan(plans[idx], input)
		plans[idx] = updated
		return plans, nil
	})
	if err != nil {
		return
	}

	s.changed()
	result = envelope(updated.Priced(), "Plan updated successfully")
	return
}

// Delete removes a plan and returns it.
func (s *PlanService) Delete(ctx context.Context, id int) (result Envelope[PricedPlan], err error) {
	if s == nil {
		err = fmt.Errorf("PlanService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Delete", "plan_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete plan", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "plan deleted")
	}()

	if err = s.simulator.Delay(ctx, LatencyDelete); err != nil {
		return
	}

	var removed Plan
	_, err = s.plans.Update(ctx, func(plans []Plan) ([]Plan, error) {
		idx := indexOfPlan(plans, id)
		if idx < 0 {
			return nil, &NotFoundError{Resource: "Plan", ID: id}
		}
		removed = plans[idx]
		return slices.Delete(plans, idx, idx+1), nil
	})
	if err != nil {
		return
	}

	s.changed()
	result = envelope(removed.Priced(), "Plan deleted successfully")
	return
}

// Clear wipes persisted plans so the next read yields the seed.
func (s *PlanService) Clear(ctx context.Context) (Envelope[struct{}], error) {
	if s == nil {
		return Envelope[struct{}]{}, fmt.Errorf("PlanService is nil")
	}
	s.plans.Clear(ctx)
	s.changed()
	s.loggerWith(ctx, "Clear").InfoContext(ctx, "plan data cleared")
	return envelope(struct{}{}, "Plans data cleared successfully"), nil
}

func validatePlanInput(input PlanInput, creating bool) *ValidationError {
	vErr := &ValidationError{}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			vErr.add("name", "name is required")
		}
	} else if creating {
		vErr.add("name", "name is required")
	}

	if input.Duration != nil {
		if !slices.Contains(PlanDurations, *input.Duration) {
			vErr.add("duration", "duration must be one of 1, 3, 6, 12")
		}
	} else if creating {
		vErr.add("duration", "duration is required")
	}

	checkAmount := func(field string, value *decimal.Decimal) {
		if value == nil {
			if creating {
				vErr.add(field, field+" is required")
			}
			return
		}
		if value.IsNegative() {
			vErr.add(field, field+" must not be negative")
		}
	}
	checkAmount("price", input.Price)
	checkAmount("tax", input.Tax)

	if input.Status != nil && *input.Status != PlanActive && *input.Status != PlanInactive {
		vErr.add("status", "status must be Active or Inactive")
	}
	return vErr
}

func mergePlan(existing Plan, input PlanInput) Plan {
	merged := existing
	if input.Name != nil {
		merged.Name = strings.TrimSpace(*input.Name)
	}
	if input.Duration != nil {
		merged.Duration = *input.Duration
	}
	if input.Price != nil {
		merged.Price = *input.Price
	}
	if input.Tax != nil {
		merged.Tax = *input.Tax
	}
	if input.Description != nil {
		merged.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		merged.Status = *input.Status
	}
	return merged
}

func indexOfPlan(plans []Plan, id int) int {
	return slices.IndexFunc(plans, func(p Plan) bool { return p.ID == id })
}

func nextPlanID(plans []Plan) int {
	next := 1
	for _, p := range plans {
		if p.ID >= next {
			next = p.ID + 1
		}
	}
	return next
}
