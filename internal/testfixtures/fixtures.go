package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/gym-admin/internal/application"
	"github.com/example/gym-admin/internal/persistence"
)

var (
	memberCounter uint64
	planCounter   uint64
)

var referenceTime = time.Date(2024, time.February, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Date formats t as a member date field.
func Date(t time.Time) string {
	return t.UTC().Format(application.DateLayout)
}

func derivedStatus(expiry time.Time) application.MemberStatus {
	day, _ := application.ParseDate(Date(expiry))
	return application.DeriveStatus(day, referenceTime)
}

// ----------------------------- Member fixtures -----------------------------

// MemberOption configures a generated member.
type MemberOption func(*application.Member)

// NewMember returns a deterministic member expiring 30 days after
// ReferenceTime. The status is derived from ReferenceTime unless overridden.
func NewMember(opts ...MemberOption) application.Member {
	idx := atomic.AddUint64(&memberCounter, 1)
	expiry := referenceTime.AddDate(0, 0, 30)
	member := application.Member{
		ID:         int(100 + idx),
		Name:       fmt.Sprintf("Member %03d", idx),
		Email:      fmt.Sprintf("member-%03d@example.com", idx),
		Phone:      fmt.Sprintf("+1 (555) 000-%04d", idx),
		Plan:       "Basic",
		StartDate:  Date(referenceTime),
		ExpiryDate: Date(expiry),
		DueAmount:  decimal.Zero,
		Status:     derivedStatus(expiry),
	}
	for _, opt := range opts {
		opt(&member)
	}
	return member
}

// WithMemberID overrides the generated id.
func WithMemberID(id int) MemberOption {
	return func(m *application.Member) {
		m.ID = id
	}
}

// WithMemberName overrides the generated name.
func WithMemberName(name string) MemberOption {
	return func(m *application.Member) {
		m.Name = name
	}
}

// WithMemberEmail overrides the generated email.
func WithMemberEmail(email string) MemberOption {
	return func(m *application.Member) {
		m.Email = email
	}
}

// WithMemberPlan overrides the plan name.
func WithMemberPlan(plan string) MemberOption {
	return func(m *application.Member) {
		m.Plan = plan
	}
}

// WithMemberExpiry sets the expiry date and re-derives the status against
// ReferenceTime.
func WithMemberExpiry(expiry time.Time) MemberOption {
	return func(m *application.Member) {
		m.ExpiryDate = Date(expiry)
		m.Status = derivedStatus(expiry)
	}
}

// WithMemberDue sets the outstanding amount.
func WithMemberDue(amount int64) MemberOption {
	return func(m *application.Member) {
		m.DueAmount = decimal.NewFromInt(amount)
	}
}

// WithMemberStatus forces a stored status regardless of the expiry date.
func WithMemberStatus(status application.MemberStatus) MemberOption {
	return func(m *application.Member) {
		m.Status = status
	}
}

// ------------------------------ Plan fixtures ------------------------------

// PlanOption configures a generated plan.
type PlanOption func(*application.Plan)

// NewPlan returns a deterministic active one-month plan.
func NewPlan(opts ...PlanOption) application.Plan {
	idx := atomic.AddUint64(&planCounter, 1)
	plan := application.Plan{
		ID:          int(100 + idx),
		Name:        fmt.Sprintf("Plan %03d", idx),
		Duration:    1,
		Price:       decimal.NewFromInt(40),
		Tax:         decimal.NewFromInt(4),
		Description: "fixture plan",
		Status:      application.PlanActive,
	}
	for _, opt := range opts {
		opt(&plan)
	}
	return plan
}

// WithPlanID overrides the generated id.
func WithPlanID(id int) PlanOption {
	return func(p *application.Plan) {
		p.ID = id
	}
}

// WithPlanPricing sets price and tax from decimal strings.
func WithPlanPricing(price, tax string) PlanOption {
	return func(p *application.Plan) {
		p.Price = decimal.RequireFromString(price)
		p.Tax = decimal.RequireFromString(tax)
	}
}

// WithPlanStatus overrides the plan status.
func WithPlanStatus(status application.PlanStatus) PlanOption {
	return func(p *application.Plan) {
		p.Status = status
	}
}

// ------------------------------- Store seeding ------------------------------

// SeedMembers persists members under the members collection key.
func SeedMembers(ctx context.Context, store *persistence.Store, members ...application.Member) {
	if members == nil {
		members = []application.Member{}
	}
	store.SaveJSON(ctx, persistence.KeyMembers, members)
}

// SeedPlans persists plans under the plans collection key.
func SeedPlans(ctx context.Context, store *persistence.Store, plans ...application.Plan) {
	if plans == nil {
		plans = []application.Plan{}
	}
	store.SaveJSON(ctx, persistence.KeyPlans, plans)
}
