package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/example/gym-admin/internal/application"
)

// Members is the members API.
type Members struct {
	c *Client
}

// List fetches members, optionally filtered on the server.
func (m *Members) List(ctx context.Context, filter application.MemberFilter) (Response[[]application.Member], error) {
	query := url.Values{}
	if filter.Search != "" {
		query.Set("q", filter.Search)
	}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Plan != "" {
		query.Set("plan", filter.Plan)
	}
	path := "/members"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return call[[]application.Member](ctx, m.c, http.MethodGet, path, nil)
}

// Get fetches one member.
func (m *Members) Get(ctx context.Context, id int) (Response[application.Member], error) {
	return call[application.Member](ctx, m.c, http.MethodGet, fmt.Sprintf("/members/%d", id), nil)
}

// Create adds a member.
func (m *Members) Create(ctx context.Context, input application.MemberInput) (Response[application.Member], error) {
	return call[application.Member](ctx, m.c, http.MethodPost, "/members", input)
}

// Update merges input into a member.
func (m *Members) Update(ctx context.Context, id int, input application.MemberInput) (Response[application.Member], error) {
	return call[application.Member](ctx, m.c, http.MethodPut, fmt.Sprintf("/members/%d", id), input)
}

// Delete removes a member.
func (m *Members) Delete(ctx context.Context, id int) (Response[application.Member], error) {
	return call[application.Member](ctx, m.c, http.MethodDelete, fmt.Sprintf("/members/%d", id), nil)
}

// Reset restores the seed members.
func (m *Members) Reset(ctx context.Context) (Response[struct{}], error) {
	return call[struct{}](ctx, m.c, http.MethodPost, "/members/reset", nil)
}

// BulkUpdate applies the same input to every id concurrently. Results keep
// the order of ids; the first failure cancels outstanding calls and is
// returned.
func (m *Members) BulkUpdate(ctx context.Context, ids []int, input application.MemberInput) ([]application.Member, error) {
	updated := make([]application.Member, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.c.bulkConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			res, err := m.Update(gctx, id, input)
			if err != nil {
				return fmt.Errorf("update member %d: %w", id, err)
			}
			updated[i] = res.Data.Data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	m.c.logger.InfoContext(ctx, "bulk member update completed", "count", len(ids))
	return updated, nil
}

// BulkDelete removes every id concurrently.
func (m *Members) BulkDelete(ctx context.Context, ids []int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.c.bulkConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			if _, err := m.Delete(gctx, id); err != nil {
				return fmt.Errorf("delete member %d: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	m.c.logger.InfoContext(ctx, "bulk member delete completed", "count", len(ids))
	return nil
}

// Plans is the plans API.
type Plans struct {
	c *Client
}

// List fetches plans with their totals.
func (p *Plans) List(ctx context.Context) (Response[[]application.PricedPlan], error) {
	return call[[]application.PricedPlan](ctx, p.c, http.MethodGet, "/plans", nil)
}

// Get fetches one plan.
func (p *Plans) Get(ctx context.Context, id int) (Response[application.PricedPlan], error) {
	return call[application.PricedPlan](ctx, p.c, http.MethodGet, fmt.Sprintf("/plans/%d", id), nil)
}

// Create adds a plan.
func (p *Plans) Create(ctx context.Context, input application.PlanInput) (Response[application.PricedPlan], error) {
	return call[application.PricedPlan](ctx, p.c, http.MethodPost, "/plans", input)
}

// Update merges input into a plan.
func (p *Plans) Update(ctx context.Context, id int, input application.PlanInput) (Response[application.PricedPlan], error) {
	return call[application.PricedPlan](ctx, p.c, http.MethodPut, fmt.Sprintf("/plans/%d", id), input)
}

// Delete removes a plan.
func (p *Plans) Delete(ctx context.Context, id int) (Response[application.PricedPlan], error) {
	return call[application.PricedPlan](ctx, p.c, http.MethodDelete, fmt.Sprintf("/plans/%d", id), nil)
}

// Reset restores the seed plans.
func (p *Plans) Reset(ctx context.Context) (Response[struct{}], error) {
	return call[struct{}](ctx, p.c, http.MethodPost, "/plans/reset", nil)
}

// Dashboard is the dashboard API.
type Dashboard struct {
	c *Client
}

// Stats fetches the dashboard statistics.
func (d *Dashboard) Stats(ctx context.Context) (Response[application.DashboardStats], error) {
	return call[application.DashboardStats](ctx, d.c, http.MethodGet, "/dashboard", nil)
}
