package client_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/example/gym-admin/internal/application"
	"github.com/example/gym-admin/internal/client"
	"github.com/example/gym-admin/internal/gateway"
	apihttp "github.com/example/gym-admin/internal/http"
	"github.com/example/gym-admin/internal/logging"
	"github.com/example/gym-admin/internal/persistence"
	"github.com/example/gym-admin/internal/testfixtures"
)

type stack struct {
	factory     *testfixtures.ServiceFactory
	authority   *application.TokenAuthority
	gateway     *gateway.Gateway
	metrics     *gateway.Metrics
	client      *client.Client
	session     *client.Session
	sessionEnds atomic.Int64
}

func newStack(t *testing.T, memberFaults float64) *stack {
	t.Helper()

	logger := logging.Discard()
	s := &stack{factory: testfixtures.NewServiceFactory(testfixtures.WithLogger(logger))}
	members := s.factory.NewMemberService(application.NewFaultInjector(memberFaults, 0))
	plans := s.factory.NewPlanService(nil)
	s.authority = s.factory.NewTokenAuthority(application.TokenAuthorityConfig{})

	router := apihttp.NewRouter(apihttp.RouterConfig{
		Members:    apihttp.NewMemberHandler(members, logger),
		Plans:      apihttp.NewPlanHandler(plans, logger),
		Dashboard:  apihttp.NewDashboardHandler(s.factory.NewDashboardService(members, plans), logger),
		Middleware: []func(http.Handler) http.Handler{apihttp.RequireSession(s.authority, logger)},
	})

	s.metrics = gateway.NewMetrics(nil)
	s.gateway = gateway.New(apihttp.NewInProcessTransport(router), s.authority,
		gateway.WithLogger(logger),
		gateway.WithMetrics(s.metrics),
		gateway.WithSessionEnd(func(ctx context.Context, cause error) { s.sessionEnds.Add(1) }),
	)
	s.client = client.New("", s.gateway, client.WithLogger(logger), client.WithBulkConcurrency(2))
	s.session = client.NewSession(s.authority, s.gateway, logger)
	return s
}

func (s *stack) login(t *testing.T) application.SessionUser {
	t.Helper()
	user, err := s.session.Login(context.Background(), application.LoginParams{Email: "admin@gym.com", Password: "Admin123!"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	return user
}

func TestClient_TransparentRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStack(t, 0)
	s.login(t)

	res, err := s.client.Members.List(ctx, application.MemberFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if res.Status != http.StatusOK || len(res.Data.Data) != 4 || res.Data.Message != "Members fetched successfully" {
		t.Fatalf("unexpected response %+v", res)
	}

	s.authority.SimulateExpiry(ctx)
	res, err = s.client.Members.List(ctx, application.MemberFilter{Search: "emily"})
	if err != nil {
		t.Fatalf("List after expiry returned error: %v", err)
	}
	if len(res.Data.Data) != 1 {
		t.Fatalf("expected filtered result after refresh, got %+v", res.Data.Data)
	}
	if got := testutil.ToFloat64(s.metrics.Refreshes.WithLabelValues("success")); got != 1 {
		t.Fatalf("expected one refresh, got %v", got)
	}
	if s.authority.State(ctx) != application.SessionValid {
		t.Fatalf("expected valid session after refresh")
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		s := newStack(t, 0)
		s.login(t)

		_, err := s.client.Members.Get(ctx, 99)
		if !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		var apiErr *client.Error
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Message != "Member not found" {
			t.Fatalf("expected 404 client error, got %#v", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		s := newStack(t, 0)
		s.login(t)

		name := "Broken"
		_, err := s.client.Plans.Create(ctx, application.PlanInput{Name: &name})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["duration"]; !ok {
			t.Fatalf("expected duration field error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("staff sessions are forbidden from admin actions", func(t *testing.T) {
		t.Parallel()
		s := newStack(t, 0)
		if _, err := s.session.Login(ctx, application.LoginParams{Email: "frontdesk@gym.com", Password: "Staff123!"}); err != nil {
			t.Fatalf("Login returned error: %v", err)
		}

		err := s.client.Members.BulkDelete(ctx, []int{1, 2})
		if !errors.Is(err, application.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		var apiErr *client.Error
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden || apiErr.Message != "Admin access required" {
			t.Fatalf("expected 403 client error, got %#v", err)
		}
		if got := len(s.factory.NewMemberService(nil).Snapshot(ctx)); got != 4 {
			t.Fatalf("expected no deletions, got %d members", got)
		}
	})

	t.Run("transient network fault", func(t *testing.T) {
		t.Parallel()
		s := newStack(t, 1)
		s.login(t)

		_, err := s.client.Members.List(ctx, application.MemberFilter{})
		if !errors.Is(err, application.ErrTransientNetwork) {
			t.Fatalf("expected ErrTransientNetwork, got %v", err)
		}
	})

	t.Run("no session ends at the login boundary", func(t *testing.T) {
		t.Parallel()
		s := newStack(t, 0)

		_, err := s.client.Plans.List(ctx)
		if !errors.Is(err, application.ErrNoRefreshToken) {
			t.Fatalf("expected ErrNoRefreshToken, got %v", err)
		}
		if s.sessionEnds.Load() != 1 {
			t.Fatalf("expected session end hook once, got %d", s.sessionEnds.Load())
		}
	})
}

func TestClient_BulkOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStack(t, 0)
	s.login(t)

	status := application.MemberExpired
	updated, err := s.client.Members.BulkUpdate(ctx, []int{4, 2, 1}, application.MemberInput{Status: &status})
	if err != nil {
		t.Fatalf("BulkUpdate returned error: %v", err)
	}
	if len(updated) != 3 || updated[0].ID != 4 || updated[2].ID != 1 {
		t.Fatalf("expected results in id order, got %+v", updated)
	}
	for _, m := range updated {
		if m.Status != application.MemberExpired {
			t.Fatalf("expected Expired for member %d, got %s", m.ID, m.Status)
		}
	}

	if err := s.client.Members.BulkDelete(ctx, []int{1, 2}); err != nil {
		t.Fatalf("BulkDelete returned error: %v", err)
	}
	if err := s.client.Members.BulkDelete(ctx, []int{99}); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}

	res, err := s.client.Members.List(ctx, application.MemberFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(res.Data.Data) != 2 || res.Data.Data[0].ID != 3 || res.Data.Data[1].ID != 4 {
		t.Fatalf("expected members 3 and 4 to remain, got %+v", res.Data.Data)
	}
}

func TestSession_Restore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("valid token resumes the user", func(t *testing.T) {
		t.Parallel()
		s := newStack(t, 0)
		want := s.login(t)

		user, ok, err := s.session.Restore(ctx)
		if err != nil || !ok || user != want {
			t.Fatalf("expected %+v, got %+v %v %v", want, user, ok, err)
		}
	})

	t.Run("expired token is refreshed", func(t *testing.T) {
		t.Parallel()
		s := newStack(t, 0)
		s.login(t)
		s.authority.SimulateExpiry(ctx)

		_, ok, err := s.session.Restore(ctx)
		if err != nil || !ok {
			t.Fatalf("expected restored session, got %v %v", ok, err)
		}
		if s.authority.IsExpired(ctx) {
			t.Fatalf("expected refreshed expiry")
		}
	})

	t.Run("failed refresh clears the session", func(t *testing.T) {
		t.Parallel()
		s := newStack(t, 0)
		s.login(t)
		s.authority.SimulateExpiry(ctx)
		s.factory.Store.Remove(ctx, persistence.KeyRefreshToken)

		_, ok, err := s.session.Restore(ctx)
		if ok || !errors.Is(err, application.ErrNoRefreshToken) {
			t.Fatalf("expected ErrNoRefreshToken, got %v %v", ok, err)
		}
		if s.authority.State(ctx) != application.SessionNone {
			t.Fatalf("expected cleared session, got %s", s.authority.State(ctx))
		}
	})

	t.Run("no stored token starts clean", func(t *testing.T) {
		t.Parallel()
		s := newStack(t, 0)

		_, ok, err := s.session.Restore(ctx)
		if ok || err != nil {
			t.Fatalf("expected no session, got %v %v", ok, err)
		}
	})
}

func TestClient_DashboardAndPlans(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStack(t, 0)
	s.login(t)

	if _, err := s.client.Plans.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	stats, err := s.client.Dashboard.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Data.Data.ActivePlans != 3 || stats.Data.Data.TotalMembers != 4 {
		t.Fatalf("unexpected stats %+v", stats.Data.Data)
	}

	if _, err := s.client.Plans.Reset(ctx); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	plans, err := s.client.Plans.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(plans.Data.Data) != 4 {
		t.Fatalf("expected seed plans after reset, got %d", len(plans.Data.Data))
	}
}
