package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/gym-admin/internal/application"
	"github.com/example/gym-admin/internal/client"
	"github.com/example/gym-admin/internal/config"
	"github.com/example/gym-admin/internal/gateway"
	apihttp "github.com/example/gym-admin/internal/http"
	"github.com/example/gym-admin/internal/jobs"
	"github.com/example/gym-admin/internal/persistence"
	"github.com/example/gym-admin/internal/persistence/redis"
	"github.com/example/gym-admin/internal/persistence/sqlite"
)

// app holds the wired process: storage, the mock backend behind an
// in-process transport, and the client side that talks to it.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	stderr    io.Writer
	registry  *prometheus.Registry
	authority *application.TokenAuthority
	gateway   *gateway.Gateway
	client    *client.Client
	session   *client.Session
	keeper    *jobs.SessionKeeper
	backend   *persistence.BreakerBackend
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, stderr io.Writer) (*app, error) {
	backend, err := openBackend(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	guarded := persistence.NewBreakerBackend(backend, persistence.BreakerSettings{
		Name:        cfg.Storage.Backend,
		MaxFailures: cfg.Storage.Breaker.MaxFailures,
		OpenTimeout: cfg.Storage.Breaker.OpenTimeout,
	}, logger)
	store := persistence.NewStoreWithLogger(guarded, logger)

	simulator := application.NewSimulator(cfg.Simulation.LatencyScale, nil)
	memberFaults := application.NewFaultInjector(cfg.Simulation.MemberFailureRate, cfg.Simulation.Seed)
	planFaults := application.NewFaultInjector(cfg.Simulation.PlanFailureRate, cfg.Simulation.Seed)

	members := application.NewMemberServiceWithLogger(store, simulator, memberFaults, nil, logger)
	plans := application.NewPlanServiceWithLogger(store, simulator, planFaults, logger)
	dashboard := application.NewDashboardServiceWithLogger(members, plans, simulator, nil, logger)

	authConfig := application.TokenAuthorityConfig{
		Policy:             application.CredentialPolicy(cfg.Auth.Policy),
		AccessTTL:          cfg.Auth.AccessTTL,
		SigningSecret:      []byte(cfg.Auth.SigningSecret),
		RotateRefreshToken: cfg.Auth.RotateRefreshToken,
	}
	if authConfig.Policy == application.PolicyDirectory {
		directory, err := application.NewStaticDirectory(application.DemoAccounts, application.DefaultArgon2idParams)
		if err != nil {
			_ = guarded.Close()
			return nil, fmt.Errorf("build credential directory: %w", err)
		}
		authConfig.Directory = directory
	}
	authority := application.NewTokenAuthorityWithLogger(store, simulator, authConfig, nil, nil, logger)

	router := apihttp.NewRouter(apihttp.RouterConfig{
		Members:   apihttp.NewMemberHandler(members, logger),
		Plans:     apihttp.NewPlanHandler(plans, logger),
		Dashboard: apihttp.NewDashboardHandler(dashboard, logger),
		Middleware: []func(http.Handler) http.Handler{
			apihttp.RequestLogger(logger),
			apihttp.RequireSession(authority, logger),
		},
	})

	registry := prometheus.NewRegistry()
	gw := gateway.New(apihttp.NewInProcessTransport(router), authority,
		gateway.WithLogger(logger),
		gateway.WithMetrics(gateway.NewMetrics(registry)),
		gateway.WithSessionEnd(func(ctx context.Context, cause error) {
			fmt.Fprintln(stderr, "session ended, please log in again")
		}),
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		stderr:    stderr,
		registry:  registry,
		authority: authority,
		gateway:   gw,
		client:    client.New("", gw, client.WithLogger(logger), client.WithBulkConcurrency(cfg.Client.BulkConcurrency)),
		session:   client.NewSession(authority, gw, logger),
		keeper:    jobs.NewSessionKeeper(authority, gw, cfg.Keeper.Schedule, cfg.Keeper.RefreshWindow, logger),
		backend:   guarded,
	}, nil
}

func openBackend(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (persistence.Backend, error) {
	switch cfg.Backend {
	case "memory":
		logger.Warn("using in-memory storage, state is lost on exit")
		return persistence.NewMemoryBackend(), nil
	case "sqlite":
		backend, err := sqlite.Open(ctx, cfg.SQLite.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return backend, nil
	case "redis":
		backend, err := redis.Open(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis storage: %w", err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// restore resumes the stored session and fails when nobody is logged in.
func (a *app) restore(ctx context.Context) (application.SessionUser, error) {
	user, ok, err := a.session.Restore(ctx)
	if err != nil {
		return application.SessionUser{}, err
	}
	if !ok {
		return application.SessionUser{}, errNotLoggedIn
	}
	return user, nil
}

func (a *app) Close() error {
	return a.backend.Close()
}

// writeStats prints every gateway counter gathered during this invocation.
func (a *app) writeStats(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := ""
			for _, pair := range metric.GetLabel() {
				if labels != "" {
					labels += ","
				}
				labels += pair.GetName() + "=" + pair.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				fmt.Fprintf(w, "%s{%s} %g\n", family.GetName(), labels, metric.GetCounter().GetValue())
			case metric.GetHistogram() != nil:
				h := metric.GetHistogram()
				fmt.Fprintf(w, "%s{%s} count=%d sum=%gs\n", family.GetName(), labels, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}
