package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/gym-admin/internal/application"
	"github.com/example/gym-admin/internal/persistence"
)

// TestSigningSecret signs access tokens minted by factory-built authorities.
var TestSigningSecret = []byte("gym-admin-test-secret")

// ServiceFactory assists tests with constructing application services that
// share one store, one deterministic clock and one token generator. Latency is
// simulated by advancing the clock rather than sleeping.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Backend     *persistence.MemoryBackend
	Store       *persistence.Store
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("token"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("token")
	}
	if factory.Store == nil {
		if factory.Backend == nil {
			factory.Backend = persistence.NewMemoryBackend()
		}
		factory.Store = persistence.NewStoreWithLogger(factory.Backend, factory.Logger)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the token generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithStore shares an existing store, for example one backed by SQLite.
func WithStore(store *persistence.Store) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Store = store
	}
}

// WithLogger attaches a logger to every service the factory builds.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Simulator returns a full-scale simulator whose delays advance the clock.
func (f *ServiceFactory) Simulator() *application.Simulator {
	return application.NewSimulator(1, f.Clock.Sleep)
}

// NewMemberService builds a member service. A nil faults never fails.
func (f *ServiceFactory) NewMemberService(faults *application.FaultInjector) *application.MemberService {
	return application.NewMemberServiceWithLogger(f.Store, f.Simulator(), faults, f.Clock.NowFunc(), f.Logger)
}

// NewPlanService builds a plan service. A nil faults never fails.
func (f *ServiceFactory) NewPlanService(faults *application.FaultInjector) *application.PlanService {
	return application.NewPlanServiceWithLogger(f.Store, f.Simulator(), faults, f.Logger)
}

// NewDashboardService builds a dashboard over the supplied services.
func (f *ServiceFactory) NewDashboardService(members *application.MemberService, plans *application.PlanService) *application.DashboardService {
	return application.NewDashboardServiceWithLogger(members, plans, f.Simulator(), f.Clock.NowFunc(), f.Logger)
}

// NewTokenAuthority builds a token authority. Zero config fields fall back to
// the open policy, a one hour TTL and TestSigningSecret.
func (f *ServiceFactory) NewTokenAuthority(config application.TokenAuthorityConfig) *application.TokenAuthority {
	if len(config.SigningSecret) == 0 {
		config.SigningSecret = TestSigningSecret
	}
	return application.NewTokenAuthorityWithLogger(f.Store, f.Simulator(), config, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}
