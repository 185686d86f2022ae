package billing

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/coachbill/pkg/billing"
	"github.com/dmitrymomot/coachbill/pkg/health"
	"github.com/dmitrymomot/coachbill/pkg/plan"
	"github.com/dmitrymomot/coachbill/pkg/provider/hotmart"
	"github.com/dmitrymomot/coachbill/pkg/provider/paddle"
	"github.com/dmitrymomot/coachbill/pkg/reconciler"
	"github.com/dmitrymomot/coachbill/pkg/subscription"
	"github.com/dmitrymomot/coachbill/pkg/tenant"
	"github.com/dmitrymomot/coachbill/pkg/usage"
)

// Config holds the HTTP-surface settings.
type Config struct {
	AdminToken string `env:"ADMIN_API_TOKEN"`
}

// Deps bundles the domain collaborators the service exposes over HTTP.
// Directory is optional; everything else is required.
type Deps struct {
	Catalog       *plan.Catalog
	Subscriptions *subscription.Service
	Store         subscription.Store
	Tracker       *usage.Tracker
	Summarizer    *billing.Summarizer
	Reconciler    *reconciler.Reconciler
	Hotmart       *hotmart.Webhook
	Paddle        *paddle.Webhook

	// Directory, when set, records the tenant's email at registration so
	// later webhook deliveries resolve it. Leave nil when another system
	// owns the email mapping.
	Directory tenant.Directory
}

// Service is the HTTP layer over the billing domain.
type Service struct {
	deps       Deps
	monitor    *health.Monitor
	metrics    *metrics
	registry   *prometheus.Registry
	checks     map[string]func(context.Context) error
	adminToken string
	log        *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMonitor installs the health monitor fed by webhook failures.
func WithMonitor(m *health.Monitor) Option {
	return func(s *Service) { s.monitor = m }
}

// WithHealthcheck registers a named dependency probe for /health.
func WithHealthcheck(name string, check func(context.Context) error) Option {
	return func(s *Service) { s.checks[name] = check }
}

// WithAdminToken enables the operator endpoints. With no token configured
// every admin request is rejected.
func WithAdminToken(token string) Option {
	return func(s *Service) { s.adminToken = token }
}

// New creates the service. Panics on missing required dependencies to
// fail fast during initialization.
func New(deps Deps, opts ...Option) *Service {
	if deps.Catalog == nil {
		panic("billing: plan catalog is required")
	}
	if deps.Subscriptions == nil {
		panic("billing: subscription service is required")
	}
	if deps.Store == nil {
		panic("billing: subscription store is required")
	}
	if deps.Tracker == nil {
		panic("billing: usage tracker is required")
	}
	if deps.Summarizer == nil {
		panic("billing: summarizer is required")
	}
	if deps.Reconciler == nil {
		panic("billing: reconciler is required")
	}
	if deps.Hotmart == nil {
		panic("billing: hotmart webhook is required")
	}
	if deps.Paddle == nil {
		panic("billing: paddle webhook is required")
	}

	registry := prometheus.NewRegistry()
	s := &Service{
		deps:     deps,
		metrics:  newMetrics(registry),
		registry: registry,
		checks:   make(map[string]func(context.Context) error),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fail feeds a component failure to the monitor, when one is installed.
func (s *Service) fail(ctx context.Context, component string, err error) {
	if s.monitor != nil {
		s.monitor.Fail(ctx, component, err)
	}
}

// ok resets a component's failure streak, when a monitor is installed.
func (s *Service) ok(component string) {
	if s.monitor != nil {
		s.monitor.OK(component)
	}
}
