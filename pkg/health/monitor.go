package health

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	defaultThreshold = 5
	defaultCooldown  = 30 * time.Minute
)

// Alert describes a component that crossed the failure threshold.
type Alert struct {
	Component string
	Failures  int
	LastError string
	Since     time.Time
}

// Notifier delivers an alert to an operator.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

type componentState struct {
	failures     int
	firstFailure time.Time
	lastNotified time.Time
}

// Monitor counts consecutive failures per component and notifies once
// per cooldown window while a component stays over the threshold.
type Monitor struct {
	mu        sync.Mutex
	states    map[string]*componentState
	notifier  Notifier
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// Option configures the monitor.
type Option func(*Monitor)

// WithThreshold sets how many consecutive failures trigger an alert.
func WithThreshold(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.threshold = n
		}
	}
}

// WithCooldown sets the minimum interval between alerts for the same
// component.
func WithCooldown(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.cooldown = d
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Monitor) {
		if log != nil {
			m.log = log
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMonitor creates a monitor. Panics on a nil notifier to fail fast
// during initialization.
func NewMonitor(notifier Notifier, opts ...Option) *Monitor {
	if notifier == nil {
		panic("health: notifier is required")
	}

	m := &Monitor{
		states:    make(map[string]*componentState),
		notifier:  notifier,
		threshold: defaultThreshold,
		cooldown:  defaultCooldown,
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fail records one failure for the component. Crossing the threshold
// sends an alert unless one went out within the cooldown window.
// Notification failures are logged, never returned: the monitor must not
// add failure modes to the paths it watches.
func (m *Monitor) Fail(ctx context.Context, component string, err error) {
	m.mu.Lock()
	state, ok := m.states[component]
	if !ok {
		state = &componentState{firstFailure: m.now()}
		m.states[component] = state
	}
	state.failures++

	notify := state.failures >= m.threshold &&
		m.now().Sub(state.lastNotified) >= m.cooldown
	if notify {
		state.lastNotified = m.now()
	}
	alert := Alert{
		Component: component,
		Failures:  state.failures,
		Since:     state.firstFailure,
	}
	if err != nil {
		alert.LastError = err.Error()
	}
	m.mu.Unlock()

	if !notify {
		return
	}

	if nerr := m.notifier.Notify(ctx, alert); nerr != nil {
		m.log.ErrorContext(ctx, "failed to deliver health alert",
			slog.String("component", component),
			slog.String("error", nerr.Error()))
		return
	}

	m.log.WarnContext(ctx, "health alert sent",
		slog.String("component", component),
		slog.Int("failures", alert.Failures))
}

// OK resets the component by dropping its state entirely, so the next
// streak starts from a clean slate rather than a stale firstFailure.
func (m *Monitor) OK(component string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, component)
}

// Failing lists components currently at or over the threshold, sorted by
// name. Used by the health endpoint.
func (m *Monitor) Failing() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for name, state := range m.states {
		if state.failures >= m.threshold {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
