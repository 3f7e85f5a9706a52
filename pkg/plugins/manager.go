package plugins

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/synthetics/pkg/browser"
	synerrors "github.com/odvcencio/synthetics/pkg/errors"
	"github.com/odvcencio/synthetics/pkg/journey"
	"github.com/odvcencio/synthetics/pkg/observability"
)

// Manager owns the collectors attached to one debugging session for the
// lifetime of one journey. It is not meant to be shared between journeys.
type Manager struct {
	session        browser.Session
	maxFilmstrips  int
	sampleInterval time.Duration
	logger         *observability.Logger

	mu      sync.Mutex
	plugins map[Kind]Collector
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxFilmstrips bounds the filmstrip produced by the trace collector.
func WithMaxFilmstrips(n int) Option {
	return func(m *Manager) { m.maxFilmstrips = n }
}

// WithSampleInterval sets the performance sampler pace. Zero disables
// background sampling.
func WithSampleInterval(d time.Duration) Option {
	return func(m *Manager) { m.sampleInterval = d }
}

// WithLogger sets the manager's logger.
func WithLogger(l *observability.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager for session.
func NewManager(session browser.Session, opts ...Option) *Manager {
	m := &Manager{
		session:        session,
		maxFilmstrips:  DefaultMaxFilmstrips,
		sampleInterval: DefaultSampleInterval,
		plugins:        make(map[Kind]Collector),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = observability.Discard()
	}
	return m
}

// Start constructs the collector for kind, attaches it to the session and
// registers it. Starting a kind again replaces the earlier registration;
// a replaced performance collector has its sampler stopped.
func (m *Manager) Start(ctx context.Context, kind Kind) (Collector, error) {
	if m.session == nil {
		return nil, synerrors.Wrap(browser.ErrUnavailable, synerrors.ErrCodeSessionUnavailable, "no debugging session").
			WithContext("kind", kind.String())
	}

	var c Collector
	switch kind {
	case KindNetwork:
		c = NewNetwork()
	case KindTrace:
		c = NewTracing(m.maxFilmstrips)
	case KindPerformance:
		c = NewPerformance(m.sampleInterval, m.logger)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}

	ctx, span := observability.StartSpan(ctx, "plugins.start",
		trace.WithAttributes(observability.AttrCollectorKind.String(kind.String())))
	defer span.End()

	if err := c.Start(ctx, m.session); err != nil {
		span.RecordError(err)
		observability.RecordCollectorFailure(kind.String(), "start")
		m.logger.CollectorFailed(kind.String(), "start", err)
		return nil, synerrors.Wrap(err, synerrors.ErrCodeCollectorAttach, "collector attach failed").
			WithContext("kind", kind.String())
	}

	m.mu.Lock()
	prev := m.plugins[kind]
	m.plugins[kind] = c
	m.mu.Unlock()

	if perf, ok := prev.(*Performance); ok {
		perf.Stop()
	}

	m.logger.CollectorStarted(kind.String())
	return c, nil
}

// StartAll starts every kind concurrently and waits for all of them. Kinds
// that attach are registered even if others fail; the returned error joins
// every attach failure.
func (m *Manager) StartAll(ctx context.Context, kinds ...Kind) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, kind := range kinds {
		kind := kind
		g.Go(func() error {
			if _, err := m.Start(ctx, kind); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Get returns the collector registered for kind.
func (m *Manager) Get(kind Kind) (Collector, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.plugins[kind]
	return c, ok
}

// Lookup returns the collector registered for kind as its concrete type.
func Lookup[T Collector](m *Manager, kind Kind) (T, bool) {
	var zero T
	c, ok := m.Get(kind)
	if !ok {
		return zero, false
	}
	typed, ok := c.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Output stops the network and trace collectors and merges their results.
// Missing collectors contribute empty sequences. Any stop failure fails the
// whole call; no partial output is returned. Performance collectors are
// left running and contribute nothing here.
func (m *Manager) Output(ctx context.Context) (journey.CollectorOutput, error) {
	ctx, span := observability.StartSpan(ctx, "plugins.output")
	defer span.End()

	m.mu.Lock()
	network, _ := m.plugins[KindNetwork].(*Network)
	tracer, _ := m.plugins[KindTrace].(*Tracing)
	m.mu.Unlock()

	out := journey.NewCollectorOutput()

	if network != nil {
		start := time.Now()
		out.NetworkInfo = network.Stop()
		observability.ObserveCollectorStop(KindNetwork.String(), time.Since(start))
	}

	if tracer != nil {
		start := time.Now()
		frames, err := tracer.Stop(ctx, m.session)
		observability.ObserveCollectorStop(KindTrace.String(), time.Since(start))
		if err != nil {
			span.RecordError(err)
			observability.RecordCollectorFailure(KindTrace.String(), "stop")
			m.logger.CollectorFailed(KindTrace.String(), "stop", err)
			return journey.CollectorOutput{}, synerrors.Wrap(err, synerrors.ErrCodeCollectorStop, "collector stop failed").
				WithContext("kind", KindTrace.String())
		}
		if corrupt := tracer.CorruptFrames(); corrupt > 0 {
			m.logger.Warn("dropped corrupt filmstrip frames", "count", corrupt)
		}
		out.FilmStrips = frames
	}

	return out, nil
}

// Close stops any collector still running in the background. It does not
// touch the session.
func (m *Manager) Close() {
	m.mu.Lock()
	perf, _ := m.plugins[KindPerformance].(*Performance)
	m.mu.Unlock()
	if perf != nil {
		perf.Stop()
	}
}
