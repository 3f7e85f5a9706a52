// Package execution drives journeys: it attaches collectors, runs steps in
// order, and emits lifecycle events on a runner with the merged telemetry.
package execution

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/odvcencio/synthetics/pkg/browser"
	synerrors "github.com/odvcencio/synthetics/pkg/errors"
	"github.com/odvcencio/synthetics/pkg/journey"
	"github.com/odvcencio/synthetics/pkg/observability"
	"github.com/odvcencio/synthetics/pkg/plugins"
	"github.com/odvcencio/synthetics/pkg/runner"
)

// Executor runs journeys against one browser session and reports them
// through a runner.
type Executor struct {
	runner     *runner.Runner
	session    browser.Session
	driver     browser.Driver
	clock      journey.Clock
	logger     *observability.Logger
	kinds      []plugins.Kind
	pluginOpts []plugins.Option

	outputTimeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithDriver sets the page driver used to record the url and screenshot
// after each step.
func WithDriver(d browser.Driver) Option {
	return func(e *Executor) { e.driver = d }
}

// WithClock overrides the microsecond clock.
func WithClock(c journey.Clock) Option {
	return func(e *Executor) { e.clock = c }
}

// WithLogger sets the executor's logger.
func WithLogger(l *observability.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithKinds selects the collectors attached for every journey.
func WithKinds(kinds ...plugins.Kind) Option {
	return func(e *Executor) { e.kinds = append([]plugins.Kind(nil), kinds...) }
}

// WithPluginOptions passes options to every per-journey plugin manager.
func WithPluginOptions(opts ...plugins.Option) Option {
	return func(e *Executor) { e.pluginOpts = append(e.pluginOpts, opts...) }
}

// WithOutputTimeout bounds the wait for merged collector output. Zero
// waits as long as the run context allows.
func WithOutputTimeout(d time.Duration) Option {
	return func(e *Executor) { e.outputTimeout = d }
}

// NewExecutor creates an executor emitting on r. A nil session runs
// journeys without collectors.
func NewExecutor(r *runner.Runner, session browser.Session, opts ...Option) *Executor {
	e := &Executor{
		runner:  r,
		session: session,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = journey.NewMonotonicClock()
	}
	if e.logger == nil {
		e.logger = observability.Discard()
	}
	return e
}

// Summary counts journey outcomes for one run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// OK reports whether every journey succeeded.
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Run executes journeys in order, then emits the single end event.
func (e *Executor) Run(ctx context.Context, journeys ...*journey.Journey) Summary {
	ctx, span := observability.StartSpan(ctx, "execution.run")
	defer span.End()

	var sum Summary
	for _, j := range journeys {
		e.RunJourney(ctx, j)
		sum.Total++
		if j.Status == journey.StatusFailed {
			sum.Failed++
		} else {
			sum.Succeeded++
		}
	}

	e.runner.Emit(runner.EndEvent{Timestamp: e.clock()})
	return sum
}

// RunJourney executes one journey and emits its journey:start, step:end
// and journey:end events. It does not emit end.
func (e *Executor) RunJourney(ctx context.Context, j *journey.Journey) {
	log := e.logger.WithJourney(j.ID, j.Name)

	ctx, span := observability.StartSpan(ctx, "execution.journey",
		trace.WithAttributes(
			observability.AttrJourneyID.String(j.ID),
			observability.AttrJourneyName.String(j.Name),
		))
	defer span.End()

	mgr := e.attach(ctx, log)
	if mgr != nil {
		defer mgr.Close()
	}

	j.Status = journey.StatusSucceeded
	j.Error = nil
	j.Start = e.clock()
	e.runner.Emit(runner.JourneyStartEvent{
		Journey:   j,
		Params:    j.Params,
		Timestamp: j.Start,
	})

	for _, step := range j.Steps {
		if j.Status == journey.StatusFailed {
			e.skipStep(j, step)
			continue
		}
		if err := e.runStep(ctx, j, step); err != nil {
			j.Status = journey.StatusFailed
			j.Error = err
		}
	}

	out := e.collect(ctx, mgr, log)

	j.End = e.clock()
	span.SetAttributes(observability.AttrStatus.String(string(j.Status)))
	if j.Error != nil {
		span.RecordError(j.Error)
	}

	e.runner.Emit(runner.JourneyEndEvent{
		Journey:     j,
		Params:      j.Params,
		Status:      j.Status,
		Start:       j.Start,
		End:         j.End,
		Timestamp:   j.End,
		Error:       j.Error,
		FilmStrips:  out.FilmStrips,
		NetworkInfo: out.NetworkInfo,
	})

	observability.JourneysFinished.WithLabelValues(string(j.Status)).Inc()
	log.JourneyFinished(string(j.Status), len(j.Steps), j.End-j.Start)
}

// attach starts the configured collectors. Attach failures are logged and
// the journey proceeds with whatever attached.
func (e *Executor) attach(ctx context.Context, log *observability.Logger) *plugins.Manager {
	if e.session == nil || len(e.kinds) == 0 {
		return nil
	}
	opts := append([]plugins.Option{plugins.WithLogger(log)}, e.pluginOpts...)
	mgr := plugins.NewManager(e.session, opts...)
	if err := mgr.StartAll(ctx, e.kinds...); err != nil {
		log.Warn("collectors unavailable, continuing without them", "error", err.Error())
	}
	return mgr
}

// collect awaits merged collector output. A failed join yields empty
// telemetry so the journey result is still reported.
func (e *Executor) collect(ctx context.Context, mgr *plugins.Manager, log *observability.Logger) journey.CollectorOutput {
	if mgr == nil {
		return journey.NewCollectorOutput()
	}
	if e.outputTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.outputTimeout)
		defer cancel()
	}
	out, err := mgr.Output(ctx)
	if err != nil {
		log.Warn("collector output unavailable, reporting without telemetry", "error", err.Error())
		return journey.NewCollectorOutput()
	}
	return out
}

func (e *Executor) runStep(ctx context.Context, j *journey.Journey, step *journey.Step) error {
	ctx, span := observability.StartSpan(ctx, "execution.step",
		trace.WithAttributes(
			observability.AttrStepName.String(step.Name),
			observability.AttrStepIndex.Int(step.Index),
		))
	defer span.End()

	step.Start = e.clock()
	err := callStep(ctx, step)
	e.capturePage(ctx, step)
	step.End = e.clock()

	step.Error = err
	step.Status = journey.StatusSucceeded
	if err != nil {
		step.Status = journey.StatusFailed
		span.RecordError(err)
	}
	span.SetAttributes(observability.AttrStatus.String(string(step.Status)))

	e.emitStep(j, step)
	return err
}

func (e *Executor) skipStep(j *journey.Journey, step *journey.Step) {
	now := e.clock()
	step.Status = journey.StatusSkipped
	step.Start = now
	step.End = now
	step.Error = nil
	e.emitStep(j, step)
}

func (e *Executor) emitStep(j *journey.Journey, step *journey.Step) {
	e.runner.Emit(runner.StepEndEvent{
		Journey:    j,
		Step:       step,
		Status:     step.Status,
		Screenshot: step.Screenshot,
		URL:        step.URL,
		Start:      step.Start,
		End:        step.End,
		Timestamp:  step.End,
		Error:      step.Error,
	})
}

// capturePage records where the page ended up after a step. Failures only
// cost the step its url or screenshot.
func (e *Executor) capturePage(ctx context.Context, step *journey.Step) {
	if e.driver == nil {
		return
	}
	if u, err := e.driver.URL(ctx); err == nil {
		step.URL = u
	} else {
		e.logger.Debug("page url unavailable", "step", step.Name, "error", err.Error())
	}
	if shot, err := e.driver.Screenshot(ctx); err == nil {
		step.Screenshot = shot
	} else {
		e.logger.Debug("screenshot unavailable", "step", step.Name, "error", err.Error())
	}
}

// callStep runs the step body, converting a panic into a coded error.
func callStep(ctx context.Context, step *journey.Step) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("step %q not started: %w", step.Name, err)
	}
	if step.Fn == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = synerrors.FromPanic(synerrors.ErrCodeStepPanic, rec).
				WithContext("step", step.Name)
		}
	}()
	return step.Fn(ctx)
}
