package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/tracing"
	"github.com/mailru/easyjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/odvcencio/synthetics/pkg/config"
	synerrors "github.com/odvcencio/synthetics/pkg/errors"
	"github.com/odvcencio/synthetics/pkg/journey"
	"github.com/odvcencio/synthetics/pkg/plugins"
	"github.com/odvcencio/synthetics/pkg/runner"
)

// fakeSession answers every command and, on Tracing.end, flushes the
// configured trace events followed by tracingComplete.
type fakeSession struct {
	mu        sync.Mutex
	listeners []func(any)
	trace     []string
	endErr    error
	methods   []string
}

func (s *fakeSession) Listen(fn func(any)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *fakeSession) Execute(_ context.Context, method string, _ easyjson.Marshaler, _ easyjson.Unmarshaler) error {
	s.mu.Lock()
	s.methods = append(s.methods, method)
	s.mu.Unlock()

	if method == tracing.CommandEnd {
		if s.endErr != nil {
			return s.endErr
		}
		raw := make([]easyjson.RawMessage, 0, len(s.trace))
		for _, e := range s.trace {
			raw = append(raw, easyjson.RawMessage(e))
		}
		s.emit(&tracing.EventDataCollected{Value: raw})
		s.emit(&tracing.EventTracingComplete{})
	}
	return nil
}

func (s *fakeSession) emit(ev any) {
	s.mu.Lock()
	listeners := append([]func(any){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

func (s *fakeSession) navigate(id, url string) {
	ts := cdp.MonotonicTime(time.Now())
	s.emit(&network.EventRequestWillBeSent{
		RequestID: network.RequestID(id),
		LoaderID:  cdp.LoaderID(id),
		Request:   &network.Request{URL: url, Method: "GET"},
		Type:      network.ResourceTypeDocument,
		Timestamp: &ts,
	})
	s.emit(&network.EventResponseReceived{
		RequestID: network.RequestID(id),
		Response:  &network.Response{URL: url, Status: 200},
	})
}

func counterClock() journey.Clock {
	var (
		mu  sync.Mutex
		now int64
	)
	return func() int64 {
		mu.Lock()
		defer mu.Unlock()
		now += 10
		return now
	}
}

type eventLog struct {
	events []runner.Event
}

func newEventLog(r *runner.Runner) *eventLog {
	l := &eventLog{}
	r.SubscribeAll(func(ev runner.Event) error {
		l.events = append(l.events, ev)
		return nil
	})
	return l
}

func (l *eventLog) kinds() []runner.EventKind {
	out := make([]runner.EventKind, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Kind())
	}
	return out
}

func (l *eventLog) steps() []runner.StepEndEvent {
	var out []runner.StepEndEvent
	for _, ev := range l.events {
		if s, ok := ev.(runner.StepEndEvent); ok {
			out = append(out, s)
		}
	}
	return out
}

func (l *eventLog) journeyEnds() []runner.JourneyEndEvent {
	var out []runner.JourneyEndEvent
	for _, ev := range l.events {
		if e, ok := ev.(runner.JourneyEndEvent); ok {
			out = append(out, e)
		}
	}
	return out
}

func noop(context.Context) error { return nil }

func TestExecutor_SucceedingJourney(t *testing.T) {
	r := runner.New()
	log := newEventLog(r)
	exec := NewExecutor(r, nil, WithClock(counterClock()))

	j := journey.New("home",
		journey.NewStep("open", noop),
		journey.NewStep("scroll", noop),
	)
	sum := exec.Run(context.Background(), j)

	assert.Equal(t, Summary{Total: 1, Succeeded: 1}, sum)
	assert.True(t, sum.OK())
	assert.Equal(t, []runner.EventKind{
		runner.EventJourneyStart, runner.EventStepEnd, runner.EventStepEnd, runner.EventJourneyEnd, runner.EventEnd,
	}, log.kinds())

	for _, s := range log.steps() {
		assert.Equal(t, journey.StatusSucceeded, s.Status)
		assert.LessOrEqual(t, s.Start, s.End)
		assert.Same(t, j, s.Journey)
	}

	end := log.journeyEnds()[0]
	assert.Equal(t, journey.StatusSucceeded, end.Status)
	assert.NoError(t, end.Error)
	assert.LessOrEqual(t, end.Start, end.End)
	assert.NotNil(t, end.FilmStrips)
	assert.NotNil(t, end.NetworkInfo)
	assert.Empty(t, end.FilmStrips)
}

func TestExecutor_FailureSkipsRemainingSteps(t *testing.T) {
	r := runner.New()
	log := newEventLog(r)
	exec := NewExecutor(r, nil, WithClock(counterClock()))

	boom := errors.New("myError")
	var ranLast bool
	j := journey.New("checkout",
		journey.NewStep("cart", noop),
		journey.NewStep("pay", func(context.Context) error { return boom }),
		journey.NewStep("confirm", func(context.Context) error { ranLast = true; return nil }),
	)
	sum := exec.Run(context.Background(), j)

	assert.False(t, ranLast)
	assert.Equal(t, Summary{Total: 1, Failed: 1}, sum)

	steps := log.steps()
	require.Len(t, steps, 3)
	assert.Equal(t, journey.StatusSucceeded, steps[0].Status)
	assert.Equal(t, journey.StatusFailed, steps[1].Status)
	assert.ErrorIs(t, steps[1].Error, boom)
	assert.Equal(t, journey.StatusSkipped, steps[2].Status)
	assert.NoError(t, steps[2].Error)

	end := log.journeyEnds()[0]
	assert.Equal(t, journey.StatusFailed, end.Status)
	assert.ErrorIs(t, end.Error, boom)
}

func TestExecutor_StepPanicBecomesError(t *testing.T) {
	r := runner.New()
	log := newEventLog(r)
	exec := NewExecutor(r, nil, WithClock(counterClock()))

	j := journey.New("fragile", journey.NewStep("explode", func(context.Context) error {
		panic("nil element")
	}))
	assert.NotPanics(t, func() { exec.Run(context.Background(), j) })

	steps := log.steps()
	require.Len(t, steps, 1)
	assert.Equal(t, journey.StatusFailed, steps[0].Status)
	assert.True(t, synerrors.IsCode(steps[0].Error, synerrors.ErrCodeStepPanic))

	info := journey.FormatError(steps[0].Error)
	assert.Equal(t, "STEP_PANIC", info.Name)
	assert.Contains(t, info.Message, "nil element")
}

func TestExecutor_CancelledContextFailsStep(t *testing.T) {
	r := runner.New()
	log := newEventLog(r)
	exec := NewExecutor(r, nil, WithClock(counterClock()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	j := journey.New("late", journey.NewStep("open", func(context.Context) error { called = true; return nil }))
	exec.Run(ctx, j)

	assert.False(t, called)
	steps := log.steps()
	require.Len(t, steps, 1)
	assert.ErrorIs(t, steps[0].Error, context.Canceled)
}

func TestExecutor_DriverCapturesPageState(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver := NewMockDriver(ctrl)
	driver.EXPECT().URL(gomock.Any()).Return("https://example.com/a", nil)
	driver.EXPECT().Screenshot(gomock.Any()).Return("c2hvdA==", nil)
	driver.EXPECT().URL(gomock.Any()).Return("", errors.New("target closed"))
	driver.EXPECT().Screenshot(gomock.Any()).Return("", errors.New("target closed"))

	r := runner.New()
	log := newEventLog(r)
	exec := NewExecutor(r, nil, WithClock(counterClock()), WithDriver(driver))

	j := journey.New("pages",
		journey.NewStep("a", noop),
		journey.NewStep("b", func(context.Context) error { return errors.New("crash") }),
		journey.NewStep("c", noop),
	)
	exec.Run(context.Background(), j)

	steps := log.steps()
	require.Len(t, steps, 3)
	assert.Equal(t, "https://example.com/a", steps[0].URL)
	assert.Equal(t, "c2hvdA==", steps[0].Screenshot)
	assert.Empty(t, steps[1].URL)
	assert.Empty(t, steps[2].Screenshot, "skipped steps are not captured")
}

func TestExecutor_MergesCollectorOutput(t *testing.T) {
	session := &fakeSession{trace: []string{
		`{"name":"Screenshot","ts":100,"args":{"snapshot":"AA=="}}`,
		`{"name":"Screenshot","ts":200,"args":{"snapshot":"AQ=="}}`,
	}}

	r := runner.New()
	log := newEventLog(r)
	exec := NewExecutor(r, session,
		WithClock(counterClock()),
		WithKinds(plugins.KindNetwork, plugins.KindTrace),
	)

	j := journey.New("instrumented", journey.NewStep("open", func(context.Context) error {
		session.navigate("1", "https://example.com/")
		return nil
	}))
	exec.Run(context.Background(), j)

	end := log.journeyEnds()[0]
	require.Len(t, end.NetworkInfo, 1)
	assert.Equal(t, "https://example.com/", end.NetworkInfo[0].URL)
	assert.True(t, end.NetworkInfo[0].IsNavigationRequest)
	require.Len(t, end.FilmStrips, 2)
	assert.Equal(t, int64(100), end.FilmStrips[0].Ts)

	assert.Contains(t, session.methods, network.CommandEnable)
	assert.Contains(t, session.methods, tracing.CommandStart)
	assert.Contains(t, session.methods, tracing.CommandEnd)
}

func TestExecutor_CollectorFailureStillReportsJourney(t *testing.T) {
	session := &fakeSession{endErr: errors.New("trace buffer lost")}

	r := runner.New()
	log := newEventLog(r)
	exec := NewExecutor(r, session,
		WithClock(counterClock()),
		WithKinds(plugins.KindNetwork, plugins.KindTrace),
	)

	j := journey.New("lossy", journey.NewStep("open", func(context.Context) error {
		session.navigate("1", "https://example.com/")
		return nil
	}))
	sum := exec.Run(context.Background(), j)

	assert.True(t, sum.OK())
	ends := log.journeyEnds()
	require.Len(t, ends, 1)
	assert.Equal(t, journey.StatusSucceeded, ends[0].Status)
	assert.Empty(t, ends[0].NetworkInfo)
	assert.Empty(t, ends[0].FilmStrips)
	assert.NotNil(t, ends[0].NetworkInfo)
}

func TestExecutor_OneEndForManyJourneys(t *testing.T) {
	r := runner.New()
	log := newEventLog(r)
	exec := NewExecutor(r, nil, WithClock(counterClock()))

	journeys := make([]*journey.Journey, 0, 3)
	for i := 0; i < 3; i++ {
		journeys = append(journeys, journey.New(fmt.Sprintf("j%d", i), journey.NewStep("s", noop)))
	}
	sum := exec.Run(context.Background(), journeys...)
	assert.Equal(t, 3, sum.Total)

	ends := 0
	for _, k := range log.kinds() {
		if k == runner.EventEnd {
			ends++
		}
	}
	assert.Equal(t, 1, ends)
	assert.Equal(t, runner.EventEnd, log.kinds()[len(log.kinds())-1])
}

func TestExecutor_BrokenSubscriberDoesNotAbortRun(t *testing.T) {
	r := runner.New()
	r.SubscribeAll(func(runner.Event) error { panic("reporter bug") })
	log := newEventLog(r)
	exec := NewExecutor(r, nil, WithClock(counterClock()))

	j := journey.New("resilient", journey.NewStep("a", noop), journey.NewStep("b", noop))
	assert.NotPanics(t, func() { exec.Run(context.Background(), j) })
	assert.Len(t, log.events, 5)
}

func TestJourneysFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Params = map[string]any{"env": "prod", "region": "us"}
	cfg.Journeys = []config.JourneyConfig{{
		Name:   "home",
		Params: map[string]any{"region": "eu"},
		Steps: []config.StepConfig{
			{Name: "load", URL: "https://example.com/"},
			{Name: "pause"},
		},
	}}

	ctrl := gomock.NewController(t)
	driver := NewMockDriver(ctrl)
	driver.EXPECT().Navigate(gomock.Any(), "https://example.com/").Return(nil)

	journeys := JourneysFromConfig(cfg, driver)
	require.Len(t, journeys, 1)
	j := journeys[0]
	assert.Equal(t, "home", j.Name)
	assert.Equal(t, map[string]any{"env": "prod", "region": "eu"}, j.Params)
	require.Len(t, j.Steps, 2)
	assert.Equal(t, 2, j.Steps[1].Index)
	assert.Nil(t, j.Steps[1].Fn)

	require.NoError(t, j.Steps[0].Fn(context.Background()))
}
