package plugins

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/tracing"

	"github.com/odvcencio/synthetics/pkg/browser"
	"github.com/odvcencio/synthetics/pkg/journey"
)

// traceCategories captures page timeline and screenshots.
var traceCategories = []string{
	"devtools.timeline",
	"disabled-by-default-devtools.timeline",
	"disabled-by-default-devtools.screenshot",
}

// Tracing captures a protocol trace and turns its screenshot frames into a
// bounded filmstrip.
type Tracing struct {
	maxFrames int

	mu       sync.Mutex
	lc       lifecycle
	events   [][]byte
	complete chan struct{}
	once     sync.Once
	corrupt  int
}

// NewTracing creates an unattached tracing collector keeping at most
// maxFrames filmstrip frames.
func NewTracing(maxFrames int) *Tracing {
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFilmstrips
	}
	return &Tracing{
		maxFrames: maxFrames,
		complete:  make(chan struct{}),
	}
}

func (t *Tracing) Kind() Kind { return KindTrace }

// Start begins trace capture on the session.
func (t *Tracing) Start(ctx context.Context, session browser.Session) error {
	t.mu.Lock()
	err := t.lc.begin()
	t.mu.Unlock()
	if err != nil {
		return err
	}

	session.Listen(t.handle)
	cfg := &tracing.TraceConfig{IncludedCategories: traceCategories}
	if err := tracing.Start().WithTraceConfig(cfg).Do(browser.WithSession(ctx, session)); err != nil {
		t.mu.Lock()
		t.lc.stopped = true
		t.mu.Unlock()
		return &browser.ProtocolError{Method: tracing.CommandStart, Err: err}
	}
	return nil
}

// Stop ends the trace, waits for the browser to flush every buffered
// event, and returns the filtered filmstrip. It blocks until the trace is
// complete or ctx is done.
func (t *Tracing) Stop(ctx context.Context, session browser.Session) ([]journey.FilmStrip, error) {
	t.mu.Lock()
	err := t.lc.end()
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}

	// Events keep arriving after end() until tracingComplete, so the
	// handler accepts data until the complete channel closes.
	if err := tracing.End().Do(browser.WithSession(ctx, session)); err != nil {
		return nil, &browser.ProtocolError{Method: tracing.CommandEnd, Err: err}
	}

	select {
	case <-t.complete:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for trace completion: %w", ctx.Err())
	}

	t.mu.Lock()
	events := t.events
	t.events = nil
	t.mu.Unlock()

	frames, corrupt := DecodeFilmstrips(events)
	t.mu.Lock()
	t.corrupt = corrupt
	t.mu.Unlock()
	return FilterFilmstrips(frames, t.maxFrames), nil
}

// CorruptFrames returns how many screenshot frames were dropped by the
// last Stop because their payload could not be decoded.
func (t *Tracing) CorruptFrames() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.corrupt
}

func (t *Tracing) handle(ev any) {
	switch e := ev.(type) {
	case *tracing.EventDataCollected:
		t.mu.Lock()
		defer t.mu.Unlock()
		if !t.lc.started || t.completed() {
			return
		}
		for _, v := range e.Value {
			t.events = append(t.events, append([]byte(nil), v...))
		}
	case *tracing.EventTracingComplete:
		t.once.Do(func() { close(t.complete) })
	}
}

func (t *Tracing) completed() bool {
	select {
	case <-t.complete:
		return true
	default:
		return false
	}
}
