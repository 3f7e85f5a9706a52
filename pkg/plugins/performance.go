package plugins

import (
	"context"
	"sync"
	"time"

	cdpperf "github.com/chromedp/cdproto/performance"
	"golang.org/x/time/rate"

	"github.com/odvcencio/synthetics/pkg/browser"
	"github.com/odvcencio/synthetics/pkg/observability"
	"github.com/odvcencio/synthetics/pkg/performance"
)

// DefaultSampleInterval paces background sampling of performance counters.
const DefaultSampleInterval = time.Second

// Performance samples the browser's performance counters. Its data is not
// part of the merged journey output; callers read it through the manager's
// Get.
type Performance struct {
	interval time.Duration
	logger   *observability.Logger
	series   *performance.Series

	mu      sync.Mutex
	lc      lifecycle
	session browser.Session
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPerformance creates an unattached performance collector. With a
// positive interval, Start launches a sampler recording every counter at
// most once per interval; otherwise counters are only read on demand.
func NewPerformance(interval time.Duration, logger *observability.Logger) *Performance {
	if logger == nil {
		logger = observability.Discard()
	}
	return &Performance{
		interval: interval,
		logger:   logger.WithCollector(KindPerformance.String()),
		series:   performance.NewSeries(),
	}
}

func (p *Performance) Kind() Kind { return KindPerformance }

// Start enables the Performance domain and, if configured, the sampler.
func (p *Performance) Start(ctx context.Context, session browser.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.lc.begin(); err != nil {
		return err
	}
	if err := cdpperf.Enable().Do(browser.WithSession(ctx, session)); err != nil {
		p.lc.stopped = true
		return &browser.ProtocolError{Method: cdpperf.CommandEnable, Err: err}
	}
	p.session = session

	if p.interval > 0 {
		sampleCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		p.cancel = cancel
		p.done = make(chan struct{})
		go p.sample(sampleCtx, p.done)
	}
	return nil
}

// Metrics reads the current value of every performance counter.
func (p *Performance) Metrics(ctx context.Context) (map[string]float64, error) {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()
	if session == nil {
		return nil, ErrCollectorNotStarted
	}

	metrics, err := cdpperf.GetMetrics().Do(browser.WithSession(ctx, session))
	if err != nil {
		return nil, &browser.ProtocolError{Method: cdpperf.CommandGetMetrics, Err: err}
	}
	out := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		if m == nil {
			continue
		}
		out[m.Name] = m.Value
	}
	return out, nil
}

// Sample reads the counters once and records them in the series.
func (p *Performance) Sample(ctx context.Context) error {
	values, err := p.Metrics(ctx)
	if err != nil {
		return err
	}
	p.series.TrackAll(values)
	return nil
}

// Stats returns aggregates of everything sampled so far.
func (p *Performance) Stats() map[string]performance.Stats {
	return p.series.GetStats()
}

// Latest returns the most recent sample of every counter.
func (p *Performance) Latest() map[string]float64 {
	return p.series.Latest()
}

// Stop halts background sampling. Sampled data stays readable.
func (p *Performance) Stop() {
	p.mu.Lock()
	if err := p.lc.end(); err != nil {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (p *Performance) sample(ctx context.Context, done chan struct{}) {
	defer close(done)

	limiter := rate.NewLimiter(rate.Every(p.interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if err := p.Sample(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Debug("performance sample failed", "error", err.Error())
		}
	}
}
