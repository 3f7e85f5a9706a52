// Package chrome adapts a chromedp-controlled Chrome tab to the browser
// Session and Driver ports.
package chrome

import (
	"context"
	"encoding/base64"
	"sync"
	"sync/atomic"

	"github.com/chromedp/chromedp"
	"github.com/mailru/easyjson"

	"github.com/odvcencio/synthetics/pkg/browser"
)

// Session is one Chrome tab driven over the DevTools protocol.
type Session struct {
	cfg         browser.SessionConfig
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mu        sync.RWMutex
	listeners []func(ev any)
	closed    atomic.Bool
}

var (
	_ browser.Session = (*Session)(nil)
	_ browser.Driver  = (*Session)(nil)
)

// NewSession launches Chrome and opens a tab. The browser lives until
// Close is called or parent is cancelled.
func NewSession(parent context.Context, cfg browser.SessionConfig) (*Session, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.Viewport.Width, cfg.Viewport.Height),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:         cfg,
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}
	chromedp.ListenTarget(ctx, s.dispatch)

	// Run with no actions starts the browser and attaches to the first tab.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, &browser.ProtocolError{Method: "Target.attachToTarget", Err: err}
	}
	return s, nil
}

// Execute sends one protocol command to the tab.
func (s *Session) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	if s.closed.Load() {
		return browser.ErrSessionClosed
	}
	c := chromedp.FromContext(s.ctx)
	if c == nil || c.Target == nil {
		return browser.ErrUnavailable
	}
	return c.Target.Execute(ctx, method, params, res)
}

// Listen adds a protocol event listener.
func (s *Session) Listen(fn func(ev any)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Session) dispatch(ev any) {
	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

// URL returns the current page location.
func (s *Session) URL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Screenshot captures the viewport as a base64 PNG.
func (s *Session) Screenshot(ctx context.Context) (string, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// run executes actions on the tab context while honouring cancellation of
// the caller's ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.closed.Load() {
		return browser.ErrSessionClosed
	}
	runCtx, cancel := context.WithTimeout(s.ctx, s.cfg.OperationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Close shuts down the tab and the browser process.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return browser.ErrSessionClosed
	}
	s.cancel()
	s.allocCancel()
	return nil
}
