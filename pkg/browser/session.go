// Package browser defines the ports the instrumentation pipeline needs from
// a browser: a debugging session carrying Chrome DevTools Protocol traffic
// and a page driver for step state.
package browser

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
)

// Session is the debugging channel to one browser target. Commands go out
// through Execute; protocol events are delivered to every listener added
// with Listen, in arrival order, on the session's event goroutine.
// Listeners must not block. Collectors only add listeners and issue
// domain commands; they never close the session.
//
//go:generate mockgen -package=plugins -destination=../plugins/mock_session_test.go github.com/odvcencio/synthetics/pkg/browser Session
type Session interface {
	cdp.Executor
	Listen(fn func(ev any))
}

// Driver exposes the page state recorded on each step.
//
//go:generate mockgen -package=execution -destination=../execution/mock_driver_test.go github.com/odvcencio/synthetics/pkg/browser Driver
type Driver interface {
	// Navigate loads url in the page and waits for the load to finish.
	Navigate(ctx context.Context, url string) error
	// URL returns the current page URL.
	URL(ctx context.Context) (string, error)
	// Screenshot returns a base64 encoded capture of the viewport.
	Screenshot(ctx context.Context) (string, error)
}

// WithSession returns a context that routes cdproto command Do calls
// through s.
func WithSession(ctx context.Context, s Session) context.Context {
	return cdp.WithExecutor(ctx, s)
}
