// Package runner is the lifecycle event hub for journey runs. Emission is
// synchronous: every subscriber has returned before Emit does.
package runner

import (
	"sync"

	"github.com/google/uuid"

	synerrors "github.com/odvcencio/synthetics/pkg/errors"
	"github.com/odvcencio/synthetics/pkg/observability"
)

// Handler receives one event. A returned error is logged and counted; it
// never reaches the emitter or other subscribers.
type Handler func(Event) error

// ErrorHandler observes subscriber failures.
type ErrorHandler func(ev Event, sub Subscription, err error)

// Subscription identifies one registered handler.
type Subscription struct {
	ID   string
	Kind EventKind
}

type subscriber struct {
	sub Subscription
	fn  Handler
}

// Runner fans lifecycle events out to subscribers in subscription order.
type Runner struct {
	logger  *observability.Logger
	onError ErrorHandler

	mu     sync.RWMutex
	subs   map[EventKind][]subscriber
	closed bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for subscriber failures.
func WithLogger(l *observability.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithErrorHandler registers a callback invoked for every subscriber
// failure, after it has been logged.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(r *Runner) { r.onError = fn }
}

// New constructs a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{subs: make(map[EventKind][]subscriber)}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = observability.Discard()
	}
	return r
}

// Subscribe registers fn for events of kind.
func (r *Runner) Subscribe(kind EventKind, fn Handler) Subscription {
	sub := Subscription{ID: uuid.NewString(), Kind: kind}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return sub
	}
	r.subs[kind] = append(r.subs[kind], subscriber{sub: sub, fn: fn})
	return sub
}

// SubscribeAll registers fn for every lifecycle kind.
func (r *Runner) SubscribeAll(fn Handler) []Subscription {
	kinds := Kinds()
	subs := make([]Subscription, 0, len(kinds))
	for _, kind := range kinds {
		subs = append(subs, r.Subscribe(kind, fn))
	}
	return subs
}

// Unsubscribe removes a subscription. Unknown subscriptions are ignored.
func (r *Runner) Unsubscribe(sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.subs[sub.Kind]
	for i, s := range list {
		if s.sub.ID == sub.ID {
			r.subs[sub.Kind] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Subscribers returns how many handlers are registered for kind.
func (r *Runner) Subscribers(kind EventKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[kind])
}

// Emit delivers ev to every subscriber of its kind, in order. A failing
// subscriber does not stop delivery to the rest.
func (r *Runner) Emit(ev Event) {
	if ev == nil {
		return
	}
	kind := ev.Kind()

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return
	}
	subs := append([]subscriber(nil), r.subs[kind]...)
	r.mu.RUnlock()

	for _, s := range subs {
		if err := r.dispatch(s, ev); err != nil {
			observability.SubscriberFailures.WithLabelValues(string(kind)).Inc()
			r.logger.SubscriberFailed(string(kind), s.sub.ID, err)
			if r.onError != nil {
				r.onError(ev, s.sub, err)
			}
		}
	}
}

func (r *Runner) dispatch(s subscriber, ev Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = synerrors.FromPanic(synerrors.ErrCodeSubscriberPanic, rec).
				WithContext("event", string(ev.Kind()))
		}
	}()
	return s.fn(ev)
}

// Close drops every subscription. Later emits are ignored.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.subs = make(map[EventKind][]subscriber)
}
