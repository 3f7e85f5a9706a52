package reporter

import (
	"io"
	"sync"

	synerrors "github.com/odvcencio/synthetics/pkg/errors"
	"github.com/odvcencio/synthetics/pkg/observability"
	"github.com/odvcencio/synthetics/pkg/runner"
)

// Option configures a reporter.
type Option func(*options)

type options struct {
	logger *observability.Logger
}

// WithLogger sets the logger used for write failures.
func WithLogger(l *observability.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = observability.Discard()
	}
	return o
}

// JSON writes one record per runner event to a sink. Each record reaches
// the sink through a single Write call. The sink is never closed here;
// its owner closes it after the end record has been written.
type JSON struct {
	runner *runner.Runner
	logger *observability.Logger
	subs   []runner.Subscription

	mu      sync.Mutex
	w       io.Writer
	err     error
	written int
}

// NewJSON subscribes a JSON reporter to every lifecycle event on r.
func NewJSON(r *runner.Runner, w io.Writer, opts ...Option) *JSON {
	o := buildOptions(opts)
	j := &JSON{
		runner: r,
		logger: o.logger,
		w:      w,
	}
	j.subs = r.SubscribeAll(j.handle)
	return j
}

func (j *JSON) handle(ev runner.Event) error {
	rec, err := FromEvent(ev)
	if err != nil {
		return synerrors.Wrap(err, synerrors.ErrCodeInvalidInput, "cannot build record")
	}
	return j.Write(rec)
}

// Write serializes rec and appends it to the sink. Records are written in
// call order; a failed record is not retried.
func (j *JSON) Write(rec Record) error {
	line, err := Marshal(rec)
	if err != nil {
		return j.fail(rec.Type, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.w.Write(line); err != nil {
		return j.failLocked(rec.Type, err)
	}
	j.written++
	observability.RecordsWritten.WithLabelValues(rec.Type).Inc()
	return nil
}

func (j *JSON) fail(recordType string, err error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.failLocked(recordType, err)
}

func (j *JSON) failLocked(recordType string, err error) error {
	wrapped := synerrors.Wrap(err, synerrors.ErrCodeRecordWrite, "record write failed").
		WithContext("type", recordType)
	if j.err == nil {
		j.err = wrapped
	}
	observability.RecordWriteFailures.WithLabelValues(recordType).Inc()
	j.logger.RecordWriteFailed(recordType, err)
	return wrapped
}

// Err returns the first write failure, if any.
func (j *JSON) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Written returns how many records reached the sink.
func (j *JSON) Written() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.written
}

// Detach unsubscribes the reporter from the runner. The sink is left open.
func (j *JSON) Detach() {
	for _, sub := range j.subs {
		j.runner.Unsubscribe(sub)
	}
	j.subs = nil
}
