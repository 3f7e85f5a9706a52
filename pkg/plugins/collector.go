package plugins

import (
	"context"

	"github.com/odvcencio/synthetics/pkg/browser"
)

// Collector is a telemetry source attached to a debugging session. Start
// adds protocol listeners and enables the collector's domain; how the
// accumulated data is taken back depends on the variant.
type Collector interface {
	Kind() Kind
	Start(ctx context.Context, session browser.Session) error
}

// lifecycle tracks the one-shot start/stop state shared by all variants.
// Callers hold the collector's mutex.
type lifecycle struct {
	started bool
	stopped bool
}

func (l *lifecycle) begin() error {
	if l.stopped {
		return ErrCollectorStopped
	}
	if l.started {
		return ErrCollectorStarted
	}
	l.started = true
	return nil
}

func (l *lifecycle) end() error {
	if l.stopped {
		return ErrCollectorStopped
	}
	if !l.started {
		return ErrCollectorNotStarted
	}
	l.stopped = true
	return nil
}

// active reports whether events should still be accumulated.
func (l *lifecycle) active() bool {
	return l.started && !l.stopped
}
