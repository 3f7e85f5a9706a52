package reporter

import (
	"context"
	"time"

	"github.com/odvcencio/synthetics/pkg/bus"
	synerrors "github.com/odvcencio/synthetics/pkg/errors"
	"github.com/odvcencio/synthetics/pkg/observability"
	"github.com/odvcencio/synthetics/pkg/runner"
)

// DefaultSubjectPrefix is the subject root records are mirrored under.
const DefaultSubjectPrefix = "synthetics.records"

const mirrorPublishTimeout = 5 * time.Second

// BusMirror publishes every record, byte-identical to the line a JSON
// reporter writes, on "<prefix>.<type>" with slashes in the type mapped to
// dots (journey/start becomes <prefix>.journey.start).
type BusMirror struct {
	runner *runner.Runner
	bus    bus.MessageBus
	prefix string
	logger *observability.Logger
	subs   []runner.Subscription
}

// NewBusMirror subscribes a mirror to every lifecycle event on r. An empty
// prefix selects DefaultSubjectPrefix.
func NewBusMirror(r *runner.Runner, b bus.MessageBus, prefix string, opts ...Option) *BusMirror {
	o := buildOptions(opts)
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	m := &BusMirror{
		runner: r,
		bus:    b,
		prefix: prefix,
		logger: o.logger,
	}
	m.subs = r.SubscribeAll(m.handle)
	return m
}

func (m *BusMirror) handle(ev runner.Event) error {
	rec, err := FromEvent(ev)
	if err != nil {
		return synerrors.Wrap(err, synerrors.ErrCodeInvalidInput, "cannot build record")
	}
	line, err := Marshal(rec)
	if err != nil {
		return synerrors.Wrap(err, synerrors.ErrCodeRecordWrite, "cannot encode record")
	}
	subject, err := bus.JoinSubject(m.prefix, rec.Type)
	if err != nil {
		return synerrors.Wrap(err, synerrors.ErrCodeInvalidInput, "invalid mirror subject").
			WithContext("prefix", m.prefix)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mirrorPublishTimeout)
	defer cancel()
	if err := m.bus.Publish(ctx, subject, line); err != nil {
		m.logger.RecordWriteFailed(rec.Type, err)
		return synerrors.Wrap(err, synerrors.ErrCodeRecordWrite, "mirror publish failed").
			WithContext("subject", subject)
	}
	return nil
}

// Detach unsubscribes the mirror. The bus is left open.
func (m *BusMirror) Detach() {
	for _, sub := range m.subs {
		m.runner.Unsubscribe(sub)
	}
	m.subs = nil
}
