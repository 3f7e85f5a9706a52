package observability

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a structured logger for pipeline components.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON logger writing to stderr. Stdout is left free
// for record output.
func NewLogger(component string, level slog.Level) *Logger {
	return NewLoggerWithWriter(os.Stderr, component, level)
}

// NewLoggerWithWriter creates a JSON logger writing to w.
func NewLoggerWithWriter(w io.Writer, component string, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With(
		slog.String("component", component),
		slog.String("system", "synthetics"),
	)
	return &Logger{Logger: logger}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewLoggerWithWriter(io.Discard, "discard", slog.LevelError+1)
}

// WithJourney returns a logger with journey fields.
func (l *Logger) WithJourney(id, name string) *Logger {
	return &Logger{
		Logger: l.Logger.With(
			slog.String("journey_id", id),
			slog.String("journey", name),
		),
	}
}

// WithCollector returns a logger with collector fields.
func (l *Logger) WithCollector(kind string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("collector", kind))}
}

// CollectorStarted logs a successful collector attach.
func (l *Logger) CollectorStarted(kind string) {
	l.Debug("collector started", slog.String("collector", kind))
}

// CollectorFailed logs a collector attach or stop failure.
func (l *Logger) CollectorFailed(kind, phase string, err error) {
	l.Warn("collector failed",
		slog.String("collector", kind),
		slog.String("phase", phase),
		slog.String("error", err.Error()),
	)
}

// SubscriberFailed logs a subscriber that errored or panicked while
// handling an event.
func (l *Logger) SubscriberFailed(event, subscriber string, err error) {
	l.Error("subscriber failed",
		slog.String("event", event),
		slog.String("subscriber", subscriber),
		slog.String("error", err.Error()),
	)
}

// RecordWriteFailed logs a record that could not be written to the sink.
func (l *Logger) RecordWriteFailed(recordType string, err error) {
	l.Error("record write failed",
		slog.String("record_type", recordType),
		slog.String("error", err.Error()),
	)
}

// JourneyFinished logs the outcome of a journey.
func (l *Logger) JourneyFinished(status string, steps int, durationMicros int64) {
	l.Info("journey finished",
		slog.String("status", status),
		slog.Int("steps", steps),
		slog.Int64("duration_us", durationMicros),
	)
}
