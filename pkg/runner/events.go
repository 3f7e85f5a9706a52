package runner

import "github.com/odvcencio/synthetics/pkg/journey"

// EventKind names a lifecycle event. The set is closed.
type EventKind string

const (
	EventJourneyStart EventKind = "journey:start"
	EventStepEnd      EventKind = "step:end"
	EventJourneyEnd   EventKind = "journey:end"
	EventEnd          EventKind = "end"
)

// Kinds lists every event kind in lifecycle order.
func Kinds() []EventKind {
	return []EventKind{EventJourneyStart, EventStepEnd, EventJourneyEnd, EventEnd}
}

// Valid reports whether k is one of the lifecycle kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventJourneyStart, EventStepEnd, EventJourneyEnd, EventEnd:
		return true
	}
	return false
}

// Event is a typed lifecycle payload.
type Event interface {
	Kind() EventKind
}

// JourneyStartEvent is emitted before the first step of a journey runs.
type JourneyStartEvent struct {
	Journey   *journey.Journey
	Params    map[string]any
	Timestamp int64
}

func (JourneyStartEvent) Kind() EventKind { return EventJourneyStart }

// StepEndEvent is emitted once per step, including skipped steps.
type StepEndEvent struct {
	Journey    *journey.Journey
	Step       *journey.Step
	Status     journey.Status
	Screenshot string
	URL        string
	Start      int64
	End        int64
	Timestamp  int64
	Error      error
}

func (StepEndEvent) Kind() EventKind { return EventStepEnd }

// JourneyEndEvent is emitted after collector output has been merged.
type JourneyEndEvent struct {
	Journey     *journey.Journey
	Params      map[string]any
	Status      journey.Status
	Start       int64
	End         int64
	Timestamp   int64
	Error       error
	FilmStrips  []journey.FilmStrip
	NetworkInfo []journey.NetworkInfo
}

func (JourneyEndEvent) Kind() EventKind { return EventJourneyEnd }

// EndEvent terminates a run. It is emitted exactly once.
type EndEvent struct {
	Timestamp int64
}

func (EndEvent) Kind() EventKind { return EventEnd }
