// Package journey holds the data model for synthetic monitoring journeys:
// journeys and their steps, the telemetry captured while they run, and the
// serializable error shape used in reports.
package journey

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status is the lifecycle outcome of a journey or step.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// StepFunc is the body of a step. A non-nil error fails the step.
type StepFunc func(ctx context.Context) error

// Journey is one scripted end-to-end browser interaction.
type Journey struct {
	ID     string
	Name   string
	Steps  []*Step
	Params map[string]any

	Status Status
	Start  int64
	End    int64
	Error  error
}

// Step is one discrete action within a journey. Names are unique only
// within their parent journey.
type Step struct {
	Name  string
	Index int
	Fn    StepFunc

	Status     Status
	Screenshot string
	URL        string
	Start      int64
	End        int64
	Error      error
}

// New creates a journey with a fresh identifier. Step indexes are assigned
// in the order given, starting at 1.
func New(name string, steps ...*Step) *Journey {
	j := &Journey{
		ID:     ulid.Make().String(),
		Name:   name,
		Params: map[string]any{},
	}
	for _, s := range steps {
		j.AddStep(s)
	}
	return j
}

// NewStep creates a step with the given body.
func NewStep(name string, fn StepFunc) *Step {
	return &Step{Name: name, Fn: fn}
}

// AddStep appends a step and assigns its index.
func (j *Journey) AddStep(s *Step) {
	s.Index = len(j.Steps) + 1
	j.Steps = append(j.Steps, s)
}

// Clock returns the current time in microseconds.
type Clock func() int64

// NewMonotonicClock returns a clock anchored at the current wall time that
// advances with the process monotonic clock, so readings never go backwards
// across wall-clock adjustments.
func NewMonotonicClock() Clock {
	anchor := time.Now()
	base := anchor.UnixMicro()
	return func() int64 {
		return base + time.Since(anchor).Microseconds()
	}
}
