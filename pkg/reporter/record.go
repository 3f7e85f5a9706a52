// Package reporter turns runner lifecycle events into newline-delimited
// JSON records.
package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/odvcencio/synthetics/pkg/journey"
	"github.com/odvcencio/synthetics/pkg/runner"
)

// Record types, one per lifecycle event kind.
const (
	TypeJourneyStart = "journey/start"
	TypeStepEnd      = "step/end"
	TypeJourneyEnd   = "journey/end"
	TypeEnd          = "end"
)

// JourneyRef identifies the journey a record belongs to.
type JourneyRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// StepRef identifies a step within its journey.
type StepRef struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// Record is one line of report output. Event fields are flattened onto the
// record; errors are carried in their normalized form.
type Record struct {
	Type        string                `json:"type"`
	Timestamp   int64                 `json:"timestamp"`
	Journey     *JourneyRef           `json:"journey,omitempty"`
	Step        *StepRef              `json:"step,omitempty"`
	Status      journey.Status        `json:"status,omitempty"`
	URL         string                `json:"url,omitempty"`
	Screenshot  string                `json:"screenshot,omitempty"`
	Start       int64                 `json:"start,omitempty"`
	End         int64                 `json:"end,omitempty"`
	Params      map[string]any        `json:"params,omitempty"`
	FilmStrips  []journey.FilmStrip   `json:"filmstrips,omitempty"`
	NetworkInfo []journey.NetworkInfo `json:"networkinfo,omitempty"`
	Error       *journey.ErrorInfo    `json:"error,omitempty"`
}

// TypeFor maps an event kind to its record type.
func TypeFor(kind runner.EventKind) (string, error) {
	switch kind {
	case runner.EventJourneyStart:
		return TypeJourneyStart, nil
	case runner.EventStepEnd:
		return TypeStepEnd, nil
	case runner.EventJourneyEnd:
		return TypeJourneyEnd, nil
	case runner.EventEnd:
		return TypeEnd, nil
	default:
		return "", fmt.Errorf("no record type for event %q", kind)
	}
}

// FromEvent builds the record for ev.
func FromEvent(ev runner.Event) (Record, error) {
	switch e := ev.(type) {
	case runner.JourneyStartEvent:
		params := e.Params
		if params == nil && e.Journey != nil {
			params = e.Journey.Params
		}
		return Record{
			Type:      TypeJourneyStart,
			Timestamp: e.Timestamp,
			Journey:   journeyRef(e.Journey),
			Params:    params,
		}, nil

	case runner.StepEndEvent:
		rec := Record{
			Type:       TypeStepEnd,
			Timestamp:  e.Timestamp,
			Journey:    journeyRef(e.Journey),
			Status:     e.Status,
			URL:        e.URL,
			Screenshot: e.Screenshot,
			Start:      e.Start,
			End:        e.End,
			Error:      journey.FormatError(e.Error),
		}
		if e.Step != nil {
			rec.Step = &StepRef{Name: e.Step.Name, Index: e.Step.Index}
		}
		return rec, nil

	case runner.JourneyEndEvent:
		params := e.Params
		if params == nil && e.Journey != nil {
			params = e.Journey.Params
		}
		rec := Record{
			Type:        TypeJourneyEnd,
			Timestamp:   e.Timestamp,
			Journey:     journeyRef(e.Journey),
			Status:      e.Status,
			Start:       e.Start,
			End:         e.End,
			Params:      params,
			FilmStrips:  e.FilmStrips,
			NetworkInfo: e.NetworkInfo,
			Error:       journey.FormatError(e.Error),
		}
		if rec.FilmStrips == nil {
			rec.FilmStrips = []journey.FilmStrip{}
		}
		if rec.NetworkInfo == nil {
			rec.NetworkInfo = []journey.NetworkInfo{}
		}
		return rec, nil

	case runner.EndEvent:
		return Record{Type: TypeEnd, Timestamp: e.Timestamp}, nil

	case *runner.JourneyStartEvent:
		if e == nil {
			return Record{}, errNilEvent(ev)
		}
		return FromEvent(*e)
	case *runner.StepEndEvent:
		if e == nil {
			return Record{}, errNilEvent(ev)
		}
		return FromEvent(*e)
	case *runner.JourneyEndEvent:
		if e == nil {
			return Record{}, errNilEvent(ev)
		}
		return FromEvent(*e)
	case *runner.EndEvent:
		if e == nil {
			return Record{}, errNilEvent(ev)
		}
		return FromEvent(*e)

	case nil:
		return Record{}, fmt.Errorf("nil event")

	default:
		return Record{}, fmt.Errorf("unsupported event %T (%s)", ev, ev.Kind())
	}
}

func errNilEvent(ev runner.Event) error {
	return fmt.Errorf("nil %T event", ev)
}

func journeyRef(j *journey.Journey) *JourneyRef {
	if j == nil {
		return nil
	}
	return &JourneyRef{Name: j.Name, ID: j.ID}
}

// MarshalJSON writes filmstrips and networkinfo on every journey/end
// record, as empty arrays when no telemetry was collected. Other record
// types omit them.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	if r.Type != TypeJourneyEnd {
		return encodeCompact(plain(r))
	}

	out := struct {
		plain
		FilmStrips  []journey.FilmStrip   `json:"filmstrips"`
		NetworkInfo []journey.NetworkInfo `json:"networkinfo"`
	}{plain: plain(r), FilmStrips: r.FilmStrips, NetworkInfo: r.NetworkInfo}
	if out.FilmStrips == nil {
		out.FilmStrips = []journey.FilmStrip{}
	}
	if out.NetworkInfo == nil {
		out.NetworkInfo = []journey.NetworkInfo{}
	}
	return encodeCompact(out)
}

func encodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Marshal encodes rec as a single line terminated by '\n'. HTML characters
// are not escaped, so URLs stay readable.
func Marshal(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
