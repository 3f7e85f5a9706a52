// Package plugins attaches telemetry collectors to a browser debugging
// session and merges their output for one journey.
package plugins

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a collector variant. The set is closed.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindTrace
	KindPerformance
)

var (
	// ErrUnknownKind is returned for a kind outside the closed set.
	ErrUnknownKind = errors.New("unknown collector kind")

	// ErrCollectorStopped is returned when starting or stopping a
	// collector that has already been stopped. Collectors are one-shot.
	ErrCollectorStopped = errors.New("collector already stopped")

	// ErrCollectorStarted is returned when starting a collector twice.
	ErrCollectorStarted = errors.New("collector already started")

	// ErrCollectorNotStarted is returned when stopping a collector that
	// never attached.
	ErrCollectorNotStarted = errors.New("collector not started")
)

// Kinds lists every collector kind in merge order.
func Kinds() []Kind {
	return []Kind{KindNetwork, KindTrace, KindPerformance}
}

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTrace:
		return "trace"
	case KindPerformance:
		return "performance"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Valid reports whether k is in the closed set.
func (k Kind) Valid() bool {
	return k >= KindNetwork && k <= KindPerformance
}

// ParseKind parses the textual form used in configuration.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "network":
		return KindNetwork, nil
	case "trace", "tracing":
		return KindTrace, nil
	case "performance", "perf":
		return KindPerformance, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// ParseKinds parses a list of kind names.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
