// Package bus provides the publish/subscribe transport used to mirror
// report records to other processes. NATS backs production use; the
// in-memory bus serves tests and single-process runs.
package bus

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrClosed is returned when operating on a closed bus.
	ErrClosed = errors.New("bus closed")

	// ErrInvalidSubject is returned for an empty subject or one with
	// empty tokens.
	ErrInvalidSubject = errors.New("invalid subject")
)

// MessageBus publishes and subscribes to dotted subjects. Implementations
// must be safe for concurrent use.
type MessageBus interface {
	// Publish sends data to every subscriber of subject. It does not wait
	// for delivery.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers handler for subject. Patterns support "*" for
	// one token and a trailing ">" for one or more tokens.
	Subscribe(ctx context.Context, subject string, handler MessageHandler) (Subscription, error)

	// Close flushes pending publishes and shuts the bus down.
	Close() error
}

// MessageHandler processes one delivered message.
type MessageHandler func(msg *Message)

// Message is one delivered payload.
type Message struct {
	Subject string
	Data    []byte
}

// Subscription is an active subscription.
type Subscription interface {
	Unsubscribe() error
	Subject() string
}

// Config holds connection settings for a networked bus.
type Config struct {
	// URL is the NATS server URL, e.g. "nats://localhost:4222".
	URL string `yaml:"url"`

	// Name identifies the client to the server.
	Name string `yaml:"name"`

	// Timeout bounds connect and flush.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the default connection settings.
func DefaultConfig() Config {
	return Config{
		URL:     "nats://localhost:4222",
		Name:    "synthetics",
		Timeout: 10 * time.Second,
	}
}

// JoinSubject builds a subject from tokens. Slashes inside a token become
// separate tokens, so "journey/start" maps to "journey.start".
func JoinSubject(tokens ...string) (string, error) {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		for _, p := range strings.Split(strings.ReplaceAll(tok, "/", "."), ".") {
			p = strings.TrimSpace(p)
			if p == "" || strings.ContainsAny(p, " \t\r\n*>") {
				return "", ErrInvalidSubject
			}
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", ErrInvalidSubject
	}
	return strings.Join(parts, "."), nil
}
