package browser

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable   = errors.New("browser session unavailable")
	ErrSessionClosed = errors.New("browser session closed")
)

// ProtocolError wraps a failed protocol exchange with the method that
// triggered it.
type ProtocolError struct {
	Method string
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("cdp %s: %v", e.Method, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsSessionGone reports whether err means the session can no longer be
// used.
func IsSessionGone(err error) bool {
	return errors.Is(err, ErrSessionClosed) || errors.Is(err, ErrUnavailable)
}
