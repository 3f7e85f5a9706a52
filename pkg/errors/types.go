package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD"
	ErrCodeConfigParse   ErrorCode = "CONFIG_PARSE"
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// Browser session errors
	ErrCodeSessionUnavailable ErrorCode = "SESSION_UNAVAILABLE"

	// Collector errors
	ErrCodeCollectorAttach ErrorCode = "COLLECTOR_ATTACH"
	ErrCodeCollectorStop   ErrorCode = "COLLECTOR_STOP"

	// Journey execution errors
	ErrCodeStepFailed ErrorCode = "STEP_FAILED"
	ErrCodeStepPanic  ErrorCode = "STEP_PANIC"

	// Reporting errors
	ErrCodeRecordWrite     ErrorCode = "RECORD_WRITE"
	ErrCodeSubscriberPanic ErrorCode = "SUBSCRIBER_PANIC"

	// Generic errors
	ErrCodeInternal     ErrorCode = "INTERNAL"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Error is a coded error carrying the call stack where it was created.
type Error struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Context    map[string]any
	Stack      []Frame
}

// Frame represents a stack frame
type Frame struct {
	Function string
	File     string
	Line     int
}

// New creates a new structured error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
		Stack:   captureStack(2), // Skip New and caller
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
		Context:    make(map[string]any),
		Stack:      captureStack(2),
	}
}

// FromPanic converts a recovered panic value into a coded error. It must be
// called from the deferred function that recovered, so the captured stack
// still contains the panicking frames.
func FromPanic(code ErrorCode, recovered any) *Error {
	var underlying error
	switch v := recovered.(type) {
	case error:
		underlying = v
	default:
		underlying = fmt.Errorf("%v", v)
	}
	return &Error{
		Code:       code,
		Message:    "panic",
		Underlying: underlying,
		Context:    make(map[string]any),
		Stack:      captureStack(2),
	}
}

// WithContext adds context key-value pairs to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s: %v", k, e.Context[k]))
		}
		sb.WriteString("}")
	}

	if e.Underlying != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Underlying))
	}

	return sb.String()
}

// Unwrap returns the underlying error for errors.Is/As
func (e *Error) Unwrap() error {
	return e.Underlying
}

// StackTrace returns the captured stack, one "function\n\tfile:line" pair
// per frame.
func (e *Error) StackTrace() string {
	var sb strings.Builder
	for i, frame := range e.Stack {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(frame.String())
		sb.WriteString(fmt.Sprintf("\n\t%s:%d", frame.File, frame.Line))
	}
	return sb.String()
}

// String formats a stack frame
func (f Frame) String() string {
	return f.Function
}

// captureStack captures the current call stack
func captureStack(skip int) []Frame {
	const maxDepth = 32
	var pcs [maxDepth]uintptr

	n := runtime.Callers(skip+1, pcs[:])
	frames := make([]Frame, 0, n)

	iter := runtime.CallersFrames(pcs[:n])
	for {
		fr, more := iter.Next()
		if fr.Function != "" {
			frames = append(frames, Frame{
				Function: fr.Function,
				File:     fr.File,
				Line:     fr.Line,
			})
		}
		if !more {
			break
		}
	}

	return frames
}

// IsCode reports whether any error in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	var coded *Error
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var coded *Error
	if !errors.As(err, &coded) {
		return ErrCodeInternal
	}

	return coded.Code
}
