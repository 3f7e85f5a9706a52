package main

import (
	"errors"
	"fmt"

	"github.com/odvcencio/synthetics/pkg/execution"
)

// Process exit codes. A record write failure outranks journey failure.
const (
	exitOK             = 0
	exitJourneysFailed = 1
	exitUsage          = 2
	exitRecordWrite    = 3
)

// exitError attaches a process exit code to an error.
type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string { return e.err.Error() }

func (e exitError) Unwrap() error { return e.err }

func withExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return exitError{code: code, err: err}
}

// exitCodeForError maps a run error to the process exit code. Errors
// without an attached code are runtime failures of the journeys themselves.
func exitCodeForError(err error) int {
	if err == nil {
		return exitOK
	}
	var coded exitError
	if errors.As(err, &coded) {
		return coded.code
	}
	return exitJourneysFailed
}

// runOutcome turns the reporter's write error and the run summary into the
// error run returns.
func runOutcome(writeErr error, summary execution.Summary) error {
	if writeErr != nil {
		return withExitCode(fmt.Errorf("report incomplete: %w", writeErr), exitRecordWrite)
	}
	if !summary.OK() {
		return withExitCode(fmt.Errorf("%d of %d journeys failed", summary.Failed, summary.Total), exitJourneysFailed)
	}
	return nil
}
