package core

import (
	"errors"
	"fmt"
)

// Prefixes of the lines written to Config.ErrOutput.
const (
	LibraryErrorPrefix = "thread library error: "
	SystemErrorPrefix  = "system error: "
)

// Usage errors. They are returned wrapped in a *UsageError and leave the
// scheduler state untouched.
var (
	ErrInvalidQuantum     = errors.New("quantum length must be positive")
	ErrInvalidMaxThreads  = errors.New("maximum thread count must be positive")
	ErrNilEntryPoint      = errors.New("entry point can't be nil")
	ErrThreadLimit        = errors.New("number of threads exceeds the limit")
	ErrNoSuchThread       = errors.New("thread does not exist")
	ErrBlockMain          = errors.New("main thread can't be blocked")
	ErrSleepMain          = errors.New("main thread can't sleep")
	ErrInvalidSleep       = errors.New("sleep quantums must not be negative")
	ErrThreadExiting      = errors.New("calling thread is being terminated")
	ErrNotInitialized     = errors.New("thread library is not initialized")
	ErrAlreadyInitialized = errors.New("thread library is already initialized")
)

// ErrContextUnavailable is the system error raised when a thread's
// execution context can't be synthesized.
var ErrContextUnavailable = errors.New("failed to synthesize execution context")

// UsageError reports a rejected library call.
type UsageError struct {
	Op  string
	TID int
	Err error
}

func (e *UsageError) Error() string {
	if e.TID >= 0 {
		return fmt.Sprintf("%s(%d): %v", e.Op, e.TID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UsageError) Unwrap() error { return e.Err }

// NewUsageError builds a UsageError. Pass tid -1 when the call has no target thread.
func NewUsageError(op string, tid int, err error) *UsageError {
	return &UsageError{Op: op, TID: tid, Err: err}
}

// SystemError is an unrecoverable failure. It is never returned to callers:
// the scheduler reports it, releases every thread and exits the process.
type SystemError struct {
	Op  string
	Err error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }
