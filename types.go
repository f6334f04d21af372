package uthread

import "github.com/Swind/go-uthread/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the uthread package for most use cases.

// EntryPoint is the body of a spawned thread
type EntryPoint = core.EntryPoint

// Scheduler multiplexes green threads over one goroutine
type Scheduler = core.Scheduler

// Config configures a Scheduler
type Config = core.Config

// ThreadState is the lifecycle state of a thread
type ThreadState = core.ThreadState

// UsageError reports a rejected library call
type UsageError = core.UsageError

// SchedulerStats and ThreadStats are point-in-time snapshots
type SchedulerStats = core.SchedulerStats
type ThreadStats = core.ThreadStats

// State constants
const (
	StateReady   ThreadState = core.StateReady
	StateRunning ThreadState = core.StateRunning
	StateBlocked ThreadState = core.StateBlocked
)

// MainThreadID is the id of the initializing thread
const MainThreadID = core.MainThreadID

// Usage error sentinels, for errors.Is
var (
	ErrInvalidQuantum     = core.ErrInvalidQuantum
	ErrNilEntryPoint      = core.ErrNilEntryPoint
	ErrThreadLimit        = core.ErrThreadLimit
	ErrNoSuchThread       = core.ErrNoSuchThread
	ErrBlockMain          = core.ErrBlockMain
	ErrSleepMain          = core.ErrSleepMain
	ErrInvalidSleep       = core.ErrInvalidSleep
	ErrThreadExiting      = core.ErrThreadExiting
	ErrNotInitialized     = core.ErrNotInitialized
	ErrAlreadyInitialized = core.ErrAlreadyInitialized
)

// DefaultConfig returns a config with default handlers and limits.
var DefaultConfig = core.DefaultConfig

// FromContext retrieves the scheduler running the current thread.
var FromContext = core.FromContext

// ThreadIDFromContext retrieves the id of the current thread.
var ThreadIDFromContext = core.ThreadIDFromContext

// IsUsageError reports whether err is a rejected library call.
var IsUsageError = core.IsUsageError
