package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling thread panics
// =============================================================================

// PanicHandler is called when a thread's entry point panics. The thread is
// terminated afterwards; the rest of the scheduler keeps running.
type PanicHandler interface {
	// HandlePanic is called on the panicking thread before it is removed.
	//
	// Parameters:
	// - ctx: The thread context (carries the scheduler and thread id)
	// - schedulerName: The name of the scheduler
	// - tid: The id of the panicking thread
	// - panicInfo: The panic value recovered from the entry point
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, schedulerName string, tid int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler prints panic information to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, schedulerName string, tid int, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Thread %d @ %s] Panic: %v\nStack trace:\n%s",
		tid, schedulerName, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics collects scheduler metrics. Implementations are called while the
// scheduler is masked, so they must be non-blocking and fast.
type Metrics interface {
	// RecordQuantum records the start of a new quantum and what ended the previous one.
	RecordQuantum(schedulerName string, reason SwitchReason)

	// RecordThreadSpawned records a successful spawn.
	RecordThreadSpawned(schedulerName string)

	// RecordThreadTerminated records a thread leaving the scheduler.
	// cause is one of "terminated", "returned" or "panicked".
	RecordThreadTerminated(schedulerName string, cause string)

	// RecordThreadPanic records that an entry point panicked.
	RecordThreadPanic(schedulerName string, panicInfo any)

	// RecordUsageError records a rejected library call.
	RecordUsageError(schedulerName string, op string)

	// RecordQueueDepth records the ready queue length after a scheduling decision.
	RecordQueueDepth(schedulerName string, depth int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordQuantum(schedulerName string, reason SwitchReason) {}
func (m *NilMetrics) RecordThreadSpawned(schedulerName string)                {}
func (m *NilMetrics) RecordThreadTerminated(schedulerName string, cause string) {
}
func (m *NilMetrics) RecordThreadPanic(schedulerName string, panicInfo any) {}
func (m *NilMetrics) RecordUsageError(schedulerName string, op string)      {}
func (m *NilMetrics) RecordQueueDepth(schedulerName string, depth int)      {}

// =============================================================================
// Config: Configuration for Scheduler
// =============================================================================

const (
	DefaultMaxThreads  = 100
	DefaultQuantum     = 100 * time.Millisecond
	DefaultHistorySize = 256
)

// Config holds configuration options for a Scheduler.
// Handlers are optional; defaults are filled in by New.
type Config struct {
	// Name labels logs, metrics and stats. Defaults to "uthread".
	Name string

	// Quantum is the length of one time slice. Must be positive.
	Quantum time.Duration

	// MaxThreads bounds the number of live threads, main included.
	MaxThreads int

	// HistorySize is the number of context switches kept for RecentSwitches.
	HistorySize int

	// ManualTicks disables the quantum timer. Quantums then only expire
	// through Scheduler.Tick.
	ManualTicks bool

	// Logger defaults to NoOpLogger.
	Logger Logger

	// Metrics defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// ErrOutput receives library and system error lines. Defaults to os.Stderr.
	ErrOutput io.Writer

	// Exit ends the process. Defaults to os.Exit. If it returns, the calling
	// goroutine is ended with runtime.Goexit instead.
	Exit func(code int)

	// NewContext synthesizes thread contexts. Defaults to runtime coroutines.
	NewContext ContextFactory
}

// DefaultConfig returns a config with default handlers and limits.
func DefaultConfig() Config {
	return Config{
		Name:         "uthread",
		Quantum:      DefaultQuantum,
		MaxThreads:   DefaultMaxThreads,
		HistorySize:  DefaultHistorySize,
		Logger:       NewNoOpLogger(),
		Metrics:      &NilMetrics{},
		PanicHandler: &DefaultPanicHandler{},
		ErrOutput:    os.Stderr,
		Exit:         os.Exit,
		NewContext:   newCoroutineContext,
	}
}

// Validate checks the limits a scheduler cannot start without.
func (c Config) Validate() error {
	if c.Quantum <= 0 {
		return ErrInvalidQuantum
	}
	if c.MaxThreads <= 0 {
		return ErrInvalidMaxThreads
	}
	return nil
}

// withDefaults fills every unset field from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.MaxThreads == 0 {
		c.MaxThreads = d.MaxThreads
	}
	if c.HistorySize == 0 {
		c.HistorySize = d.HistorySize
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	if c.Metrics == nil {
		c.Metrics = d.Metrics
	}
	if c.PanicHandler == nil {
		c.PanicHandler = d.PanicHandler
	}
	if c.ErrOutput == nil {
		c.ErrOutput = d.ErrOutput
	}
	if c.Exit == nil {
		c.Exit = d.Exit
	}
	if c.NewContext == nil {
		c.NewContext = d.NewContext
	}
	return c
}
