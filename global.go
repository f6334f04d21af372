package uthread

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Swind/go-uthread/core"
)

// =============================================================================
// Global Scheduler Helper (Singleton)
// =============================================================================

var (
	globalScheduler *core.Scheduler
	globalMu        sync.Mutex

	// errOutput receives usage errors raised before a scheduler exists.
	errOutput io.Writer = os.Stderr
)

// Init initializes the library with a quantum of quantumUsecs microseconds.
// The calling goroutine becomes the main thread.
func Init(quantumUsecs int) error {
	cfg := core.DefaultConfig()
	cfg.Quantum = time.Duration(quantumUsecs) * time.Microsecond
	return InitWithConfig(cfg)
}

// InitWithConfig is Init with full control over the scheduler config.
func InitWithConfig(cfg core.Config) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler != nil {
		return reject("init", core.ErrAlreadyInitialized)
	}

	s, err := core.New(cfg)
	if err != nil {
		return err
	}
	globalScheduler = s
	return nil
}

// Default returns the global scheduler, or nil before Init.
func Default() *core.Scheduler {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalScheduler
}

// current returns the global scheduler or the usage error for op.
// The lock is never held across a scheduler call, since those may switch
// threads.
func current(op string) (*core.Scheduler, error) {
	s := Default()
	if s == nil {
		return nil, reject(op, core.ErrNotInitialized)
	}
	return s, nil
}

func reject(op string, err error) error {
	fmt.Fprintln(errOutput, core.LibraryErrorPrefix+err.Error())
	return core.NewUsageError(op, -1, err)
}

// Spawn creates a thread running entry and returns its id.
func Spawn(entry EntryPoint) (int, error) {
	s, err := current("spawn")
	if err != nil {
		return -1, err
	}
	return s.Spawn(entry)
}

// Terminate removes thread tid. Terminating thread 0 ends the process.
func Terminate(tid int) error {
	s, err := current("terminate")
	if err != nil {
		return err
	}
	return s.Terminate(tid)
}

// Block moves thread tid to BLOCKED until Resume.
func Block(tid int) error {
	s, err := current("block")
	if err != nil {
		return err
	}
	return s.Block(tid)
}

// Resume moves a BLOCKED thread back to READY.
func Resume(tid int) error {
	s, err := current("resume")
	if err != nil {
		return err
	}
	return s.Resume(tid)
}

// Sleep takes the running thread off the processor for n quantums.
func Sleep(n int) error {
	s, err := current("sleep")
	if err != nil {
		return err
	}
	return s.Sleep(n)
}

// Checkpoint gives up the processor if the running thread's quantum has
// expired. It is a no-op before Init.
func Checkpoint() {
	if s := Default(); s != nil {
		s.Checkpoint()
	}
}

// GetTid returns the id of the running thread, or -1 before Init.
func GetTid() int {
	if s := Default(); s != nil {
		return s.TID()
	}
	return -1
}

// GetTotalQuantums returns the number of quantums started since Init,
// or 0 before Init.
func GetTotalQuantums() int {
	if s := Default(); s != nil {
		return s.TotalQuantums()
	}
	return 0
}

// GetQuantums returns how many quantums thread tid has been RUNNING.
func GetQuantums(tid int) (int, error) {
	s, err := current("get_quantums")
	if err != nil {
		return -1, err
	}
	return s.Quantums(tid)
}
