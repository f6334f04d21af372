package core

import "time"

// MainThreadID is the id of the thread that created the scheduler.
const MainThreadID = 0

// ThreadState is the lifecycle state of a thread.
type ThreadState int

const (
	StateReady ThreadState = iota
	StateRunning
	StateBlocked
)

func (s ThreadState) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateBlocked:
		return "BLOCKED"
	default:
		return "UNKNOWN"
	}
}

// Thread is the control block of one green thread.
//
// The sleep countdown is independent of the state: a blocked thread can
// still be counting down, and reaching zero does not unblock it.
type Thread struct {
	id    int
	name  string
	state ThreadState
	entry EntryPoint

	// ctx is nil for the main thread, which runs on the goroutine that
	// created the scheduler.
	ctx ExecutionContext

	sleepRemaining time.Duration
	runCount       int
}

func newThread(id int, name string, entry EntryPoint) *Thread {
	return &Thread{
		id:    id,
		name:  name,
		state: StateReady,
		entry: entry,
	}
}

func newMainThread() *Thread {
	return &Thread{
		id:    MainThreadID,
		name:  "main",
		state: StateRunning,
	}
}

// ID returns the thread id.
func (t *Thread) ID() int { return t.id }

// Name returns the thread name.
func (t *Thread) Name() string { return t.name }

// State returns the current lifecycle state.
func (t *Thread) State() ThreadState { return t.state }

func (t *Thread) setState(s ThreadState) { t.state = s }

// RunCount returns the number of quantums the thread has started in RUNNING.
func (t *Thread) RunCount() int { return t.runCount }

func (t *Thread) incRunCount() { t.runCount++ }

// setSleep converts a quantum count into remaining time.
func (t *Thread) setSleep(quantums int, quantum time.Duration) {
	t.sleepRemaining = time.Duration(quantums) * quantum
}

// reduceSleep takes one quantum off the countdown, floored at zero.
func (t *Thread) reduceSleep(quantum time.Duration) {
	t.sleepRemaining -= quantum
	if t.sleepRemaining < 0 {
		t.sleepRemaining = 0
	}
}

// sleepFinished reports whether the countdown has reached zero.
func (t *Thread) sleepFinished() bool { return t.sleepRemaining == 0 }

// SleepRemaining returns the time left on the sleep countdown.
func (t *Thread) SleepRemaining() time.Duration { return t.sleepRemaining }

func (t *Thread) isMain() bool { return t.id == MainThreadID }
