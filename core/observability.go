package core

import "time"

// SwitchReason says what ended a quantum.
type SwitchReason int

const (
	SwitchPreempted SwitchReason = iota
	SwitchBlocked
	SwitchSleeping
	SwitchTerminated
)

func (r SwitchReason) String() string {
	switch r {
	case SwitchPreempted:
		return "preempted"
	case SwitchBlocked:
		return "blocked"
	case SwitchSleeping:
		return "sleeping"
	case SwitchTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// SwitchRecord captures one scheduling decision.
type SwitchRecord struct {
	Quantum int
	From    int
	To      int
	Reason  SwitchReason
	At      time.Time
}

// SchedulerStats is a point-in-time view of a scheduler.
type SchedulerStats struct {
	Name          string
	Quantum       time.Duration
	MaxThreads    int
	Running       int
	TotalQuantums int
	Threads       int
	Ready         int
	Blocked       int
	Sleeping      int
	Preemptions   int64
	Exited        bool
}

// ThreadStats is a point-in-time view of one thread.
type ThreadStats struct {
	ID             int
	Name           string
	State          ThreadState
	Quantums       int
	Sleeping       bool
	SleepRemaining time.Duration
}
