// Package uthread provides user-level green threads scheduled round-robin
// over a single goroutine with a fixed time quantum.
//
// Logical threads never run in parallel. Exactly one thread holds the
// processor at a time; it keeps it until its quantum expires, it blocks or
// sleeps itself, or it terminates. The goroutine that initializes the
// library becomes the main thread, id 0.
//
// # Quick Start
//
// Initialize the library once, from the goroutine that will act as the main
// thread:
//
//	if err := uthread.Init(100_000); err != nil { // 100ms quantum
//		log.Fatal(err)
//	}
//
// Spawn threads and give up the processor:
//
//	tid, _ := uthread.Spawn(func(ctx context.Context) {
//		for {
//			work()
//			uthread.Checkpoint()
//		}
//	})
//	uthread.Sleep(3) // only threads other than main may sleep
//
// # Key Concepts
//
// Quantum: the time slice a thread runs for before it is preempted. The
// quantum timer can't interrupt Go code, so a thread notices an expired
// quantum at its next safe point: Checkpoint, or the end of Spawn,
// Terminate, Block and Resume.
//
// Thread ids: the smallest free id in [0, MaxThreads) is handed out on
// spawn and returned on terminate.
//
// States: READY threads wait in a FIFO ready queue, the RUNNING thread
// holds the processor, BLOCKED threads wait for Resume. A sleep countdown
// runs independently of the state and is measured in quantums.
//
// # Errors
//
// Rejected calls print a "thread library error:" line to stderr and return
// a *core.UsageError. Unrecoverable failures print "system error:" and end
// the process with status 1. Terminating thread 0 ends the process with
// status 0.
//
// # Schedulers
//
// The package-level functions drive one process-wide scheduler. Use
// core.New directly for an owned scheduler with a custom logger, metrics
// or a manual tick source.
package uthread
