package core

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// Scheduler multiplexes green threads over the goroutine that created it.
//
// Exactly one thread runs at a time. Thread 0 is the creating goroutine; every
// other thread runs on its own execution context and is switched in and out
// by a dispatcher that runs on thread 0's goroutine whenever thread 0 is not
// running.
//
// Apart from Tick, Stats, Threads and RecentSwitches, methods must be called
// from the running thread.
type Scheduler struct {
	name         string
	cfg          Config
	logger       Logger
	metrics      Metrics
	panicHandler PanicHandler

	// Everything below is only mutated while the driver is masked.
	threads  map[int]*Thread
	ids      *IDAllocator
	ready    *ReadyQueue
	blocked  *ThreadSet
	sleeping *ThreadSet
	main     *Thread

	running       *Thread // nil only while a decision is being made
	totalQuantums int
	preemptions   int64
	switchFrom    int
	switchReason  SwitchReason
	exited        bool

	// releasing counts contexts being unwound by release. Code running
	// then belongs to a retired thread, not to the running one.
	releasing int

	driver  *preemptionDriver
	history *switchHistory

	statsMu     sync.RWMutex
	stats       SchedulerStats
	threadStats []ThreadStats
}

// New initializes a scheduler. The calling goroutine becomes the main thread
// (id 0), already RUNNING in quantum 1, and the quantum timer is armed.
func New(cfg Config) (*Scheduler, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(cfg.ErrOutput, LibraryErrorPrefix+err.Error())
		cfg.Logger.Warn("library call rejected", F("op", "init"), F("error", err))
		cfg.Metrics.RecordUsageError(cfg.Name, "init")
		return nil, NewUsageError("init", -1, err)
	}

	s := &Scheduler{
		name:         cfg.Name,
		cfg:          cfg,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		panicHandler: cfg.PanicHandler,
		threads:      make(map[int]*Thread),
		ids:          NewIDAllocator(cfg.MaxThreads),
		ready:        NewReadyQueue(),
		blocked:      NewThreadSet(),
		sleeping:     NewThreadSet(),
		history:      newSwitchHistory(cfg.HistorySize),
	}

	s.driver = newPreemptionDriver(cfg.Quantum, cfg.ManualTicks)
	s.driver.mask()

	if _, err := s.ids.Allocate(); err != nil {
		s.fatal("init", err)
	}
	s.main = newMainThread()
	s.main.incRunCount()
	s.threads[MainThreadID] = s.main
	s.running = s.main
	s.totalQuantums = 1

	s.driver.arm()
	s.publish()
	s.driver.unmask()

	s.logger.Info("scheduler initialized",
		F("name", s.name),
		F("quantum", cfg.Quantum),
		F("max_threads", cfg.MaxThreads),
		F("manual_ticks", cfg.ManualTicks))
	return s, nil
}

// Name returns the configured scheduler name.
func (s *Scheduler) Name() string { return s.name }

// Quantum returns the configured quantum length.
func (s *Scheduler) Quantum() time.Duration { return s.cfg.Quantum }

// ManualTicks reports whether quanta only expire through Tick.
func (s *Scheduler) ManualTicks() bool { return s.cfg.ManualTicks }

// Tick expires the running thread's quantum as the timer would. It is safe
// to call from any goroutine; the running thread gives up the processor at
// its next Checkpoint.
func (s *Scheduler) Tick() {
	s.driver.tick()
}

// Checkpoint is a preemption point. If the running thread's quantum has
// expired it is moved to the tail of the ready queue and the next thread
// runs; Checkpoint returns once the caller is scheduled again.
func (s *Scheduler) Checkpoint() {
	if s.driver.take() {
		s.preempt()
	}
}

func (s *Scheduler) preempt() {
	s.driver.mask()
	cur := s.running
	if cur == nil {
		s.driver.unmask()
		return
	}
	cur.setState(StateReady)
	s.ready.Push(cur.id)
	s.preemptions++
	s.switchAway(cur, SwitchPreempted)
}

// switchAway gives up the processor. cur must already sit in its new
// container. It returns once cur is selected again.
func (s *Scheduler) switchAway(cur *Thread, reason SwitchReason) {
	s.switchFrom = cur.id
	s.switchReason = reason
	s.running = nil

	if cur.ctx == nil {
		s.dispatch()
		return
	}
	cur.ctx.Suspend()
}

// dispatch runs on the main thread's goroutine. It keeps handing the
// processor to spawned threads until the main thread is selected.
func (s *Scheduler) dispatch() {
	for {
		next := s.decide()
		s.driver.unmask()
		if next.isMain() {
			return
		}
		s.restore(next)
	}
}

// restore runs t until it suspends or finishes. Whatever made it stop has
// already masked the driver and cleared the running slot.
func (s *Scheduler) restore(t *Thread) {
	defer func() {
		if r := recover(); r != nil {
			s.fatal("restore", fmt.Errorf("thread %d: %v", t.id, r))
		}
	}()
	t.ctx.Resume()
	if s.running != nil {
		s.fatal("restore", fmt.Errorf("thread %d returned control while running", t.id))
	}
}

// decide advances the quantum, ages sleepers and picks the next thread.
func (s *Scheduler) decide() *Thread {
	s.totalQuantums++

	for _, id := range s.sleeping.IDs() {
		t, _ := s.sleeping.Get(id)
		t.reduceSleep(s.cfg.Quantum)
		if !t.sleepFinished() {
			continue
		}
		s.sleeping.Remove(id)
		if t.state != StateBlocked {
			s.ready.Push(id)
		}
	}

	next := s.main
	if id, ok := s.ready.Pop(); ok {
		t, exists := s.threads[id]
		if !exists {
			s.fatal("schedule", fmt.Errorf("ready thread %d does not exist", id))
		}
		next = t
	}

	next.setState(StateRunning)
	next.incRunCount()
	s.running = next
	s.driver.arm()

	s.history.Add(SwitchRecord{
		Quantum: s.totalQuantums,
		From:    s.switchFrom,
		To:      next.id,
		Reason:  s.switchReason,
		At:      time.Now(),
	})
	s.metrics.RecordQuantum(s.name, s.switchReason)
	s.metrics.RecordQueueDepth(s.name, s.ready.Len())
	s.logger.Debug("scheduling decision",
		F("quantum", s.totalQuantums),
		F("from", s.switchFrom),
		F("to", next.id),
		F("reason", s.switchReason.String()))
	s.publish()

	return next
}

// threadBody is what a synthesized context runs: the entry point, then the
// same exit path as a thread terminating itself.
func (s *Scheduler) threadBody(t *Thread) func(ExecutionContext) {
	return func(ExecutionContext) {
		ctx := withThread(context.Background(), s, t.id)
		cause := s.runEntry(ctx, t)

		if s.threads[t.id] != t {
			// Already terminated while its unwinding was swallowed.
			return
		}
		s.driver.mask()
		s.retire(t, cause)
		s.driver.disarm()
		s.switchFrom = t.id
		s.switchReason = SwitchTerminated
		s.running = nil
	}
}

func (s *Scheduler) runEntry(ctx context.Context, t *Thread) (cause string) {
	defer func() {
		if r := recover(); r != nil {
			if isContextRelease(r) {
				panic(r)
			}
			cause = "panicked"
			s.metrics.RecordThreadPanic(s.name, r)
			s.logger.Error("thread panicked", F("tid", t.id), F("name", t.name), F("panic", r))
			s.panicHandler.HandlePanic(ctx, s.name, t.id, r, debug.Stack())
		}
	}()
	t.entry(ctx)
	return "returned"
}

// retire removes t from every container and returns its id.
func (s *Scheduler) retire(t *Thread, cause string) {
	s.ready.Remove(t.id)
	s.blocked.Remove(t.id)
	s.sleeping.Remove(t.id)
	delete(s.threads, t.id)
	if err := s.ids.Release(t.id); err != nil {
		s.fatal("terminate", err)
	}
	s.metrics.RecordThreadTerminated(s.name, cause)
	s.logger.Info("thread terminated", F("tid", t.id), F("name", t.name), F("cause", cause))
}

// release unwinds a parked thread's context. Its deferred code runs here,
// inside the caller's masked region.
func (s *Scheduler) release(t *Thread) {
	s.releasing++
	defer func() { s.releasing-- }()
	t.ctx.Release()
}

// caller returns the thread whose code is executing, or nil while a retired
// thread is unwinding.
func (s *Scheduler) caller() *Thread {
	if s.releasing > 0 {
		return nil
	}
	return s.running
}

// leave ends a mutating call: publish, unmask and honour a pending tick.
func (s *Scheduler) leave() {
	s.publish()
	s.driver.unmask()
	s.Checkpoint()
}

// fail rejects a call. Nothing has been mutated when it is reached.
func (s *Scheduler) fail(op string, tid int, err error) error {
	s.driver.unmask()
	return s.usageError(op, tid, err)
}

func (s *Scheduler) usageError(op string, tid int, err error) error {
	fmt.Fprintln(s.cfg.ErrOutput, LibraryErrorPrefix+err.Error())
	s.logger.Warn("library call rejected", F("op", op), F("tid", tid), F("error", err))
	s.metrics.RecordUsageError(s.name, op)
	return NewUsageError(op, tid, err)
}

// fatal reports an unrecoverable failure and ends the process.
func (s *Scheduler) fatal(op string, err error) {
	serr := &SystemError{Op: op, Err: err}
	fmt.Fprintln(s.cfg.ErrOutput, SystemErrorPrefix+serr.Error())
	s.logger.Error("system error", F("op", op), F("error", err))
	s.exit(1)
}

// exit releases every thread and ends the process with code.
func (s *Scheduler) exit(code int) {
	s.driver.mask()
	s.releaseAll()
	s.exited = true
	s.publish()
	s.cfg.Exit(code)
	runtime.Goexit()
}

func (s *Scheduler) releaseAll() {
	s.driver.stop()

	self := s.running
	var parked []*Thread
	for id := range s.ids.Cap() {
		if t, ok := s.threads[id]; ok && t.ctx != nil && t != self {
			parked = append(parked, t)
		}
	}
	for _, t := range parked {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("thread release failed", F("tid", t.id), F("panic", r))
				}
			}()
			s.release(t)
		}()
	}

	s.ready.Clear()
	s.blocked.Clear()
	s.sleeping.Clear()
	clear(s.threads)
}

// =============================================================================
// Observability
// =============================================================================

func (s *Scheduler) publish() {
	stats := SchedulerStats{
		Name:          s.name,
		Quantum:       s.cfg.Quantum,
		MaxThreads:    s.cfg.MaxThreads,
		Running:       -1,
		TotalQuantums: s.totalQuantums,
		Threads:       len(s.threads),
		Ready:         s.ready.Len(),
		Blocked:       s.blocked.Len(),
		Sleeping:      s.sleeping.Len(),
		Preemptions:   s.preemptions,
		Exited:        s.exited,
	}
	if s.running != nil {
		stats.Running = s.running.id
	}

	threads := make([]ThreadStats, 0, len(s.threads))
	for id := range s.ids.Cap() {
		t, ok := s.threads[id]
		if !ok {
			continue
		}
		threads = append(threads, ThreadStats{
			ID:             t.id,
			Name:           t.name,
			State:          t.state,
			Quantums:       t.runCount,
			Sleeping:       s.sleeping.Contains(id),
			SleepRemaining: t.sleepRemaining,
		})
	}

	s.statsMu.Lock()
	s.stats = stats
	s.threadStats = threads
	s.statsMu.Unlock()
}

// Stats returns the snapshot published at the last state change.
// It is safe to call from any goroutine.
func (s *Scheduler) Stats() SchedulerStats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

// Threads returns per-thread snapshots ordered by id.
// It is safe to call from any goroutine.
func (s *Scheduler) Threads() []ThreadStats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	out := make([]ThreadStats, len(s.threadStats))
	copy(out, s.threadStats)
	return out
}

// RecentSwitches returns up to limit scheduling decisions, newest first.
func (s *Scheduler) RecentSwitches(limit int) []SwitchRecord {
	return s.history.Recent(limit)
}

// IsUsageError reports whether err is a rejected library call.
func IsUsageError(err error) bool {
	var uerr *UsageError
	return errors.As(err, &uerr)
}
