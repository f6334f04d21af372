package core

// Spawn creates a thread running entry and appends it to the ready queue.
// It returns the new thread's id, the smallest one free.
func (s *Scheduler) Spawn(entry EntryPoint) (int, error) {
	return s.SpawnNamed("", entry)
}

// SpawnNamed is Spawn with an explicit thread name for logs and stats.
// An empty name falls back to the entry point's function name.
func (s *Scheduler) SpawnNamed(name string, entry EntryPoint) (int, error) {
	s.driver.mask()
	if entry == nil {
		return -1, s.fail("spawn", -1, ErrNilEntryPoint)
	}
	id, err := s.ids.Allocate()
	if err != nil {
		return -1, s.fail("spawn", -1, err)
	}

	t := newThread(id, resolveThreadName(entry, name), entry)
	t.ctx = s.cfg.NewContext(s.threadBody(t))
	if t.ctx == nil {
		s.fatal("spawn", ErrContextUnavailable)
	}
	s.threads[id] = t
	s.ready.Push(id)

	s.metrics.RecordThreadSpawned(s.name)
	s.logger.Info("thread spawned", F("tid", id), F("name", t.name))
	s.leave()
	return id, nil
}

// Terminate removes a thread and releases its context and id.
//
// Terminating the main thread ends the process with status 0. Terminating
// the calling thread does not return.
func (s *Scheduler) Terminate(tid int) error {
	s.driver.mask()
	if tid == MainThreadID {
		s.logger.Info("main thread terminated", F("name", s.name))
		s.exit(0)
	}
	t, ok := s.threads[tid]
	if !ok {
		return s.fail("terminate", tid, ErrNoSuchThread)
	}

	if t == s.running && s.caller() != t {
		return s.fail("terminate", tid, ErrThreadExiting)
	}

	s.retire(t, "terminated")
	if t == s.running {
		s.driver.disarm()
		s.switchFrom = t.id
		s.switchReason = SwitchTerminated
		s.running = nil
		t.ctx.Exit()
	}
	s.release(t)
	s.leave()
	return nil
}

// Block moves a thread to BLOCKED until Resume. Blocking a blocked thread
// is a no-op. A thread blocking itself returns only once resumed and
// scheduled again.
func (s *Scheduler) Block(tid int) error {
	s.driver.mask()
	if tid == MainThreadID {
		return s.fail("block", tid, ErrBlockMain)
	}
	t, ok := s.threads[tid]
	if !ok {
		return s.fail("block", tid, ErrNoSuchThread)
	}

	switch t.state {
	case StateBlocked:
	case StateReady:
		s.ready.Remove(tid)
		t.setState(StateBlocked)
		s.blocked.Add(t)
	case StateRunning:
		if s.caller() != t {
			return s.fail("block", tid, ErrThreadExiting)
		}
		t.setState(StateBlocked)
		s.blocked.Add(t)
		s.driver.disarm()
		s.switchAway(t, SwitchBlocked)
		return nil
	}
	s.leave()
	return nil
}

// Resume moves a BLOCKED thread back to READY. It only rejoins the ready
// queue if it is not still sleeping. Resuming a READY or RUNNING thread is
// a no-op.
func (s *Scheduler) Resume(tid int) error {
	s.driver.mask()
	t, ok := s.threads[tid]
	if !ok {
		return s.fail("resume", tid, ErrNoSuchThread)
	}

	if t.state == StateBlocked {
		s.blocked.Remove(tid)
		t.setState(StateReady)
		if !s.sleeping.Contains(tid) {
			s.ready.Push(tid)
		}
	}
	s.leave()
	return nil
}

// Sleep takes the running thread off the processor for quantums quantum
// boundaries, whatever causes them. The boundary caused by the call itself
// counts as the first one. The main thread can't sleep.
func (s *Scheduler) Sleep(quantums int) error {
	s.driver.mask()
	cur := s.caller()
	if cur == nil {
		return s.fail("sleep", -1, ErrThreadExiting)
	}
	if cur.isMain() {
		return s.fail("sleep", cur.id, ErrSleepMain)
	}
	if quantums < 0 {
		return s.fail("sleep", cur.id, ErrInvalidSleep)
	}

	cur.setSleep(quantums, s.cfg.Quantum)
	s.sleeping.Add(cur)
	cur.setState(StateReady)
	s.driver.disarm()
	s.switchAway(cur, SwitchSleeping)
	return nil
}

// TID returns the id of the running thread, or -1 when called from the
// deferred code of a thread that is being terminated.
func (s *Scheduler) TID() int {
	cur := s.caller()
	if cur == nil {
		return -1
	}
	return cur.id
}

// TotalQuantums returns the number of quantums started since New,
// including the current one.
func (s *Scheduler) TotalQuantums() int {
	return s.totalQuantums
}

// Quantums returns how many quantums tid has started in RUNNING, including
// the current one if it is running.
func (s *Scheduler) Quantums(tid int) (int, error) {
	t, ok := s.threads[tid]
	if !ok {
		return -1, s.usageError("get_quantums", tid, ErrNoSuchThread)
	}
	return t.runCount, nil
}

// State returns the lifecycle state of tid.
func (s *Scheduler) State(tid int) (ThreadState, error) {
	t, ok := s.threads[tid]
	if !ok {
		return 0, s.usageError("get_state", tid, ErrNoSuchThread)
	}
	return t.state, nil
}

// IsSleeping reports whether tid has a sleep countdown running.
func (s *Scheduler) IsSleeping(tid int) (bool, error) {
	if _, ok := s.threads[tid]; !ok {
		return false, s.usageError("is_sleeping", tid, ErrNoSuchThread)
	}
	return s.sleeping.Contains(tid), nil
}

// ReadyIDs returns the ready queue from head to tail.
func (s *Scheduler) ReadyIDs() []int {
	return s.ready.IDs()
}
