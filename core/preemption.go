package core

import (
	"context"
	"sync"
	"time"
)

// preemptionDriver posts a tick at the end of every quantum while armed.
//
// Ticks are latched: one that lands while the scheduler is masked stays
// pending and is only handed out once unmasked. Each arm starts a new
// generation so a tick from a cancelled quantum is dropped.
type preemptionDriver struct {
	quantum time.Duration
	manual  bool

	mu      sync.Mutex
	armed   bool
	gen     uint64
	masked  int // nesting depth
	pending bool

	wakeup chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newPreemptionDriver(quantum time.Duration, manual bool) *preemptionDriver {
	ctx, cancel := context.WithCancel(context.Background())
	d := &preemptionDriver{
		quantum: quantum,
		manual:  manual,
		wakeup:  make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	if manual {
		close(d.done)
	} else {
		go d.loop()
	}
	return d
}

func (d *preemptionDriver) loop() {
	defer close(d.done)

	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		d.mu.Lock()
		armed, gen := d.armed, d.gen
		d.mu.Unlock()

		if armed {
			timer.Reset(d.quantum)
		}

		select {
		case <-d.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			d.expire(gen)
		case <-d.wakeup:
			// Arm state changed, start the quantum over
			timer.Stop()
		}
	}
}

func (d *preemptionDriver) poke() {
	if d.manual {
		return
	}
	select {
	case d.wakeup <- struct{}{}:
	default:
	}
}

// expire records the end of a quantum belonging to generation gen.
func (d *preemptionDriver) expire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.armed && d.gen == gen {
		d.pending = true
	}
}

// tick expires the current quantum immediately.
func (d *preemptionDriver) tick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.armed {
		d.pending = true
	}
}

// arm starts a fresh quantum, dropping whatever was left of the previous one.
func (d *preemptionDriver) arm() {
	d.mu.Lock()
	d.armed = true
	d.gen++
	d.pending = false
	d.mu.Unlock()
	d.poke()
}

// disarm cancels the running quantum and drops any undelivered tick.
func (d *preemptionDriver) disarm() {
	d.mu.Lock()
	wasArmed := d.armed
	d.armed = false
	d.gen++
	d.pending = false
	d.mu.Unlock()
	if wasArmed {
		d.poke()
	}
}

func (d *preemptionDriver) isArmed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

// mask nests: ticks stay latched until every mask has been matched by an
// unmask.
func (d *preemptionDriver) mask() {
	d.mu.Lock()
	d.masked++
	d.mu.Unlock()
}

func (d *preemptionDriver) unmask() {
	d.mu.Lock()
	if d.masked > 0 {
		d.masked--
	}
	d.mu.Unlock()
}

func (d *preemptionDriver) isMasked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.masked > 0
}

// take consumes a pending tick. Nothing is handed out while masked.
func (d *preemptionDriver) take() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.masked > 0 || !d.pending {
		return false
	}
	d.pending = false
	return true
}

// stop shuts the timer goroutine down and waits for it.
func (d *preemptionDriver) stop() {
	d.cancel()
	<-d.done
	d.mu.Lock()
	d.armed = false
	d.pending = false
	d.mu.Unlock()
}
