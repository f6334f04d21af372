package prometheus

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Swind/go-uthread/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SchedulerSnapshotProvider provides current scheduler stats snapshots.
type SchedulerSnapshotProvider interface {
	Stats() core.SchedulerStats
}

// ThreadSnapshotProvider is optionally implemented by providers that also
// expose per-thread snapshots. *core.Scheduler implements both.
type ThreadSnapshotProvider interface {
	Threads() []core.ThreadStats
}

// SnapshotPoller periodically exports scheduler Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	threads        *prom.GaugeVec
	totalQuantums  *prom.GaugeVec
	runningThread  *prom.GaugeVec
	preemptions    *prom.GaugeVec
	exited         *prom.GaugeVec
	threadQuantums *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	threads := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "uthread",
		Name:      "threads",
		Help:      "Live threads per scheduler by disposition (ready, blocked, sleeping, total).",
	}, []string{"scheduler", "state"})
	totalQuantums := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "uthread",
		Name:      "scheduler_total_quantums",
		Help:      "Quantums started since initialization.",
	}, []string{"scheduler"})
	runningThread := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "uthread",
		Name:      "scheduler_running_tid",
		Help:      "Id of the running thread (-1 while deciding).",
	}, []string{"scheduler"})
	preemptions := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "uthread",
		Name:      "scheduler_preemptions",
		Help:      "Quantum expiries that preempted a thread, snapshot.",
	}, []string{"scheduler"})
	exited := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "uthread",
		Name:      "scheduler_exited",
		Help:      "Scheduler exited state (1=exited, 0=live).",
	}, []string{"scheduler"})
	threadQuantums := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "uthread",
		Name:      "thread_quantums",
		Help:      "Quantums each live thread has spent RUNNING.",
	}, []string{"scheduler", "tid"})

	var err error
	if threads, err = registerCollector(reg, threads); err != nil {
		return nil, err
	}
	if totalQuantums, err = registerCollector(reg, totalQuantums); err != nil {
		return nil, err
	}
	if runningThread, err = registerCollector(reg, runningThread); err != nil {
		return nil, err
	}
	if preemptions, err = registerCollector(reg, preemptions); err != nil {
		return nil, err
	}
	if exited, err = registerCollector(reg, exited); err != nil {
		return nil, err
	}
	if threadQuantums, err = registerCollector(reg, threadQuantums); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:       interval,
		schedulers:     make(map[string]SchedulerSnapshotProvider),
		threads:        threads,
		totalQuantums:  totalQuantums,
		runningThread:  runningThread,
		preemptions:    preemptions,
		exited:         exited,
		threadQuantums: threadQuantums,
	}, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	defer p.schedulersMu.RUnlock()

	for name, provider := range p.schedulers {
		stats := provider.Stats()
		p.threads.WithLabelValues(name, "total").Set(float64(stats.Threads))
		p.threads.WithLabelValues(name, "ready").Set(float64(stats.Ready))
		p.threads.WithLabelValues(name, "blocked").Set(float64(stats.Blocked))
		p.threads.WithLabelValues(name, "sleeping").Set(float64(stats.Sleeping))
		p.totalQuantums.WithLabelValues(name).Set(float64(stats.TotalQuantums))
		p.runningThread.WithLabelValues(name).Set(float64(stats.Running))
		p.preemptions.WithLabelValues(name).Set(float64(stats.Preemptions))
		if stats.Exited {
			p.exited.WithLabelValues(name).Set(1)
		} else {
			p.exited.WithLabelValues(name).Set(0)
		}

		tp, ok := provider.(ThreadSnapshotProvider)
		if !ok {
			continue
		}
		// Ids are reused, so stale series are dropped before each export.
		p.threadQuantums.DeletePartialMatch(prom.Labels{"scheduler": name})
		for _, th := range tp.Threads() {
			p.threadQuantums.WithLabelValues(name, strconv.Itoa(th.ID)).Set(float64(th.Quantums))
		}
	}
}
