package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-uthread/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type schedulerStub struct {
	stats   core.SchedulerStats
	threads []core.ThreadStats
}

func (s schedulerStub) Stats() core.SchedulerStats    { return s.stats }
func (s schedulerStub) Threads() []core.ThreadStats { return s.threads }

type statsOnlyStub struct {
	stats core.SchedulerStats
}

func (s statsOnlyStub) Stats() core.SchedulerStats { return s.stats }

func TestSnapshotPoller_CollectsSchedulerStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddScheduler("sched-a", schedulerStub{
		stats: core.SchedulerStats{
			Running:       2,
			TotalQuantums: 40,
			Threads:       4,
			Ready:         1,
			Blocked:       1,
			Sleeping:      1,
			Preemptions:   12,
			Exited:        true,
		},
		threads: []core.ThreadStats{
			{ID: 0, Quantums: 15},
			{ID: 2, Quantums: 9},
		},
	})
	poller.AddScheduler("sched-b", statsOnlyStub{stats: core.SchedulerStats{Threads: 1, Running: 0}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		total := testutil.ToFloat64(poller.threads.WithLabelValues("sched-a", "total"))
		quantums := testutil.ToFloat64(poller.totalQuantums.WithLabelValues("sched-a"))
		return total == 4 && quantums == 40
	})

	if got := testutil.ToFloat64(poller.runningThread.WithLabelValues("sched-a")); got != 2 {
		t.Fatalf("running tid gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(poller.exited.WithLabelValues("sched-a")); got != 1 {
		t.Fatalf("exited gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.threadQuantums.WithLabelValues("sched-a", "2")); got != 9 {
		t.Fatalf("thread 2 quantums = %v, want 9", got)
	}
	if got := testutil.ToFloat64(poller.threads.WithLabelValues("sched-b", "total")); got != 1 {
		t.Fatalf("sched-b total = %v, want 1", got)
	}
}

func TestSnapshotPoller_CollectsLiveScheduler(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, time.Hour)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	cfg := core.DefaultConfig()
	cfg.Name = "live"
	cfg.Quantum = time.Millisecond
	cfg.ManualTicks = true
	s, err := core.New(cfg)
	if err != nil {
		t.Fatalf("core.New failed: %v", err)
	}
	s.Spawn(func(ctx context.Context) {})
	s.Spawn(func(ctx context.Context) {})

	poller.AddScheduler("", s)
	poller.collectOnce()

	if got := testutil.ToFloat64(poller.threads.WithLabelValues("scheduler", "ready")); got != 2 {
		t.Fatalf("ready gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(poller.threadQuantums.WithLabelValues("scheduler", "0")); got != 1 {
		t.Fatalf("main thread quantums = %v, want 1", got)
	}
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
