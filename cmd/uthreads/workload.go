package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Swind/go-uthread/config"
	"github.com/Swind/go-uthread/core"
)

// workerResult is what one worker reports just before it returns.
type workerResult struct {
	TID      int
	Name     string
	Quantums int
	Sleeps   int
	Blocks   int
	Checksum uint64
}

// workloadReport summarizes a finished workload.
type workloadReport struct {
	Workers       []workerResult
	MainQuantums  int
	TotalQuantums int
	Preemptions   int64
}

// runWorkload must be called from the scheduler's main thread. It spawns
// the workers and keeps resuming blocked ones until every worker returned.
func runWorkload(s *core.Scheduler, w config.WorkloadSettings) workloadReport {
	manual := s.ManualTicks()
	results := make([]workerResult, 0, w.Threads)

	tids := make([]int, 0, w.Threads)
	for i := range w.Threads {
		name := fmt.Sprintf("worker-%d", i+1)
		tid, err := s.SpawnNamed(name, newWorker(s, w, manual, name, &tids, &results))
		if err != nil {
			break
		}
		tids = append(tids, tid)
	}

	for {
		live := 0
		for _, th := range s.Threads() {
			if th.ID == core.MainThreadID {
				continue
			}
			live++
			if th.State == core.StateBlocked {
				s.Resume(th.ID)
			}
		}
		if live == 0 {
			break
		}
		if manual {
			s.Tick()
		}
		s.Checkpoint()
	}

	mainQuantums, _ := s.Quantums(core.MainThreadID)
	stats := s.Stats()
	return workloadReport{
		Workers:       results,
		MainQuantums:  mainQuantums,
		TotalQuantums: stats.TotalQuantums,
		Preemptions:   stats.Preemptions,
	}
}

func newWorker(s *core.Scheduler, w config.WorkloadSettings, manual bool, name string, peers *[]int, results *[]workerResult) core.EntryPoint {
	return func(ctx context.Context) {
		self, _ := core.ThreadIDFromContext(ctx)
		res := workerResult{TID: self, Name: name}

		for iter := range w.Iterations {
			res.Checksum = crunch(res.Checksum, iter)

			if w.BlockEvery > 0 && iter%w.BlockEvery == w.BlockEvery-1 {
				if peer, ok := nextPeer(s, *peers, self); ok && s.Block(peer) == nil {
					res.Blocks++
				}
			}
			if w.SleepEvery > 0 && iter%w.SleepEvery == w.SleepEvery-1 {
				s.Sleep(1)
				res.Sleeps++
			}

			if manual {
				s.Tick()
			}
			s.Checkpoint()
		}

		res.Quantums, _ = s.Quantums(self)
		*results = append(*results, res)
	}
}

// nextPeer picks the live worker after self in spawn order.
func nextPeer(s *core.Scheduler, peers []int, self int) (int, bool) {
	live := make(map[int]bool)
	for _, th := range s.Threads() {
		live[th.ID] = true
	}
	for i, tid := range peers {
		if tid != self {
			continue
		}
		for j := 1; j < len(peers); j++ {
			peer := peers[(i+j)%len(peers)]
			if peer != self && live[peer] {
				return peer, true
			}
		}
	}
	return 0, false
}

// crunch is a small FNV-style mixing step standing in for real work.
func crunch(h uint64, iter int) uint64 {
	h ^= uint64(iter)
	for range 1000 {
		h = h*1099511628211 + 14695981039346656037
	}
	return h
}

// Print writes a per-thread quantum table.
func (r workloadReport) Print(out io.Writer) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TID\tNAME\tQUANTUMS\tSLEEPS\tBLOCKS")
	fmt.Fprintf(tw, "%d\t%s\t%d\t-\t-\n", core.MainThreadID, "main", r.MainQuantums)
	for _, w := range r.Workers {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", w.TID, w.Name, w.Quantums, w.Sleeps, w.Blocks)
	}
	tw.Flush()
	fmt.Fprintf(out, "total quantums: %d, preemptions: %d\n", r.TotalQuantums, r.Preemptions)
}
