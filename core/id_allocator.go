package core

import (
	"container/heap"
	"fmt"
)

// idHeap is a min-heap of free thread ids.
type idHeap []int

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *idHeap) Push(x any) {
	*h = append(*h, x.(int))
}

func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	id := old[n-1]
	*h = old[0 : n-1]
	return id
}

// IDAllocator hands out the smallest unused id in [0, max).
// It is not safe for concurrent use; the scheduler only touches it while
// preemption is masked.
type IDAllocator struct {
	free  idHeap
	inUse []bool
}

// NewIDAllocator creates an allocator with every id in [0, max) free.
func NewIDAllocator(max int) *IDAllocator {
	a := &IDAllocator{
		free:  make(idHeap, 0, max),
		inUse: make([]bool, max),
	}
	for id := range max {
		a.free = append(a.free, id)
	}
	heap.Init(&a.free)
	return a
}

// Allocate returns the smallest free id, or ErrThreadLimit when none remain.
func (a *IDAllocator) Allocate() (int, error) {
	if len(a.free) == 0 {
		return -1, ErrThreadLimit
	}
	id := heap.Pop(&a.free).(int)
	a.inUse[id] = true
	return id, nil
}

// Release returns id to the pool.
func (a *IDAllocator) Release(id int) error {
	if id < 0 || id >= len(a.inUse) {
		return fmt.Errorf("id %d out of range [0, %d)", id, len(a.inUse))
	}
	if !a.inUse[id] {
		return fmt.Errorf("id %d released twice", id)
	}
	a.inUse[id] = false
	heap.Push(&a.free, id)
	return nil
}

// InUse reports whether id is currently allocated.
func (a *IDAllocator) InUse(id int) bool {
	return id >= 0 && id < len(a.inUse) && a.inUse[id]
}

// Available returns the number of free ids.
func (a *IDAllocator) Available() int { return len(a.free) }

// Cap returns the size of the id space.
func (a *IDAllocator) Cap() int { return len(a.inUse) }
