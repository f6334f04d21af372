package core

import (
	"maps"
	"slices"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// =============================================================================
// ReadyQueue: FIFO of runnable thread ids
// =============================================================================

// ReadyQueue holds the ids of READY threads in round-robin order.
// Like every scheduler container it is only touched while preemption is
// masked, so it carries no lock of its own.
type ReadyQueue struct {
	ids []int
}

func NewReadyQueue() *ReadyQueue {
	return &ReadyQueue{
		ids: make([]int, 0, defaultQueueCap),
	}
}

// Push appends id at the tail.
func (q *ReadyQueue) Push(id int) {
	q.ids = append(q.ids, id)
}

// Pop removes and returns the head.
func (q *ReadyQueue) Pop() (int, bool) {
	if len(q.ids) == 0 {
		return -1, false
	}

	id := q.ids[0]
	q.ids = q.ids[1:]
	q.maybeCompact()

	return id, true
}

// Remove deletes id wherever it sits in the queue.
func (q *ReadyQueue) Remove(id int) bool {
	i := slices.Index(q.ids, id)
	if i < 0 {
		return false
	}
	q.ids = slices.Delete(q.ids, i, i+1)
	q.maybeCompact()
	return true
}

// Contains reports whether id is queued.
func (q *ReadyQueue) Contains(id int) bool {
	return slices.Contains(q.ids, id)
}

// IDs returns a copy of the queue from head to tail.
func (q *ReadyQueue) IDs() []int {
	return slices.Clone(q.ids)
}

func (q *ReadyQueue) Len() int {
	return len(q.ids)
}

func (q *ReadyQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Clear drops every queued id.
func (q *ReadyQueue) Clear() {
	q.ids = make([]int, 0, defaultQueueCap)
}

func (q *ReadyQueue) maybeCompact() {
	n := len(q.ids)
	c := cap(q.ids)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.ids = make([]int, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)

	newSlice := make([]int, n, newCap)
	copy(newSlice, q.ids)
	q.ids = newSlice
}

// =============================================================================
// ThreadSet: id-keyed membership set (blocked and sleeping threads)
// =============================================================================

type ThreadSet struct {
	threads map[int]*Thread
}

func NewThreadSet() *ThreadSet {
	return &ThreadSet{threads: make(map[int]*Thread)}
}

func (s *ThreadSet) Add(t *Thread) {
	s.threads[t.id] = t
}

// Remove deletes id and reports whether it was present.
func (s *ThreadSet) Remove(id int) bool {
	if _, ok := s.threads[id]; !ok {
		return false
	}
	delete(s.threads, id)
	return true
}

func (s *ThreadSet) Contains(id int) bool {
	_, ok := s.threads[id]
	return ok
}

func (s *ThreadSet) Get(id int) (*Thread, bool) {
	t, ok := s.threads[id]
	return t, ok
}

// IDs returns the member ids in ascending order.
func (s *ThreadSet) IDs() []int {
	return slices.Sorted(maps.Keys(s.threads))
}

func (s *ThreadSet) Len() int {
	return len(s.threads)
}

func (s *ThreadSet) Clear() {
	s.threads = make(map[int]*Thread)
}
