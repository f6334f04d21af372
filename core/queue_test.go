package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestReadyQueue_FIFO verifies round-robin ordering
// Given: A ready queue with three ids pushed in order
// When: Ids are popped
// Then: They come out in push order and the queue ends empty
func TestReadyQueue_FIFO(t *testing.T) {
	// Arrange
	q := NewReadyQueue()
	q.Push(3)
	q.Push(1)
	q.Push(2)

	// Act
	var got []int
	for !q.IsEmpty() {
		id, ok := q.Pop()
		if !ok {
			t.Fatal("Pop() returned ok=false on non-empty queue")
		}
		got = append(got, id)
	}

	// Assert
	if diff := cmp.Diff([]int{3, 1, 2}, got); diff != "" {
		t.Errorf("pop order mismatch (-want +got):\n%s", diff)
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on empty queue returned ok=true")
	}
}

// TestReadyQueue_Remove verifies removal from the middle keeps order
// Given: A queue holding 1, 2, 3, 4
// When: 2 is removed, then a missing id is removed
// Then: The remaining order is 1, 3, 4 and the second removal reports false
func TestReadyQueue_Remove(t *testing.T) {
	// Arrange
	q := NewReadyQueue()
	for _, id := range []int{1, 2, 3, 4} {
		q.Push(id)
	}

	// Act
	removed := q.Remove(2)
	missing := q.Remove(9)

	// Assert
	if !removed {
		t.Error("Remove(2) = false, want true")
	}
	if missing {
		t.Error("Remove(9) = true, want false")
	}
	if diff := cmp.Diff([]int{1, 3, 4}, q.IDs()); diff != "" {
		t.Errorf("queue mismatch (-want +got):\n%s", diff)
	}
	if q.Contains(2) {
		t.Error("Contains(2) = true after removal")
	}
}

// TestReadyQueue_IDsIsCopy verifies IDs does not alias the queue
func TestReadyQueue_IDsIsCopy(t *testing.T) {
	q := NewReadyQueue()
	q.Push(1)
	q.Push(2)

	ids := q.IDs()
	ids[0] = 99

	if head, _ := q.Pop(); head != 1 {
		t.Errorf("head = %d, want 1", head)
	}
}

// TestReadyQueue_Compaction verifies the backing array shrinks after draining
// Given: A queue grown well past the compaction threshold
// When: Most ids are popped
// Then: Capacity drops while the remaining order is preserved
func TestReadyQueue_Compaction(t *testing.T) {
	// Arrange
	q := NewReadyQueue()
	for i := range 1000 {
		q.Push(i)
	}
	grown := cap(q.ids)

	// Act
	for range 990 {
		q.Pop()
	}

	// Assert
	if cap(q.ids) >= grown {
		t.Errorf("cap = %d, want < %d after draining", cap(q.ids), grown)
	}
	if diff := cmp.Diff([]int{990, 991, 992, 993, 994, 995, 996, 997, 998, 999}, q.IDs()); diff != "" {
		t.Errorf("remaining ids mismatch (-want +got):\n%s", diff)
	}
}

// TestReadyQueue_Clear verifies Clear drops everything
func TestReadyQueue_Clear(t *testing.T) {
	q := NewReadyQueue()
	q.Push(1)
	q.Push(2)

	q.Clear()

	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

// TestThreadSet_Membership verifies add, lookup and sorted ids
// Given: A set with threads 5, 1 and 3
// When: 3 is removed
// Then: IDs are ascending and lookups match membership
func TestThreadSet_Membership(t *testing.T) {
	// Arrange
	s := NewThreadSet()
	for _, id := range []int{5, 1, 3} {
		s.Add(newThread(id, "t", nil))
	}

	// Act
	ok := s.Remove(3)

	// Assert
	if !ok {
		t.Error("Remove(3) = false, want true")
	}
	if s.Remove(3) {
		t.Error("second Remove(3) = true, want false")
	}
	if diff := cmp.Diff([]int{1, 5}, s.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
	if got, ok := s.Get(5); !ok || got.ID() != 5 {
		t.Errorf("Get(5) = %v, %v", got, ok)
	}
	if s.Contains(3) {
		t.Error("Contains(3) = true after removal")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", s.Len())
	}
}
