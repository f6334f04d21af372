package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestCoroutineContext_SuspendResume verifies control alternates between sides
// Given: A context whose body records steps around two suspensions
// When: It is resumed until finished
// Then: Steps interleave with the resumer and the final Resume reports done
func TestCoroutineContext_SuspendResume(t *testing.T) {
	// Arrange
	var steps []string
	c := newCoroutineContext(func(self ExecutionContext) {
		steps = append(steps, "body-1")
		self.Suspend()
		steps = append(steps, "body-2")
		self.Suspend()
		steps = append(steps, "body-3")
	})

	// Act
	for c.Resume() {
		steps = append(steps, "resumer")
	}

	// Assert
	want := []string{"body-1", "resumer", "body-2", "resumer", "body-3"}
	if diff := cmp.Diff(want, steps); diff != "" {
		t.Errorf("step order mismatch (-want +got):\n%s", diff)
	}
}

// TestCoroutineContext_ReleaseUnwinds verifies a parked body is unwound
// Given: A context parked in Suspend with a deferred cleanup
// When: It is released
// Then: The deferred cleanup runs and the code after Suspend does not
func TestCoroutineContext_ReleaseUnwinds(t *testing.T) {
	// Arrange
	cleaned := false
	resumed := false
	c := newCoroutineContext(func(self ExecutionContext) {
		defer func() { cleaned = true }()
		self.Suspend()
		resumed = true
	})
	if !c.Resume() {
		t.Fatal("first Resume() reported finished")
	}

	// Act
	c.Release()

	// Assert
	if !cleaned {
		t.Error("deferred cleanup did not run on release")
	}
	if resumed {
		t.Error("body continued past Suspend after release")
	}
	if c.Resume() {
		t.Error("Resume() after release reported suspended")
	}
}

// TestCoroutineContext_ReleaseUnstarted verifies a never-run body is dropped
func TestCoroutineContext_ReleaseUnstarted(t *testing.T) {
	ran := false
	c := newCoroutineContext(func(ExecutionContext) { ran = true })

	c.Release()

	if ran {
		t.Error("body ran although the context was released before its first Resume")
	}
}

// TestCoroutineContext_Exit verifies Exit abandons the body from inside
func TestCoroutineContext_Exit(t *testing.T) {
	after := false
	c := newCoroutineContext(func(self ExecutionContext) {
		self.Exit()
		after = true
	})

	if c.Resume() {
		t.Error("Resume() = true, want finished after Exit")
	}
	if after {
		t.Error("code after Exit ran")
	}
}

// TestCoroutineContext_PanicPropagates verifies foreign panics reach the resumer
func TestCoroutineContext_PanicPropagates(t *testing.T) {
	c := newCoroutineContext(func(ExecutionContext) {
		panic("boom")
	})

	defer func() {
		r := recover()
		if r != "boom" {
			t.Errorf("recovered %v, want boom", r)
		}
		if isContextRelease(r) {
			t.Error("foreign panic classified as release")
		}
	}()
	c.Resume()
	t.Fatal("Resume() returned normally")
}
