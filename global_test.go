package uthread

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swind/go-uthread/core"
)

// resetGlobal drops the global scheduler and captures pre-init errors.
func resetGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer

	globalMu.Lock()
	globalScheduler = nil
	globalMu.Unlock()
	errOutput = &out

	t.Cleanup(func() {
		globalMu.Lock()
		globalScheduler = nil
		globalMu.Unlock()
		errOutput = os.Stderr
	})
	return &out
}

// runGlobalMain initializes the global scheduler on a fresh goroutine and
// runs body there as the main thread. It returns the exit code, -1 if the
// process was never ended.
func runGlobalMain(t *testing.T, body func()) (int, *bytes.Buffer) {
	t.Helper()

	var libOut bytes.Buffer
	code := -1
	cfg := core.DefaultConfig()
	cfg.Quantum = time.Millisecond
	cfg.ManualTicks = true
	cfg.ErrOutput = &libOut
	cfg.Exit = func(c int) { code = c }

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := InitWithConfig(cfg); err != nil {
			return
		}
		body()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("main thread did not finish")
	}
	return code, &libOut
}

// TestGlobal_NotInitialized verifies calls before Init are usage errors
// Given: No global scheduler
// When: Every API call is made
// Then: Fallible calls return ErrNotInitialized and queries return sentinels
func TestGlobal_NotInitialized(t *testing.T) {
	// Arrange
	out := resetGlobal(t)

	// Act
	_, spawnErr := Spawn(func(ctx context.Context) {})
	termErr := Terminate(1)
	blockErr := Block(1)
	resumeErr := Resume(1)
	sleepErr := Sleep(1)
	q, qErr := GetQuantums(0)
	Checkpoint()

	// Assert
	for _, err := range []error{spawnErr, termErr, blockErr, resumeErr, sleepErr, qErr} {
		assert.ErrorIs(t, err, ErrNotInitialized)
		assert.True(t, IsUsageError(err))
	}
	assert.Equal(t, -1, q)
	assert.Equal(t, -1, GetTid())
	assert.Equal(t, 0, GetTotalQuantums())
	assert.Contains(t, out.String(), "thread library error: thread library is not initialized")
}

// TestGlobal_InvalidQuantum verifies Init rejects a non-positive quantum
func TestGlobal_InvalidQuantum(t *testing.T) {
	resetGlobal(t)

	err := Init(0)

	assert.ErrorIs(t, err, ErrInvalidQuantum)
	assert.Nil(t, Default())
}

// TestGlobal_InitTwice verifies a second Init is rejected
func TestGlobal_InitTwice(t *testing.T) {
	out := resetGlobal(t)
	var second error

	code, _ := runGlobalMain(t, func() {
		second = Init(1000)
		Terminate(MainThreadID)
	})

	assert.ErrorIs(t, second, ErrAlreadyInitialized)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "already initialized")
}

// TestGlobal_Lifecycle verifies the classic API end to end
// Given: An initialized library with two threads
// When: One sleeps and one blocks itself, and main yields until both are done
// Then: Ids, quantum counters and wake-ups follow round-robin order
func TestGlobal_Lifecycle(t *testing.T) {
	resetGlobal(t)
	var trace []string
	var tids []int
	var total int
	var q0 int

	code, libOut := runGlobalMain(t, func() {
		s := Default()
		yield := func() {
			s.Tick()
			Checkpoint()
		}

		a, _ := Spawn(func(ctx context.Context) {
			trace = append(trace, "a:sleep")
			Sleep(1)
			trace = append(trace, "a:done")
		})
		b, _ := Spawn(func(ctx context.Context) {
			trace = append(trace, "b:block")
			Block(GetTid())
			trace = append(trace, "b:done")
		})
		tids = []int{a, b}

		yield() // q2 a sleeps, q3 b blocks, q4 main
		trace = append(trace, "main")
		Resume(b)
		yield() // q5 a finishes, q6 b finishes, q7 main
		yield() // q8 main

		total = GetTotalQuantums()
		q0, _ = GetQuantums(MainThreadID)
		Terminate(MainThreadID)
	})

	require.Equal(t, 0, code)
	assert.Equal(t, []int{1, 2}, tids)
	assert.Equal(t, []string{"a:sleep", "b:block", "main", "a:done", "b:done"}, trace)
	assert.Equal(t, 8, total)
	assert.Equal(t, 4, q0)
	assert.Empty(t, libOut.String())
}
