package core

import "iter"

// ExecutionContext is the resumable state of one spawned thread.
//
// Control moves between a context and the dispatcher that resumed it: Resume
// hands control in and returns once the context suspends or finishes, so at
// most one side ever runs.
type ExecutionContext interface {
	// Resume transfers control into the context. It returns true when the
	// context suspended and false when its body has finished.
	Resume() bool

	// Suspend is called from inside the context. It hands control back to
	// the resumer and returns when the context is resumed again.
	Suspend()

	// Exit abandons the running context from inside. It unwinds the body
	// and never returns.
	Exit()

	// Release discards a context that is parked or was never started,
	// unwinding its stack before returning. It must not be called from
	// inside the context itself.
	Release()
}

// ContextFactory synthesizes a fresh context whose first Resume runs body.
type ContextFactory func(body func(ExecutionContext)) ExecutionContext

// contextReleased unwinds a context body that is being discarded.
type contextReleased struct{}

// coroutineContext runs its body on a runtime coroutine (iter.Pull), which
// switches goroutines directly without letting both run at once.
type coroutineContext struct {
	next  func() (struct{}, bool)
	stop  func()
	yield func(struct{}) bool
}

var _ ExecutionContext = (*coroutineContext)(nil)

func newCoroutineContext(body func(ExecutionContext)) ExecutionContext {
	c := &coroutineContext{}
	c.next, c.stop = iter.Pull(func(yield func(struct{}) bool) {
		c.yield = yield
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(contextReleased); !ok {
					panic(r)
				}
			}
		}()
		body(c)
	})
	return c
}

func (c *coroutineContext) Resume() bool {
	_, ok := c.next()
	return ok
}

func (c *coroutineContext) Suspend() {
	if !c.yield(struct{}{}) {
		panic(contextReleased{})
	}
}

func (c *coroutineContext) Exit() {
	panic(contextReleased{})
}

func (c *coroutineContext) Release() {
	c.stop()
}

// isContextRelease reports whether a recovered value is the unwinding
// sentinel, which must keep propagating.
func isContextRelease(r any) bool {
	_, ok := r.(contextReleased)
	return ok
}
