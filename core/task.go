package core

import (
	"context"
	"reflect"
	"runtime"
)

// EntryPoint is the body of a spawned thread. Returning from it terminates
// the thread.
type EntryPoint func(ctx context.Context)

// =============================================================================
// Context Helper
// =============================================================================
type schedulerKeyType struct{}
type threadIDKeyType struct{}

var (
	schedulerKey schedulerKeyType
	threadIDKey  threadIDKeyType
)

func withThread(ctx context.Context, s *Scheduler, tid int) context.Context {
	ctx = context.WithValue(ctx, schedulerKey, s)
	return context.WithValue(ctx, threadIDKey, tid)
}

// FromContext returns the scheduler running the thread that owns ctx.
func FromContext(ctx context.Context) *Scheduler {
	if v := ctx.Value(schedulerKey); v != nil {
		return v.(*Scheduler)
	}
	return nil
}

// ThreadIDFromContext returns the id of the thread that owns ctx.
func ThreadIDFromContext(ctx context.Context) (int, bool) {
	tid, ok := ctx.Value(threadIDKey).(int)
	return tid, ok
}

func resolveThreadName(entry EntryPoint, explicit string) string {
	if explicit != "" {
		return explicit
	}

	if entry == nil {
		return "anonymous"
	}

	v := reflect.ValueOf(entry)
	if v.Kind() != reflect.Func {
		return "anonymous"
	}

	pc := v.Pointer()
	if pc == 0 {
		return "anonymous"
	}

	fn := runtime.FuncForPC(pc)
	if fn == nil || fn.Name() == "" {
		return "anonymous"
	}
	return fn.Name()
}
