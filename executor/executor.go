// Package executor provides the single-writer serial FIFO task runner
// used by Stage and the software GPU device (Design Note:
// "PIMPL and private state... No shared mutable state crosses component
// boundaries; futures cross boundaries"). It is the Go-idiomatic
// replacement for the original's boost-based common/concurrency/executor:
// one goroutine drains two lanes, high before normal, so high-priority
// operations (spec §4.3's set_transform/apply_transform/clear_transforms)
// preempt queued ticks without preempting an op already running.
package executor

import (
	"context"
	"errors"
	"sync"
)

// ErrAborted is returned by Invoke/InvokeHigh once the executor has been
// aborted; callers must treat it as non-fatal and stop issuing work.
var ErrAborted = errors.New("executor: aborted")

type task struct {
	fn   func()
	done chan struct{}
}

// Executor runs submitted funcs one at a time, in submission order
// within a lane, high-lane tasks always winning ties against the
// normal lane (spec §4.3: "Transform operations are issued at high
// priority... precede any queued tick").
type Executor struct {
	high   chan task
	normal chan task
	done   chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates and starts an Executor. Callers must call Abort when done
// to release the worker goroutine.
func New() *Executor {
	e := &Executor{
		high:   make(chan task, 64),
		normal: make(chan task, 256),
		done:   make(chan struct{}),
	}
	e.wg.Add(1)
	go e.run()
	return e
}

func (e *Executor) run() {
	defer e.wg.Done()
	for {
		// Drain every pending high-priority task before considering the
		// normal lane, without blocking if high is momentarily empty.
		select {
		case t := <-e.high:
			t.fn()
			close(t.done)
			continue
		default:
		}

		select {
		case t := <-e.high:
			t.fn()
			close(t.done)
		case t := <-e.normal:
			t.fn()
			close(t.done)
		case <-e.done:
			return
		}
	}
}

// Submit enqueues fn on the normal lane and returns a channel that is
// closed once fn has run, or without running fn when the executor is
// aborted or ctx is done first. It never blocks the caller on fn's
// execution.
func (e *Executor) Submit(ctx context.Context, fn func()) <-chan struct{} {
	return e.submit(ctx, e.normal, fn)
}

// SubmitHigh enqueues fn on the high-priority lane (spec §4.3 transform
// ops). Like Submit, it returns a completion channel rather than
// blocking.
func (e *Executor) SubmitHigh(ctx context.Context, fn func()) <-chan struct{} {
	return e.submit(ctx, e.high, fn)
}

func (e *Executor) submit(ctx context.Context, lane chan task, fn func()) <-chan struct{} {
	t := task{fn: fn, done: make(chan struct{})}
	select {
	case <-e.done:
		close(t.done)
		return t.done
	default:
	}
	select {
	case lane <- t:
	case <-e.done:
		close(t.done)
	case <-ctx.Done():
		close(t.done)
	}
	return t.done
}

// Invoke submits fn and blocks until it has run or ctx is cancelled,
// returning ErrAborted if the executor was aborted first.
func (e *Executor) Invoke(ctx context.Context, fn func()) error {
	done := e.Submit(ctx, fn)
	select {
	case <-done:
		select {
		case <-e.done:
			return ErrAborted
		default:
			return nil
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InvokeHigh is Invoke for the high-priority lane, used by control
// operations that must run ahead of any already-queued tick (spec
// §4.3's set_transform/apply_transform/clear_transforms).
func (e *Executor) InvokeHigh(ctx context.Context, fn func()) error {
	done := e.SubmitHigh(ctx, fn)
	select {
	case <-done:
		select {
		case <-e.done:
			return ErrAborted
		default:
			return nil
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Abort stops accepting new work and joins the worker goroutine. It is
// idempotent (Design Note §5 "Cancellation... becomes idempotent").
func (e *Executor) Abort() {
	e.closeOnce.Do(func() {
		close(e.done)
	})
	e.wg.Wait()
}
