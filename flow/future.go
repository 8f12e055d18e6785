package flow

import (
	"context"
	"sync"
)

// Future is the completion handle returned by Emit. It resolves once every
// reachable downstream has finished processing the event it carries.
//
// The zero value is not usable; construct one with newPendingFuture or
// obtain an already-resolved one with Resolved.
type Future struct {
	mu        sync.Mutex
	resolved  bool
	err       error
	done      chan struct{}
	callbacks []func(error)
}

// Resolved returns a Future that has already completed with err (nil for
// success). Operators use this when a value was absorbed synchronously and
// no downstream work remains pending.
func Resolved(err error) *Future {
	f := &Future{done: make(chan struct{})}
	close(f.done)
	f.resolved = true
	f.err = err
	return f
}

// newPendingFuture returns a Future that has not yet completed.
func newPendingFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve completes f with err. Only the first call has effect; later
// calls are no-ops, matching "complete-on-construction when no children or
// all return synchronously" — a future is resolved exactly once.
func (f *Future) resolve(err error) {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return
	}
	f.resolved = true
	f.err = err
	cbs := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()
	close(f.done)
	for _, cb := range cbs {
		cb(err)
	}
}

// onDone registers cb to run when f resolves, passing the resolution error.
// If f is already resolved, cb runs synchronously before onDone returns.
func (f *Future) onDone(cb func(error)) {
	f.mu.Lock()
	if f.resolved {
		err := f.err
		f.mu.Unlock()
		cb(err)
		return
	}
	f.callbacks = append(f.callbacks, cb)
	f.mu.Unlock()
}

// Wait blocks until f resolves or ctx is done, whichever comes first.
// Racing Wait against ctx's deadline is how a caller implements the spec's
// "producers may impose their own timeout" — there is no built-in
// cancellation inside the runtime itself.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when f resolves.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// join returns a Future that resolves once every child has resolved. This
// is the completion primitive described by the design: a counter seeded to
// the number of pending children, decremented on each child completion,
// resolving the parent at zero. The first non-nil child error wins.
func join(children ...*Future) *Future {
	if len(children) == 0 {
		return Resolved(nil)
	}
	if len(children) == 1 {
		return children[0]
	}
	parent := newPendingFuture()
	var mu sync.Mutex
	pending := len(children)
	var firstErr error
	for _, child := range children {
		child.onDone(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			pending--
			if pending == 0 {
				parent.resolve(firstErr)
			}
		})
	}
	return parent
}
