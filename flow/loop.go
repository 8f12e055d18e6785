package flow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nordwell-io/flowkit/component"
	"github.com/nordwell-io/flowkit/logger"
)

// errLoopStopped is returned by Submit once the loop has been stopped.
var errLoopStopped = errors.New("flow: loop stopped")

// loopKey marks a context as already running on a particular Loop's
// goroutine, so a Submit issued from inside another Submit's callback runs
// inline instead of deadlocking the single consumer.
type loopKey struct{}

// Loop is the shared cooperative scheduler every node's state is serialized
// through. It is the Go rendering of "all node state lives on one logical
// event loop" (spec §5), grounded on the teacher's sse.Hub.Run
// single-goroutine select loop, generalized from a fixed set of channels
// (register/unregister/broadcast) to an arbitrary submitted-closure channel.
type Loop struct {
	log *logger.Logger

	submit chan func()
	quit   chan struct{}

	mu      sync.Mutex
	running bool
	timers  map[*Timer]struct{}
	tasks   sync.WaitGroup
}

// NewLoop creates a Loop. log may be nil, in which case the package-level
// global logger is used.
func NewLoop(log *logger.Logger) *Loop {
	return &Loop{
		log:    log,
		submit: make(chan func()),
		quit:   make(chan struct{}),
		timers: make(map[*Timer]struct{}),
	}
}

// Name implements component.Component.
func (l *Loop) Name() string { return "flow.loop" }

// Start launches the loop's goroutine. Implements component.Component.
func (l *Loop) Start(_ context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = true
	l.mu.Unlock()

	go l.run()
	return nil
}

// Stop cancels all outstanding timers, stops accepting new tasks, and waits
// for spawned background tasks to observe cancellation. Implements
// component.Component.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	for t := range l.timers {
		t.stopTimer()
	}
	l.timers = make(map[*Timer]struct{})
	l.mu.Unlock()

	close(l.quit)

	done := make(chan struct{})
	go func() {
		l.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health implements component.Component.
func (l *Loop) Health(_ context.Context) component.ComponentHealth {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return component.ComponentHealth{Name: l.Name(), Status: component.StatusUnhealthy, Message: "loop not started"}
	}
	return component.ComponentHealth{Name: l.Name(), Status: component.StatusHealthy}
}

func (l *Loop) run() {
	for {
		select {
		case fn := <-l.submit:
			l.runSubmitted(fn)
		case <-l.quit:
			return
		}
	}
}

func (l *Loop) runSubmitted(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logPanic(r)
		}
	}()
	fn()
}

func (l *Loop) logPanic(r any) {
	fields := map[string]interface{}{"recovered": r}
	if l.log != nil {
		l.log.Error("flow: loop task panicked", fields)
		return
	}
	logger.Error("flow: loop task panicked", fields)
}

// Submit runs fn serialized onto the loop goroutine and blocks until it
// returns. fn receives a context marked as already running on this Loop, so
// that if fn itself calls Submit again (the common case of an operator
// invoking a downstream's Update from inside its own Update), that nested
// call detects the marker and runs inline rather than deadlocking the
// loop's single consumer.
func (l *Loop) Submit(ctx context.Context, fn func(context.Context)) error {
	if v, _ := ctx.Value(loopKey{}).(*Loop); v == l {
		fn(ctx)
		return nil
	}

	marked := context.WithValue(ctx, loopKey{}, l)
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn(marked)
	}

	select {
	case l.submit <- wrapped:
	case <-l.quit:
		return errLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Spawn launches fn in its own goroutine, tracked so Stop can wait for it
// to notice cancellation. fn receives a channel closed when the loop is
// stopping; the background loops of buffer and latest select on it
// alongside their queue waits.
func (l *Loop) Spawn(fn func(stop <-chan struct{})) {
	l.tasks.Add(1)
	go func() {
		defer l.tasks.Done()
		fn(l.quit)
	}()
}

// Now returns the current monotonic time. A seam for tests that need a
// fake clock could replace this method via embedding; production code
// always uses wall time.
func (l *Loop) Now() time.Time { return time.Now() }

// CallLater schedules cb to run (serialized on the loop) after d elapses.
// Returns a Timer whose Cancel is idempotent and safe after the callback
// has already fired.
func (l *Loop) CallLater(d time.Duration, cb func(ctx context.Context)) *Timer {
	t := &Timer{loop: l}
	t.timer = time.AfterFunc(d, func() {
		l.mu.Lock()
		if _, ok := l.timers[t]; !ok {
			l.mu.Unlock()
			return
		}
		delete(l.timers, t)
		l.mu.Unlock()

		marked := context.WithValue(context.Background(), loopKey{}, l)
		select {
		case l.submit <- func() { cb(marked) }:
		case <-l.quit:
		}
	})
	l.mu.Lock()
	l.timers[t] = struct{}{}
	l.mu.Unlock()
	return t
}

// Timer is a cancellable scheduled callback. Cancellation is cancel-on-drop
// in spirit: callers that own a subgraph with internal timers should call
// Cancel when tearing it down rather than relying on finalizers.
type Timer struct {
	loop  *Loop
	timer *time.Timer
}

// Cancel stops the timer if it has not already fired. Safe to call more
// than once.
func (t *Timer) Cancel() {
	t.loop.mu.Lock()
	delete(t.loop.timers, t)
	t.loop.mu.Unlock()
	t.stopTimer()
}

func (t *Timer) stopTimer() {
	if t.timer != nil {
		t.timer.Stop()
	}
}
