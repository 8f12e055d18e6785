package flow

import (
	"context"
	"sync"
	"time"

	"github.com/nordwell-io/flowkit/resilience"
)

// delayNode implements delay(interval): on update(x), schedules emit of x
// at now+interval. The update call itself does not suspend; it returns a
// pending future immediately, which resolves when the delayed emit
// finishes. Events arrive with equal delay, so their relative order is
// preserved.
type delayNode struct {
	baseNode
	interval time.Duration

	mu     sync.Mutex
	timers map[*Timer]struct{}
	closed bool
}

// NewDelay constructs delay(interval).
func NewDelay(upstream Node, interval time.Duration) (Node, error) {
	n := &delayNode{
		baseNode: newBaseNode(upstream.Name()+".delay", upstream.Loop()),
		interval: interval,
		timers:   make(map[*Timer]struct{}),
	}
	if err := upstream.Connect(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *delayNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *delayNode) Update(_ context.Context, value any, _ Node) *Future {
	fut := newPendingFuture()

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return Resolved(errLoopStopped)
	}
	var t *Timer
	t = n.loop.CallLater(n.interval, func(ctx context.Context) {
		n.mu.Lock()
		delete(n.timers, t)
		n.mu.Unlock()
		child := emitToDownstreams(ctx, n, value)
		child.onDone(func(err error) { fut.resolve(err) })
	})
	n.timers[t] = struct{}{}
	n.mu.Unlock()

	return fut
}

func (n *delayNode) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for t := range n.timers {
		t.Cancel()
	}
	n.timers = make(map[*Timer]struct{})
	return nil
}

// rateLimitNode implements rate_limit(interval) directly atop the
// teacher's token-bucket resilience.RateLimiter: a limiter configured
// with Burst=1 and Rate=1/interval gives strict one-slot-per-interval
// spacing, and reserve() mirrors RateLimiter.WaitN's own allow-then-
// reserve sequencing (AllowN first, falling back to the unconditional
// ReserveN) so the token math is entirely the library's, not
// reimplemented here. Reserving without blocking lets the wait be
// scheduled on the shared loop via CallLater instead of stalling the
// loop goroutine inside RateLimiter.Wait.
type rateLimitNode struct {
	baseNode
	limiter *resilience.RateLimiter

	mu     sync.Mutex
	timers map[*Timer]struct{}
	closed bool
}

// NewRateLimit constructs rate_limit(interval). interval must be positive.
func NewRateLimit(upstream Node, interval time.Duration) (Node, error) {
	if interval <= 0 {
		return nil, flowFmtConfigError("rate_limit", "interval must be positive, got %s", interval)
	}
	name := upstream.Name() + ".rate_limit"
	n := &rateLimitNode{
		baseNode: newBaseNode(name, upstream.Loop()),
		limiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:  name,
			Rate:  1 / interval.Seconds(),
			Burst: 1,
		}),
		timers: make(map[*Timer]struct{}),
	}
	if err := upstream.Connect(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *rateLimitNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *rateLimitNode) Update(ctx context.Context, value any, _ Node) *Future {
	var fut *Future
	err := n.loop.Submit(ctx, func(ctx context.Context) {
		wait := n.reserve()
		if wait <= 0 {
			fut = emitToDownstreams(ctx, n, value)
			return
		}

		pending := newPendingFuture()
		fut = pending

		n.mu.Lock()
		if n.closed {
			n.mu.Unlock()
			pending.resolve(errLoopStopped)
			return
		}
		var t *Timer
		t = n.loop.CallLater(wait, func(ctx2 context.Context) {
			n.mu.Lock()
			delete(n.timers, t)
			n.mu.Unlock()
			child := emitToDownstreams(ctx2, n, value)
			child.onDone(func(err error) { pending.resolve(err) })
		})
		n.timers[t] = struct{}{}
		n.mu.Unlock()
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}

// reserve consumes this event's token (immediately if one is available)
// and reports how long the caller must wait before emitting — the Open/
// Closed transition of §4.7's rate_limit state machine, fully delegated
// to resilience.RateLimiter's refill/reservation arithmetic.
func (n *rateLimitNode) reserve() time.Duration {
	if n.limiter.AllowN(1) {
		return 0
	}
	return n.limiter.ReserveN(1)
}

// Close cancels any timers scheduled for events still waiting on the rate
// window to open.
func (n *rateLimitNode) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for t := range n.timers {
		t.Cancel()
	}
	n.timers = make(map[*Timer]struct{})
	return nil
}

// timedWindowNode implements timed_window(interval): accumulates incoming
// events; a recurring timer, armed at construction, publishes the
// accumulated batch (possibly empty) and resets. If the previous publish's
// emit has not finished when the next tick fires, that tick is skipped and
// accumulation continues; the grown batch publishes as soon as the
// in-flight emit completes.
type timedWindowNode struct {
	baseNode
	interval   time.Duration
	buf        []any
	publishing bool
	timer      *Timer
	closed     bool
}

// NewTimedWindow constructs timed_window(interval). interval must be
// positive.
func NewTimedWindow(upstream Node, interval time.Duration) (Node, error) {
	if interval <= 0 {
		return nil, flowFmtConfigError("timed_window", "interval must be positive, got %s", interval)
	}
	n := &timedWindowNode{
		baseNode: newBaseNode(upstream.Name()+".timed_window", upstream.Loop()),
		interval: interval,
	}
	if err := upstream.Connect(n); err != nil {
		return nil, err
	}
	n.scheduleNext()
	return n, nil
}

func (n *timedWindowNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *timedWindowNode) Update(ctx context.Context, value any, _ Node) *Future {
	var fut *Future
	err := n.loop.Submit(ctx, func(ctx context.Context) {
		n.buf = append(n.buf, value)
		fut = Resolved(nil)
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}

func (n *timedWindowNode) scheduleNext() {
	n.timer = n.loop.CallLater(n.interval, n.onTick)
}

func (n *timedWindowNode) onTick(ctx context.Context) {
	if n.closed {
		return
	}
	n.scheduleNext()
	if n.publishing {
		return
	}
	n.publish(ctx)
}

// publish must run on the loop (called either from onTick, which is
// already loop-serialized via CallLater, or from a prior publish's
// completion callback below).
func (n *timedWindowNode) publish(ctx context.Context) {
	batch := Batch[any](append([]any(nil), n.buf...))
	n.buf = n.buf[:0]
	n.publishing = true

	child := emitToDownstreams(ctx, n, batch)
	child.onDone(func(error) {
		_ = n.loop.Submit(context.Background(), func(ctx2 context.Context) {
			n.publishing = false
			if n.closed {
				return
			}
			if len(n.buf) > 0 {
				n.publish(ctx2)
			}
		})
	})
}

func (n *timedWindowNode) Close() error {
	n.closed = true
	if n.timer != nil {
		n.timer.Cancel()
	}
	return nil
}

// bufferNode implements buffer(limit): a bounded queue decoupling producer
// from consumer. Update enqueues (suspending via a single pending put if
// the queue is full) and resolves once enqueued; a background task
// dequeues and emits downstream in order.
type bufferNode struct {
	baseNode
	limit     int
	mu        sync.Mutex
	queue     []any
	pending   *pendingPut
	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewBuffer constructs buffer(limit). limit must be positive.
func NewBuffer(upstream Node, limit int) (Node, error) {
	if limit <= 0 {
		return nil, flowFmtConfigError("buffer", "limit must be positive, got %d", limit)
	}
	n := &bufferNode{
		baseNode: newBaseNode(upstream.Name()+".buffer", upstream.Loop()),
		limit:    limit,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if err := upstream.Connect(n); err != nil {
		return nil, err
	}
	n.loop.Spawn(n.run)
	return n, nil
}

func (n *bufferNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *bufferNode) Update(_ context.Context, value any, _ Node) *Future {
	n.mu.Lock()
	if len(n.queue) < n.limit {
		n.queue = append(n.queue, value)
		n.mu.Unlock()
		n.wake()
		return Resolved(nil)
	}
	p := &pendingPut{value: value, future: newPendingFuture()}
	n.pending = p
	n.mu.Unlock()
	return p.future
}

func (n *bufferNode) wake() {
	select {
	case n.notify <- struct{}{}:
	default:
	}
}

func (n *bufferNode) run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-n.done:
			return
		case <-n.notify:
		}
		for {
			val, ok := n.dequeue()
			if !ok {
				break
			}
			emitToDownstreams(context.Background(), n, val)
		}
	}
}

// Close stops the background dequeue task independent of the shared
// Loop's lifecycle, so a caller can unwind this subgraph without stopping
// every other node sharing the loop. Idempotent.
func (n *bufferNode) Close() error {
	n.closeOnce.Do(func() { close(n.done) })
	return nil
}

func (n *bufferNode) dequeue() (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.queue) == 0 {
		return nil, false
	}
	val := n.queue[0]
	n.queue = n.queue[1:]
	if n.pending != nil {
		n.queue = append(n.queue, n.pending.value)
		n.pending.future.resolve(nil)
		n.pending = nil
	}
	return val, true
}

// latestNode implements latest(): keeps only the most recent event; a
// background task loops, emitting the newest value and dropping whatever
// arrived while the previous emit was still in flight.
type latestNode struct {
	baseNode
	mu        sync.Mutex
	value     any
	has       bool
	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewLatest constructs latest().
func NewLatest(upstream Node) (Node, error) {
	n := &latestNode{
		baseNode: newBaseNode(upstream.Name()+".latest", upstream.Loop()),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if err := upstream.Connect(n); err != nil {
		return nil, err
	}
	n.loop.Spawn(n.run)
	return n, nil
}

func (n *latestNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *latestNode) Update(_ context.Context, value any, _ Node) *Future {
	n.mu.Lock()
	n.value = value
	n.has = true
	n.mu.Unlock()
	select {
	case n.notify <- struct{}{}:
	default:
	}
	return Resolved(nil)
}

func (n *latestNode) run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-n.done:
			return
		case <-n.notify:
		}
		for {
			v, ok := n.take()
			if !ok {
				break
			}
			child := emitToDownstreams(context.Background(), n, v)
			child.Wait(context.Background())
		}
	}
}

// Close stops the background emit task independent of the shared Loop's
// lifecycle, so a caller can unwind this subgraph without stopping every
// other node sharing the loop. Idempotent.
func (n *latestNode) Close() error {
	n.closeOnce.Do(func() { close(n.done) })
	return nil
}

func (n *latestNode) take() (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.has {
		return nil, false
	}
	v := n.value
	n.has = false
	return v, true
}
