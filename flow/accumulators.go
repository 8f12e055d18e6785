package flow

import "context"

// sentinel is a private comparable type used for flow's two distinguished
// values, NoDefault and NoEmit. Using a dedicated type (rather than nil)
// keeps nil available as an ordinary accumulator or emitted value.
type sentinel struct{ label string }

// NoDefault marks scan/accumulate's start argument as "use the first event
// as the initial accumulator," per §4.4.
var NoDefault any = sentinel{"NoDefault"}

// NoEmit is returned by a ScanStateFunc alongside the new state to mean
// "update state, emit nothing this tick." Resolves the spec's open
// question about scan(returns_state=true) sentinel behavior: emit nothing,
// state still updates — symmetric with filter's suppress-output contract.
var NoEmit any = sentinel{"NoEmit"}

// ScanFunc folds a new value into state, producing the next state, which
// is also the emitted value. Used by NewScan (returns_state=false).
type ScanFunc func(ctx context.Context, state, value any) (newState any, err error)

// ScanStateFunc folds a new value into state, producing the next state and
// a separate emitted value (possibly NoEmit). Used by
// NewScanReturningState (returns_state=true).
type ScanStateFunc func(ctx context.Context, state, value any) (newState any, out any, err error)

type scanNode struct {
	baseNode
	state        any
	hasState     bool
	returnsState bool
	fn           ScanStateFunc
}

// NewScan constructs scan/accumulate with returns_state=false: the emitted
// value is always the updated state.
func NewScan(upstream Node, start any, fn ScanFunc) (Node, error) {
	wrapped := func(ctx context.Context, state, value any) (any, any, error) {
		next, err := fn(ctx, state, value)
		return next, next, err
	}
	return newScanNode(upstream, start, wrapped, false)
}

// NewScanReturningState constructs scan/accumulate with
// returns_state=true: fn controls the emitted value independently of the
// retained state, and may suppress emission by returning NoEmit.
func NewScanReturningState(upstream Node, start any, fn ScanStateFunc) (Node, error) {
	return newScanNode(upstream, start, fn, true)
}

func newScanNode(upstream Node, start any, fn ScanStateFunc, returnsState bool) (Node, error) {
	n := &scanNode{
		baseNode:     newBaseNode(upstream.Name()+".scan", upstream.Loop()),
		state:        start,
		hasState:     start != NoDefault,
		returnsState: returnsState,
		fn:           fn,
	}
	if err := upstream.Connect(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *scanNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *scanNode) Update(ctx context.Context, value any, _ Node) *Future {
	var fut *Future
	err := n.loop.Submit(ctx, func(ctx context.Context) {
		if !n.hasState {
			// First event becomes the accumulator and is emitted unchanged.
			n.state = value
			n.hasState = true
			fut = emitToDownstreams(ctx, n, value)
			return
		}

		var next, out any
		cerr := runCallback(n.name, func() error {
			var innerErr error
			next, out, innerErr = n.fn(ctx, n.state, value)
			return innerErr
		})
		if cerr != nil {
			fut = Resolved(cerr)
			return
		}
		n.state = next
		if out == NoEmit {
			fut = Resolved(nil)
			return
		}
		fut = emitToDownstreams(ctx, n, out)
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}

// partitionNode implements partition(n): buffers up to n events, emits a
// Batch of n and clears; a trailing partial batch is never flushed early.
type partitionNode struct {
	baseNode
	n   int
	buf []any
}

// NewPartition constructs partition(n). n must be positive.
func NewPartition(upstream Node, n int) (Node, error) {
	if n <= 0 {
		return nil, flowFmtConfigError("partition", "n must be positive, got %d", n)
	}
	node := &partitionNode{baseNode: newBaseNode(upstream.Name()+".partition", upstream.Loop()), n: n}
	if err := upstream.Connect(node); err != nil {
		return nil, err
	}
	return node, nil
}

func (n *partitionNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *partitionNode) Update(ctx context.Context, value any, _ Node) *Future {
	var fut *Future
	err := n.loop.Submit(ctx, func(ctx context.Context) {
		n.buf = append(n.buf, value)
		if len(n.buf) < n.n {
			fut = Resolved(nil)
			return
		}
		batch := Batch[any](append([]any(nil), n.buf...))
		n.buf = n.buf[:0]
		fut = emitToDownstreams(ctx, n, batch)
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}

// slidingWindowNode implements sliding_window(n): keeps the last n events;
// once full, emits a Batch of length n on every new event.
type slidingWindowNode struct {
	baseNode
	n   int
	buf []any
}

// NewSlidingWindow constructs sliding_window(n). n must be positive.
func NewSlidingWindow(upstream Node, n int) (Node, error) {
	if n <= 0 {
		return nil, flowFmtConfigError("sliding_window", "n must be positive, got %d", n)
	}
	node := &slidingWindowNode{baseNode: newBaseNode(upstream.Name()+".sliding_window", upstream.Loop()), n: n}
	if err := upstream.Connect(node); err != nil {
		return nil, err
	}
	return node, nil
}

func (n *slidingWindowNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *slidingWindowNode) Update(ctx context.Context, value any, _ Node) *Future {
	var fut *Future
	err := n.loop.Submit(ctx, func(ctx context.Context) {
		n.buf = append(n.buf, value)
		if len(n.buf) > n.n {
			n.buf = n.buf[len(n.buf)-n.n:]
		}
		if len(n.buf) < n.n {
			fut = Resolved(nil)
			return
		}
		batch := Batch[any](append([]any(nil), n.buf...))
		fut = emitToDownstreams(ctx, n, batch)
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}

// KeyFunc extracts the deduplication key for unique(). The default is the
// value itself.
type KeyFunc func(value any) any

func identityKey(value any) any { return value }

// uniqueNode implements unique(history, key): emits x iff key(x) has not
// been seen; unbounded when history is 0, otherwise a FIFO of that
// capacity evicting the oldest key on overflow.
type uniqueNode struct {
	baseNode
	key     KeyFunc
	history int // 0 means unbounded
	seen    map[any]struct{}
	order   []any // FIFO of keys, only maintained when history > 0
}

// NewUnique constructs unique(history, key). history 0 means unbounded; a
// negative history is a ConfigurationError. key may be nil, defaulting to
// identity.
func NewUnique(upstream Node, history int, key KeyFunc) (Node, error) {
	if history < 0 {
		return nil, flowFmtConfigError("unique", "history must not be negative, got %d", history)
	}
	if key == nil {
		key = identityKey
	}
	node := &uniqueNode{
		baseNode: newBaseNode(upstream.Name()+".unique", upstream.Loop()),
		key:      key,
		history:  history,
		seen:     make(map[any]struct{}),
	}
	if err := upstream.Connect(node); err != nil {
		return nil, err
	}
	return node, nil
}

func (n *uniqueNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *uniqueNode) Update(ctx context.Context, value any, _ Node) *Future {
	var fut *Future
	err := n.loop.Submit(ctx, func(ctx context.Context) {
		k := n.key(value)
		if _, seen := n.seen[k]; seen {
			fut = Resolved(nil)
			return
		}
		n.record(k)
		fut = emitToDownstreams(ctx, n, value)
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}

func (n *uniqueNode) record(k any) {
	n.seen[k] = struct{}{}
	if n.history <= 0 {
		return
	}
	n.order = append(n.order, k)
	if len(n.order) > n.history {
		oldest := n.order[0]
		n.order = n.order[1:]
		delete(n.seen, oldest)
	}
}

// frequenciesNode implements frequencies(): maintains a mapping from event
// to count; on each event, increments and emits a snapshot of the mapping.
type frequenciesNode struct {
	baseNode
	counts map[any]int
}

// NewFrequencies constructs frequencies().
func NewFrequencies(upstream Node) (Node, error) {
	node := &frequenciesNode{baseNode: newBaseNode(upstream.Name()+".frequencies", upstream.Loop()), counts: make(map[any]int)}
	if err := upstream.Connect(node); err != nil {
		return nil, err
	}
	return node, nil
}

func (n *frequenciesNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *frequenciesNode) Update(ctx context.Context, value any, _ Node) *Future {
	var fut *Future
	err := n.loop.Submit(ctx, func(ctx context.Context) {
		n.counts[value]++
		snapshot := make(map[any]int, len(n.counts))
		for k, v := range n.counts {
			snapshot[k] = v
		}
		fut = emitToDownstreams(ctx, n, snapshot)
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}
