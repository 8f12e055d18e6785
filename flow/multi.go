package flow

import "context"

// indexOfUpstream lets a multi-input operator tell upstreams apart by the who
// argument passed to Update — the Go stand-in for the original's identity
// check, since Go interfaces compare by value/pointer identity.
func indexOfUpstream(upstreams []Node, who Node) int {
	for i, u := range upstreams {
		if u == who {
			return i
		}
	}
	return -1
}

// zipNode implements zip(*inputs, maxsize): one bounded FIFO per input.
// On an event from input i, appends to queue i; once every queue is
// non-empty, dequeues one element from each and emits the tuple. If queue
// i is already at maxsize, the new event is held as a single pending put
// instead of being enqueued, and the Update call's future stays pending
// until a later dequeue (triggered by another input) frees a slot.
type zipNode struct {
	baseNode
	upstreams []Node
	maxsize   int
	queues    [][]any
	pending   []*pendingPut
}

type pendingPut struct {
	value  any
	future *Future
}

// NewZip constructs zip(*inputs, maxsize). maxsize must be positive.
func NewZip(maxsize int, inputs ...Node) (Node, error) {
	if maxsize <= 0 {
		return nil, flowFmtConfigError("zip", "maxsize must be positive, got %d", maxsize)
	}
	if len(inputs) == 0 {
		return nil, flowFmtConfigError("zip", "at least one input is required")
	}
	n := &zipNode{
		baseNode:  newBaseNode("zip", inputs[0].Loop()),
		upstreams: append([]Node(nil), inputs...),
		maxsize:   maxsize,
		queues:    make([][]any, len(inputs)),
		pending:   make([]*pendingPut, len(inputs)),
	}
	for _, in := range inputs {
		if err := in.Connect(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n *zipNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *zipNode) Update(ctx context.Context, value any, who Node) *Future {
	var fut *Future
	err := n.loop.Submit(ctx, func(ctx context.Context) {
		idx := indexOfUpstream(n.upstreams, who)
		if idx < 0 {
			fut = Resolved(flowFmtGraphError("zip: update from unconnected upstream"))
			return
		}

		if len(n.queues[idx]) >= n.maxsize {
			p := &pendingPut{value: value, future: newPendingFuture()}
			n.pending[idx] = p
			fut = p.future
			return
		}

		n.queues[idx] = append(n.queues[idx], value)
		fut = n.drain(ctx)
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}

// drain dequeues one element per input and emits the combined tuple when
// every queue is non-empty, then promotes any pending put freed by the
// dequeue. Returns the future for the Update call that triggered it.
func (n *zipNode) drain(ctx context.Context) *Future {
	for {
		ready := true
		for _, q := range n.queues {
			if len(q) == 0 {
				ready = false
				break
			}
		}
		if !ready {
			return Resolved(nil)
		}

		tuple := make([]any, len(n.queues))
		for i := range n.queues {
			tuple[i] = n.queues[i][0]
			n.queues[i] = n.queues[i][1:]
			n.promote(i)
		}
		emitFut := emitToDownstreams(ctx, n, tuple)
		// A drain can only combine one tuple per call in steady state
		// (each input contributes at most one newly queued event before
		// the next drain), so returning after the first successful
		// combination matches the state machine in §4.7: Ready is an
		// immediately-transient state.
		return emitFut
	}
}

// promote moves input i's single pending put (if any) into its queue now
// that a slot has opened up, resolving the put's future. This is the
// backpressure release described in the zip backpressure scenario (§8.7).
func (n *zipNode) promote(i int) {
	p := n.pending[i]
	if p == nil {
		return
	}
	n.pending[i] = nil
	n.queues[i] = append(n.queues[i], p.value)
	p.future.resolve(nil)
}

// combineLatestNode implements combine_latest(*inputs): keeps the last
// value per input, emitting a tuple once every input has produced at
// least one value, and on every subsequent event from any input.
type combineLatestNode struct {
	baseNode
	upstreams []Node
	latest    []any
	has       []bool
	seenAll   bool
}

// NewCombineLatest constructs combine_latest(*inputs).
func NewCombineLatest(inputs ...Node) (Node, error) {
	if len(inputs) == 0 {
		return nil, flowFmtConfigError("combine_latest", "at least one input is required")
	}
	n := &combineLatestNode{
		baseNode:  newBaseNode("combine_latest", inputs[0].Loop()),
		upstreams: append([]Node(nil), inputs...),
		latest:    make([]any, len(inputs)),
		has:       make([]bool, len(inputs)),
	}
	for _, in := range inputs {
		if err := in.Connect(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n *combineLatestNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *combineLatestNode) Update(ctx context.Context, value any, who Node) *Future {
	var fut *Future
	err := n.loop.Submit(ctx, func(ctx context.Context) {
		idx := indexOfUpstream(n.upstreams, who)
		if idx < 0 {
			fut = Resolved(flowFmtGraphError("combine_latest: update from unconnected upstream"))
			return
		}
		n.latest[idx] = value
		n.has[idx] = true

		if !n.seenAll {
			n.seenAll = true
			for _, ok := range n.has {
				if !ok {
					n.seenAll = false
					break
				}
			}
			if !n.seenAll {
				fut = Resolved(nil)
				return
			}
		}

		tuple := make([]any, len(n.latest))
		copy(tuple, n.latest)
		fut = emitToDownstreams(ctx, n, tuple)
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}

// unionNode implements union(*inputs): emits every event from every input
// as-is, preserving arrival order; no synchronization between inputs
// beyond single-loop serialization.
type unionNode struct {
	baseNode
}

// NewUnion constructs union(*inputs).
func NewUnion(inputs ...Node) (Node, error) {
	if len(inputs) == 0 {
		return nil, flowFmtConfigError("union", "at least one input is required")
	}
	n := &unionNode{baseNode: newBaseNode("union", inputs[0].Loop())}
	for _, in := range inputs {
		if err := in.Connect(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n *unionNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *unionNode) Update(ctx context.Context, value any, _ Node) *Future {
	var fut *Future
	err := n.loop.Submit(ctx, func(ctx context.Context) {
		fut = emitToDownstreams(ctx, n, value)
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}
