package flow

import (
	"context"
	"sync"
)

// MapFunc transforms a value. An error aborts the emission for that event
// and surfaces as a UserCallbackFailure from the returned future.
type MapFunc func(ctx context.Context, value any) (any, error)

// PredFunc reports whether a value should pass a filter/remove stage.
type PredFunc func(ctx context.Context, value any) (bool, error)

// SinkFunc consumes a terminal value. If it returns an error, the error
// surfaces from the sink's Update future (the spec's "if f returns a
// future, forwards it to upstream" — in Go, forwarding an error plays the
// same backpressure-signaling role a returned future would).
type SinkFunc func(ctx context.Context, value any) error

// mapNode implements map(f): on update(x), emits f(x).
type mapNode struct {
	baseNode
	fn MapFunc
}

// NewMap constructs a map operator and connects it to upstream.
func NewMap(upstream Node, fn MapFunc) (Node, error) {
	n := &mapNode{baseNode: newBaseNode(upstream.Name()+".map", upstream.Loop()), fn: fn}
	if err := upstream.Connect(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *mapNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *mapNode) Update(ctx context.Context, value any, _ Node) *Future {
	var fut *Future
	err := n.loop.Submit(ctx, func(ctx context.Context) {
		var out any
		cerr := runCallback(n.name, func() error {
			var innerErr error
			out, innerErr = n.fn(ctx, value)
			return innerErr
		})
		if cerr != nil {
			fut = Resolved(cerr)
			return
		}
		fut = emitToDownstreams(ctx, n, out)
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}

// filterNode implements filter(pred)/remove(pred). want=true for filter,
// want=false for remove.
type filterNode struct {
	baseNode
	pred PredFunc
	want bool
}

// NewFilter constructs a filter operator: emits x iff pred(x) is true.
func NewFilter(upstream Node, pred PredFunc) (Node, error) {
	return newPredicateNode(upstream, "filter", pred, true)
}

// NewRemove constructs remove(pred), the complement of filter.
func NewRemove(upstream Node, pred PredFunc) (Node, error) {
	return newPredicateNode(upstream, "remove", pred, false)
}

func newPredicateNode(upstream Node, label string, pred PredFunc, want bool) (Node, error) {
	n := &filterNode{baseNode: newBaseNode(upstream.Name()+"."+label, upstream.Loop()), pred: pred, want: want}
	if err := upstream.Connect(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *filterNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *filterNode) Update(ctx context.Context, value any, _ Node) *Future {
	var fut *Future
	err := n.loop.Submit(ctx, func(ctx context.Context) {
		var pass bool
		cerr := runCallback(n.name, func() error {
			var innerErr error
			pass, innerErr = n.pred(ctx, value)
			return innerErr
		})
		if cerr != nil {
			fut = Resolved(cerr)
			return
		}
		if pass != n.want {
			fut = Resolved(nil)
			return
		}
		fut = emitToDownstreams(ctx, n, value)
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}

// flattenNode implements flatten/concat: on update(xs), iterates xs and
// performs a serial emit for each element, awaiting each downstream in
// turn before moving to the next element.
type flattenNode struct {
	baseNode
	iterate func(xs any) ([]any, error)
}

// NewFlatten constructs a flatten/concat operator. iterate turns an
// incoming batch value into its constituent elements; defaultIterate
// handles []any and flow.Batch[any] and is used when iterate is nil.
func NewFlatten(upstream Node, iterate func(xs any) ([]any, error)) (Node, error) {
	if iterate == nil {
		iterate = defaultIterate
	}
	n := &flattenNode{baseNode: newBaseNode(upstream.Name()+".flatten", upstream.Loop()), iterate: iterate}
	if err := upstream.Connect(n); err != nil {
		return nil, err
	}
	return n, nil
}

func defaultIterate(xs any) ([]any, error) {
	switch v := xs.(type) {
	case []any:
		return v, nil
	case Batch[any]:
		return []any(v), nil
	default:
		return nil, flowFmtConfigError("flatten", "value is not iterable")
	}
}

func (n *flattenNode) Emit(ctx context.Context, value any) *Future {
	return emitToDownstreams(ctx, n, value)
}

func (n *flattenNode) Update(ctx context.Context, value any, _ Node) *Future {
	var fut *Future
	err := n.loop.Submit(ctx, func(ctx context.Context) {
		elems, cerr := n.iterate(value)
		if cerr != nil {
			fut = Resolved(cerr)
			return
		}
		for _, elem := range elems {
			child := emitToDownstreams(ctx, n, elem)
			if werr := child.Wait(ctx); werr != nil {
				fut = Resolved(werr)
				return
			}
		}
		fut = Resolved(nil)
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}

// sinkNode implements sink(f): a terminal node invoking f(x) on every
// update. Has no downstreams; Connect always fails.
type sinkNode struct {
	baseNode
	fn SinkFunc
}

// NewSink constructs a terminal sink operator.
func NewSink(upstream Node, fn SinkFunc) (Node, error) {
	n := &sinkNode{baseNode: newBaseNode(upstream.Name()+".sink", upstream.Loop()), fn: fn}
	if err := upstream.Connect(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *sinkNode) Emit(_ context.Context, _ any) *Future { return Resolved(nil) }

func (n *sinkNode) Connect(downstream Node) error {
	return flowFmtGraphError("sink %q is terminal and cannot take downstreams", n.name)
}

func (n *sinkNode) Update(ctx context.Context, value any, _ Node) *Future {
	var fut *Future
	err := n.loop.Submit(ctx, func(ctx context.Context) {
		cerr := runCallback(n.name, func() error { return n.fn(ctx, value) })
		fut = Resolved(cerr)
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}

// NewSinkToSlice constructs a terminal sink that appends every received
// value to an in-memory slice, returning the operator node and an accessor
// for the accumulated slice (the Go rendering of sink_to_list).
func NewSinkToSlice(upstream Node) (Node, func() []any) {
	// A private mutex guards the slice: it is read from a caller's
	// goroutine (e.g. a test asserting on accumulated output) while the
	// loop goroutine may still be appending to it concurrently. The
	// loop's serialization covers a node's own state, not a value shared
	// back out to the caller.
	var mu sync.Mutex
	values := make([]any, 0)
	n, err := NewSink(upstream, func(_ context.Context, value any) error {
		mu.Lock()
		values = append(values, value)
		mu.Unlock()
		return nil
	})
	if err != nil {
		panic(err)
	}
	return n, func() []any {
		mu.Lock()
		defer mu.Unlock()
		out := make([]any, len(values))
		copy(out, values)
		return out
	}
}
