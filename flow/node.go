package flow

import (
	"context"
	"fmt"
	"sync"

	flowerrors "github.com/nordwell-io/flowkit/errors"
)

// Node is a vertex of the dataflow graph: identity, upstream/downstream
// edges, and the emit/update contract that carries events and backpressure.
type Node interface {
	// Name returns the node's immutable identity, used in error messages
	// and observability decorators.
	Name() string

	// Loop returns the shared scheduler this node's state is serialized
	// through. Constructors use a new node's upstream's Loop so an entire
	// connected graph always shares one loop.
	Loop() *Loop

	// Emit pushes value to every downstream in registration order and
	// returns a future resolving once all of them (transitively) have
	// finished processing it.
	Emit(ctx context.Context, value any) *Future

	// Update delivers value from the upstream who. who is nil for
	// single-input operators that don't need to distinguish their source.
	Update(ctx context.Context, value any, who Node) *Future

	// Connect adds downstream as a consumer of this node's emissions.
	Connect(downstream Node) error

	// Disconnect removes a previously connected downstream.
	Disconnect(downstream Node) error

	// Downstreams returns the current downstream set, in registration
	// order.
	Downstreams() []Node

	// Close releases any timers or background tasks the node owns. It is
	// idempotent.
	Close() error
}

// baseNode implements the shared Node plumbing — identity, edge
// bookkeeping, and emit fan-out — that every concrete operator embeds.
// Concrete operators override Update (and sometimes Emit) with their own
// transition logic and delegate the rest to baseNode.
type baseNode struct {
	name string
	loop *Loop

	mu          sync.RWMutex
	downstreams []Node
}

func newBaseNode(name string, loop *Loop) baseNode {
	return baseNode{name: name, loop: loop}
}

func (n *baseNode) Name() string { return n.name }

func (n *baseNode) Loop() *Loop { return n.loop }

func (n *baseNode) Downstreams() []Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Node, len(n.downstreams))
	copy(out, n.downstreams)
	return out
}

// Connect appends downstream to this node's downstream set. Connecting the
// same downstream twice is a GraphError (§7): the original spec's
// invariant "b ∈ a.downstreams ⇔ a ∈ b.upstreams" only holds if edges are
// not duplicated.
func (n *baseNode) Connect(downstream Node) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, d := range n.downstreams {
		if d == downstream {
			return flowerrors.GraphError(fmt.Sprintf("%q is already connected to %q", n.name, downstream.Name()))
		}
	}
	n.downstreams = append(n.downstreams, downstream)
	return nil
}

// Disconnect removes downstream from this node's downstream set.
// Disconnecting a node that was never connected is a GraphError.
func (n *baseNode) Disconnect(downstream Node) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, d := range n.downstreams {
		if d == downstream {
			n.downstreams = append(n.downstreams[:i], n.downstreams[i+1:]...)
			return nil
		}
	}
	return flowerrors.GraphError(fmt.Sprintf("%q is not connected to %q", n.name, downstream.Name()))
}

// Close is a no-op for nodes that own no timers or background tasks;
// operators that do (delay, rate_limit, timed_window own timers; buffer,
// latest own a background dequeue task) override it.
func (n *baseNode) Close() error { return nil }

// emitToDownstreams runs Update on every downstream in registration order
// and joins their futures — the literal rendering of "iterates downstreams
// in registration order, invokes each's update, collects any resulting
// futures, and returns a composite future that resolves when all have
// resolved" (spec §4.1). self identifies the originating node to
// multi-input operators via their who parameter.
func emitToDownstreams(ctx context.Context, self Node, value any) *Future {
	downstreams := self.Downstreams()
	if len(downstreams) == 0 {
		return Resolved(nil)
	}
	futures := make([]*Future, len(downstreams))
	for i, d := range downstreams {
		futures[i] = d.Update(ctx, value, self)
	}
	return join(futures...)
}

// runCallback invokes a user-supplied callback, recovering a panic and
// turning it into a flowerrors.UserCallbackFailure so it surfaces through
// the ordinary error-returning path of emit/update rather than crashing
// the shared loop goroutine (spec §4.8: "propagates out of emit and is the
// caller's responsibility", not "tears down the process").
func runCallback(nodeName string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = flowerrors.UserCallbackFailure(nodeName, fmt.Errorf("panic: %v", r))
		}
	}()
	return fn()
}
