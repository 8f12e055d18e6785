package flow

import (
	"context"

	"github.com/nordwell-io/flowkit/resilience"
)

// WithCircuitBreaker wraps node so every Update runs through cb.Execute,
// generalizing the teacher's resilience.CircuitBreaker (built for
// request/response calls) to a streaming node's Update: an open breaker
// fails the Update's future immediately rather than invoking the wrapped
// node, protecting a flaky external sink (Kafka, storage, Redis) from
// being hammered while it recovers.
func WithCircuitBreaker(node Node, cb *resilience.CircuitBreaker) Node {
	return &circuitBreakerNode{Node: node, cb: cb}
}

type circuitBreakerNode struct {
	Node
	cb *resilience.CircuitBreaker
}

func (n *circuitBreakerNode) Update(ctx context.Context, value any, who Node) *Future {
	var fut *Future
	cerr := n.cb.Execute(func() error {
		fut = n.Node.Update(ctx, value, who)
		return fut.Wait(ctx)
	})
	if cerr != nil && fut == nil {
		return Resolved(cerr)
	}
	return fut
}
