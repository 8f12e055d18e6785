package flow

import (
	"context"
	"time"

	"github.com/nordwell-io/flowkit/logger"
	"github.com/nordwell-io/flowkit/observability"
)

// WithTracing wraps node so every Update opens a span named
// "flow.update.<name>", generalizing the teacher's dag.WithTracing (which
// wraps a batch Node.Run) to a streaming node's Update.
func WithTracing(node Node) Node {
	return &tracingNode{Node: node}
}

type tracingNode struct {
	Node
}

func (n *tracingNode) Update(ctx context.Context, value any, who Node) *Future {
	ctx, span := observability.StartSpan(ctx, "flow.update."+n.Node.Name())
	defer span.End()
	observability.SetSpanAttribute(ctx, "flow.node", n.Node.Name())

	fut := n.Node.Update(ctx, value, who)
	fut.onDone(func(err error) {
		if err != nil {
			observability.SetSpanError(ctx, err)
		}
	})
	return fut
}

// WithMetrics wraps node with per-Update operation/error/duration
// recording, generalizing dag.WithMetrics.
func WithMetrics(node Node, metrics *observability.Metrics) Node {
	return &metricsNode{Node: node, metrics: metrics}
}

type metricsNode struct {
	Node
	metrics *observability.Metrics
}

func (n *metricsNode) Update(ctx context.Context, value any, who Node) *Future {
	start := time.Now()
	fut := n.Node.Update(ctx, value, who)
	fut.onDone(func(err error) {
		duration := time.Since(start)
		status := "ok"
		if err != nil {
			status = "error"
			n.metrics.RecordError(ctx, "update", n.Node.Name())
		}
		n.metrics.RecordOperation(ctx, n.Node.Name(), "flow.update", status, duration)
	})
	return fut
}

// WithLogging wraps node with debug/error logging per Update,
// generalizing dag.WithLogging.
func WithLogging(node Node, log *logger.Logger) Node {
	return &loggingNode{Node: node, log: log}
}

type loggingNode struct {
	Node
	log *logger.Logger
}

func (n *loggingNode) Update(ctx context.Context, value any, who Node) *Future {
	start := time.Now()
	fut := n.Node.Update(ctx, value, who)
	fut.onDone(func(err error) {
		fields := map[string]interface{}{
			"node":     n.Node.Name(),
			"duration": time.Since(start).String(),
		}
		if err != nil {
			fields["error"] = err.Error()
			n.log.Error("flow node update failed", fields)
			return
		}
		n.log.Debug("flow node update completed", fields)
	})
	return fut
}
