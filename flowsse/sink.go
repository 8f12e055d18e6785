// Package flowsse bridges flow pipelines to browser clients over
// Server-Sent Events, adapting the teacher's sse.Hub broadcaster into a
// terminal flow.Node and its reader into a flow.Source.
package flowsse

import (
	"context"
	"encoding/json"

	"github.com/nordwell-io/flowkit/flow"
	"github.com/nordwell-io/flowkit/sse"
)

// Pattern matches every connected client, the Go stand-in for "publish to
// every subscriber" when the caller has no per-client routing key.
const Pattern = "*"

// NewSink constructs a terminal flow.Node that JSON-encodes every value it
// receives and broadcasts it to clients on hub matching pattern.
func NewSink(upstream flow.Node, hub *sse.Hub, pattern string) (flow.Node, error) {
	if pattern == "" {
		pattern = Pattern
	}
	return flow.NewSink(upstream, func(_ context.Context, value any) error {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		hub.BroadcastToPattern(pattern, data)
		return nil
	})
}
