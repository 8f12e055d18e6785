package flowkafka

import (
	"context"

	"github.com/nordwell-io/flowkit/flow"
	"github.com/nordwell-io/flowkit/kafka/producer"
)

// Encode turns a value flowing into the sink into the topic and Kafka
// event it should be published as.
type Encode func(ctx context.Context, value any) (topic string, key string, payload any, err error)

// NewSink constructs a terminal flow.Node that publishes every value it
// receives to Kafka via pub, surfacing a publish failure as the sink
// Update's error the same way any other flow sink does.
func NewSink(upstream flow.Node, pub producer.Publisher, encode Encode) (flow.Node, error) {
	return flow.NewSink(upstream, func(ctx context.Context, value any) error {
		topic, key, payload, err := encode(ctx, value)
		if err != nil {
			return err
		}
		return pub.PublishJSON(ctx, topic, key, payload)
	})
}
