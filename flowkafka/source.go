// Package flowkafka wires flow.Node sources and sinks onto Kafka, adapting
// the teacher's kafka/consumer and kafka/producer packages into the
// dataflow runtime's emit/update contract.
package flowkafka

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nordwell-io/flowkit/flow"
	"github.com/nordwell-io/flowkit/kafka/consumer"
	"github.com/nordwell-io/flowkit/logger"
)

// Decode turns a raw Kafka message into the value a Source emits. An error
// drops the message (logged, not retried) rather than stalling the
// consumer loop on a single bad record.
type Decode func(msg kafkago.Message) (any, error)

// Source reads every message from a Kafka consumer group and emits it
// downstream, pausing the underlying read loop's progress on backpressure:
// the next ReadMessage call only happens once the current emit's future
// has resolved, so a slow downstream throttles consumption rather than
// letting messages pile up unacknowledged.
type Source struct {
	*flow.Source
	consumer *consumer.Consumer
	decode   Decode
	log      *logger.Logger
}

// NewSource wraps c as a flow.Source named after the consumer's topic. Call
// Run to start the background consume loop; it returns once ctx is
// canceled or the underlying reader fails unrecoverably.
func NewSource(c *consumer.Consumer, loop *flow.Loop, decode Decode, log *logger.Logger) *Source {
	if decode == nil {
		decode = defaultDecode
	}
	return &Source{
		Source:   flow.NewSource("kafka."+c.Topic(), loop),
		consumer: c,
		decode:   decode,
		log:      log.WithComponent("flowkafka.source"),
	}
}

func defaultDecode(msg kafkago.Message) (any, error) {
	return msg.Value, nil
}

// Consume blocks consuming c, emitting each decoded message and waiting for
// its future before reading the next one. The name matches
// kafka.ConsumerRunner so a Source can be handed straight to a
// kafka.Component via AddConsumer and run under the component's own
// lifecycle instead of a hand-rolled goroutine.
func (s *Source) Consume(ctx context.Context) error {
	return s.consumer.Consume(ctx, func(ctx context.Context, msg kafkago.Message) error {
		value, err := s.decode(msg)
		if err != nil {
			s.log.Error("flowkafka: decode failed, skipping message", map[string]interface{}{
				"topic":  msg.Topic,
				"offset": msg.Offset,
				"error":  err.Error(),
			})
			return nil
		}
		return s.Emit(ctx, value).Wait(ctx)
	})
}

// Topic returns the underlying consumer's topic, satisfying kafka.ConsumerRunner.
func (s *Source) Topic() string { return s.consumer.Topic() }

// Close closes the underlying consumer, satisfying kafka.ConsumerRunner.
func (s *Source) Close() error { return s.consumer.Close() }
