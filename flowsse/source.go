package flowsse

import (
	"context"
	"io"

	"github.com/nordwell-io/flowkit/flow"
	httpsse "github.com/nordwell-io/flowkit/httpclient/sse"
	"github.com/nordwell-io/flowkit/logger"
)

// Source reads events off an upstream SSE stream (another service's
// broadcast) and emits each one downstream, applying backpressure by
// waiting for each emit's future before reading the next event.
type Source struct {
	*flow.Source
	reader httpsse.Reader
	log    *logger.Logger
}

// NewSource wraps reader as a named flow.Source.
func NewSource(name string, reader httpsse.Reader, loop *flow.Loop, log *logger.Logger) *Source {
	return &Source{
		Source: flow.NewSource(name, loop),
		reader: reader,
		log:    log.WithComponent("flowsse.source"),
	}
}

// Run reads events until the stream ends or ctx is canceled, emitting each
// one as a *httpsse.Event.
func (s *Source) Run(ctx context.Context) error {
	defer s.reader.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		event, err := s.reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.Emit(ctx, event).Wait(ctx); err != nil {
			s.log.Error("flowsse: downstream emit failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
