package flow

import "context"

// Source is a Node with no upstream. It exposes Emit publicly as the
// origin of events for a pipeline; external collaborators (file readers,
// Kafka consumers, timers) call only Emit, per §6's "Source collaborators
// ... use emit only."
type Source struct {
	baseNode
}

// NewSource constructs a named Source bound to loop.
func NewSource(name string, loop *Loop) *Source {
	return &Source{baseNode: newBaseNode(name, loop)}
}

func (s *Source) Emit(ctx context.Context, value any) *Future {
	var fut *Future
	err := s.loop.Submit(ctx, func(ctx context.Context) {
		fut = emitToDownstreams(ctx, s, value)
	})
	if err != nil {
		return Resolved(err)
	}
	return fut
}

// Update is not expected to be called on a Source (it has no upstream);
// it is implemented as a synonym for Emit so Source still satisfies Node.
func (s *Source) Update(ctx context.Context, value any, _ Node) *Future {
	return s.Emit(ctx, value)
}
