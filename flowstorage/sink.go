// Package flowstorage persists batched flow output to an object store,
// adapting the teacher's storage.Storage interface into a terminal
// flow.Node suited to consuming flow.Batch[any] values from timed_window
// or partition.
package flowstorage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/nordwell-io/flowkit/flow"
	"github.com/nordwell-io/flowkit/storage"
)

// PathFunc names the object a batch is written to. seq increments once per
// write, letting a caller derive a stable, ordered key (e.g. a time-bucket
// prefix plus seq).
type PathFunc func(seq int64) string

// NewSink constructs a terminal flow.Node that JSON-lines-encodes every
// flow.Batch[any] it receives (one JSON value per line) and uploads it to
// store at the path pathFn(seq) produces, incrementing seq on every write.
func NewSink(upstream flow.Node, store storage.Storage, pathFn PathFunc) (flow.Node, error) {
	var seq int64
	return flow.NewSink(upstream, func(ctx context.Context, value any) error {
		batch, ok := value.(flow.Batch[any])
		if !ok {
			return fmt.Errorf("flowstorage: sink expects a flow.Batch[any], got %T", value)
		}
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, item := range batch {
			if err := enc.Encode(item); err != nil {
				return err
			}
		}
		seq++
		return store.Upload(ctx, pathFn(seq), bytes.NewReader(buf.Bytes()))
	})
}
