package flow

// Batch is a fixed-size group of values produced by partition or
// sliding_window. It supplements the distilled spec's "emits a tuple"
// phrasing with the batch-aware map/reduce hooks the original
// implementation's Batch wrapper type provided (stream_map/
// stream_accumulate/stream_merge), so a chain like
// source.Partition(2).Map(sumBatch) can operate on the batch as a unit
// without changing Partition's own contract.
type Batch[T any] []T

// Map applies f to every element, returning a new Batch of the same
// length. The Python original's __stream_map__ hook.
func (b Batch[T]) Map(f func(T) T) Batch[T] {
	out := make(Batch[T], len(b))
	for i, v := range b {
		out[i] = f(v)
	}
	return out
}

// Reduce folds f over the batch starting from start and returns the final
// accumulator, mirroring __stream_accumulate__'s fold result; the
// intermediate accumulators are not returned.
func (b Batch[T]) Reduce(f func(acc, v T) T, start T) T {
	acc := start
	for _, v := range b {
		acc = f(acc, v)
	}
	return acc
}

// Zip pairs this batch element-wise with others, mirroring
// __stream_merge__. The result's length is the shortest input's length.
func (b Batch[T]) Zip(others ...Batch[T]) Batch[[]T] {
	n := len(b)
	for _, o := range others {
		if len(o) < n {
			n = len(o)
		}
	}
	out := make(Batch[[]T], n)
	for i := 0; i < n; i++ {
		row := make([]T, 0, len(others)+1)
		row = append(row, b[i])
		for _, o := range others {
			row = append(row, o[i])
		}
		out[i] = row
	}
	return out
}
