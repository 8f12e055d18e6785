package flow

import (
	"sort"
	"sync"
	"time"
)

// Registry provides named node lookup for dynamic graph construction and a
// name-keyed operator constructor table for extension points beyond the
// built-in fluent methods — the Go rendering of register_api's dynamic
// "source.name(args)" mechanism, generalized from the teacher's dag.Registry
// (a lookup table for batch-pipeline nodes) to live dataflow operators.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]Node
	ops   map[string]OperatorFactory
}

// OperatorFactory constructs and connects a named operator to upstream.
type OperatorFactory func(upstream Node, args ...any) (Node, error)

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]Node), ops: make(map[string]OperatorFactory)}
}

// Register adds a node to the registry under name.
func (r *Registry) Register(name string, node Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[name] = node
}

// Get retrieves a node by name.
func (r *Registry) Get(name string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[name]
	return n, ok
}

// List returns the sorted names of all registered nodes.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.nodes))
	for name := range r.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterAPI attaches an operator factory under name for dynamic
// construction via Apply, mirroring register_api's "attaches an operator
// class so source.name(args…) constructs and connects it fluently."
func (r *Registry) RegisterAPI(name string, factory OperatorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[name] = factory
}

// Apply constructs the operator registered under name, connected to
// upstream, matching the original's free-function extension point
// "apply(op_name, upstream, args)" for operators beyond the built-in
// fluent set.
func (r *Registry) Apply(name string, upstream Node, args ...any) (Node, error) {
	r.mu.RLock()
	factory, ok := r.ops[name]
	r.mu.RUnlock()
	if !ok {
		return nil, flowFmtConfigError(name, "no operator registered under this name")
	}
	return factory(upstream, args...)
}

// Chain wraps a Node with the fluent builder methods from §6's operator
// table, so a pipeline reads as
// Wrap(source).Map(f).Filter(g).Sink(h), the Go equivalent of
// "source.map(f).filter(g).sink(...)" constructing and connecting each
// operator in turn. Each method panics on a ConfigurationError/GraphError
// (raised "at construction" in the original) since a fluent chain has no
// slot to return one; callers that need to handle misconfiguration
// explicitly should use the NewXxx constructors directly instead.
type Chain struct {
	Node
}

// Wrap starts a fluent chain rooted at n.
func Wrap(n Node) Chain { return Chain{n} }

func must(n Node, err error) Chain {
	if err != nil {
		panic(err)
	}
	return Chain{n}
}

func (c Chain) Map(fn MapFunc) Chain                      { return must(NewMap(c.Node, fn)) }
func (c Chain) Filter(pred PredFunc) Chain                { return must(NewFilter(c.Node, pred)) }
func (c Chain) Remove(pred PredFunc) Chain                { return must(NewRemove(c.Node, pred)) }
func (c Chain) Scan(start any, fn ScanFunc) Chain          { return must(NewScan(c.Node, start, fn)) }
func (c Chain) ScanReturningState(start any, fn ScanStateFunc) Chain {
	return must(NewScanReturningState(c.Node, start, fn))
}
func (c Chain) Partition(n int) Chain                     { return must(NewPartition(c.Node, n)) }
func (c Chain) SlidingWindow(n int) Chain                 { return must(NewSlidingWindow(c.Node, n)) }
func (c Chain) Unique(history int, key KeyFunc) Chain     { return must(NewUnique(c.Node, history, key)) }
func (c Chain) Frequencies() Chain                        { return must(NewFrequencies(c.Node)) }
func (c Chain) Flatten(iterate func(any) ([]any, error)) Chain {
	return must(NewFlatten(c.Node, iterate))
}
func (c Chain) Delay(interval time.Duration) Chain     { return must(NewDelay(c.Node, interval)) }
func (c Chain) RateLimit(interval time.Duration) Chain { return must(NewRateLimit(c.Node, interval)) }
func (c Chain) TimedWindow(interval time.Duration) Chain {
	return must(NewTimedWindow(c.Node, interval))
}
func (c Chain) Buffer(limit int) Chain { return must(NewBuffer(c.Node, limit)) }
func (c Chain) Latest() Chain          { return must(NewLatest(c.Node)) }
func (c Chain) Sink(fn SinkFunc) Chain { return must(NewSink(c.Node, fn)) }

// SinkToSlice is terminal: it returns the accessor function directly
// rather than a Chain, since nothing may connect downstream of a sink.
func (c Chain) SinkToSlice() func() []any {
	_, values := NewSinkToSlice(c.Node)
	return values
}

// Zip, CombineLatest, and Union take multiple inputs, so they are
// package-level functions rather than Chain methods — there is no single
// "upstream" to chain from.

// Zip constructs zip(*inputs, maxsize) as a Chain.
func Zip(maxsize int, inputs ...Node) Chain { return must(NewZip(maxsize, inputs...)) }

// CombineLatest constructs combine_latest(*inputs) as a Chain.
func CombineLatest(inputs ...Node) Chain { return must(NewCombineLatest(inputs...)) }

// Union constructs union(*inputs) as a Chain.
func Union(inputs ...Node) Chain { return must(NewUnion(inputs...)) }
