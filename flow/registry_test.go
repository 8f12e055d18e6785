package flow

import (
	"context"
	"testing"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	loop := startedLoop(t)
	r := NewRegistry()
	src := NewSource("src", loop)
	r.Register("src", src)

	got, ok := r.Get("src")
	if !ok || got != src {
		t.Fatalf("expected to retrieve the registered source, got %v ok=%v", got, ok)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("expected Get of an unregistered name to report not found")
	}
}

func TestRegistry_List_ReturnsSortedNames(t *testing.T) {
	loop := startedLoop(t)
	r := NewRegistry()
	r.Register("zeta", NewSource("zeta", loop))
	r.Register("alpha", NewSource("alpha", loop))
	got := r.List()
	want := []string{"alpha", "zeta"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected sorted %v, got %v", want, got)
	}
}

func TestRegistry_Apply_ConstructsRegisteredOperator(t *testing.T) {
	loop := startedLoop(t)
	r := NewRegistry()
	r.RegisterAPI("double", func(upstream Node, args ...any) (Node, error) {
		return NewMap(upstream, func(_ context.Context, v any) (any, error) {
			return v.(int) * 2, nil
		})
	})

	src := NewSource("src", loop)
	doubled, err := r.Apply("double", src)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	sink, values := NewSinkToSlice(doubled)
	mustConnect(t, doubled.Connect(sink))

	src.Emit(context.Background(), 3).Wait(context.Background())
	if got := values(); len(got) != 1 || got[0] != 6 {
		t.Errorf("expected [6], got %v", got)
	}
}

func TestRegistry_Apply_UnregisteredNameIsConfigurationError(t *testing.T) {
	loop := startedLoop(t)
	r := NewRegistry()
	src := NewSource("src", loop)
	if _, err := r.Apply("nope", src); err == nil {
		t.Fatal("expected an error applying an unregistered operator name")
	}
}

func TestChain_FluentMethodsBuildAPipeline(t *testing.T) {
	loop := startedLoop(t)
	src := NewSource("src", loop)
	values := Wrap(src).
		Map(func(_ context.Context, v any) (any, error) { return v.(int) + 1, nil }).
		Filter(func(_ context.Context, v any) (bool, error) { return v.(int)%2 == 0, nil }).
		SinkToSlice()

	for _, v := range []int{1, 2, 3, 4} {
		src.Emit(context.Background(), v).Wait(context.Background())
	}

	got := values()
	want := []any{2, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestChain_PanicsOnConfigurationError(t *testing.T) {
	loop := startedLoop(t)
	src := NewSource("src", loop)
	defer func() {
		if recover() == nil {
			t.Fatal("expected Chain.Partition(0) to panic on a ConfigurationError")
		}
	}()
	Wrap(src).Partition(0)
}

func TestZipCombineLatestUnion_PackageLevelConstructors(t *testing.T) {
	loop := startedLoop(t)
	a := NewSource("a", loop)
	b := NewSource("b", loop)
	c := NewSource("c", loop)

	zipValues := Zip(4, a, b).SinkToSlice()
	a.Emit(context.Background(), 1).Wait(context.Background())
	b.Emit(context.Background(), "x").Wait(context.Background())
	if got := zipValues(); len(got) != 1 {
		t.Errorf("Zip: expected 1 tuple, got %v", got)
	}

	unionValues := Union(b, c).SinkToSlice()
	c.Emit(context.Background(), "y").Wait(context.Background())
	if got := unionValues(); len(got) != 1 || got[0] != "y" {
		t.Errorf("Union: expected [y], got %v", got)
	}

	d := NewSource("d", loop)
	e := NewSource("e", loop)
	clValues := CombineLatest(d, e).SinkToSlice()
	d.Emit(context.Background(), 1).Wait(context.Background())
	e.Emit(context.Background(), 2).Wait(context.Background())
	if got := clValues(); len(got) != 1 {
		t.Errorf("CombineLatest: expected 1 tuple, got %v", got)
	}
}
