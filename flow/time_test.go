package flow

import (
	"context"
	"testing"
	"time"
)

func TestDelay_EmitsAfterIntervalPreservingOrder(t *testing.T) {
	loop := startedLoop(t)
	src := NewSource("src", loop)
	delayed, err := NewDelay(src, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewDelay: %v", err)
	}
	sink, values := NewSinkToSlice(delayed)
	mustConnect(t, delayed.Connect(sink))

	start := time.Now()
	f1 := src.Emit(context.Background(), 1)
	f2 := src.Emit(context.Background(), 2)

	if err := f1.Wait(context.Background()); err != nil {
		t.Fatalf("wait f1: %v", err)
	}
	if err := f2.Wait(context.Background()); err != nil {
		t.Fatalf("wait f2: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("expected emit to take at least the delay interval, took %s", elapsed)
	}

	got := values()
	want := []any{1, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

// TestRateLimit_SpacesFiveEmitsAcrossAtLeastFourIntervals reproduces §8.6:
// 5 emits at a 50ms interval must take at least 200ms of wall-clock time
// (4 intervening intervals for 5 events).
func TestRateLimit_SpacesFiveEmitsAcrossAtLeastFourIntervals(t *testing.T) {
	loop := startedLoop(t)
	src := NewSource("src", loop)
	limited, err := NewRateLimit(src, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewRateLimit: %v", err)
	}
	sink, values := NewSinkToSlice(limited)
	mustConnect(t, limited.Connect(sink))

	start := time.Now()
	var futs []*Future
	for i := 0; i < 5; i++ {
		futs = append(futs, src.Emit(context.Background(), i))
	}
	for _, f := range futs {
		if err := f.Wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("expected at least 200ms for 5 emits at a 50ms interval, took %s", elapsed)
	}
	if got := len(values()); got != 5 {
		t.Errorf("expected all 5 events to eventually emit, got %d", got)
	}
}

func TestTimedWindow_PublishesAccumulatedBatchOnTick(t *testing.T) {
	loop := startedLoop(t)
	src := NewSource("src", loop)
	win, err := NewTimedWindow(src, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("NewTimedWindow: %v", err)
	}
	sink, values := NewSinkToSlice(win)
	mustConnect(t, win.Connect(sink))

	src.Emit(context.Background(), 1).Wait(context.Background())
	src.Emit(context.Background(), 2).Wait(context.Background())

	deadline := time.After(time.Second)
	for {
		if len(values()) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed_window never published a batch")
		case <-time.After(5 * time.Millisecond):
		}
	}

	batch := values()[0].(Batch[any])
	if len(batch) != 2 || batch[0] != 1 || batch[1] != 2 {
		t.Errorf("expected batch [1 2], got %v", batch)
	}
}

func TestBuffer_DecouplesProducerFromConsumerUpToLimit(t *testing.T) {
	loop := startedLoop(t)
	src := NewSource("src", loop)
	buf, err := NewBuffer(src, 2)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	sink, values := NewSinkToSlice(buf)
	mustConnect(t, buf.Connect(sink))

	for i := 0; i < 5; i++ {
		if err := src.Emit(context.Background(), i).Wait(context.Background()); err != nil {
			t.Fatalf("Emit(%d): %v", i, err)
		}
	}

	deadline := time.After(time.Second)
	for {
		if len(values()) == 5 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected all 5 buffered values to drain, got %v", values())
		case <-time.After(5 * time.Millisecond):
		}
	}
	got := values()
	for i, v := range got {
		if v != i {
			t.Errorf("index %d: expected %d, got %v", i, i, v)
		}
	}
}

func TestLatest_DropsIntermediateValuesUnderSlowConsumer(t *testing.T) {
	loop := startedLoop(t)
	src := NewSource("src", loop)
	lat, err := NewLatest(src)
	if err != nil {
		t.Fatalf("NewLatest: %v", err)
	}
	sink, values := NewSinkToSlice(lat)
	mustConnect(t, lat.Connect(sink))

	for i := 0; i < 10; i++ {
		src.Emit(context.Background(), i).Wait(context.Background())
	}

	deadline := time.After(time.Second)
	for {
		if len(values()) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("latest never emitted anything")
		case <-time.After(5 * time.Millisecond):
		}
	}
	got := values()
	if got[len(got)-1] != 9 {
		t.Errorf("expected the final emitted value to be the most recent one (9), got %v", got[len(got)-1])
	}
	if len(got) > 10 {
		t.Errorf("latest must not emit more values than were produced, got %d", len(got))
	}
}
