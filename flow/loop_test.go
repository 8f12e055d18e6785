package flow

import (
	"context"
	"testing"
	"time"
)

func startedLoop(t *testing.T) *Loop {
	t.Helper()
	l := NewLoop(nil)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = l.Stop(ctx)
	})
	return l
}

func TestLoop_Submit_RunsOnLoopGoroutine(t *testing.T) {
	l := startedLoop(t)
	ran := false
	if err := l.Submit(context.Background(), func(context.Context) { ran = true }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !ran {
		t.Error("expected submitted func to run")
	}
}

func TestLoop_Submit_NestedCallRunsInlineWithoutDeadlock(t *testing.T) {
	l := startedLoop(t)
	inner := false
	done := make(chan struct{})
	err := l.Submit(context.Background(), func(ctx context.Context) {
		// A nested Submit from inside a running submission must not block
		// on the same loop goroutine that is currently executing it.
		if nerr := l.Submit(ctx, func(context.Context) { inner = true }); nerr != nil {
			t.Errorf("nested Submit: %v", nerr)
		}
		close(done)
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-done
	if !inner {
		t.Error("expected nested Submit to have run")
	}
}

func TestLoop_Submit_AfterStopReturnsError(t *testing.T) {
	l := NewLoop(nil)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := l.Submit(context.Background(), func(context.Context) {}); err != errLoopStopped {
		t.Errorf("expected errLoopStopped, got %v", err)
	}
}

func TestLoop_CallLater_FiresAfterDelay(t *testing.T) {
	l := startedLoop(t)
	fired := make(chan struct{})
	l.CallLater(10*time.Millisecond, func(context.Context) { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestTimer_Cancel_PreventsFiring(t *testing.T) {
	l := startedLoop(t)
	fired := make(chan struct{})
	timer := l.CallLater(20*time.Millisecond, func(context.Context) { close(fired) })
	timer.Cancel()
	select {
	case <-fired:
		t.Fatal("timer fired after being canceled")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestLoop_Health_ReflectsRunningState(t *testing.T) {
	l := NewLoop(nil)
	if l.Health(context.Background()).Status == "" {
		t.Fatal("expected a health status before Start")
	}
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := l.Health(context.Background()); h.Status != "healthy" {
		t.Errorf("expected healthy status while running, got %q", h.Status)
	}
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
