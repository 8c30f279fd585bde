package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/civicdesk/caseflow/internal/domain/event"
)

type testLogger struct{}

func (l *testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *testLogger) Error(msg string, keysAndValues ...interface{}) {}

func TestDispatcher_Dispatch(t *testing.T) {
	d := New(&testLogger{})
	defer d.Close()

	var got []string
	d.Subscribe(event.TypeRequestCreated, "first", func(ctx context.Context, evt *event.Event) error {
		got = append(got, "first")
		return nil
	})
	d.Subscribe(event.TypeRequestCreated, "second", func(ctx context.Context, evt *event.Event) error {
		got = append(got, "second")
		return nil
	})

	evt := event.New(event.TypeRequestCreated, 1, "ref-1", nil)
	if err := d.Dispatch(context.Background(), evt); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("handlers ran as %v, want [first second] in order", got)
	}
}

func TestDispatcher_DispatchStopsOnError(t *testing.T) {
	d := New(&testLogger{})
	defer d.Close()

	wantErr := errors.New("boom")
	ran := false
	d.Subscribe(event.TypeRequestRejected, "failing", func(ctx context.Context, evt *event.Event) error {
		return wantErr
	})
	d.Subscribe(event.TypeRequestRejected, "after", func(ctx context.Context, evt *event.Event) error {
		ran = true
		return nil
	})

	err := d.Dispatch(context.Background(), event.New(event.TypeRequestRejected, 1, "ref-1", nil))
	if !errors.Is(err, wantErr) {
		t.Errorf("Dispatch() error = %v, want wrapped boom", err)
	}
	if ran {
		t.Error("handler after the failing one still ran")
	}
}

func TestDispatcher_DispatchRecoversPanic(t *testing.T) {
	d := New(&testLogger{})
	defer d.Close()

	d.Subscribe(event.TypeTaskClaimed, "panicky", func(ctx context.Context, evt *event.Event) error {
		panic("handler exploded")
	})

	err := d.Dispatch(context.Background(), event.New(event.TypeTaskClaimed, 1, "ref-1", nil))
	if err == nil {
		t.Error("Dispatch() error = nil, want panic surfaced as error")
	}
}

func TestDispatcher_DispatchAsync(t *testing.T) {
	d := New(&testLogger{})

	var mu sync.Mutex
	count := 0
	d.Subscribe(event.TypeStepApproved, "counter", func(ctx context.Context, evt *event.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	for i := 0; i < 5; i++ {
		d.DispatchAsync(context.Background(), event.New(event.TypeStepApproved, int64(i), "ref", nil))
	}

	// Close waits for in-flight handlers.
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if count != 5 {
		t.Errorf("async handler ran %d times, want 5", count)
	}
}

func TestDispatcher_ClosedRefusesDispatch(t *testing.T) {
	d := New(&testLogger{})
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := d.Dispatch(context.Background(), event.New(event.TypeRequestCreated, 1, "ref", nil)); err == nil {
		t.Error("Dispatch() after Close() succeeded, want error")
	}
	if err := d.Close(); err == nil {
		t.Error("second Close() succeeded, want error")
	}
}

func TestDispatcher_UnsubscribedTypeIsNoop(t *testing.T) {
	d := New(&testLogger{})
	defer d.Close()

	if err := d.Dispatch(context.Background(), event.New(event.TypeStepOverdue, 1, "ref", nil)); err != nil {
		t.Errorf("Dispatch() with no handlers error = %v", err)
	}
}
