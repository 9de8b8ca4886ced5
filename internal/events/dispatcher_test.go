package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []LinkEvent
	err    error
}

func (h *recordingHandler) Name() string { return "recording" }

func (h *recordingHandler) Handle(_ context.Context, batch []LinkEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, batch...)
	return h.err
}

func (h *recordingHandler) codes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.events))
	for _, ev := range h.events {
		out = append(out, ev.Code)
	}
	return out
}

type blockingHandler struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (h *blockingHandler) Name() string { return "blocking" }

func (h *blockingHandler) Handle(context.Context, []LinkEvent) error {
	h.once.Do(func() { close(h.started) })
	<-h.release
	return nil
}

func testEvent(code string) LinkEvent {
	return NewLinkEvent(TypeLinkClicked, code, uuid.New(), uuid.New(), 1, 10, time.Now())
}

func TestDispatcherDeliversInOrderOnShutdown(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(DispatcherOptions{FlushInterval: time.Hour}, h)

	for _, code := range []string{"a", "b", "c"} {
		d.Publish(testEvent(code))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	got := h.codes()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("delivered %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delivered %v, want %v", got, want)
		}
	}
}

func TestDispatcherFlushesOnBatchSize(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(DispatcherOptions{FlushInterval: time.Hour, MaxBatch: 2}, h)
	defer d.Shutdown(context.Background())

	d.Publish(testEvent("a"))
	d.Publish(testEvent("b"))

	deadline := time.Now().Add(2 * time.Second)
	for len(h.codes()) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("batch was not flushed when it reached MaxBatch")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	h := &blockingHandler{started: make(chan struct{}), release: make(chan struct{})}
	d := NewDispatcher(DispatcherOptions{QueueSize: 1, MaxBatch: 1, FlushInterval: time.Hour}, h)

	d.Publish(testEvent("first"))
	<-h.started

	d.Publish(testEvent("queued"))
	d.Publish(testEvent("dropped"))

	if got := d.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}

	close(h.release)
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestDispatcherSwallowsHandlerErrors(t *testing.T) {
	failing := &recordingHandler{err: errors.New("broker unavailable")}
	healthy := &recordingHandler{}
	d := NewDispatcher(DispatcherOptions{FlushInterval: time.Hour}, failing, healthy)

	d.Publish(testEvent("x"))
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if got := healthy.codes(); len(got) != 1 {
		t.Errorf("healthy handler got %v, want one event", got)
	}
}

func TestDispatcherRejectsAfterShutdown(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{})
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	d.Publish(testEvent("late"))
	if got := d.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
}

func TestDispatcherAccountsForEveryEventDuringShutdown(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(DispatcherOptions{QueueSize: 64, FlushInterval: time.Millisecond, MaxBatch: 8}, h)

	const publishers = 8
	var published atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 200; j++ {
				d.Publish(testEvent("x"))
				published.Add(1)
			}
		}()
	}

	close(start)
	time.Sleep(time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	wg.Wait()

	delivered := int64(len(h.codes()))
	if delivered+d.Dropped() != published.Load() {
		t.Errorf("delivered %d + dropped %d != published %d", delivered, d.Dropped(), published.Load())
	}
}
