package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []int
	)
	d := New(Config{BufferSize: 16}, func(_ context.Context, v int) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})

	for i := 0; i < 10; i++ {
		if !d.Submit(context.Background(), i) {
			t.Fatalf("submit %d rejected", i)
		}
	}
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 10 {
		t.Fatalf("expected 10 handled items, got %d", len(seen))
	}
	if d.Handled() != 10 {
		t.Fatalf("expected handled counter 10, got %d", d.Handled())
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	d := New(Config{BufferSize: 1, DropIfFull: true}, func(_ context.Context, _ int) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})

	d.Submit(context.Background(), 1)
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("worker did not pick up first item")
	}

	if !d.Submit(context.Background(), 2) {
		t.Fatal("expected buffered submit to succeed")
	}
	if d.Submit(context.Background(), 3) {
		t.Fatal("expected submit to be dropped when buffer is full")
	}
	if d.Dropped() != 1 {
		t.Fatalf("expected 1 dropped item, got %d", d.Dropped())
	}

	close(release)
	d.Close()
}

func TestDispatcherSubmitAfterCloseIsNoop(t *testing.T) {
	d := New[int](Config{}, nil)
	d.Close()
	d.Close()

	if d.Submit(context.Background(), 1) {
		t.Fatal("expected submit after close to be rejected")
	}
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher[string]
	if d.Submit(context.Background(), "x") {
		t.Fatal("nil dispatcher must not accept items")
	}
	d.Close()
	if d.Dropped() != 0 || d.Handled() != 0 {
		t.Fatal("nil dispatcher counters must be zero")
	}
}

func TestDispatcherAcceptedItemsSurviveConcurrentClose(t *testing.T) {
	for round := 0; round < 50; round++ {
		d := New(Config{BufferSize: 8, DropIfFull: true}, func(context.Context, int) {})

		var (
			wg       sync.WaitGroup
			accepted atomic.Uint64
		)
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					if d.Submit(context.Background(), i) {
						accepted.Add(1)
					}
				}
			}()
		}
		d.Close()
		wg.Wait()

		if got := d.Handled(); got != accepted.Load() {
			t.Fatalf("round %d: %d items accepted but %d handled", round, accepted.Load(), got)
		}
	}
}
