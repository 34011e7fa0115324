package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	BufferSize int
	// DropIfFull drops items instead of blocking the producer when the buffer is full.
	DropIfFull bool
	// Workers is the number of consumer goroutines. Values < 1 mean one worker.
	Workers int
}

// HandlerFunc consumes one item. It runs on a dispatcher worker goroutine.
type HandlerFunc[T any] func(ctx context.Context, item T)

// Dispatcher asynchronously forwards items to a handler through a bounded queue.
type Dispatcher[T any] struct {
	cfg       Config
	handle    HandlerFunc[T]
	ch        chan T
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	handled   atomic.Uint64
	closeOnce sync.Once

	// mu orders Submit against Close: an item accepted under the read lock
	// is always in the buffer before the workers start draining.
	mu     sync.RWMutex
	closed bool
}

// New starts a dispatcher. A nil handler makes every Submit a no-op drop.
func New[T any](cfg Config, handle HandlerFunc[T]) *Dispatcher[T] {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if handle == nil {
		handle = func(context.Context, T) {}
	}

	d := &Dispatcher[T]{
		cfg:    cfg,
		handle: handle,
		ch:     make(chan T, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.run()
	}

	return d
}

func (d *Dispatcher[T]) run() {
	defer d.wg.Done()

	for {
		select {
		case item := <-d.ch:
			d.consume(item)
		case <-d.done:
			for {
				select {
				case item := <-d.ch:
					d.consume(item)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher[T]) consume(item T) {
	d.handle(context.Background(), item)
	d.handled.Add(1)
}

// Submit enqueues item. It reports false when the item was dropped, either
// because the dispatcher is closed or because the buffer is full in DropIfFull mode.
func (d *Dispatcher[T]) Submit(ctx context.Context, item T) bool {
	if d == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- item:
			return true
		default:
			d.dropped.Add(1)
			return false
		}
	}

	select {
	case d.ch <- item:
		return true
	case <-ctx.Done():
		d.dropped.Add(1)
		return false
	}
}

// Close stops accepting items, drains the queue and waits for workers to exit.
// A blocked Submit finishes before Close proceeds; workers keep consuming
// until then.
func (d *Dispatcher[T]) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the number of items dropped so far.
func (d *Dispatcher[T]) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Handled returns the number of items passed to the handler so far.
func (d *Dispatcher[T]) Handled() uint64 {
	if d == nil {
		return 0
	}
	return d.handled.Load()
}
