package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Handler receives batches of events in the order they were published.
type Handler interface {
	Name() string
	Handle(ctx context.Context, batch []LinkEvent) error
}

type DispatcherOptions struct {
	QueueSize     int
	FlushInterval time.Duration
	MaxBatch      int
	FlushTimeout  time.Duration
	Logger        *zap.Logger
}

// Dispatcher decouples event producers from handlers. Publish never blocks:
// when the queue is full the event is dropped and counted.
type Dispatcher struct {
	handlers     []Handler
	queue        chan LinkEvent
	flushEvery   time.Duration
	maxBatch     int
	flushTimeout time.Duration
	log          *zap.Logger

	// mu orders Publish against Shutdown: once closed is set under the write
	// lock no send can reach the queue, so the final drain sees every event.
	mu     sync.RWMutex
	closed bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	dropped atomic.Int64
}

func NewDispatcher(opts DispatcherOptions, handlers ...Handler) *Dispatcher {
	const (
		defaultQueueSize     = 10_000
		defaultFlushInterval = 500 * time.Millisecond
		defaultMaxBatch      = 500
		defaultFlushTimeout  = 5 * time.Second
	)

	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = defaultMaxBatch
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = defaultFlushTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	d := &Dispatcher{
		handlers:     handlers,
		queue:        make(chan LinkEvent, opts.QueueSize),
		flushEvery:   opts.FlushInterval,
		maxBatch:     opts.MaxBatch,
		flushTimeout: opts.FlushTimeout,
		log:          opts.Logger,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}

	go d.loop()
	return d
}

func (d *Dispatcher) Publish(ev LinkEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.dropped.Add(1)
	}
}

func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Shutdown stops accepting events, delivers what is queued and waits for the
// final flush or ctx, whichever comes first.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.stopCh)
		d.mu.Unlock()
	})

	select {
	case <-d.doneCh:
		if n := d.dropped.Load(); n > 0 {
			d.log.Warn("events dropped during dispatcher lifetime", zap.Int64("dropped", n))
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) loop() {
	defer close(d.doneCh)

	ticker := time.NewTicker(d.flushEvery)
	defer ticker.Stop()

	pending := make([]LinkEvent, 0, d.maxBatch)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		d.deliver(pending)
		pending = make([]LinkEvent, 0, d.maxBatch)
	}

	add := func(ev LinkEvent) {
		pending = append(pending, ev)
		if len(pending) >= d.maxBatch {
			flush()
		}
	}

	for {
		select {
		case ev := <-d.queue:
			add(ev)
		case <-ticker.C:
			flush()
		case <-d.stopCh:
			for {
				select {
				case ev := <-d.queue:
					add(ev)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(batch []LinkEvent) {
	for _, h := range d.handlers {
		ctx, cancel := context.WithTimeout(context.Background(), d.flushTimeout)
		err := h.Handle(ctx, batch)
		cancel()
		if err != nil {
			d.log.Error("event handler failed",
				zap.String("handler", h.Name()),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
		}
	}
}
