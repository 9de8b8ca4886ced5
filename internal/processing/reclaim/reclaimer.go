package reclaim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultInitialDelay = time.Minute
	DefaultInterval     = time.Hour
)

var ErrAlreadyRunning = errors.New("reclaimer is already running")

var sweepDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "link_sweep_duration_seconds",
		Help:    "Duration of expired-link sweeps",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"result"},
)

// Sweeper removes expired entries and reports how many it removed.
type Sweeper interface {
	SweepExpired(ctx context.Context) int
}

type Options struct {
	InitialDelay time.Duration
	Interval     time.Duration
	Logger       *zap.Logger
}

// Reclaimer runs periodic sweeps in a single background goroutine. Sweeps
// never overlap, including those triggered through RunNow.
type Reclaimer struct {
	sweeper      Sweeper
	initialDelay time.Duration
	interval     time.Duration
	log          *zap.Logger
	tracer       trace.Tracer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	sweepMu sync.Mutex
}

func New(sweeper Sweeper, opts Options) *Reclaimer {
	if opts.InitialDelay < 0 {
		opts.InitialDelay = DefaultInitialDelay
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Reclaimer{
		sweeper:      sweeper,
		initialDelay: opts.InitialDelay,
		interval:     opts.Interval,
		log:          opts.Logger,
		tracer:       otel.Tracer("github.com/IgorGrieder/linkquota/internal/processing/reclaim"),
	}
}

// Start launches the sweep loop. The loop ends when ctx is canceled or Stop
// is called.
func (r *Reclaimer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})

	r.log.Info("reclaimer starting",
		zap.Duration("initial_delay", r.initialDelay),
		zap.Duration("interval", r.interval),
	)

	go r.loop(ctx, r.stopCh, r.doneCh)
	return nil
}

// Stop signals the loop to end and waits for a sweep in progress to finish,
// or for ctx to expire. Calling Stop on a stopped reclaimer is a no-op.
func (r *Reclaimer) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	close(r.stopCh)
	doneCh := r.doneCh
	r.mu.Unlock()

	select {
	case <-doneCh:
		r.log.Info("reclaimer stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow performs one sweep synchronously.
func (r *Reclaimer) RunNow(ctx context.Context) (int, error) {
	return r.sweep(ctx)
}

func (r *Reclaimer) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	delay := time.NewTimer(r.initialDelay)
	defer delay.Stop()

	select {
	case <-ctx.Done():
		return
	case <-stopCh:
		return
	case <-delay.C:
	}

	r.execute(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("reclaimer loop ended", zap.String("reason", "context canceled"))
			return
		case <-stopCh:
			return
		case <-ticker.C:
			r.execute(ctx)
		}
	}
}

func (r *Reclaimer) execute(ctx context.Context) {
	removed, err := r.sweep(ctx)
	if err != nil {
		r.log.Error("expired link sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		r.log.Info("expired links reclaimed", zap.Int("removed", removed))
	} else {
		r.log.Debug("expired link sweep found nothing")
	}
}

func (r *Reclaimer) sweep(ctx context.Context) (removed int, err error) {
	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()

	ctx, span := r.tracer.Start(ctx, "links.sweep_expired")
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sweep panicked: %v", p)
		}

		result := "ok"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, "sweep failed")
		}
		span.SetAttributes(attribute.Int("links.removed", removed))
		span.End()
		sweepDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	removed = r.sweeper.SweepExpired(ctx)
	return removed, nil
}
