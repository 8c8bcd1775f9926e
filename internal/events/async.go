package events

import (
	"context"
	"log/slog"
	"time"
)

// Async buffers events in memory and delivers them to a sink from a
// background loop, so request paths never wait on the broker.
type Async struct {
	sink      Publisher
	buffer    *ringBuffer
	breaker   *breaker
	logger    *slog.Logger
	metrics   *Metrics
	batchSize int
	interval  time.Duration
	wake      chan struct{}
}

type AsyncOption func(*Async)

func WithLogger(logger *slog.Logger) AsyncOption {
	return func(a *Async) {
		a.logger = logger
	}
}

func WithMetrics(m *Metrics) AsyncOption {
	return func(a *Async) {
		a.metrics = m
	}
}

func WithBufferSize(n int) AsyncOption {
	return func(a *Async) {
		a.buffer = newRingBuffer(n)
	}
}

func WithFlushInterval(d time.Duration) AsyncOption {
	return func(a *Async) {
		a.interval = d
	}
}

func WithBreaker(threshold int, cooldown time.Duration) AsyncOption {
	return func(a *Async) {
		a.breaker = newBreaker(threshold, cooldown)
	}
}

func NewAsync(sink Publisher, opts ...AsyncOption) *Async {
	a := &Async{
		sink:      sink,
		buffer:    newRingBuffer(1024),
		breaker:   newBreaker(5, 30*time.Second),
		logger:    slog.Default(),
		batchSize: 100,
		interval:  500 * time.Millisecond,
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Publish enqueues the event and returns immediately.
func (a *Async) Publish(_ context.Context, event Event) error {
	if a.buffer.push(event) && a.metrics != nil {
		a.metrics.Dropped.Inc()
	}
	if a.metrics != nil {
		a.metrics.Queued.Set(float64(a.buffer.len()))
	}
	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run delivers buffered events until ctx is cancelled, then makes one last
// flush attempt with a short deadline.
func (a *Async) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			a.Flush(drainCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			a.Flush(ctx)
		case <-a.wake:
			a.Flush(ctx)
		}
	}
}

// Flush delivers everything currently buffered. Events that fail while the
// breaker is open are dropped and counted.
func (a *Async) Flush(ctx context.Context) {
	for {
		batch := a.buffer.popBatch(a.batchSize)
		if len(batch) == 0 {
			break
		}
		for _, event := range batch {
			a.deliver(ctx, event)
		}
	}
	if a.metrics != nil {
		a.metrics.Queued.Set(float64(a.buffer.len()))
	}
}

func (a *Async) deliver(ctx context.Context, event Event) {
	now := time.Now()
	if !a.breaker.allow(now) {
		if a.metrics != nil {
			a.metrics.Dropped.Inc()
		}
		return
	}
	if err := a.sink.Publish(ctx, event); err != nil {
		a.breaker.failure(now)
		if a.metrics != nil {
			a.metrics.Failed.WithLabelValues(string(event.Type)).Inc()
		}
		a.logger.WarnContext(ctx, "event delivery failed",
			"request_id", event.RequestID,
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		return
	}
	a.breaker.success()
	if a.metrics != nil {
		a.metrics.Published.WithLabelValues(string(event.Type)).Inc()
	}
}
