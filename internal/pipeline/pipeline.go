// Package pipeline publishes observation changes to a downstream sink.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/observability"
	"github.com/couchcryptid/where/internal/where"
)

// BatchLoader writes multiple change events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.ChangeEvent) error
}

// Exponential backoff: start at 200ms, double each retry, cap at 5s.
const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// shutdownFlushTimeout bounds the final write after cancellation.
const shutdownFlushTimeout = 5 * time.Second

// Publisher drains a change stream into batches for a BatchLoader.
type Publisher struct {
	changes       <-chan where.Change
	loader        BatchLoader
	logger        *slog.Logger
	metrics       *observability.Metrics
	clock         clockwork.Clock
	batchSize     int
	flushInterval time.Duration
	published     atomic.Bool
}

// New creates a Publisher. A batch is written when it reaches batchSize or
// flushInterval after its first change, whichever comes first.
func New(changes <-chan where.Change, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, batchSize int, flushInterval time.Duration) *Publisher {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Publisher{
		changes:       changes,
		loader:        l,
		logger:        logger,
		metrics:       metrics,
		clock:         clock,
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// CheckReadiness returns nil once a batch has been published.
func (p *Publisher) CheckReadiness(_ context.Context) error {
	if !p.published.Load() {
		return errors.New("publisher has not written any changes yet")
	}
	return nil
}

// Run publishes until the context is cancelled or the change stream closes.
// Pending changes are flushed in both cases; after cancellation the final
// write gets shutdownFlushTimeout.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("publisher started", "batch_size", p.batchSize, "flush_interval", p.flushInterval)
	p.metrics.PublisherRunning.Set(1)
	defer p.metrics.PublisherRunning.Set(0)

	for {
		batch, open := p.collect(ctx)
		if ctx.Err() != nil {
			p.flushOnShutdown(ctx, batch)
			return nil
		}
		if len(batch) > 0 && !p.publish(ctx, batch) {
			p.flushOnShutdown(ctx, batch)
			return nil
		}
		if !open {
			p.logger.Info("publisher stopping", "reason", "change stream closed")
			return nil
		}
	}
}

// flushOnShutdown makes one last write of batch plus any buffered changes,
// detached from the cancelled ctx.
func (p *Publisher) flushOnShutdown(ctx context.Context, batch []domain.ChangeEvent) {
	batch = append(batch, p.drain()...)
	if len(batch) == 0 {
		p.logger.Info("publisher stopping", "reason", ctx.Err())
		return
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
	defer cancel()
	if err := p.loader.LoadBatch(flushCtx, batch); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publisher stopping", "reason", ctx.Err(), "dropped", len(batch), "error", err)
		return
	}
	p.recordPublished(batch)
	p.logger.Info("publisher stopping", "reason", ctx.Err(), "flushed", len(batch))
}

// drain takes the changes already buffered in the stream without waiting.
func (p *Publisher) drain() []domain.ChangeEvent {
	var out []domain.ChangeEvent
	for {
		select {
		case c, ok := <-p.changes:
			if !ok {
				return out
			}
			out = append(out, c.Event())
		default:
			return out
		}
	}
}

// collect gathers one batch. It reports false once the stream is closed.
func (p *Publisher) collect(ctx context.Context) ([]domain.ChangeEvent, bool) {
	var (
		batch   []domain.ChangeEvent
		timer   clockwork.Timer
		timeout <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return batch, true
		case c, ok := <-p.changes:
			if !ok {
				return batch, false
			}
			batch = append(batch, c.Event())
			if len(batch) >= p.batchSize {
				return batch, true
			}
			if timer == nil {
				timer = p.clock.NewTimer(p.flushInterval)
				timeout = timer.Chan()
			}
		case <-timeout:
			return batch, true
		}
	}
}

// publish writes the batch, retrying with backoff. Returns false if the
// context ended first.
func (p *Publisher) publish(ctx context.Context, batch []domain.ChangeEvent) bool {
	backoff := initialBackoff
	for {
		err := p.loader.LoadBatch(ctx, batch)
		if err == nil {
			p.recordPublished(batch)
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("publish batch failed", "error", err, "batch_size", len(batch), "backoff", backoff)
		p.metrics.PublishErrors.Inc()
		if !sharedretry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = sharedretry.NextBackoff(backoff, maxBackoff)
	}
}

func (p *Publisher) recordPublished(batch []domain.ChangeEvent) {
	p.metrics.PublishedChanges.Add(float64(len(batch)))
	p.metrics.PublishBatchSize.Observe(float64(len(batch)))
	p.published.Store(true)
}
