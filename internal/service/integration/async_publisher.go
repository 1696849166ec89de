package integration

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/classroom-assignments/internal/metrics"
	"github.com/RubachokBoss/classroom-assignments/internal/worker"
)

type asyncPublisher struct {
	next    EventPublisher
	pool    *worker.WorkerPool
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewAsyncPublisher hands events to the worker pool so request handling
// never waits on the broker. Publish only fails when the queue is full.
func NewAsyncPublisher(next EventPublisher, pool *worker.WorkerPool, m *metrics.Metrics, logger zerolog.Logger) EventPublisher {
	return &asyncPublisher{
		next:    next,
		pool:    pool,
		metrics: m,
		logger:  logger,
	}
}

func (p *asyncPublisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	accepted := p.pool.Submit(func(ctx context.Context) {
		if err := p.next.Publish(ctx, routingKey, event); err != nil {
			p.metrics.Event(routingKey, "failed")
			p.logger.Error().Err(err).Str("routing_key", routingKey).Msg("Failed to publish event")
			return
		}
		p.metrics.Event(routingKey, "published")
	})
	if !accepted {
		p.metrics.Event(routingKey, "dropped")
		return ErrQueueFull
	}
	return nil
}

func (p *asyncPublisher) Close() error {
	return p.next.Close()
}
