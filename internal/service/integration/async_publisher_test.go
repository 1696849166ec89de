package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/classroom-assignments/internal/metrics"
	"github.com/RubachokBoss/classroom-assignments/internal/worker"
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestAsyncPublisher_DeliversThroughPool(t *testing.T) {
	pool := worker.NewWorkerPool(2, 10, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))

	rec := &recordingPublisher{}
	pub := NewAsyncPublisher(rec, pool, metrics.New(), zerolog.Nop())

	require.NoError(t, pub.Publish(context.Background(), "assignment.published", map[string]string{"id": "a1"}))
	require.NoError(t, pub.Publish(context.Background(), "submission.completed", map[string]string{"id": "s1"}))

	require.NoError(t, pool.Stop())
	assert.ElementsMatch(t, []string{"assignment.published", "submission.completed"}, rec.keys)
}

func TestAsyncPublisher_BrokerErrorIsNotReturned(t *testing.T) {
	pool := worker.NewWorkerPool(1, 10, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))

	pub := NewAsyncPublisher(&recordingPublisher{err: errors.New("down")}, pool, nil, zerolog.Nop())
	assert.NoError(t, pub.Publish(context.Background(), "submission.reviewed", struct{}{}))

	require.NoError(t, pool.Stop())
}

func TestAsyncPublisher_StoppedPool(t *testing.T) {
	pool := worker.NewWorkerPool(1, 1, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.Stop())

	pub := NewAsyncPublisher(NewNopPublisher(), pool, nil, zerolog.Nop())
	assert.ErrorIs(t, pub.Publish(context.Background(), "x", nil), ErrQueueFull)
}
