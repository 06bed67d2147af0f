package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/okian/skillgrade/internal/adapters/mq/queue"
	"github.com/okian/skillgrade/internal/domain/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPoolDispatchesByKind(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(64))
	p := NewPool(3, q)

	var scored, curated atomic.Int32
	p.Register(model.EventAttemptScored, HandlerFunc(func(context.Context, model.Event) error {
		scored.Add(1)
		return nil
	}))
	p.Register(model.EventCurationCandidate, HandlerFunc(func(context.Context, model.Event) error {
		curated.Add(1)
		return nil
	}))

	p.Start(context.Background())
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(ctx, model.Event{Kind: model.EventAttemptScored}))
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, q.Enqueue(ctx, model.Event{Kind: model.EventCurationCandidate}))
	}

	require.NoError(t, p.Shutdown(ctx))
	assert.Equal(t, int32(10), scored.Load())
	assert.Equal(t, int32(4), curated.Load())
}

func TestDispatchJoinsHandlerErrors(t *testing.T) {
	p := NewPool(1, queue.NewInMemoryQueue())
	boom := errors.New("boom")

	var ran atomic.Int32
	p.Register(model.EventReviewEscalation, HandlerFunc(func(context.Context, model.Event) error { return boom }))
	p.Register(model.EventReviewEscalation, HandlerFunc(func(context.Context, model.Event) error {
		ran.Add(1)
		return nil
	}))

	err := p.Dispatch(context.Background(), model.Event{Kind: model.EventReviewEscalation})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), ran.Load())

	err = p.Dispatch(context.Background(), model.Event{Kind: "unknown"})
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestHandlerTimeoutApplied(t *testing.T) {
	p := NewPool(1, queue.NewInMemoryQueue(), WithHandlerTimeout(20*time.Millisecond))
	p.Register(model.EventAttemptScored, HandlerFunc(func(ctx context.Context, _ model.Event) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	err := p.Dispatch(context.Background(), model.Event{Kind: model.EventAttemptScored})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestShutdownForcedByContext(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(4))
	p := NewPool(1, q)

	release := make(chan struct{})
	var once sync.Once
	entered := make(chan struct{})
	p.Register(model.EventAttemptScored, HandlerFunc(func(ctx context.Context, _ model.Event) error {
		once.Do(func() { close(entered) })
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}))
	p.Start(context.Background())
	require.NoError(t, q.Enqueue(context.Background(), model.Event{Kind: model.EventAttemptScored}))
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Shutdown(ctx)
	assert.Error(t, err)
	close(release)
}

func TestShutdownBeforeStart(t *testing.T) {
	p := NewPool(2, queue.NewInMemoryQueue())
	assert.NoError(t, p.Shutdown(context.Background()))
}
