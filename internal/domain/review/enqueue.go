package review

import (
	"context"
	"fmt"

	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/pkg/logger"
	"github.com/okian/skillgrade/pkg/metrics"
)

// Queue stores escalations for a human reviewer.
type Queue interface {
	Enqueue(ctx context.Context, item model.ReviewQueueItem) error
}

// Enqueuer handles EventReviewEscalation events.
type Enqueuer struct {
	queue Queue
	log   logger.Logger
}

// NewEnqueuer returns an Enqueuer writing to q.
func NewEnqueuer(q Queue, l logger.Logger) *Enqueuer {
	if l == nil {
		l = logger.NewNop()
	}
	return &Enqueuer{queue: q, log: l}
}

// Handle persists the event's review item. Events without one are ignored.
func (e *Enqueuer) Handle(ctx context.Context, ev model.Event) error { //nolint:gocritic // hugeParam
	if ev.Review == nil {
		return nil
	}
	if len(ev.Review.Reasons) == 0 {
		return fmt.Errorf("review item for %s has no reasons", ev.Review.AttemptID)
	}
	if err := e.queue.Enqueue(ctx, *ev.Review); err != nil {
		metrics.RecordErrorByComponent("review", "enqueue")
		return fmt.Errorf("enqueue review %s: %w", ev.Review.AttemptID, err)
	}
	for _, r := range ev.Review.Reasons {
		metrics.RecordReviewEscalation(Code(r))
	}
	e.log.Info(ctx, "attempt escalated for review",
		logger.String("attempt_id", ev.Review.AttemptID),
		logger.Any("reasons", ev.Review.Reasons),
	)
	return nil
}
