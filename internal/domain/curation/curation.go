// Package curation grows a game's reference corpus from high-scoring attempts.
package curation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/pkg/logger"
	"github.com/okian/skillgrade/pkg/metrics"
)

// Appender stores reference answers.
type Appender interface {
	Append(ctx context.Context, ref model.ReferenceAnswer) error
}

// Curator handles EventCurationCandidate events.
type Curator struct {
	store    Appender
	minScore int
	log      logger.Logger
	now      func() time.Time
}

// New returns a Curator admitting attempts scoring at least minScore.
func New(store Appender, minScore int, l logger.Logger) *Curator {
	if l == nil {
		l = logger.NewNop()
	}
	return &Curator{store: store, minScore: minScore, log: l, now: time.Now}
}

// Eligible reports whether an attempt may enter the corpus.
func (c *Curator) Eligible(score int, emb model.Embedding) bool {
	return score >= c.minScore && emb.Present()
}

// Handle appends the attempt as an unverified player entry when eligible.
// Store failures are logged and swallowed.
func (c *Curator) Handle(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam
	if !c.Eligible(e.Score, e.Embedding) {
		metrics.RecordCuration("skipped")
		return nil
	}
	ref := model.ReferenceAnswer{
		ID:         uuid.NewString(),
		GameID:     e.GameID,
		Embedding:  e.Embedding,
		Score:      e.Score,
		SourceType: model.SourcePlayer,
		Verified:   false,
		CreatedAt:  c.now().UTC(),
	}
	if err := c.store.Append(ctx, ref); err != nil {
		metrics.RecordCuration("failed")
		c.log.Warn(ctx, "corpus append failed",
			logger.String("attempt_id", e.AttemptID),
			logger.String("game_id", e.GameID),
			logger.Error(err),
		)
		return nil
	}
	metrics.RecordCuration("appended")
	c.log.Debug(ctx, "attempt added to corpus",
		logger.String("attempt_id", e.AttemptID), logger.Int("score", e.Score))
	return nil
}
