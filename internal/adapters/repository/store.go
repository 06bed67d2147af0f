// Package repository defines the persistence ports for attempts, the reference
// corpus, and the review queue, plus an in-memory implementation.
package repository

import (
	"context"

	"github.com/okian/skillgrade/internal/domain/model"
)

// AttemptStore persists one attempt per (player, game).
type AttemptStore interface {
	// Exists reports whether an attempt is already stored for the pair.
	Exists(ctx context.Context, playerID, gameID string) (bool, error)
	// InsertIfAbsent stores rec. It returns ErrConflict if the pair already has an attempt.
	InsertIfAbsent(ctx context.Context, rec model.AttemptRecord) error
	// Get returns the stored attempt or ErrNotFound.
	Get(ctx context.Context, playerID, gameID string) (model.AttemptRecord, error)
}

// CorpusStore holds per-game reference answers.
type CorpusStore interface {
	QueryByGame(ctx context.Context, gameID string) ([]model.ReferenceAnswer, error)
	Append(ctx context.Context, ref model.ReferenceAnswer) error
}

// ReviewStore holds escalations awaiting a human.
type ReviewStore interface {
	Enqueue(ctx context.Context, item model.ReviewQueueItem) error
	// Pending returns up to limit items, oldest first.
	Pending(ctx context.Context, limit int) ([]model.ReviewQueueItem, error)
}

// Store bundles every port behind one backend.
type Store interface {
	AttemptStore
	CorpusStore
	ReviewStore
	Close() error
}
