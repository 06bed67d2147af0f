package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/skillgrade/internal/domain/model"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	attempts    map[string]model.AttemptRecord
	corpus      map[string][]model.ReferenceAnswer
	reviews     []model.ReviewQueueItem
	corpusLimit int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		attempts: make(map[string]model.AttemptRecord),
		corpus:   make(map[string][]model.ReferenceAnswer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Exists(ctx context.Context, playerID, gameID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.attempts[model.AttemptKey(playerID, gameID)]
	return ok, nil
}

func (s *MemoryStore) InsertIfAbsent(ctx context.Context, rec model.AttemptRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := model.AttemptKey(rec.PlayerID, rec.GameID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[key]; ok {
		return ErrConflict
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.attempts[key] = rec
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, playerID, gameID string) (model.AttemptRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.AttemptRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.attempts[model.AttemptKey(playerID, gameID)]
	if !ok {
		return model.AttemptRecord{}, ErrNotFound
	}
	return rec, nil
}

// Count returns the number of stored attempts.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts)
}

func (s *MemoryStore) QueryByGame(ctx context.Context, gameID string) ([]model.ReferenceAnswer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := s.corpus[gameID]
	out := make([]model.ReferenceAnswer, len(refs))
	copy(out, refs)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, ref model.ReferenceAnswer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ref.ID == "" {
		ref.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := append(s.corpus[ref.GameID], ref)
	if s.corpusLimit > 0 && len(refs) > s.corpusLimit {
		refs = dropOldestUntrusted(refs)
	}
	s.corpus[ref.GameID] = refs
	return nil
}

// dropOldestUntrusted removes one entry, preferring the oldest untrusted one.
func dropOldestUntrusted(refs []model.ReferenceAnswer) []model.ReferenceAnswer {
	victim := 0
	for i, r := range refs {
		if !r.Trusted() {
			victim = i
			break
		}
	}
	return append(refs[:victim], refs[victim+1:]...)
}

func (s *MemoryStore) Enqueue(ctx context.Context, item model.ReviewQueueItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews = append(s.reviews, item)
	return nil
}

func (s *MemoryStore) Pending(ctx context.Context, limit int) ([]model.ReviewQueueItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ReviewQueueItem, len(s.reviews))
	copy(out, s.reviews)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
