package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/okian/skillgrade/internal/adapters/repository"
	"github.com/okian/skillgrade/internal/adapters/repository/sqlite"
	"github.com/okian/skillgrade/internal/domain/model"
)

type StoreSuite struct {
	suite.Suite
	store *sqlite.Store
	path  string
}

func (s *StoreSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "skillgrade.db")
	st, err := sqlite.Open(context.Background(), s.path, nil)
	s.Require().NoError(err)
	s.store = st
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreSuite) TestAttemptUniqueness() {
	ctx := context.Background()
	rec := model.AttemptRecord{
		PlayerID: "p1", GameID: "g1", FinalScore: 74, Confidence: 80,
		IntegrityRisk: model.RiskLow, UsedAIScoring: true, HintsUsed: 2, CreatedAt: time.Now(),
	}

	ok, err := s.store.Exists(ctx, "p1", "g1")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.InsertIfAbsent(ctx, rec))

	rec.FinalScore = 10
	s.ErrorIs(s.store.InsertIfAbsent(ctx, rec), repository.ErrConflict)

	got, err := s.store.Get(ctx, "p1", "g1")
	s.Require().NoError(err)
	s.Equal(74, got.FinalScore)
	s.Equal(model.RiskLow, got.IntegrityRisk)
	s.True(got.UsedAIScoring)
	s.NotEmpty(got.ID)

	_, err = s.store.Get(ctx, "p2", "g1")
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *StoreSuite) TestConcurrentInsertsStoreOneAttempt() {
	ctx := context.Background()
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.InsertIfAbsent(ctx, model.AttemptRecord{PlayerID: "p1", GameID: "g1", IntegrityRisk: model.RiskLow, CreatedAt: time.Now()})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case err == repository.ErrConflict:
				conflicts++
			}
		}()
	}
	wg.Wait()
	s.Equal(1, wins)
	s.Equal(9, conflicts)
}

func (s *StoreSuite) TestCorpusRoundTrip() {
	ctx := context.Background()
	ref := model.ReferenceAnswer{
		GameID: "g1", Embedding: model.Embedding{0.25, -1.5, 3}, Score: 88,
		SourceType: model.SourcePlayer, Verified: false, CreatedAt: time.Now(),
	}
	s.Require().NoError(s.store.Append(ctx, ref))
	s.Require().NoError(s.store.Append(ctx, model.ReferenceAnswer{GameID: "g2", Embedding: model.Embedding{1}, SourceType: model.SourceSeed, Verified: true, CreatedAt: time.Now()}))

	refs, err := s.store.QueryByGame(ctx, "g1")
	s.Require().NoError(err)
	s.Require().Len(refs, 1)
	s.Equal(model.Embedding{0.25, -1.5, 3}, refs[0].Embedding)
	s.Equal(model.SourcePlayer, refs[0].SourceType)
	s.False(refs[0].Verified)
	s.Equal(88, refs[0].Score)
}

func (s *StoreSuite) TestReviewQueue() {
	ctx := context.Background()
	now := time.Now()
	s.Require().NoError(s.store.Enqueue(ctx, model.ReviewQueueItem{AttemptID: "a2", Reasons: []string{"flag: exact_copy"}, Risk: model.RiskHigh, CreatedAt: now.Add(time.Second)}))
	s.Require().NoError(s.store.Enqueue(ctx, model.ReviewQueueItem{AttemptID: "a1", Reasons: []string{"low_confidence: 40 < 50"}, Confidence: 40, Risk: model.RiskLow, CreatedAt: now}))

	items, err := s.store.Pending(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal("a1", items[0].AttemptID)
	s.Equal([]string{"low_confidence: 40 < 50"}, items[0].Reasons)
	s.Equal(model.RiskHigh, items[1].Risk)
}

func (s *StoreSuite) TestReopenKeepsData() {
	ctx := context.Background()
	s.Require().NoError(s.store.InsertIfAbsent(ctx, model.AttemptRecord{PlayerID: "p1", GameID: "g1", IntegrityRisk: model.RiskLow, CreatedAt: time.Now()}))
	s.Require().NoError(s.store.Close())

	reopened, err := sqlite.Open(ctx, s.path, nil)
	s.Require().NoError(err)
	s.store = reopened
	ok, err := s.store.Exists(ctx, "p1", "g1")
	s.Require().NoError(err)
	s.True(ok)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}
