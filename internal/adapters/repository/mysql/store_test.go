package mysql

import (
	"errors"
	"fmt"
	"testing"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/okian/skillgrade/internal/adapters/repository"
	"github.com/okian/skillgrade/internal/domain/model"
)

func TestAttemptRowMapping(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := model.AttemptRecord{
		ID: "a1", PlayerID: "p1", GameID: "g1", TeamID: "t1",
		FinalScore: 74, Confidence: 80, IntegrityRisk: model.RiskMedium,
		UsedAIScoring: true, HintsUsed: 2, CreatedAt: now,
	}
	assert.Equal(t, rec, toAttemptRow(rec).record())
	assert.Equal(t, "attempts", attemptRow{}.TableName())
}

func TestReferenceRowMapping(t *testing.T) {
	ref := model.ReferenceAnswer{
		ID: "r1", GameID: "g1", Embedding: model.Embedding{0.25, -1},
		Score: 90, SourceType: model.SourceCurated, Verified: true,
		CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	got, err := toReferenceRow(ref).answer()
	require.NoError(t, err)
	assert.Equal(t, ref, got)

	_, err = referenceRow{Embedding: []byte{1}}.answer()
	assert.Error(t, err)
}

func TestReviewRowMapping(t *testing.T) {
	item := model.ReviewQueueItem{
		AttemptID:  "a1",
		Reasons:    []string{"low_confidence: 40 < 50", "flag: exact_copy"},
		Confidence: 40,
		Risk:       model.RiskHigh,
		CreatedAt:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	row, err := toReviewRow(item)
	require.NoError(t, err)
	got, err := row.item()
	require.NoError(t, err)
	assert.Equal(t, item, got)
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, isDuplicate(&driver.MySQLError{Number: erDupEntry, Message: "Duplicate entry"}))
	assert.True(t, isDuplicate(fmt.Errorf("create: %w", gorm.ErrDuplicatedKey)))
	assert.False(t, isDuplicate(&driver.MySQLError{Number: 1045}))
	assert.False(t, isDuplicate(errors.New("connection refused")))
}

func TestUnavailableWrapsSentinel(t *testing.T) {
	err := unavailable("exists", errors.New("dial tcp: refused"))
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	assert.Contains(t, err.Error(), "exists")
}
