package mysql

import (
	"encoding/json"
	"time"

	"github.com/okian/skillgrade/internal/domain/model"
)

// attemptRow is the attempts table. The composite unique index enforces one
// attempt per (player, game).
type attemptRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	PlayerID      string `gorm:"size:128;not null;uniqueIndex:idx_player_game"`
	GameID        string `gorm:"size:128;not null;uniqueIndex:idx_player_game"`
	TeamID        string `gorm:"size:128"`
	FinalScore    int    `gorm:"not null"`
	Confidence    int    `gorm:"not null"`
	IntegrityRisk string `gorm:"size:16;not null"`
	UsedAIScoring bool
	HintsUsed     int
	CreatedAt     time.Time
}

func (attemptRow) TableName() string { return "attempts" }

type referenceRow struct {
	ID         string `gorm:"primaryKey;size:36"`
	GameID     string `gorm:"size:128;not null;index"`
	Embedding  []byte `gorm:"type:mediumblob"`
	Score      int
	SourceType string `gorm:"size:16"`
	Verified   bool
	CreatedAt  time.Time
}

func (referenceRow) TableName() string { return "reference_answers" }

type reviewRow struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	AttemptID  string    `gorm:"size:36;index"`
	Reasons    string    `gorm:"type:text"`
	Confidence int
	Risk       string    `gorm:"size:16"`
	CreatedAt  time.Time `gorm:"index"`
}

func (reviewRow) TableName() string { return "review_queue" }

func toAttemptRow(rec model.AttemptRecord) attemptRow {
	return attemptRow{
		ID:            rec.ID,
		PlayerID:      rec.PlayerID,
		GameID:        rec.GameID,
		TeamID:        rec.TeamID,
		FinalScore:    rec.FinalScore,
		Confidence:    rec.Confidence,
		IntegrityRisk: string(rec.IntegrityRisk),
		UsedAIScoring: rec.UsedAIScoring,
		HintsUsed:     rec.HintsUsed,
		CreatedAt:     rec.CreatedAt.UTC(),
	}
}

func (r attemptRow) record() model.AttemptRecord {
	return model.AttemptRecord{
		ID:            r.ID,
		PlayerID:      r.PlayerID,
		GameID:        r.GameID,
		TeamID:        r.TeamID,
		FinalScore:    r.FinalScore,
		Confidence:    r.Confidence,
		IntegrityRisk: model.Risk(r.IntegrityRisk),
		UsedAIScoring: r.UsedAIScoring,
		HintsUsed:     r.HintsUsed,
		CreatedAt:     r.CreatedAt,
	}
}

func toReferenceRow(ref model.ReferenceAnswer) referenceRow {
	return referenceRow{
		ID:         ref.ID,
		GameID:     ref.GameID,
		Embedding:  ref.Embedding.Bytes(),
		Score:      ref.Score,
		SourceType: string(ref.SourceType),
		Verified:   ref.Verified,
		CreatedAt:  ref.CreatedAt.UTC(),
	}
}

func (r referenceRow) answer() (model.ReferenceAnswer, error) {
	emb, err := model.EmbeddingFromBytes(r.Embedding)
	if err != nil {
		return model.ReferenceAnswer{}, err
	}
	return model.ReferenceAnswer{
		ID:         r.ID,
		GameID:     r.GameID,
		Embedding:  emb,
		Score:      r.Score,
		SourceType: model.SourceType(r.SourceType),
		Verified:   r.Verified,
		CreatedAt:  r.CreatedAt,
	}, nil
}

func toReviewRow(item model.ReviewQueueItem) (reviewRow, error) {
	reasons, err := json.Marshal(item.Reasons)
	if err != nil {
		return reviewRow{}, err
	}
	return reviewRow{
		AttemptID:  item.AttemptID,
		Reasons:    string(reasons),
		Confidence: item.Confidence,
		Risk:       string(item.Risk),
		CreatedAt:  item.CreatedAt.UTC(),
	}, nil
}

func (r reviewRow) item() (model.ReviewQueueItem, error) {
	out := model.ReviewQueueItem{
		AttemptID:  r.AttemptID,
		Confidence: r.Confidence,
		Risk:       model.Risk(r.Risk),
		CreatedAt:  r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.Reasons), &out.Reasons); err != nil {
		return model.ReviewQueueItem{}, err
	}
	return out, nil
}
