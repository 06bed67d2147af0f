// Package types contains the request and response shapes of the public API.
package types

import (
	"github.com/okian/skillgrade/internal/domain/feedback"
	"github.com/okian/skillgrade/internal/domain/grading"
	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/internal/domain/scoring"
)

// AttemptRequest is the body of POST /v1/attempts.
type AttemptRequest struct {
	GameID         string `json:"gameId"`
	SkillCategory  string `json:"skillCategory"`
	Difficulty     string `json:"difficulty"`
	SubmissionText string `json:"submissionText"`
	HintsUsed      int    `json:"hintsUsed"`
	PlayerID       string `json:"playerId"`
	TeamID         string `json:"teamId,omitempty"`
}

// GradingRequest converts the wire request.
func (r AttemptRequest) GradingRequest() grading.Request {
	return grading.Request{
		PlayerID:       r.PlayerID,
		TeamID:         r.TeamID,
		GameID:         r.GameID,
		SkillCategory:  r.SkillCategory,
		Difficulty:     r.Difficulty,
		SubmissionText: r.SubmissionText,
		HintsUsed:      r.HintsUsed,
	}
}

// EnsembleBreakdown shows each signal's score and the weight it carried.
// AI and Embedding are null when the signal was absent.
type EnsembleBreakdown struct {
	AI               *int          `json:"ai"`
	Validation       int           `json:"validation"`
	Embedding        *float64      `json:"embedding"`
	CorpusAdjustment float64       `json:"corpusAdjustment"`
	Confidence       int           `json:"confidence"`
	Weights          model.Weights `json:"weights"`
}

// AttemptResponse is the body returned for a graded attempt.
type AttemptResponse struct {
	AttemptID         string            `json:"attemptId"`
	FinalScore        int               `json:"finalScore"`
	Feedback          feedback.Feedback `json:"feedback"`
	EnsembleBreakdown EnsembleBreakdown `json:"ensembleBreakdown"`
	Adjustments       scoring.Breakdown `json:"adjustments"`
	IntegrityRisk     model.Risk        `json:"integrityRisk"`
	IntegrityFlags    []string          `json:"integrityFlags"`
	HintPenalty       int               `json:"hintPenalty"`
	HintsUsed         int               `json:"hintsUsed"`
	UsedAIScoring     bool              `json:"usedAiScoring"`
	ReviewRequired    bool              `json:"reviewRequired"`
}

// NewAttemptResponse projects a grading result onto the wire shape.
func NewAttemptResponse(res *grading.Result) AttemptResponse {
	eb := EnsembleBreakdown{
		Validation:       res.Validation.Score,
		CorpusAdjustment: res.Breakdown.CorpusAdjustment,
		Confidence:       res.Ensemble.Confidence,
		Weights:          res.Ensemble.Weights,
	}
	if res.AI != nil {
		ai := res.AI.Score
		eb.AI = &ai
	}
	if res.HasSimilarity {
		emb := scoring.EmbeddingScore(res.Similarity)
		eb.Embedding = &emb
	}
	flags := res.Integrity.Flags
	if flags == nil {
		flags = []string{}
	}
	return AttemptResponse{
		AttemptID:         res.Attempt.ID,
		FinalScore:        res.Attempt.FinalScore,
		Feedback:          res.Feedback,
		EnsembleBreakdown: eb,
		Adjustments:       res.Breakdown,
		IntegrityRisk:     res.Attempt.IntegrityRisk,
		IntegrityFlags:    flags,
		HintPenalty:       res.Breakdown.HintPenalty,
		HintsUsed:         res.Breakdown.HintsUsed,
		UsedAIScoring:     res.UsedAIScoring(),
		ReviewRequired:    res.ReviewRequired(),
	}
}

// ConflictResponse is returned with 409 for an already-scored pair.
type ConflictResponse struct {
	Code    string               `json:"code"`
	Message string               `json:"message"`
	Attempt *model.AttemptRecord `json:"attempt,omitempty"`
}

// ReviewQueueResponse lists pending review items.
type ReviewQueueResponse struct {
	Items []model.ReviewQueueItem `json:"items"`
	Count int                     `json:"count"`
}
