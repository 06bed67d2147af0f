package model

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Embedding is a dense vector. Empty means the signal is absent.
type Embedding []float32

// Present reports whether the embedding carries a vector.
func (e Embedding) Present() bool { return len(e) > 0 }

// Bytes packs the vector as little-endian float32 values.
func (e Embedding) Bytes() []byte {
	buf := make([]byte, 4*len(e))
	for i, v := range e {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// EmbeddingFromBytes reverses Embedding.Bytes.
func EmbeddingFromBytes(b []byte) (Embedding, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(b))
	}
	out := make(Embedding, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

// ValidationResult is the deterministic rule-based score for a submission.
type ValidationResult struct {
	Score     int             `json:"score"`
	Checks    map[string]bool `json:"checks"`
	Feedback  []string        `json:"feedback"`
	Strengths []string        `json:"strengths,omitempty"`
}

// RubricScore is the model's assessment of a single rubric criterion.
type RubricScore struct {
	Points    int    `json:"points"`
	MaxPoints int    `json:"max_points"`
	Reasoning string `json:"reasoning"`
}

// ModelScore is a schema-validated generative assessment.
type ModelScore struct {
	Score           int                    `json:"score"`
	DimensionScores map[string]int         `json:"dimension_scores"`
	RubricBreakdown map[string]RubricScore `json:"rubric_breakdown"`
	Strengths       []string               `json:"strengths"`
	Improvements    []string               `json:"improvements"`
	Narrative       string                 `json:"narrative"`
	// Model names the tier that produced the result.
	Model string `json:"-"`
}

// Weights records the normalized contribution of each ensemble signal.
type Weights struct {
	AI         float64 `json:"ai"`
	Validation float64 `json:"validation"`
	Embedding  float64 `json:"embedding"`
}

// EnsembleResult is the arbitrated score before adjustments.
type EnsembleResult struct {
	FinalScore int     `json:"finalScore"`
	Confidence int     `json:"confidence"`
	Weights    Weights `json:"weights"`
}

// Risk grades integrity concerns.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

func (r Risk) rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r is as severe as other.
func (r Risk) AtLeast(other Risk) bool { return r.rank() >= other.rank() }

// MaxRisk returns the more severe of a and b.
func MaxRisk(a, b Risk) Risk {
	if a.rank() >= b.rank() {
		return a
	}
	return b
}

// IntegrityAssessment summarizes copy and gaming signals.
type IntegrityAssessment struct {
	Risk        Risk     `json:"risk"`
	GamingRisk  Risk     `json:"gamingRisk"`
	IsExactCopy bool     `json:"isExactCopy"`
	Flags       []string `json:"flags"`
}

// Overall returns the worse of copy risk and gaming risk.
func (a IntegrityAssessment) Overall() Risk { return MaxRisk(a.Risk, a.GamingRisk) }

// HasFlag reports whether flag was raised.
func (a IntegrityAssessment) HasFlag(flag string) bool {
	for _, f := range a.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
