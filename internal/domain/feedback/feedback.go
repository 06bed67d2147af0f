// Package feedback composes the player-facing explanation of a score.
package feedback

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/okian/skillgrade/internal/domain/integrity"
	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/internal/domain/scoring"
	"github.com/okian/skillgrade/internal/domain/validation"
)

const maxItems = 5

//go:embed feedback.tmpl
var feedbackSource string

var feedbackTemplate = template.Must(template.New("feedback").Parse(feedbackSource))

// Structured is the machine-readable feedback block.
type Structured struct {
	FinalScore   int                          `json:"finalScore"`
	Summary      string                       `json:"summary"`
	Strengths    []string                     `json:"strengths"`
	Improvements []string                     `json:"improvements"`
	Checks       map[string]bool              `json:"checks"`
	Rubric       map[string]model.RubricScore `json:"rubric,omitempty"`
	Notes        []string                     `json:"notes,omitempty"`
}

// Feedback pairs the structured block with its rendered markdown.
type Feedback struct {
	Structured Structured `json:"structured"`
	Rendered   string     `json:"rendered"`
}

// Input is everything feedback draws on. AI is nil when the generative signal was absent.
type Input struct {
	Validation model.ValidationResult
	AI         *model.ModelScore
	Integrity  model.IntegrityAssessment
	Breakdown  scoring.Breakdown
}

// Compose builds feedback for one graded attempt.
func Compose(in Input) (Feedback, error) {
	s := Structured{
		FinalScore: in.Breakdown.FinalScore,
		Checks:     in.Validation.Checks,
		Summary:    band(in.Breakdown.FinalScore),
	}
	var improvements []string
	if in.AI != nil {
		if n := strings.TrimSpace(in.AI.Narrative); n != "" {
			s.Summary = n
		}
		s.Strengths = in.AI.Strengths
		s.Rubric = in.AI.RubricBreakdown
		improvements = append(improvements, in.AI.Improvements...)
	} else {
		s.Strengths = in.Validation.Strengths
	}
	for _, line := range in.Validation.Feedback {
		if line != validation.FillerFeedback {
			improvements = append(improvements, line)
		}
	}
	s.Strengths = unique(s.Strengths)
	s.Improvements = unique(improvements)
	s.Notes = notes(in.Integrity, in.Breakdown, in.AI != nil)
	if s.Checks == nil {
		s.Checks = map[string]bool{}
	}

	var buf bytes.Buffer
	if err := feedbackTemplate.Execute(&buf, s); err != nil {
		return Feedback{}, fmt.Errorf("render feedback: %w", err)
	}
	return Feedback{Structured: s, Rendered: strings.TrimSpace(buf.String())}, nil
}

func band(score int) string {
	switch {
	case score >= 85:
		return "Strong submission."
	case score >= 70:
		return "Good submission with room to sharpen."
	case score >= 50:
		return "Partially meets the brief."
	default:
		return "Does not yet meet the brief."
	}
}

func notes(a model.IntegrityAssessment, b scoring.Breakdown, usedAI bool) []string {
	var out []string
	switch {
	case a.IsExactCopy:
		out = append(out, "Submission closely matches the example solution; the score is capped.")
	case a.HasFlag(integrity.FlagHighSimilarity):
		out = append(out, "Submission is very similar to the example solution.")
	}
	if !a.IsExactCopy && b.IntegrityPenalty > 0 {
		out = append(out, fmt.Sprintf("High integrity risk: -%d points.", int(math.Round(b.IntegrityPenalty))))
	}
	if a.HasFlag(integrity.FlagTemplated) {
		out = append(out, "Phrasing reads as templated. Write it in your own words.")
	}
	if a.HasFlag(integrity.FlagLowDiversity) {
		out = append(out, "Vocabulary is highly repetitive.")
	}
	if b.HintPenalty > 0 {
		out = append(out, fmt.Sprintf("%d hint(s) used: -%d points.", b.HintsUsed, b.HintPenalty))
	}
	if !usedAI {
		out = append(out, "AI review was unavailable; scored on rule checks and similarity only.")
	}
	return out
}

// unique drops blanks and case-insensitive repeats, keeping at most maxItems.
func unique(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		key := strings.ToLower(it)
		if it == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
		if len(out) == maxItems {
			break
		}
	}
	return out
}
