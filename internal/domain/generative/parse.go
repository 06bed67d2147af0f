package generative

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okian/skillgrade/internal/domain/model"
)

const (
	minListItems = 1
	maxListItems = 5
	// maxRubricPoints bounds criteria the game rubric does not name.
	maxRubricPoints = 1000
)

type wireRubric struct {
	Points    json.RawMessage `json:"points"`
	MaxPoints json.RawMessage `json:"max_points"`
	Reasoning string          `json:"reasoning"`
}

type wireScore struct {
	Score           json.RawMessage            `json:"score"`
	DimensionScores map[string]json.RawMessage `json:"dimension_scores"`
	RubricBreakdown map[string]wireRubric  `json:"rubric_breakdown"`
	Strengths       []string               `json:"strengths"`
	Improvements    []string               `json:"improvements"`
	Narrative       string                 `json:"narrative"`
}

// Parse decodes raw model output against the strict output contract.
// Every violation wraps ErrSchema.
func Parse(raw string, rubric []model.RubricCriterion) (model.ModelScore, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(extractJSON(raw))))
	dec.DisallowUnknownFields()
	var w wireScore
	if err := dec.Decode(&w); err != nil {
		return model.ModelScore{}, fmt.Errorf("%w: %w", ErrSchema, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return model.ModelScore{}, fmt.Errorf("%w: trailing data after object", ErrSchema)
	}

	score, err := boundedInt("score", w.Score, 0, 100)
	if err != nil {
		return model.ModelScore{}, err
	}

	dims := make(map[string]int, len(w.DimensionScores))
	for name, n := range w.DimensionScores {
		v, err := boundedInt("dimension_scores."+name, n, 0, 100)
		if err != nil {
			return model.ModelScore{}, err
		}
		dims[name] = v
	}

	limits := make(map[string]int, len(rubric))
	for _, c := range rubric {
		limits[c.Name] = c.MaxPoints
	}

	breakdown := make(map[string]model.RubricScore, len(w.RubricBreakdown))
	for name, r := range w.RubricBreakdown {
		limit, ok := limits[name]
		if !ok {
			limit = maxRubricPoints
		}
		maxPts, err := boundedInt("rubric_breakdown."+name+".max_points", r.MaxPoints, 0, limit)
		if err != nil {
			return model.ModelScore{}, err
		}
		pts, err := boundedInt("rubric_breakdown."+name+".points", r.Points, 0, maxPts)
		if err != nil {
			return model.ModelScore{}, err
		}
		breakdown[name] = model.RubricScore{Points: pts, MaxPoints: maxPts, Reasoning: strings.TrimSpace(r.Reasoning)}
	}
	for _, c := range rubric {
		if _, ok := breakdown[c.Name]; !ok {
			return model.ModelScore{}, fmt.Errorf("%w: rubric_breakdown missing %q", ErrSchema, c.Name)
		}
	}

	strengths, err := itemList("strengths", w.Strengths)
	if err != nil {
		return model.ModelScore{}, err
	}
	improvements, err := itemList("improvements", w.Improvements)
	if err != nil {
		return model.ModelScore{}, err
	}
	narrative := strings.TrimSpace(w.Narrative)
	if narrative == "" {
		return model.ModelScore{}, fmt.Errorf("%w: narrative is empty", ErrSchema)
	}

	return model.ModelScore{
		Score:           score,
		DimensionScores: dims,
		RubricBreakdown: breakdown,
		Strengths:       strengths,
		Improvements:    improvements,
		Narrative:       narrative,
	}, nil
}

func boundedInt(field string, raw json.RawMessage, lo, hi int) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: %s is missing", ErrSchema, field)
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return 0, fmt.Errorf("%w: %s must be a JSON number, got %s", ErrSchema, field, raw)
	}
	n := json.Number(raw)
	v, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %s", ErrSchema, field, n)
	}
	if v < int64(lo) || v > int64(hi) {
		return 0, fmt.Errorf("%w: %s=%d outside [%d,%d]", ErrSchema, field, v, lo, hi)
	}
	return int(v), nil
}

func itemList(field string, items []string) ([]string, error) {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) < minListItems || len(out) > maxListItems {
		return nil, fmt.Errorf("%w: %s needs %d-%d items, got %d", ErrSchema, field, minListItems, maxListItems, len(out))
	}
	return out, nil
}

// extractJSON strips markdown code fences around a JSON body.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}
