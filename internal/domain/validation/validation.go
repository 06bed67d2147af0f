// Package validation implements deterministic, rule-based scoring of submissions.
//
// Each skill category owns a Strategy. Strategies never fail: they start at 100,
// apply additive deductions, and always return at least one feedback line.
package validation

import (
	"strings"

	"github.com/okian/skillgrade/internal/domain/model"
)

// Category tags with built-in strategies.
const (
	CategoryBooleanSearch    = "boolean_search"
	CategoryOutreach         = "outreach"
	CategoryGeneral          = "general"
	CategoryPlatformSourcing = "platform_sourcing"
)

// FillerFeedback is returned when no rule has anything to say.
const FillerFeedback = "Solid submission. Keep refining specificity and structure."

// Strategy scores one skill category.
type Strategy interface {
	Category() string
	Validate(text string, cfg model.ValidationConfig) model.ValidationResult
}

// Registry dispatches to a Strategy by category tag.
type Registry struct {
	strategies map[string]Strategy
	fallback   string
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrategy registers or replaces a strategy.
func WithStrategy(s Strategy) Option {
	return func(r *Registry) { r.strategies[s.Category()] = s }
}

// WithFallback selects the category used for unknown tags.
func WithFallback(category string) Option {
	return func(r *Registry) { r.fallback = category }
}

// NewRegistry returns a registry with the built-in strategies.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		strategies: map[string]Strategy{},
		fallback:   CategoryGeneral,
	}
	for _, s := range []Strategy{BooleanSearch{}, Outreach{}, General{}, PlatformSourcing{}} {
		r.strategies[s.Category()] = s
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Categories lists registered category tags.
func (r *Registry) Categories() []string {
	out := make([]string, 0, len(r.strategies))
	for k := range r.strategies {
		out = append(out, k)
	}
	return out
}

// Validate scores text with the strategy for category.
func (r *Registry) Validate(category, text string, cfg model.ValidationConfig) model.ValidationResult {
	if strings.TrimSpace(text) == "" {
		return model.ValidationResult{
			Score:    0,
			Checks:   map[string]bool{"not_empty": false},
			Feedback: []string{"Submission is empty."},
		}
	}
	s, ok := r.strategies[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		s, ok = r.strategies[r.fallback]
	}
	if !ok {
		return model.ValidationResult{Score: 0, Checks: map[string]bool{}, Feedback: []string{FillerFeedback}}
	}
	return s.Validate(text, cfg)
}

// tally accumulates deductions and feedback for a single validation run.
type tally struct {
	score     int
	checks    map[string]bool
	feedback  []string
	strengths []string
}

func newTally() *tally {
	return &tally{score: 100, checks: map[string]bool{}}
}

func (t *tally) check(name string, ok bool, penalty int, fail, pass string) {
	t.checks[name] = ok
	if ok {
		if pass != "" {
			t.strengths = append(t.strengths, pass)
		}
		return
	}
	t.score -= penalty
	if fail != "" {
		t.feedback = append(t.feedback, fail)
	}
}

// keywords applies a proportional deduction for missing required keywords.
func (t *tally) keywords(text string, cfg model.ValidationConfig, maxPenalty int) {
	if len(cfg.RequiredKeywords) == 0 {
		return
	}
	missing := missingKeywords(text, cfg.RequiredKeywords, cfg.Synonyms)
	if len(missing) == 0 {
		t.check("required_keywords", true, 0, "", "Covers all required keywords.")
		return
	}
	penalty := (maxPenalty*len(missing) + len(cfg.RequiredKeywords) - 1) / len(cfg.RequiredKeywords)
	t.check("required_keywords", false, penalty,
		"Missing key terms: "+strings.Join(missing, ", ")+".", "")
}

func (t *tally) result() model.ValidationResult {
	score := t.score
	if score < 0 {
		score = 0
	}
	feedback := t.feedback
	if len(feedback) == 0 {
		feedback = []string{FillerFeedback}
	}
	return model.ValidationResult{
		Score:     score,
		Checks:    t.checks,
		Feedback:  feedback,
		Strengths: t.strengths,
	}
}
