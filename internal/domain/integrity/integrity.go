// Package integrity detects copied and templated submissions.
package integrity

import (
	"strings"
	"unicode"

	"github.com/okian/skillgrade/internal/domain/model"
)

// Flags raised by Evaluate.
const (
	FlagExactCopy        = "exact_copy"
	FlagHighSimilarity   = "high_similarity"
	FlagTemplated        = "templated_phrasing"
	FlagLowDiversity     = "low_lexical_diversity"
	FlagHighScoreGeneric = "high_score_generic"
)

const (
	shingleSize          = 3
	minDiversityWords    = 40
	minTypeTokenRatio    = 0.35
	templatedHitsNeeded  = 2
	genericHighAIScore   = 85
	defaultShingleCutoff = 0.9
)

var genericPhrases = []string{
	"i hope this message finds you well", "i hope this email finds you well",
	"i am writing to", "exciting opportunity", "perfect fit", "dynamic team",
	"fast-paced environment", "in today's fast-paced", "passionate about",
	"leverage synergies", "as an ai", "i came across your profile",
	"great opportunity", "take your career to the next level",
}

// Policy holds similarity thresholds.
type Policy struct {
	ExactCopyThreshold      float64
	HighSimilarityThreshold float64
	// ShingleThreshold is the word-trigram Jaccard ratio treated as near-identical text.
	ShingleThreshold float64
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return Policy{ExactCopyThreshold: 0.95, HighSimilarityThreshold: 0.85, ShingleThreshold: defaultShingleCutoff}
}

// Input carries what the evaluator inspects for one submission.
type Input struct {
	Submission string
	Example    string

	Similarity    float64
	HasSimilarity bool

	AIScore int
	HasAI   bool
}

// Evaluate scores copy risk and gaming risk. It never fails.
func (p Policy) Evaluate(in Input) model.IntegrityAssessment {
	a := model.IntegrityAssessment{Risk: model.RiskLow, GamingRisk: model.RiskLow, Flags: []string{}}
	shingleCutoff := p.ShingleThreshold
	if shingleCutoff <= 0 {
		shingleCutoff = defaultShingleCutoff
	}

	copied := in.HasSimilarity && in.Similarity >= p.ExactCopyThreshold
	if !copied && strings.TrimSpace(in.Example) != "" {
		copied = nearIdentical(in.Submission, in.Example, shingleCutoff)
	}
	switch {
	case copied:
		a.IsExactCopy = true
		a.Risk = model.RiskHigh
		a.Flags = append(a.Flags, FlagExactCopy)
	case in.HasSimilarity && in.Similarity >= p.HighSimilarityThreshold:
		a.Risk = model.RiskMedium
		a.Flags = append(a.Flags, FlagHighSimilarity)
	}

	statistical := 0
	templated := templatedHits(in.Submission) >= templatedHitsNeeded
	if templated {
		statistical++
		a.Flags = append(a.Flags, FlagTemplated)
	}
	if lowDiversity(in.Submission) {
		statistical++
		a.Flags = append(a.Flags, FlagLowDiversity)
	}
	generic := templated && in.HasAI && in.AIScore >= genericHighAIScore
	if generic {
		a.Flags = append(a.Flags, FlagHighScoreGeneric)
	}

	switch {
	case generic || statistical >= 2:
		a.GamingRisk = model.RiskHigh
	case statistical == 1:
		a.GamingRisk = model.RiskMedium
	}
	return a
}

func normalize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func nearIdentical(a, b string, cutoff float64) bool {
	wa, wb := normalize(a), normalize(b)
	if len(wa) == 0 || len(wb) == 0 {
		return false
	}
	if strings.Join(wa, " ") == strings.Join(wb, " ") {
		return true
	}
	if len(wa) < shingleSize || len(wb) < shingleSize {
		return false
	}
	sa, sb := shingles(wa), shingles(wb)
	inter := 0
	for k := range sa {
		if _, ok := sb[k]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return union > 0 && float64(inter)/float64(union) >= cutoff
}

func shingles(words []string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for i := 0; i+shingleSize <= len(words); i++ {
		out[strings.Join(words[i:i+shingleSize], " ")] = struct{}{}
	}
	return out
}

func templatedHits(text string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, p := range genericPhrases {
		if strings.Contains(lower, p) {
			hits++
		}
	}
	return hits
}

func lowDiversity(text string) bool {
	words := normalize(text)
	if len(words) < minDiversityWords {
		return false
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	return float64(len(unique))/float64(len(words)) < minTypeTokenRatio
}
