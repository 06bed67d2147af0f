// Package review decides which attempts need a human reviewer.
package review

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/skillgrade/internal/domain/model"
)

// Reason codes. Each escalation reason is "<code>: <detail>".
const (
	ReasonLowConfidence = "low_confidence"
	ReasonIntegrityRisk = "integrity_risk"
	ReasonGamingRisk    = "gaming_risk"
	ReasonFlag          = "flag"
)

// Router is a pure predicate over an attempt's confidence and integrity.
type Router struct {
	ConfidenceThreshold int
	// EscalationFlags always escalate when present.
	EscalationFlags []string
}

// NewRouter returns a Router escalating below threshold and on copy or generic-text flags.
func NewRouter(threshold int) Router {
	return Router{
		ConfidenceThreshold: threshold,
		EscalationFlags:     []string{"exact_copy", "high_score_generic"},
	}
}

// Input is what the router inspects.
type Input struct {
	AttemptID  string
	Confidence int
	Integrity  model.IntegrityAssessment
}

// Route returns a review item and true when the attempt must be escalated.
// Escalated items always carry at least one reason.
func (r Router) Route(in Input, now time.Time) (model.ReviewQueueItem, bool) {
	var reasons []string
	if in.Confidence < r.ConfidenceThreshold {
		reasons = append(reasons, fmt.Sprintf("%s: %d < %d", ReasonLowConfidence, in.Confidence, r.ConfidenceThreshold))
	}
	if in.Integrity.Risk.AtLeast(model.RiskMedium) {
		reasons = append(reasons, fmt.Sprintf("%s: %s", ReasonIntegrityRisk, in.Integrity.Risk))
	}
	if in.Integrity.GamingRisk.AtLeast(model.RiskMedium) {
		reasons = append(reasons, fmt.Sprintf("%s: %s", ReasonGamingRisk, in.Integrity.GamingRisk))
	}
	for _, f := range r.EscalationFlags {
		if in.Integrity.HasFlag(f) {
			reasons = append(reasons, fmt.Sprintf("%s: %s", ReasonFlag, f))
		}
	}
	if len(reasons) == 0 {
		return model.ReviewQueueItem{}, false
	}
	return model.ReviewQueueItem{
		AttemptID:  in.AttemptID,
		Reasons:    reasons,
		Confidence: in.Confidence,
		Risk:       in.Integrity.Overall(),
		CreatedAt:  now.UTC(),
	}, true
}

// Code returns the reason code prefix of a reason string.
func Code(reason string) string {
	code, _, _ := strings.Cut(reason, ":")
	return code
}
