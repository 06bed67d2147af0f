package model

import "time"

// EventKind selects the background handler for an Event.
type EventKind string

const (
	// EventAttemptScored feeds analytics.
	EventAttemptScored EventKind = "attempt_scored"
	// EventCurationCandidate may append to the reference corpus.
	EventCurationCandidate EventKind = "curation_candidate"
	// EventReviewEscalation enqueues a human review item.
	EventReviewEscalation EventKind = "review_escalation"
)

// Event is the envelope for detached follow-up work after an attempt is stored.
type Event struct {
	EventID    string
	Kind       EventKind
	AttemptID  string
	PlayerID   string
	GameID     string
	Score      int
	Embedding  Embedding
	Review     *ReviewQueueItem
	Attributes map[string]any
	TS         time.Time
}
