package model

import "time"

// SourceType records where a reference answer came from.
type SourceType string

const (
	SourceSeed    SourceType = "seed"
	SourceCurated SourceType = "curated"
	SourcePlayer  SourceType = "player"
)

// ReferenceAnswer is one embedded entry of a game's reference corpus.
type ReferenceAnswer struct {
	ID         string
	GameID     string
	Embedding  Embedding
	Score      int
	SourceType SourceType
	Verified   bool
	CreatedAt  time.Time
}

// Trusted reports whether the entry counts as verified for corpus weighting.
// Seed entries are operator-authored and always trusted.
func (r ReferenceAnswer) Trusted() bool {
	return r.Verified || r.SourceType == SourceSeed
}
