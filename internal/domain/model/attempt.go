package model

import "time"

// AttemptRecord is the persisted, one-per-(player, game) outcome.
type AttemptRecord struct {
	ID            string    `json:"id"`
	PlayerID      string    `json:"playerId"`
	GameID        string    `json:"gameId"`
	TeamID        string    `json:"teamId,omitempty"`
	FinalScore    int       `json:"finalScore"`
	Confidence    int       `json:"confidence"`
	IntegrityRisk Risk      `json:"integrityRisk"`
	UsedAIScoring bool      `json:"usedAiScoring"`
	HintsUsed     int       `json:"hintsUsed"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AttemptKey identifies the (player, game) uniqueness scope.
func AttemptKey(playerID, gameID string) string { return playerID + ":" + gameID }

// ReviewQueueItem is an escalation awaiting a human reviewer.
type ReviewQueueItem struct {
	AttemptID  string    `json:"attemptId"`
	Reasons    []string  `json:"reasons"`
	Confidence int       `json:"confidence"`
	Risk       Risk      `json:"risk"`
	CreatedAt  time.Time `json:"createdAt"`
}
