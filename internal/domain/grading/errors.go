package grading

import (
	"errors"

	"github.com/okian/skillgrade/internal/domain/model"
)

// Sentinel kinds for request-level failures. Signal failures never surface here.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrGameNotFound         = errors.New("game not found")
	ErrDuplicateSubmission  = errors.New("duplicate submission")
	ErrDatastoreUnavailable = errors.New("datastore unavailable")
)

// DuplicateError reports an already-scored or in-flight (player, game) pair.
// Existing is nil when the duplicate was caught while the first request was
// still being graded.
type DuplicateError struct {
	Existing *model.AttemptRecord
}

func (e *DuplicateError) Error() string {
	if e.Existing == nil {
		return ErrDuplicateSubmission.Error() + ": attempt in progress"
	}
	return ErrDuplicateSubmission.Error() + ": attempt " + e.Existing.ID + " already scored"
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateSubmission }
