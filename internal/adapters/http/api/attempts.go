package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/okian/skillgrade/internal/adapters/repository"
	"github.com/okian/skillgrade/internal/domain/grading"
	"github.com/okian/skillgrade/internal/domain/types"
	"github.com/okian/skillgrade/pkg/logger"
)

const maxBodyBytes = 1 << 20

// AttemptsHandler grades submissions and serves stored attempts.
type AttemptsHandler struct {
	grader   Grader
	attempts AttemptReader
	logger   logger.Logger
}

// NewAttemptsHandler creates a new attempts handler.
func NewAttemptsHandler(grader Grader, attempts AttemptReader, l logger.Logger) *AttemptsHandler {
	return &AttemptsHandler{grader: grader, attempts: attempts, logger: l}
}

// HandlePostAttempt handles POST /v1/attempts requests.
func (h *AttemptsHandler) HandlePostAttempt(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_attempt"
	var req types.AttemptRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.grader.Grade(r.Context(), req.GradingRequest())
	if err != nil {
		h.writeGradeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewAttemptResponse(&res))
}

func (h *AttemptsHandler) writeGradeError(w http.ResponseWriter, r *http.Request, err error) {
	var dup *grading.DuplicateError
	switch {
	case errors.As(err, &dup):
		writeJSON(w, http.StatusConflict, types.ConflictResponse{
			Code:    "duplicate_submission",
			Message: err.Error(),
			Attempt: dup.Existing,
		})
	case errors.Is(err, grading.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, grading.ErrGameNotFound):
		writeError(w, http.StatusNotFound, "game_not_found", err)
	case errors.Is(err, grading.ErrDatastoreUnavailable):
		h.logger.Error(r.Context(), "grading unavailable", logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "datastore_unavailable", grading.ErrDatastoreUnavailable)
	default:
		h.logger.Error(r.Context(), "grading failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", ErrInternal)
	}
}

// HandleGetAttempt handles GET /v1/attempts/{playerID}/{gameID} requests.
func (h *AttemptsHandler) HandleGetAttempt(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_attempt"
	playerID := strings.TrimSpace(chi.URLParam(r, "playerID"))
	gameID := strings.TrimSpace(chi.URLParam(r, "gameID"))
	if playerID == "" || gameID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	rec, err := h.attempts.Get(r.Context(), playerID, gameID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
	case err != nil:
		h.logger.Error(r.Context(), "attempt lookup failed", logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "datastore_unavailable", grading.ErrDatastoreUnavailable)
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}
