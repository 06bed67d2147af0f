package api

import (
	"net/http"
	"strconv"

	"github.com/okian/skillgrade/internal/domain/types"
)

const (
	defaultReviewLimit = 50
	maxReviewLimit     = 500
)

// ReviewHandler lists the pending review queue.
type ReviewHandler struct {
	reviews ReviewReader
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(reviews ReviewReader) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// HandleList handles GET /v1/review-queue?limit=N requests.
func (h *ReviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.review_queue"
	limit := defaultReviewLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxReviewLimit {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	items, err := h.reviews.Pending(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "datastore_unavailable", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, types.ReviewQueueResponse{Items: items, Count: len(items)})
}
