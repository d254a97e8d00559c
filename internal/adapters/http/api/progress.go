package api

import (
	"context"
	"net/http"

	"github.com/okian/trainerscope/internal/domain/types"
)

// ProgressDependencies defines the interface for gamification progress.
type ProgressDependencies interface {
	UserProgress(ctx context.Context, userID string) (types.UserProgress, error)
}

// ProgressHandler handles user progress requests.
type ProgressHandler struct {
	deps ProgressDependencies
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(deps ProgressDependencies) *ProgressHandler {
	return &ProgressHandler{deps: deps}
}

// HandleGetProgress handles GET /users/{id}/progress requests.
func (h *ProgressHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeFailure(w, err)
		return
	}
	progress, err := h.deps.UserProgress(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}
