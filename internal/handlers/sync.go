package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/courtvision/prediction-api/internal/models"
)

// TriggerSync starts a background pull of one entity kind from the data feed
// @Summary Trigger Data Sync
// @Tags Sync
// @Produce json
// @Param kind path string true "players, tournaments, matches or news"
// @Success 202 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /sync/{kind} [post]
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	msg, err := h.sync.Trigger(kind)
	if err != nil {
		h.serviceError(w, err, "Failed to trigger sync", "kind", kind)
		return
	}
	h.jsonResponse(w, http.StatusAccepted, models.MessageResponse{Message: msg})
}
