package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/courtvision/prediction-api/internal/models"
)

// RecentPredictions returns the latest stored predictions
// @Summary Recent Predictions
// @Tags Predictions
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Success 200 {array} models.Prediction
// @Failure 500 {object} models.ErrorResponse
// @Router /predictions/recent [get]
func (h *Handler) RecentPredictions(w http.ResponseWriter, r *http.Request) {
	preds, err := h.store.RecentPredictions(r.Context(), queryLimit(r, 20, 100))
	if err != nil {
		h.serviceError(w, err, "Failed to get recent predictions")
		return
	}
	h.jsonResponse(w, http.StatusOK, preds)
}

// GetMatchPrediction returns the stored prediction for a match with its factors
// @Summary Get Match Prediction
// @Tags Predictions
// @Produce json
// @Param id path string true "Match ID"
// @Success 200 {object} models.Prediction
// @Failure 404 {object} models.ErrorResponse
// @Router /predictions/match/{id} [get]
func (h *Handler) GetMatchPrediction(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "id")
	pred, err := h.store.GetPredictionByMatch(r.Context(), matchID)
	if err != nil {
		h.serviceError(w, err, "Failed to get prediction", "matchID", matchID)
		return
	}
	h.jsonResponse(w, http.StatusOK, pred)
}

// AnalyzeMatch runs the full analysis for a match, or returns the stored
// prediction unless forceRefresh is set
// @Summary Analyze Match
// @Description Runs all analysis tasks concurrently and synthesizes a prediction
// @Tags Predictions
// @Accept json
// @Produce json
// @Param body body models.AnalyzeRequest true "Match to analyze"
// @Success 200 {object} models.Prediction
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /predictions/analyze [post]
func (h *Handler) AnalyzeMatch(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	pred, err := h.analyzer.AnalyzeByID(r.Context(), req.MatchID, req.ForceRefresh)
	if err != nil {
		h.serviceError(w, err, "Failed to analyze match", "matchID", req.MatchID)
		return
	}
	h.jsonResponse(w, http.StatusOK, pred)
}
