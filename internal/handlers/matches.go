package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/courtvision/prediction-api/internal/logic"
	"github.com/courtvision/prediction-api/internal/models"
)

// UpcomingMatches returns scheduled matches with their players
// @Summary Upcoming Matches
// @Tags Matches
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Success 200 {array} models.MatchDetail
// @Failure 500 {object} models.ErrorResponse
// @Router /matches/upcoming [get]
func (h *Handler) UpcomingMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.store.UpcomingMatches(r.Context(), queryLimit(r, 20, 200))
	if err != nil {
		h.serviceError(w, err, "Failed to get upcoming matches")
		return
	}
	h.jsonResponse(w, http.StatusOK, matches)
}

// GetMatch returns a match with players and tournament resolved
// @Summary Get Match
// @Tags Matches
// @Produce json
// @Param id path string true "Match ID"
// @Success 200 {object} models.MatchDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /matches/{id} [get]
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	match, err := h.store.GetMatchDetail(r.Context(), id)
	if err != nil {
		h.serviceError(w, err, "Failed to get match", "id", id)
		return
	}
	h.jsonResponse(w, http.StatusOK, match)
}

// CreateMatch schedules a match between two existing players
// @Summary Create Match
// @Tags Matches
// @Accept json
// @Produce json
// @Param body body models.CreateMatchRequest true "Match"
// @Success 201 {object} models.Match
// @Failure 400 {object} models.ErrorResponse
// @Router /matches [post]
func (h *Handler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMatchRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	for _, id := range []string{req.Player1ID, req.Player2ID} {
		if _, err := h.store.GetPlayer(ctx, id); err != nil {
			if errors.Is(err, logic.ErrNotFound) {
				err = fmt.Errorf("unknown player %s: %w", id, logic.ErrInvalidInput)
			}
			h.serviceError(w, err, "Failed to resolve player", "id", id)
			return
		}
	}

	match := &models.Match{
		Player1ID:   req.Player1ID,
		Player2ID:   req.Player2ID,
		Round:       req.Round,
		Surface:     req.Surface,
		Status:      models.MatchScheduled,
		ScheduledAt: req.ScheduledAt,
	}
	if req.TournamentID != "" {
		match.TournamentID = &req.TournamentID
	}
	if err := h.store.UpsertMatch(ctx, match); err != nil {
		h.serviceError(w, err, "Failed to create match")
		return
	}
	h.jsonResponse(w, http.StatusCreated, match)
}

// ListTournaments returns all tournaments, most recent first
// @Summary List Tournaments
// @Tags Matches
// @Produce json
// @Success 200 {array} models.Tournament
// @Failure 500 {object} models.ErrorResponse
// @Router /tournaments [get]
func (h *Handler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.store.ListTournaments(r.Context())
	if err != nil {
		h.serviceError(w, err, "Failed to list tournaments")
		return
	}
	h.jsonResponse(w, http.StatusOK, tournaments)
}
