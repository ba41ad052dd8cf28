package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/courtvision/prediction-api/internal/models"
)

// ListPlayers returns players ordered by name
// @Summary List Players
// @Tags Players
// @Produce json
// @Param limit query int false "Limit" default(100)
// @Success 200 {array} models.Player
// @Failure 500 {object} models.ErrorResponse
// @Router /players [get]
func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.store.ListPlayers(r.Context(), queryLimit(r, 100, 500))
	if err != nil {
		h.serviceError(w, err, "Failed to list players")
		return
	}
	h.jsonResponse(w, http.StatusOK, players)
}

// TopPlayers returns the best ranked players
// @Summary Top Ranked Players
// @Tags Players
// @Produce json
// @Param limit query int false "Limit" default(10)
// @Success 200 {array} models.Player
// @Failure 500 {object} models.ErrorResponse
// @Router /players/top [get]
func (h *Handler) TopPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.store.TopPlayers(r.Context(), queryLimit(r, 10, 100))
	if err != nil {
		h.serviceError(w, err, "Failed to get top players")
		return
	}
	h.jsonResponse(w, http.StatusOK, players)
}

// GetPlayer returns a single player
// @Summary Get Player
// @Tags Players
// @Produce json
// @Param id path string true "Player ID"
// @Success 200 {object} models.Player
// @Failure 404 {object} models.ErrorResponse
// @Router /players/{id} [get]
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	player, err := h.store.GetPlayer(r.Context(), id)
	if err != nil {
		h.serviceError(w, err, "Failed to get player", "id", id)
		return
	}
	h.jsonResponse(w, http.StatusOK, player)
}

// CreatePlayer inserts a player
// @Summary Create Player
// @Tags Players
// @Accept json
// @Produce json
// @Param body body models.CreatePlayerRequest true "Player"
// @Success 201 {object} models.Player
// @Failure 400 {object} models.ErrorResponse
// @Router /players [post]
func (h *Handler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePlayerRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	player := &models.Player{
		Name:          req.Name,
		Ranking:       req.Ranking,
		RankingPoints: req.RankingPoints,
		Nationality:   req.Nationality,
		PlayingStyle:  req.PlayingStyle,
		Hand:          req.Hand,
		Age:           req.Age,
		Fitness:       req.Fitness,
	}
	if err := h.store.UpsertPlayer(r.Context(), player); err != nil {
		h.serviceError(w, err, "Failed to create player", "name", req.Name)
		return
	}
	h.jsonResponse(w, http.StatusCreated, player)
}
