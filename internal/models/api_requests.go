package models

import "time"

type AnalyzeRequest struct {
	MatchID      string `json:"matchId" validate:"required"`
	ForceRefresh bool   `json:"forceRefresh"`
}

type CreatePlayerRequest struct {
	Name          string  `json:"name" validate:"required,max=128"`
	Ranking       int     `json:"ranking" validate:"gte=0"`
	RankingPoints int     `json:"ranking_points" validate:"gte=0"`
	Nationality   string  `json:"nationality" validate:"omitempty,len=3"`
	PlayingStyle  string  `json:"playing_style" validate:"omitempty,oneof=aggressive_baseliner counterpuncher serve_and_volley all_court big_server"`
	Hand          string  `json:"hand" validate:"omitempty,oneof=right left"`
	Age           int     `json:"age" validate:"omitempty,gte=14,lte=50"`
	Fitness       float64 `json:"fitness" validate:"gte=0,lte=100"`
}

type CreateMatchRequest struct {
	Player1ID    string    `json:"player1_id" validate:"required"`
	Player2ID    string    `json:"player2_id" validate:"required,nefield=Player1ID"`
	TournamentID string    `json:"tournament_id"`
	Round        string    `json:"round"`
	Surface      Surface   `json:"surface" validate:"required,oneof=hard clay grass carpet"`
	ScheduledAt  time.Time `json:"scheduled_at" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
