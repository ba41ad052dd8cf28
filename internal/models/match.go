package models

import "time"

// Surface is the court surface of a match or tournament
type Surface string

const (
	SurfaceHard   Surface = "hard"
	SurfaceClay   Surface = "clay"
	SurfaceGrass  Surface = "grass"
	SurfaceCarpet Surface = "carpet"
)

// MatchStatus is the scheduling status of a match
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchCompleted MatchStatus = "completed"
	MatchCancelled MatchStatus = "cancelled"
)

// Match pairs two players on a surface
type Match struct {
	ID           string      `json:"id"`
	Player1ID    string      `json:"player1_id"`
	Player2ID    string      `json:"player2_id"`
	TournamentID *string     `json:"tournament_id,omitempty"`
	Round        string      `json:"round,omitempty"`
	Surface      Surface     `json:"surface"`
	Status       MatchStatus `json:"status"`
	ScheduledAt  time.Time   `json:"scheduled_at"`
	WinnerID     *string     `json:"winner_id,omitempty"`
	Score        string      `json:"score,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// MatchDetail is a match with both players resolved, as returned by the API
type MatchDetail struct {
	Match
	Player1    *Player     `json:"player1,omitempty"`
	Player2    *Player     `json:"player2,omitempty"`
	Tournament *Tournament `json:"tournament,omitempty"`
}

// Tournament is an event a match belongs to
type Tournament struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Surface   Surface   `json:"surface"`
	Category  string    `json:"category"` // "grand_slam", "masters_1000", "atp_500", "atp_250", "challenger"
	Location  string    `json:"location"`
	Altitude  int       `json:"altitude_m"`
	Indoor    bool      `json:"indoor"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// NewsArticle is a synced news item mentioning a player
type NewsArticle struct {
	ID          string    `json:"id"`
	PlayerID    *string   `json:"player_id,omitempty"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Sentiment   float64   `json:"sentiment"` // -1..1
	PublishedAt time.Time `json:"published_at"`
}
