package models

import "time"

// Player is a tennis player as stored in the players table
type Player struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Ranking       int       `json:"ranking"`
	RankingPoints int       `json:"ranking_points"`
	Nationality   string    `json:"nationality"`
	PlayingStyle  string    `json:"playing_style"` // "aggressive_baseliner", "counterpuncher", "serve_and_volley", "all_court"
	Hand          string    `json:"hand"`          // "right", "left"
	Age           int       `json:"age"`
	Fitness       float64   `json:"fitness"` // 0-100 estimate
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PlayerStat holds aggregate per-surface numbers for a player
type PlayerStat struct {
	PlayerID             string  `json:"player_id"`
	Surface              Surface `json:"surface"`
	MatchesPlayed        int     `json:"matches_played"`
	MatchesWon           int     `json:"matches_won"`
	FirstServePct        float64 `json:"first_serve_pct"`
	FirstServeWonPct     float64 `json:"first_serve_won_pct"`
	SecondServeWonPct    float64 `json:"second_serve_won_pct"`
	AcesPerMatch         float64 `json:"aces_per_match"`
	DoubleFaultsPerMatch float64 `json:"double_faults_per_match"`
	ReturnPointsWonPct   float64 `json:"return_points_won_pct"`
	BreakPointsSavedPct  float64 `json:"break_points_saved_pct"`
	BreakPointsConvPct   float64 `json:"break_points_converted_pct"`
	TiebreaksWon         int     `json:"tiebreaks_won"`
	TiebreaksPlayed      int     `json:"tiebreaks_played"`
}

// WinRate returns matches won over matches played, or 0 when nothing was played
func (s PlayerStat) WinRate() float64 {
	if s.MatchesPlayed == 0 {
		return 0
	}
	return float64(s.MatchesWon) / float64(s.MatchesPlayed)
}

// HeadToHead is the rivalry record between two players.
// Player1ID is always the lexically smaller id.
type HeadToHead struct {
	Player1ID   string     `json:"player1_id"`
	Player2ID   string     `json:"player2_id"`
	Player1Wins int        `json:"player1_wins"`
	Player2Wins int        `json:"player2_wins"`
	LastMeeting *time.Time `json:"last_meeting,omitempty"`
	LastWinner  string     `json:"last_winner_id,omitempty"`
}

// FormSummary summarises a player's recent completed matches
type FormSummary struct {
	PlayerID      string     `json:"player_id"`
	Played        int        `json:"played"`
	Won           int        `json:"won"`
	Streak        int        `json:"streak"` // positive = wins, negative = losses
	LastPlayed    *time.Time `json:"last_played,omitempty"`
	MatchesLast14 int        `json:"matches_last_14_days"`
}

// WinRate of the recent sample
func (f FormSummary) WinRate() float64 {
	if f.Played == 0 {
		return 0
	}
	return float64(f.Won) / float64(f.Played)
}
