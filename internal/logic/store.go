package logic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/courtvision/prediction-api/internal/models"
)

// Store is the PostgreSQL accessor for players, matches, tournaments,
// predictions and the auxiliary statistics tables.
type Store struct {
	pg PgPool
}

func NewStore(pg PgPool) *Store {
	return &Store{pg: pg}
}

const playerColumns = `id, name, COALESCE(ranking, 0), COALESCE(ranking_points, 0), COALESCE(nationality, ''),
	COALESCE(playing_style, ''), COALESCE(hand, ''), COALESCE(age, 0), COALESCE(fitness, 0), created_at, updated_at`

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	err := row.Scan(&p.ID, &p.Name, &p.Ranking, &p.RankingPoints, &p.Nationality,
		&p.PlayingStyle, &p.Hand, &p.Age, &p.Fitness, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) queryPlayers(ctx context.Context, sql string, args ...any) ([]models.Player, error) {
	rows, err := s.pg.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := make([]models.Player, 0)
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// ListPlayers returns players ordered by name
func (s *Store) ListPlayers(ctx context.Context, limit int) ([]models.Player, error) {
	return s.queryPlayers(ctx, `SELECT `+playerColumns+` FROM players ORDER BY name LIMIT $1`, limit)
}

// TopPlayers returns ranked players, best first
func (s *Store) TopPlayers(ctx context.Context, limit int) ([]models.Player, error) {
	return s.queryPlayers(ctx, `SELECT `+playerColumns+` FROM players WHERE ranking > 0 ORDER BY ranking LIMIT $1`, limit)
}

func (s *Store) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	p, err := scanPlayer(s.pg.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// UpsertPlayer inserts a player or refreshes an existing row with the same id.
// An empty ID is assigned a new UUID.
func (s *Store) UpsertPlayer(ctx context.Context, p *models.Player) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := s.pg.QueryRow(ctx, `
		INSERT INTO players (id, name, ranking, ranking_points, nationality, playing_style, hand, age, fitness)
		VALUES ($1, $2, NULLIF($3, 0), $4, $5, $6, $7, NULLIF($8, 0), $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			ranking = EXCLUDED.ranking,
			ranking_points = EXCLUDED.ranking_points,
			nationality = EXCLUDED.nationality,
			playing_style = EXCLUDED.playing_style,
			hand = EXCLUDED.hand,
			age = EXCLUDED.age,
			fitness = EXCLUDED.fitness,
			updated_at = now()
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Ranking, p.RankingPoints, p.Nationality, p.PlayingStyle, p.Hand, p.Age, p.Fitness,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	return nil
}

const matchColumns = `m.id, m.player1_id, m.player2_id, m.tournament_id, COALESCE(m.round, ''), m.surface, m.status,
	m.scheduled_at, m.winner_id, COALESCE(m.score, ''), m.created_at, m.updated_at`

func scanMatch(row pgx.Row, extra ...any) (*models.Match, error) {
	var m models.Match
	dest := []any{&m.ID, &m.Player1ID, &m.Player2ID, &m.TournamentID, &m.Round, &m.Surface, &m.Status,
		&m.ScheduledAt, &m.WinnerID, &m.Score, &m.CreatedAt, &m.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	m, err := scanMatch(s.pg.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches m WHERE m.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// GetMatchDetail returns a match with its players and tournament resolved
func (s *Store) GetMatchDetail(ctx context.Context, id string) (*models.MatchDetail, error) {
	m, err := s.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.MatchDetail{Match: *m}
	if detail.Player1, err = s.GetPlayer(ctx, m.Player1ID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if detail.Player2, err = s.GetPlayer(ctx, m.Player2ID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if m.TournamentID != nil {
		if detail.Tournament, err = s.GetTournament(ctx, *m.TournamentID); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return detail, nil
}

// UpcomingMatches returns scheduled matches from now on with player names
func (s *Store) UpcomingMatches(ctx context.Context, limit int) ([]models.MatchDetail, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT `+matchColumns+`, p1.name, COALESCE(p1.ranking, 0), p2.name, COALESCE(p2.ranking, 0)
		FROM matches m
		JOIN players p1 ON p1.id = m.player1_id
		JOIN players p2 ON p2.id = m.player2_id
		WHERE m.status = 'scheduled' AND m.scheduled_at >= now() - INTERVAL '3 hours'
		ORDER BY m.scheduled_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming matches: %w", err)
	}
	defer rows.Close()

	matches := make([]models.MatchDetail, 0)
	for rows.Next() {
		p1 := &models.Player{}
		p2 := &models.Player{}
		m, err := scanMatch(rows, &p1.Name, &p1.Ranking, &p2.Name, &p2.Ranking)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		p1.ID, p2.ID = m.Player1ID, m.Player2ID
		matches = append(matches, models.MatchDetail{Match: *m, Player1: p1, Player2: p2})
	}
	return matches, rows.Err()
}

// UpsertMatch inserts a match or refreshes its schedule and result
func (s *Store) UpsertMatch(ctx context.Context, m *models.Match) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = models.MatchScheduled
	}
	err := s.pg.QueryRow(ctx, `
		INSERT INTO matches (id, player1_id, player2_id, tournament_id, round, surface, status, scheduled_at, winner_id, score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			tournament_id = EXCLUDED.tournament_id,
			round = EXCLUDED.round,
			surface = EXCLUDED.surface,
			status = EXCLUDED.status,
			scheduled_at = EXCLUDED.scheduled_at,
			winner_id = EXCLUDED.winner_id,
			score = EXCLUDED.score,
			updated_at = now()
		RETURNING created_at, updated_at
	`, m.ID, m.Player1ID, m.Player2ID, m.TournamentID, m.Round, m.Surface, m.Status, m.ScheduledAt, m.WinnerID, m.Score,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert match: %w", err)
	}
	return nil
}

const tournamentColumns = `id, name, surface, COALESCE(category, ''), COALESCE(location, ''), COALESCE(altitude_m, 0),
	indoor, start_date, end_date`

func scanTournament(row pgx.Row) (*models.Tournament, error) {
	var t models.Tournament
	if err := row.Scan(&t.ID, &t.Name, &t.Surface, &t.Category, &t.Location, &t.Altitude,
		&t.Indoor, &t.StartDate, &t.EndDate); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTournaments(ctx context.Context) ([]models.Tournament, error) {
	rows, err := s.pg.Query(ctx, `SELECT `+tournamentColumns+` FROM tournaments ORDER BY start_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

func (s *Store) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	t, err := scanTournament(s.pg.QueryRow(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tournament %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return t, nil
}

func (s *Store) UpsertTournament(ctx context.Context, t *models.Tournament) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.pg.Exec(ctx, `
		INSERT INTO tournaments (id, name, surface, category, location, altitude_m, indoor, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			surface = EXCLUDED.surface,
			category = EXCLUDED.category,
			location = EXCLUDED.location,
			altitude_m = EXCLUDED.altitude_m,
			indoor = EXCLUDED.indoor,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date
	`, t.ID, t.Name, t.Surface, t.Category, t.Location, t.Altitude, t.Indoor, t.StartDate, t.EndDate)
	if err != nil {
		return fmt.Errorf("failed to upsert tournament: %w", err)
	}
	return nil
}

// InsertNews stores an article; articles already seen by URL are skipped
func (s *Store) InsertNews(ctx context.Context, a *models.NewsArticle) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.pg.Exec(ctx, `
		INSERT INTO news_articles (id, player_id, title, summary, url, source, sentiment, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (url) DO NOTHING
	`, a.ID, a.PlayerID, a.Title, a.Summary, a.URL, a.Source, a.Sentiment, a.PublishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert news article: %w", err)
	}
	return nil
}

const predictionColumns = `id, match_id, predicted_winner_id, win_probability, confidence_level,
	COALESCE(reasoning, ''), key_factors, category_outputs, synthesis_source, created_at`

func scanPrediction(row pgx.Row) (*models.Prediction, error) {
	var p models.Prediction
	if err := row.Scan(&p.ID, &p.MatchID, &p.PredictedWinnerID, &p.WinProbability, &p.ConfidenceLevel,
		&p.Reasoning, &p.KeyFactors, &p.CategoryOutputs, &p.Source, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPredictionByMatch returns the current prediction for a match with its
// factor rows in catalog order.
func (s *Store) GetPredictionByMatch(ctx context.Context, matchID string) (*models.Prediction, error) {
	p, err := scanPrediction(s.pg.QueryRow(ctx, `SELECT `+predictionColumns+` FROM predictions WHERE match_id = $1`, matchID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("prediction for match %s: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	rows, err := s.pg.Query(ctx, `
		SELECT agent_name, category, factor, conclusion, advantage, confidence, reasoning, analysis
		FROM agent_analysis
		WHERE match_id = $1
		ORDER BY position
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query factor rows: %w", err)
	}
	defer rows.Close()

	p.Factors = make([]models.FactorAnalysis, 0)
	for rows.Next() {
		var f models.FactorAnalysis
		if err := rows.Scan(&f.Agent, &f.Category, &f.Factor, &f.Conclusion, &f.Advantage,
			&f.Confidence, &f.Reasoning, &f.Analysis); err != nil {
			return nil, fmt.Errorf("failed to scan factor row: %w", err)
		}
		p.Factors = append(p.Factors, f)
	}
	return p, rows.Err()
}

// RecentPredictions returns the latest predictions without factor rows
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]models.Prediction, error) {
	rows, err := s.pg.Query(ctx, `SELECT `+predictionColumns+` FROM predictions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	preds := make([]models.Prediction, 0)
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		preds = append(preds, *p)
	}
	return preds, rows.Err()
}

// SavePrediction upserts the prediction for its match and replaces the
// match's factor rows in the same transaction.
func (s *Store) SavePrediction(ctx context.Context, p *models.Prediction) error {
	tx, err := s.pg.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.KeyFactors == nil {
		p.KeyFactors = []string{}
	}
	if p.CategoryOutputs == nil {
		p.CategoryOutputs = map[string]interface{}{}
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO predictions (id, match_id, predicted_winner_id, win_probability, confidence_level,
			reasoning, key_factors, category_outputs, synthesis_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (match_id) DO UPDATE SET
			predicted_winner_id = EXCLUDED.predicted_winner_id,
			win_probability = EXCLUDED.win_probability,
			confidence_level = EXCLUDED.confidence_level,
			reasoning = EXCLUDED.reasoning,
			key_factors = EXCLUDED.key_factors,
			category_outputs = EXCLUDED.category_outputs,
			synthesis_source = EXCLUDED.synthesis_source,
			created_at = now()
		RETURNING id, created_at
	`, p.ID, p.MatchID, p.PredictedWinnerID, p.WinProbability, p.ConfidenceLevel,
		p.Reasoning, p.KeyFactors, p.CategoryOutputs, p.Source,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert prediction: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM agent_analysis WHERE match_id = $1`, p.MatchID); err != nil {
		return fmt.Errorf("failed to clear factor rows: %w", err)
	}

	batch := &pgx.Batch{}
	for i, f := range p.Factors {
		batch.Queue(`
			INSERT INTO agent_analysis (id, match_id, prediction_id, position, agent_name, category, factor,
				conclusion, advantage, confidence, reasoning, analysis)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, uuid.NewString(), p.MatchID, p.ID, i, f.Agent, f.Category, f.Factor,
			f.Conclusion, f.Advantage, f.Confidence, f.Reasoning, f.Analysis)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert factor rows: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit prediction: %w", err)
	}
	return nil
}

// =============================================================================
// STATS PROVIDER
// =============================================================================

func (s *Store) SurfaceStats(ctx context.Context, playerID string, surface models.Surface) (*models.PlayerStat, error) {
	var st models.PlayerStat
	err := s.pg.QueryRow(ctx, `
		SELECT player_id, surface, matches_played, matches_won, first_serve_pct, first_serve_won_pct,
			second_serve_won_pct, aces_per_match, double_faults_per_match, return_points_won_pct,
			break_points_saved_pct, break_points_converted_pct, tiebreaks_won, tiebreaks_played
		FROM player_stats
		WHERE player_id = $1 AND surface = $2
	`, playerID, surface).Scan(&st.PlayerID, &st.Surface, &st.MatchesPlayed, &st.MatchesWon, &st.FirstServePct,
		&st.FirstServeWonPct, &st.SecondServeWonPct, &st.AcesPerMatch, &st.DoubleFaultsPerMatch,
		&st.ReturnPointsWonPct, &st.BreakPointsSavedPct, &st.BreakPointsConvPct, &st.TiebreaksWon, &st.TiebreaksPlayed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get surface stats: %w", err)
	}
	return &st, nil
}

// RecentForm summarises the player's last completed matches before a time
func (s *Store) RecentForm(ctx context.Context, playerID string, before time.Time, limit int) (*models.FormSummary, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT scheduled_at, COALESCE(winner_id, '')
		FROM matches
		WHERE (player1_id = $1 OR player2_id = $1) AND status = 'completed' AND scheduled_at < $2
		ORDER BY scheduled_at DESC
		LIMIT $3
	`, playerID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent form: %w", err)
	}
	defer rows.Close()

	var results []formResult
	for rows.Next() {
		var r formResult
		var winner string
		if err := rows.Scan(&r.At, &winner); err != nil {
			return nil, fmt.Errorf("failed to scan form row: %w", err)
		}
		r.Won = winner == playerID
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summariseForm(playerID, results, before), nil
}

type formResult struct {
	At  time.Time
	Won bool
}

// summariseForm builds a FormSummary from results ordered newest first.
// It returns nil for an empty history.
func summariseForm(playerID string, results []formResult, ref time.Time) *models.FormSummary {
	if len(results) == 0 {
		return nil
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].At.After(results[j].At) })

	f := &models.FormSummary{PlayerID: playerID, Played: len(results)}
	last := results[0].At
	f.LastPlayed = &last
	cutoff := ref.Add(-14 * 24 * time.Hour)
	streakOpen := true
	for _, r := range results {
		if r.Won {
			f.Won++
		}
		if !r.At.Before(cutoff) {
			f.MatchesLast14++
		}
		if streakOpen && r.Won != results[0].Won {
			streakOpen = false
		}
		if streakOpen {
			if r.Won {
				f.Streak++
			} else {
				f.Streak--
			}
		}
	}
	return f
}

// HeadToHead returns the rivalry record, ordered with the smaller id first
func (s *Store) HeadToHead(ctx context.Context, player1ID, player2ID string) (*models.HeadToHead, error) {
	a, b := player1ID, player2ID
	if b < a {
		a, b = b, a
	}
	h := models.HeadToHead{Player1ID: a, Player2ID: b}
	err := s.pg.QueryRow(ctx, `
		SELECT player1_wins, player2_wins, last_meeting, COALESCE(last_winner_id, '')
		FROM head_to_head_records
		WHERE player1_id = $1 AND player2_id = $2
	`, a, b).Scan(&h.Player1Wins, &h.Player2Wins, &h.LastMeeting, &h.LastWinner)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get head to head: %w", err)
	}
	return &h, nil
}

func (s *Store) RecentNews(ctx context.Context, playerID string, limit int) ([]models.NewsArticle, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT id, player_id, title, COALESCE(summary, ''), url, COALESCE(source, ''), sentiment, published_at
		FROM news_articles
		WHERE player_id = $1
		ORDER BY published_at DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query news: %w", err)
	}
	defer rows.Close()

	var articles []models.NewsArticle
	for rows.Next() {
		var a models.NewsArticle
		if err := rows.Scan(&a.ID, &a.PlayerID, &a.Title, &a.Summary, &a.URL, &a.Source, &a.Sentiment, &a.PublishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan news: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
