package handlers

import (
	"context"
	"io/fs"
	"time"

	"github.com/courtvision/prediction-api/internal/logic"
	"github.com/courtvision/prediction-api/internal/models"
)

// MockStore implements DataStore
type MockStore struct {
	ListPlayersFunc          func(ctx context.Context, limit int) ([]models.Player, error)
	GetPlayerFunc            func(ctx context.Context, id string) (*models.Player, error)
	UpsertPlayerFunc         func(ctx context.Context, p *models.Player) error
	GetMatchDetailFunc       func(ctx context.Context, id string) (*models.MatchDetail, error)
	UpsertMatchFunc          func(ctx context.Context, m *models.Match) error
	GetPredictionByMatchFunc func(ctx context.Context, matchID string) (*models.Prediction, error)
}

func (m *MockStore) ListPlayers(ctx context.Context, limit int) ([]models.Player, error) {
	if m.ListPlayersFunc != nil {
		return m.ListPlayersFunc(ctx, limit)
	}
	return []models.Player{}, nil
}

func (m *MockStore) TopPlayers(ctx context.Context, limit int) ([]models.Player, error) {
	return []models.Player{}, nil
}

func (m *MockStore) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	if m.GetPlayerFunc != nil {
		return m.GetPlayerFunc(ctx, id)
	}
	return &models.Player{ID: id}, nil
}

func (m *MockStore) UpsertPlayer(ctx context.Context, p *models.Player) error {
	if m.UpsertPlayerFunc != nil {
		return m.UpsertPlayerFunc(ctx, p)
	}
	p.ID = "new-player"
	return nil
}

func (m *MockStore) UpcomingMatches(ctx context.Context, limit int) ([]models.MatchDetail, error) {
	return []models.MatchDetail{}, nil
}

func (m *MockStore) GetMatchDetail(ctx context.Context, id string) (*models.MatchDetail, error) {
	if m.GetMatchDetailFunc != nil {
		return m.GetMatchDetailFunc(ctx, id)
	}
	return &models.MatchDetail{Match: models.Match{ID: id}}, nil
}

func (m *MockStore) UpsertMatch(ctx context.Context, match *models.Match) error {
	if m.UpsertMatchFunc != nil {
		return m.UpsertMatchFunc(ctx, match)
	}
	match.ID = "new-match"
	return nil
}

func (m *MockStore) ListTournaments(ctx context.Context) ([]models.Tournament, error) {
	return []models.Tournament{}, nil
}

func (m *MockStore) RecentPredictions(ctx context.Context, limit int) ([]models.Prediction, error) {
	return []models.Prediction{}, nil
}

func (m *MockStore) GetPredictionByMatch(ctx context.Context, matchID string) (*models.Prediction, error) {
	if m.GetPredictionByMatchFunc != nil {
		return m.GetPredictionByMatchFunc(ctx, matchID)
	}
	return &models.Prediction{MatchID: matchID}, nil
}

// MockAnalyzer implements Analyzer
type MockAnalyzer struct {
	AnalyzeByIDFunc   func(ctx context.Context, matchID string, forceRefresh bool) (*models.Prediction, error)
	AgentStatusesFunc func(ctx context.Context) ([]models.AgentStatus, error)
}

func (m *MockAnalyzer) AnalyzeByID(ctx context.Context, matchID string, forceRefresh bool) (*models.Prediction, error) {
	if m.AnalyzeByIDFunc != nil {
		return m.AnalyzeByIDFunc(ctx, matchID, forceRefresh)
	}
	return &models.Prediction{MatchID: matchID}, nil
}

func (m *MockAnalyzer) AgentStatuses(ctx context.Context) ([]models.AgentStatus, error) {
	if m.AgentStatusesFunc != nil {
		return m.AgentStatusesFunc(ctx)
	}
	return []models.AgentStatus{}, nil
}

// MockSync implements SyncTrigger
type MockSync struct {
	TriggerFunc func(kind string) (string, error)
}

func (m *MockSync) Trigger(kind string) (string, error) {
	if m.TriggerFunc != nil {
		return m.TriggerFunc(kind)
	}
	return kind + " sync started", nil
}

// MockUsage implements UsageReporter
type MockUsage struct {
	AgentUsageFunc func(ctx context.Context, since time.Time) ([]models.AgentUsage, error)
	BreakdownFunc  func(ctx context.Context, req logic.UsageQuery) ([]models.UsageBucket, error)
}

func (m *MockUsage) AgentUsage(ctx context.Context, since time.Time) ([]models.AgentUsage, error) {
	if m.AgentUsageFunc != nil {
		return m.AgentUsageFunc(ctx, since)
	}
	return []models.AgentUsage{}, nil
}

func (m *MockUsage) Breakdown(ctx context.Context, req logic.UsageQuery) ([]models.UsageBucket, error) {
	if m.BreakdownFunc != nil {
		return m.BreakdownFunc(ctx, req)
	}
	return []models.UsageBucket{}, nil
}

// MockCounters implements UsageCounters
type MockCounters struct {
	UsageFunc func(ctx context.Context, agents []string) ([]models.AgentUsage, error)
}

func (m *MockCounters) Usage(ctx context.Context, agents []string) ([]models.AgentUsage, error) {
	if m.UsageFunc != nil {
		return m.UsageFunc(ctx, agents)
	}
	return []models.AgentUsage{}, nil
}

// MockMigrator implements Migrator
type MockMigrator struct {
	PostgresFunc func(ctx context.Context, fsys fs.FS, dir string) ([]string, error)
}

func (m *MockMigrator) Postgres(ctx context.Context, fsys fs.FS, dir string) ([]string, error) {
	if m.PostgresFunc != nil {
		return m.PostgresFunc(ctx, fsys, dir)
	}
	return []string{"001_initial_schema.sql"}, nil
}

func (m *MockMigrator) ClickHouse(ctx context.Context, fsys fs.FS, dir string) ([]string, error) {
	return nil, nil
}
