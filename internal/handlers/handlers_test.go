package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/courtvision/prediction-api/internal/logic"
	"github.com/courtvision/prediction-api/internal/models"
)

func newTestRouter(cfg Config) http.Handler {
	cfg.Logger = zap.NewNop()
	if cfg.Store == nil {
		cfg.Store = &MockStore{}
	}
	if cfg.Analyzer == nil {
		cfg.Analyzer = &MockAnalyzer{}
	}
	if cfg.Sync == nil {
		cfg.Sync = &MockSync{}
	}
	if cfg.Migrator == nil {
		cfg.Migrator = &MockMigrator{}
	}
	return New(cfg).Routes(RouterOptions{})
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndReady(t *testing.T) {
	router := newTestRouter(Config{})

	if rr := do(t, router, "GET", "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", rr.Code)
	}

	rr := do(t, router, "GET", "/ready", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ready":true`) {
		t.Errorf("ready body %s", rr.Body.String())
	}
}

func TestGetPlayer(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"Found", nil, http.StatusOK},
		{"Missing", fmt.Errorf("player p9: %w", logic.ErrNotFound), http.StatusNotFound},
		{"Database Error", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockStore{
				GetPlayerFunc: func(ctx context.Context, id string) (*models.Player, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &models.Player{ID: id, Name: "Alpha"}, nil
				},
			}
			rr := do(t, newTestRouter(Config{Store: store}), "GET", "/api/players/p9", "")
			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestServiceError_HidesInternalDetail(t *testing.T) {
	store := &MockStore{
		GetPlayerFunc: func(ctx context.Context, id string) (*models.Player, error) {
			return nil, errors.New(`ERROR: relation "players" does not exist (SQLSTATE 42P01)`)
		},
	}
	rr := do(t, newTestRouter(Config{Store: store}), "GET", "/api/players/p1", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "SQLSTATE") || strings.Contains(body, "relation") {
		t.Errorf("driver error leaked to client: %s", body)
	}
	if !strings.Contains(body, "Failed to get player") {
		t.Errorf("expected generic message, got %s", body)
	}
}

func TestListPlayers_Limit(t *testing.T) {
	var got int
	store := &MockStore{
		ListPlayersFunc: func(ctx context.Context, limit int) ([]models.Player, error) {
			got = limit
			return []models.Player{}, nil
		},
	}
	router := newTestRouter(Config{Store: store})

	do(t, router, "GET", "/api/players?limit=5", "")
	if got != 5 {
		t.Errorf("expected limit 5, got %d", got)
	}
	do(t, router, "GET", "/api/players?limit=junk", "")
	if got != 100 {
		t.Errorf("expected default limit 100, got %d", got)
	}
}

func TestCreatePlayer(t *testing.T) {
	router := newTestRouter(Config{})

	rr := do(t, router, "POST", "/api/players", `{"name":"Alpha","ranking":3,"hand":"left"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var p models.Player
	if err := json.NewDecoder(rr.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.ID != "new-player" || p.Hand != "left" {
		t.Errorf("unexpected player %+v", p)
	}

	rr = do(t, router, "POST", "/api/players", `{"ranking":3}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing name: expected 400, got %d", rr.Code)
	}
	rr = do(t, router, "POST", "/api/players", `{"name":"Alpha","hand":"both"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad hand: expected 400, got %d", rr.Code)
	}
}

func TestCreateMatch(t *testing.T) {
	when := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339)
	store := &MockStore{
		GetPlayerFunc: func(ctx context.Context, id string) (*models.Player, error) {
			if id == "ghost" {
				return nil, fmt.Errorf("player ghost: %w", logic.ErrNotFound)
			}
			return &models.Player{ID: id}, nil
		},
	}
	router := newTestRouter(Config{Store: store})

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"Valid", `{"player1_id":"a","player2_id":"b","surface":"clay","scheduled_at":"` + when + `"}`, http.StatusCreated},
		{"Same Player", `{"player1_id":"a","player2_id":"a","surface":"clay","scheduled_at":"` + when + `"}`, http.StatusBadRequest},
		{"Bad Surface", `{"player1_id":"a","player2_id":"b","surface":"ice","scheduled_at":"` + when + `"}`, http.StatusBadRequest},
		{"Unknown Player", `{"player1_id":"a","player2_id":"ghost","surface":"grass","scheduled_at":"` + when + `"}`, http.StatusBadRequest},
		{"Invalid JSON", `{"player1_id":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, "POST", "/api/matches", tt.body)
			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestAnalyzeMatch(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{"Success", `{"matchId":"m1","forceRefresh":true}`, nil, http.StatusOK, `"match_id":"m1"`},
		{"Invalid JSON", `not json`, nil, http.StatusBadRequest, "Invalid JSON"},
		{"Missing Match ID", `{"forceRefresh":true}`, nil, http.StatusBadRequest, "MatchID"},
		{"Unknown Match", `{"matchId":"nope"}`, fmt.Errorf("match nope: %w", logic.ErrNotFound), http.StatusNotFound, "not found"},
		{"Already Running", `{"matchId":"m1"}`, logic.ErrAnalysisInProgress, http.StatusInternalServerError, "in progress"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotForce bool
			analyzer := &MockAnalyzer{
				AnalyzeByIDFunc: func(ctx context.Context, matchID string, forceRefresh bool) (*models.Prediction, error) {
					gotForce = forceRefresh
					if tt.err != nil {
						return nil, tt.err
					}
					return &models.Prediction{MatchID: matchID, WinProbability: 0.6}, nil
				},
			}
			rr := do(t, newTestRouter(Config{Analyzer: analyzer}), "POST", "/api/predictions/analyze", tt.body)
			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %s", tt.expectedBody, rr.Body.String())
			}
			if tt.name == "Success" && !gotForce {
				t.Error("forceRefresh was not passed through")
			}
		})
	}
}

func TestGetMatchPrediction_NotFound(t *testing.T) {
	store := &MockStore{
		GetPredictionByMatchFunc: func(ctx context.Context, matchID string) (*models.Prediction, error) {
			return nil, fmt.Errorf("prediction for match %s: %w", matchID, logic.ErrNotFound)
		},
	}
	rr := do(t, newTestRouter(Config{Store: store}), "GET", "/api/predictions/match/m7", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestTriggerSync(t *testing.T) {
	sync := &MockSync{
		TriggerFunc: func(kind string) (string, error) {
			if kind == "weather" {
				return "", fmt.Errorf("unknown sync kind %q: %w", kind, logic.ErrInvalidInput)
			}
			return kind + " sync started", nil
		},
	}
	router := newTestRouter(Config{Sync: sync})

	rr := do(t, router, "POST", "/api/sync/players", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	var msg models.MessageResponse
	if err := json.NewDecoder(rr.Body).Decode(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Message != "players sync started" {
		t.Errorf("unexpected message %q", msg.Message)
	}

	if rr := do(t, router, "POST", "/api/sync/weather", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown kind, got %d", rr.Code)
	}
}

func TestAgentUsage(t *testing.T) {
	t.Run("ClickHouse", func(t *testing.T) {
		var window time.Duration
		usage := &MockUsage{
			AgentUsageFunc: func(ctx context.Context, since time.Time) ([]models.AgentUsage, error) {
				window = time.Since(since)
				return []models.AgentUsage{{Agent: "serve", Runs: 4}}, nil
			},
		}
		rr := do(t, newTestRouter(Config{Usage: usage}), "GET", "/api/agents/usage?hours=2", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if window < 2*time.Hour || window > 2*time.Hour+time.Minute {
			t.Errorf("unexpected window %v", window)
		}
	})

	t.Run("Redis Counters", func(t *testing.T) {
		var asked []string
		analyzer := &MockAnalyzer{
			AgentStatusesFunc: func(ctx context.Context) ([]models.AgentStatus, error) {
				return []models.AgentStatus{{Name: "serve"}, {Name: "return"}}, nil
			},
		}
		counters := &MockCounters{
			UsageFunc: func(ctx context.Context, agents []string) ([]models.AgentUsage, error) {
				asked = agents
				return []models.AgentUsage{{Agent: "serve"}, {Agent: "return"}}, nil
			},
		}
		rr := do(t, newTestRouter(Config{Analyzer: analyzer, UsageCounters: counters}), "GET", "/api/agents/usage", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if len(asked) != 2 || asked[0] != "serve" {
			t.Errorf("unexpected agents %v", asked)
		}
	})
}

func TestAgentUsageBreakdown(t *testing.T) {
	if rr := do(t, newTestRouter(Config{}), "GET", "/api/agents/usage/breakdown", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without ClickHouse, got %d", rr.Code)
	}

	var got logic.UsageQuery
	usage := &MockUsage{
		BreakdownFunc: func(ctx context.Context, req logic.UsageQuery) ([]models.UsageBucket, error) {
			got = req
			if req.Dimension == "bogus" {
				return nil, fmt.Errorf("invalid dimension: %w", logic.ErrInvalidInput)
			}
			return []models.UsageBucket{{Label: "matchup", Value: 3}}, nil
		},
	}
	router := newTestRouter(Config{Usage: usage})

	rr := do(t, router, "GET", "/api/agents/usage/breakdown?dimension=category&metric=tokens&agent=serve&limit=5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got.Dimension != "category" || got.Metric != "tokens" || got.Agent != "serve" || got.Limit != 5 {
		t.Errorf("query not passed through: %+v", got)
	}

	if rr := do(t, router, "GET", "/api/agents/usage/breakdown?dimension=bogus", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestInstallDatabase(t *testing.T) {
	migrator := &MockMigrator{
		PostgresFunc: func(ctx context.Context, fsys fs.FS, dir string) ([]string, error) {
			return nil, errors.New("permission denied")
		},
	}
	rr := do(t, newTestRouter(Config{Migrator: migrator}), "POST", "/api/system/install", "")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"postgres":"failed"`) || strings.Contains(rr.Body.String(), "permission denied") {
		t.Errorf("unexpected body %s", rr.Body.String())
	}

	rr = do(t, newTestRouter(Config{}), "POST", "/api/system/install", "")
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestSwaggerDoc(t *testing.T) {
	rr := do(t, newTestRouter(Config{}), "GET", "/api/docs/doc.json", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "/predictions/analyze") {
		t.Error("doc does not describe the analyze endpoint")
	}
}
