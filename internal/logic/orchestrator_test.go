package logic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/courtvision/prediction-api/internal/agents"
	"github.com/courtvision/prediction-api/internal/llm"
	"github.com/courtvision/prediction-api/internal/models"
)

// MockRepository is an in-memory PredictionRepository
type MockRepository struct {
	mu          sync.Mutex
	Matches     map[string]*models.Match
	Players     map[string]*models.Player
	Predictions map[string]*models.Prediction
	SaveCalls   int
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		Matches: map[string]*models.Match{
			"m1": {ID: "m1", Player1ID: "p-a", Player2ID: "p-b", Surface: models.SurfaceHard, ScheduledAt: time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)},
			"m2": {ID: "m2", Player1ID: "p-a", Player2ID: "ghost", Surface: models.SurfaceHard},
		},
		Players: map[string]*models.Player{
			"p-a": {ID: "p-a", Name: "Alpha", Ranking: 2, Age: 25, Fitness: 88, PlayingStyle: "aggressive_baseliner"},
			"p-b": {ID: "p-b", Name: "Bravo", Ranking: 30, Age: 29, Fitness: 80, PlayingStyle: "counterpuncher"},
		},
		Predictions: map[string]*models.Prediction{},
	}
}

func (m *MockRepository) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	if match, ok := m.Matches[id]; ok {
		return match, nil
	}
	return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
}

func (m *MockRepository) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	if p, ok := m.Players[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("player %s: %w", id, ErrNotFound)
}

func (m *MockRepository) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	return nil, ErrNotFound
}

func (m *MockRepository) GetPredictionByMatch(ctx context.Context, matchID string) (*models.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Predictions[matchID]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

func (m *MockRepository) SavePrediction(ctx context.Context, p *models.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	p.ID = "pred-" + p.MatchID
	m.Predictions[p.MatchID] = p
	return nil
}

// MockRunner implements TaskRunner
type MockRunner struct {
	RunFunc func(ctx context.Context, def agents.Definition, in agents.Input) agents.Outcome
}

func (m *MockRunner) Run(ctx context.Context, def agents.Definition, in agents.Input) agents.Outcome {
	return m.RunFunc(ctx, def, in)
}

// MockBroadcaster records broadcasts
type MockBroadcaster struct {
	mu     sync.Mutex
	Events []string
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, channel string, payload interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := payload.(models.AnalysisEvent); ok {
		m.Events = append(m.Events, channel+":"+ev.Event)
	}
}

// MockSink records analytics events
type MockSink struct {
	mu     sync.Mutex
	Events []*models.AgentEvent
}

func (m *MockSink) Enqueue(ev *models.AgentEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
	return true
}

// emptyStats satisfies agents.StatsProvider with no rows at all
type emptyStats struct{}

func (emptyStats) SurfaceStats(ctx context.Context, id string, s models.Surface) (*models.PlayerStat, error) {
	return nil, nil
}
func (emptyStats) RecentForm(ctx context.Context, id string, before time.Time, limit int) (*models.FormSummary, error) {
	return nil, nil
}
func (emptyStats) HeadToHead(ctx context.Context, a, b string) (*models.HeadToHead, error) {
	return nil, nil
}
func (emptyStats) RecentNews(ctx context.Context, id string, limit int) ([]models.NewsArticle, error) {
	return nil, nil
}

func TestAnalyzeMatch_FullRun(t *testing.T) {
	repo := newMockRepository()
	var mu sync.Mutex
	prompts := map[string]string{}
	completer := llm.CompleterFunc(func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		mu.Lock()
		prompts[req.Label] = req.Prompt
		mu.Unlock()
		if req.Label == "synthesis" {
			// Force the fallback path.
			return nil, errors.New("synthesis offline")
		}
		if req.Label == "weather" {
			return nil, errors.New("rate limited")
		}
		return &llm.Response{Content: `{"advantage": "player1", "conclusion": "Alpha ahead", "reasoning": "**Advantage Player 1**"}`,
			Usage: llm.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120}}, nil
	})

	catalog := agents.DefaultCatalog()
	status := NewMemoryStatusStore()
	status.Init(context.Background(), AgentRefs(catalog))
	bc := &MockBroadcaster{}
	sink := &MockSink{}

	o := NewOrchestrator(OrchestratorConfig{
		Store:       repo,
		Runner:      agents.NewAnalyzer(completer, emptyStats{}, "m", nil),
		Catalog:     catalog,
		Synthesizer: NewSynthesizer(completer, "m", nil),
		Status:      status,
		Broadcaster: bc,
		Events:      sink,
		Timeout:     time.Minute,
		MaxParallel: 4,
	})

	pred, err := o.AnalyzeByID(context.Background(), "m1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pred.Factors) != 20 {
		t.Fatalf("expected 20 factors, got %d", len(pred.Factors))
	}
	want := catalog.Tasks()
	for i, f := range pred.Factors {
		if f.Agent != want[i].Name {
			t.Errorf("factor %d: expected %s, got %s", i, want[i].Name, f.Agent)
		}
	}
	if pred.PredictedWinnerID != "p-a" || pred.Source != models.SynthesisFallback {
		t.Errorf("unexpected verdict %s / %s", pred.PredictedWinnerID, pred.Source)
	}
	// 19 votes for player 1, the failed weather task votes for no one.
	if pred.WinProbability != 0.9 {
		t.Errorf("expected clamped probability 0.9, got %v", pred.WinProbability)
	}
	if repo.SaveCalls != 1 {
		t.Errorf("expected one save, got %d", repo.SaveCalls)
	}
	if len(sink.Events) != 20 {
		t.Errorf("expected 20 analytics events, got %d", len(sink.Events))
	}

	// Later matchup tasks see earlier findings.
	if !strings.Contains(prompts["tactical"], "Earlier findings") || !strings.Contains(prompts["tactical"], "Style Matchup") {
		t.Errorf("tactical prompt lacks prior findings:\n%s", prompts["tactical"])
	}
	if strings.Contains(prompts["head_to_head"], "Earlier findings") {
		t.Error("first matchup task should not see prior findings")
	}

	statuses, _ := o.AgentStatuses(context.Background())
	for _, st := range statuses {
		want := models.AgentActive
		if st.Name == "weather" {
			want = models.AgentError
		}
		if st.Status != want {
			t.Errorf("%s: expected %s, got %s", st.Name, want, st.Status)
		}
	}

	if len(bc.Events) != 4 || bc.Events[0] != "match:m1:analysis_started" || bc.Events[3] != "analysis:analysis_completed" {
		t.Errorf("unexpected broadcasts %v", bc.Events)
	}
}

func TestAnalyzeByID_ReturnsStored(t *testing.T) {
	repo := newMockRepository()
	repo.Predictions["m1"] = &models.Prediction{ID: "old", MatchID: "m1"}
	var ran atomic.Bool
	o := NewOrchestrator(OrchestratorConfig{
		Store: repo,
		Runner: &MockRunner{RunFunc: func(ctx context.Context, def agents.Definition, in agents.Input) agents.Outcome {
			ran.Store(true)
			return agents.Outcome{}
		}},
	})

	pred, err := o.AnalyzeByID(context.Background(), "m1", false)
	if err != nil || pred.ID != "old" {
		t.Fatalf("expected stored prediction, got %+v, %v", pred, err)
	}
	if ran.Load() {
		t.Error("tasks ran although a prediction was stored")
	}

	pred, err = o.AnalyzeByID(context.Background(), "m1", true)
	if err != nil {
		t.Fatal(err)
	}
	if !ran.Load() || pred.ID != "pred-m1" {
		t.Error("forceRefresh did not rerun the analysis")
	}
}

func TestAnalyzeByID_NotFound(t *testing.T) {
	o := NewOrchestrator(OrchestratorConfig{Store: newMockRepository(), Runner: &MockRunner{}})

	if _, err := o.AnalyzeByID(context.Background(), "nope", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing match: expected ErrNotFound, got %v", err)
	}
	if _, err := o.AnalyzeByID(context.Background(), "m2", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing player: expected ErrNotFound, got %v", err)
	}
	if _, err := o.AnalyzeByID(context.Background(), "", false); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty id: expected ErrInvalidInput, got %v", err)
	}
}

func TestAnalyzeMatch_ConcurrentConflict(t *testing.T) {
	repo := newMockRepository()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	o := NewOrchestrator(OrchestratorConfig{
		Store: repo,
		Runner: &MockRunner{RunFunc: func(ctx context.Context, def agents.Definition, in agents.Input) agents.Outcome {
			once.Do(func() { close(started) })
			<-release
			return agents.Outcome{Factor: models.FactorAnalysis{Agent: def.Name, Advantage: models.AdvantageNone}}
		}},
	})

	match := repo.Matches["m1"]
	done := make(chan error, 1)
	go func() {
		_, err := o.AnalyzeMatch(context.Background(), match)
		done <- err
	}()

	<-started
	if _, err := o.AnalyzeMatch(context.Background(), match); !errors.Is(err, ErrAnalysisInProgress) {
		t.Errorf("expected ErrAnalysisInProgress, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Lock released after the run.
	if _, err := o.AnalyzeMatch(context.Background(), match); err != nil {
		t.Errorf("rerun after completion failed: %v", err)
	}
}

func TestAnalyzeMatch_Timeout(t *testing.T) {
	repo := newMockRepository()
	bc := &MockBroadcaster{}
	o := NewOrchestrator(OrchestratorConfig{
		Store:       repo,
		Broadcaster: bc,
		Timeout:     20 * time.Millisecond,
		Runner: &MockRunner{RunFunc: func(ctx context.Context, def agents.Definition, in agents.Input) agents.Outcome {
			<-ctx.Done()
			return agents.Outcome{Err: ctx.Err()}
		}},
	})

	_, err := o.AnalyzeMatch(context.Background(), repo.Matches["m1"])
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if repo.SaveCalls != 0 {
		t.Error("nothing should be saved after a timeout")
	}
	if got := bc.Events[len(bc.Events)-1]; got != "analysis:analysis_failed" {
		t.Errorf("expected failure broadcast, got %s", got)
	}
}

func TestAnalyzeMatch_CallerCancelDoesNotAbortRun(t *testing.T) {
	repo := newMockRepository()
	bc := &MockBroadcaster{}
	o := NewOrchestrator(OrchestratorConfig{
		Store:       repo,
		Broadcaster: bc,
		Timeout:     5 * time.Second,
		Runner: &MockRunner{RunFunc: func(ctx context.Context, def agents.Definition, in agents.Input) agents.Outcome {
			select {
			case <-time.After(100 * time.Millisecond):
			case <-ctx.Done():
				return agents.Outcome{Err: ctx.Err()}
			}
			return agents.Outcome{Factor: models.FactorAnalysis{Agent: def.Name, Advantage: models.AdvantagePlayer1, Confidence: 0.8}}
		}},
	})

	// The caller gives up long before the tasks finish.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	pred, err := o.AnalyzeMatch(ctx, repo.Matches["m1"])
	if err != nil {
		t.Fatalf("run aborted with caller context: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("caller context should have expired during the run")
	}
	if repo.SaveCalls != 1 || pred.PredictedWinnerID != "p-a" {
		t.Errorf("expected saved prediction for p-a, got saves=%d winner=%s", repo.SaveCalls, pred.PredictedWinnerID)
	}
	if got := bc.Events[len(bc.Events)-1]; got != "analysis:analysis_completed" {
		t.Errorf("expected completion broadcast, got %s", got)
	}
}
