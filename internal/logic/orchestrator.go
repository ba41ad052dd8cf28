package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/courtvision/prediction-api/internal/agents"
	"github.com/courtvision/prediction-api/internal/models"
)

var (
	agentRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courtvision_agent_runs_total",
		Help: "Analysis task executions by outcome",
	}, []string{"agent", "outcome"})

	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "courtvision_analysis_duration_seconds",
		Help:    "Wall time of a full match analysis",
		Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60, 120, 300},
	}, []string{"outcome"})

	analysesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "courtvision_analyses_in_flight",
		Help: "Match analyses currently running",
	})
)

const defaultAnalysisTimeout = 3 * time.Minute

var tracer = otel.Tracer("github.com/courtvision/prediction-api/internal/logic")

// PredictionRepository is the persistence the orchestrator needs.
type PredictionRepository interface {
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	GetTournament(ctx context.Context, id string) (*models.Tournament, error)
	GetPredictionByMatch(ctx context.Context, matchID string) (*models.Prediction, error)
	SavePrediction(ctx context.Context, p *models.Prediction) error
}

// TaskRunner executes one catalog task. *agents.Analyzer implements it.
type TaskRunner interface {
	Run(ctx context.Context, def agents.Definition, in agents.Input) agents.Outcome
}

// Broadcaster pushes a payload to realtime subscribers of a channel.
type Broadcaster interface {
	Broadcast(ctx context.Context, channel string, payload interface{})
}

// EventSink receives one analytics event per task execution.
type EventSink interface {
	Enqueue(event *models.AgentEvent) bool
}

type OrchestratorConfig struct {
	Store       PredictionRepository
	Runner      TaskRunner
	Catalog     *agents.Catalog
	Synthesizer *Synthesizer
	Status      StatusStore
	Lock        RunLock
	Broadcaster Broadcaster // optional
	Events      EventSink   // optional
	Timeout     time.Duration
	MaxParallel int
	Logger      *zap.Logger
}

// Orchestrator fans a match out to every analysis task and fans the records
// back in to a synthesized prediction.
type Orchestrator struct {
	store       PredictionRepository
	runner      TaskRunner
	catalog     *agents.Catalog
	synthesizer *Synthesizer
	status      StatusStore
	lock        RunLock
	broadcaster Broadcaster
	events      EventSink
	timeout     time.Duration
	maxParallel int
	logger      *zap.SugaredLogger
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = agents.DefaultCatalog()
	}
	if cfg.Status == nil {
		cfg.Status = NewMemoryStatusStore()
	}
	if cfg.Lock == nil {
		cfg.Lock = NewMemoryRunLock()
	}
	if cfg.Synthesizer == nil {
		cfg.Synthesizer = NewSynthesizer(nil, "", cfg.Logger)
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultAnalysisTimeout
	}
	return &Orchestrator{
		store:       cfg.Store,
		runner:      cfg.Runner,
		catalog:     cfg.Catalog,
		synthesizer: cfg.Synthesizer,
		status:      cfg.Status,
		lock:        cfg.Lock,
		broadcaster: cfg.Broadcaster,
		events:      cfg.Events,
		timeout:     cfg.Timeout,
		maxParallel: cfg.MaxParallel,
		logger:      cfg.Logger.Sugar(),
	}
}

// AgentRefs lists the catalog tasks for StatusStore.Init.
func AgentRefs(c *agents.Catalog) []AgentRef {
	var refs []AgentRef
	for _, def := range c.Tasks() {
		refs = append(refs, AgentRef{Name: def.Name, Category: def.Category})
	}
	return refs
}

// AgentStatuses returns the live status of every task.
func (o *Orchestrator) AgentStatuses(ctx context.Context) ([]models.AgentStatus, error) {
	return o.status.List(ctx)
}

// AnalyzeByID loads a match and analyzes it. A stored prediction is returned
// as is unless forceRefresh is set.
func (o *Orchestrator) AnalyzeByID(ctx context.Context, matchID string, forceRefresh bool) (*models.Prediction, error) {
	if matchID == "" {
		return nil, fmt.Errorf("match id: %w", ErrInvalidInput)
	}
	match, err := o.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !forceRefresh {
		existing, err := o.store.GetPredictionByMatch(ctx, matchID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return o.AnalyzeMatch(ctx, match)
}

// AnalyzeMatch runs every catalog task for the match, synthesizes a verdict
// and stores it. A second call for a match already in flight fails with
// ErrAnalysisInProgress. Once started, the run is bounded by the configured
// timeout only; cancelling ctx does not abort it.
func (o *Orchestrator) AnalyzeMatch(ctx context.Context, match *models.Match) (*models.Prediction, error) {
	p1, err := o.store.GetPlayer(ctx, match.Player1ID)
	if err != nil {
		return nil, fmt.Errorf("player 1: %w", err)
	}
	p2, err := o.store.GetPlayer(ctx, match.Player2ID)
	if err != nil {
		return nil, fmt.Errorf("player 2: %w", err)
	}
	var tournament *models.Tournament
	if match.TournamentID != nil {
		tournament, err = o.store.GetTournament(ctx, *match.TournamentID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	release, ok, err := o.lock.Acquire(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("match %s: %w", match.ID, ErrAnalysisInProgress)
	}
	defer release()

	// Keep trace and request values but outlive a disconnected caller.
	ctx = context.WithoutCancel(ctx)

	runID := uuid.NewString()
	start := time.Now()
	analysesInFlight.Inc()
	defer analysesInFlight.Dec()

	ctx, span := tracer.Start(ctx, "logic.analyze_match")
	span.SetAttributes(attribute.String("match.id", match.ID), attribute.String("run.id", runID))
	defer span.End()

	o.logger.Infow("Analysis started", "match_id", match.ID, "run_id", runID)
	o.announce(ctx, match.ID, models.AnalysisEvent{Event: models.EventAnalysisStarted, MatchID: match.ID, RunID: runID})

	pred, err := o.run(ctx, runID, match, p1, p2, tournament)
	if err != nil {
		span.RecordError(err)
		analysisDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		o.logger.Errorw("Analysis failed", "match_id", match.ID, "run_id", runID, "error", err)
		o.announce(ctx, match.ID, models.AnalysisEvent{Event: models.EventAnalysisFailed, MatchID: match.ID, RunID: runID, Error: err.Error()})
		return nil, err
	}

	analysisDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	o.logger.Infow("Analysis completed",
		"match_id", match.ID,
		"run_id", runID,
		"winner", pred.PredictedWinnerID,
		"probability", pred.WinProbability,
		"source", pred.Source,
		"duration", time.Since(start),
	)
	o.announce(ctx, match.ID, models.AnalysisEvent{Event: models.EventAnalysisCompleted, MatchID: match.ID, RunID: runID, Prediction: pred})
	return pred, nil
}

func (o *Orchestrator) run(ctx context.Context, runID string, match *models.Match, p1, p2 *models.Player, tournament *models.Tournament) (*models.Prediction, error) {
	runCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	base := agents.Input{Match: match, Player1: p1, Player2: p2, Tournament: tournament}
	categories := o.catalog.Categories
	results := make([][]models.FactorAnalysis, len(categories))

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(o.maxParallel)
	for ci, cat := range categories {
		results[ci] = make([]models.FactorAnalysis, len(cat.Tasks))
		if cat.Sequential {
			g.Go(func() error {
				var prior []models.FactorAnalysis
				for ti, def := range cat.Tasks {
					in := base
					in.Prior = prior
					f, err := o.runTask(gctx, runID, def, in)
					if err != nil {
						return err
					}
					results[ci][ti] = f
					prior = append(prior, f)
				}
				return nil
			})
			continue
		}
		for ti, def := range cat.Tasks {
			g.Go(func() error {
				f, err := o.runTask(gctx, runID, def, base)
				results[ci][ti] = f
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis run: %w", err)
	}

	var factors []models.FactorAnalysis
	outputs := make(map[string]interface{}, len(categories))
	for ci, cat := range categories {
		factors = append(factors, results[ci]...)
		outputs[cat.Name] = summariseCategory(results[ci])
	}

	synth := o.synthesizer.Synthesize(runCtx, match, p1, p2, factors)
	pred := &models.Prediction{
		MatchID:           match.ID,
		PredictedWinnerID: synth.WinnerID,
		WinProbability:    synth.WinProbability,
		ConfidenceLevel:   synth.ConfidenceLevel,
		Factors:           factors,
		Reasoning:         synth.Reasoning,
		KeyFactors:        synth.KeyFactors,
		CategoryOutputs:   outputs,
		Source:            synth.Source,
	}
	if err := o.store.SavePrediction(ctx, pred); err != nil {
		return nil, err
	}
	return pred, nil
}

// runTask executes one task with status bookkeeping. It only returns an error
// when the run itself was cancelled.
func (o *Orchestrator) runTask(ctx context.Context, runID string, def agents.Definition, in agents.Input) (models.FactorAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return models.FactorAnalysis{}, err
	}
	if err := o.status.Start(ctx, def.Name); err != nil {
		o.logger.Warnw("Failed to update agent status", "agent", def.Name, "error", err)
	}

	out := o.runner.Run(ctx, def, in)

	outcome := "ok"
	if out.Err != nil {
		outcome = "error"
		o.logger.Warnw("Analysis task failed", "agent", def.Name, "match_id", in.Match.ID, "error", out.Err)
		if err := o.status.Fail(ctx, def.Name, out.Err); err != nil {
			o.logger.Warnw("Failed to update agent status", "agent", def.Name, "error", err)
		}
	} else if err := o.status.Succeed(ctx, def.Name, out.Factor.Confidence); err != nil {
		o.logger.Warnw("Failed to update agent status", "agent", def.Name, "error", err)
	}
	agentRunsTotal.WithLabelValues(def.Name, outcome).Inc()

	if o.events != nil {
		o.events.Enqueue(&models.AgentEvent{
			Timestamp:        time.Now().UTC(),
			RunID:            runID,
			MatchID:          in.Match.ID,
			Agent:            def.Name,
			Category:         def.Category,
			Status:           outcome,
			Advantage:        out.Factor.Advantage,
			Confidence:       out.Factor.Confidence,
			DurationMs:       uint32(out.Duration.Milliseconds()),
			PromptTokens:     uint32(out.Usage.PromptTokens),
			CompletionTokens: uint32(out.Usage.CompletionTokens),
			Model:            out.Model,
		})
	}

	if err := ctx.Err(); err != nil {
		return out.Factor, err
	}
	return out.Factor, nil
}

func (o *Orchestrator) announce(ctx context.Context, matchID string, ev models.AnalysisEvent) {
	if o.broadcaster == nil {
		return
	}
	o.broadcaster.Broadcast(ctx, models.MatchChannel(matchID), ev)
	o.broadcaster.Broadcast(ctx, models.ChannelAnalysis, ev)
}

// summariseCategory is the per-category vote tally stored with a prediction.
func summariseCategory(factors []models.FactorAnalysis) map[string]interface{} {
	var v1, v2, failed int
	var conf float64
	agentsRun := make([]string, 0, len(factors))
	for _, f := range factors {
		agentsRun = append(agentsRun, f.Agent)
		conf += f.Confidence
		if f.Factor == agents.ErrorFactor {
			failed++
		}
		switch f.Advantage.Favors() {
		case 1:
			v1++
		case 2:
			v2++
		}
	}
	avg := 0.0
	if len(factors) > 0 {
		avg = conf / float64(len(factors))
	}
	return map[string]interface{}{
		"agents":         agentsRun,
		"player1_votes":  v1,
		"player2_votes":  v2,
		"failed":         failed,
		"avg_confidence": avg,
	}
}
