// Package agents implements the named analysis tasks that each judge one
// factor of a tennis match by prompting the completion API.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/courtvision/prediction-api/internal/llm"
	"github.com/courtvision/prediction-api/internal/models"
)

var tracer = otel.Tracer("github.com/courtvision/prediction-api/internal/agents")

// ErrorFactor is the factor label used when a task could not complete.
const ErrorFactor = "Analysis Error"

// StatsProvider supplies the statistics tasks put into their prompts.
// Lookups that find nothing return a nil value and a nil error.
type StatsProvider interface {
	SurfaceStats(ctx context.Context, playerID string, surface models.Surface) (*models.PlayerStat, error)
	RecentForm(ctx context.Context, playerID string, before time.Time, limit int) (*models.FormSummary, error)
	HeadToHead(ctx context.Context, player1ID, player2ID string) (*models.HeadToHead, error)
	RecentNews(ctx context.Context, playerID string, limit int) ([]models.NewsArticle, error)
}

// Input is everything a task sees about the match.
type Input struct {
	Match      *models.Match
	Player1    *models.Player
	Player2    *models.Player
	Tournament *models.Tournament
	// Prior holds records produced earlier in a sequential category.
	Prior []models.FactorAnalysis
}

// Fact is one line of side-by-side evidence.
type Fact struct {
	Label   string `json:"label"`
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
}

// Evidence is what a gatherer hands to the prompt builder.
type Evidence struct {
	Facts []Fact
	// Gap is the signed statistics difference, positive favouring player 1.
	Gap    float64
	Source string // "database", "estimate", "mixed"
	Notes  []string
}

// GatherFunc collects the evidence for one task.
type GatherFunc func(ctx context.Context, stats StatsProvider, in Input) (*Evidence, error)

// Outcome is a finished task execution.
type Outcome struct {
	Factor   models.FactorAnalysis
	Usage    llm.Usage
	Model    string
	Duration time.Duration
	// Err is the contained failure, if any. Factor is already the error record.
	Err error
}

// Analyzer runs catalog tasks against the completion API.
type Analyzer struct {
	completer llm.Completer
	stats     StatsProvider
	model     string
	logger    *zap.SugaredLogger
	gatherers map[string]GatherFunc
}

// NewAnalyzer creates an analyzer with the built-in gatherers registered.
func NewAnalyzer(completer llm.Completer, stats StatsProvider, model string, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		completer: completer,
		stats:     stats,
		model:     model,
		logger:    logger.Sugar(),
		gatherers: builtinGatherers(),
	}
}

// Supports reports whether a gatherer exists for the definition.
func (a *Analyzer) Supports(def Definition) bool {
	_, ok := a.gatherers[def.Name]
	return ok
}

// Run executes one task. It never returns an error: failures are reported
// as a zero-confidence record with Outcome.Err set.
func (a *Analyzer) Run(ctx context.Context, def Definition, in Input) (out Outcome) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "agents.run")
	span.SetAttributes(attribute.String("agent.name", def.Name), attribute.String("agent.category", def.Category))
	defer func() {
		if r := recover(); r != nil {
			a.logger.Errorw("Analysis task panic", "agent", def.Name, "error", r)
			out = failed(def, fmt.Errorf("panic: %v", r))
		}
		out.Duration = time.Since(start)
		if out.Err != nil {
			span.RecordError(out.Err)
		}
		span.End()
	}()

	gather, ok := a.gatherers[def.Name]
	if !ok {
		return failed(def, fmt.Errorf("no gatherer registered for %q", def.Name))
	}

	ev, err := gather(ctx, a.stats, in)
	if err != nil {
		a.logger.Warnw("Evidence gathering failed", "agent", def.Name, "match_id", in.Match.ID, "error", err)
		return failed(def, fmt.Errorf("gather: %w", err))
	}

	resp, err := a.completer.Complete(ctx, &llm.Request{
		System:      systemPrompt,
		Prompt:      buildPrompt(def, in, ev),
		Model:       a.model,
		Temperature: def.Temperature,
		Format:      llm.FormatJSON,
		Label:       def.Name,
	})
	if err != nil {
		return failed(def, fmt.Errorf("completion: %w", err))
	}

	factor := interpret(def, resp.Content, ev)
	factor.Analysis["model"] = resp.Model
	factor.Analysis["tokens"] = resp.Usage.TotalTokens

	return Outcome{Factor: factor, Usage: resp.Usage, Model: resp.Model}
}

// failed builds the contained error record.
func failed(def Definition, err error) Outcome {
	return Outcome{
		Factor: models.FactorAnalysis{
			Agent:      def.Name,
			Category:   def.Category,
			Factor:     ErrorFactor,
			Conclusion: fmt.Sprintf("%s analysis unavailable", def.Factor),
			Advantage:  models.AdvantageNone,
			Confidence: 0,
			Reasoning:  fmt.Sprintf("Sorry, the %s analysis could not be completed this time. It has been left out of the verdict.", strings.ToLower(def.Factor)),
			Analysis:   map[string]interface{}{"error": err.Error()},
		},
		Err: err,
	}
}

const systemPrompt = `You are a professional tennis analyst. You judge exactly one factor of a match from the data you are given.
Answer with a JSON object: {"advantage": "player1" | "player2" | "slight_player1" | "slight_player2" | "none", "conclusion": "<one sentence>", "reasoning": "<two to four sentences>"}.
Start the reasoning with one marker: **Advantage Player 1**, **Advantage Player 2**, **Slight Advantage Player 1**, **Slight Advantage Player 2** or **No Clear Advantage**.`

func buildPrompt(def Definition, in Input, ev *Evidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match: %s (Player 1) vs %s (Player 2)\n", in.Player1.Name, in.Player2.Name)
	fmt.Fprintf(&b, "Surface: %s\n", in.Match.Surface)
	if in.Tournament != nil {
		fmt.Fprintf(&b, "Tournament: %s (%s, %s)\n", in.Tournament.Name, in.Tournament.Category, in.Tournament.Location)
	}
	if in.Match.Round != "" {
		fmt.Fprintf(&b, "Round: %s\n", in.Match.Round)
	}
	fmt.Fprintf(&b, "\nFactor: %s\nRubric: %s\n\nData (Player 1 | Player 2):\n", def.Factor, def.Rubric)
	for _, f := range ev.Facts {
		fmt.Fprintf(&b, "- %s: %s | %s\n", f.Label, f.Player1, f.Player2)
	}
	if ev.Source == "estimate" {
		b.WriteString("(Some figures are estimates derived from ranking and fitness.)\n")
	}
	for _, n := range ev.Notes {
		fmt.Fprintf(&b, "Note: %s\n", n)
	}
	if len(in.Prior) > 0 {
		b.WriteString("\nEarlier findings:\n")
		for _, p := range in.Prior {
			fmt.Fprintf(&b, "- %s: %s (%s, confidence %.2f)\n", p.Factor, p.Conclusion, p.Advantage, p.Confidence)
		}
	}
	return b.String()
}

// interpret turns a completion reply into a factor record. The JSON contract
// is tried first, then the marker pattern, then "no advantage".
func interpret(def Definition, content string, ev *Evidence) models.FactorAnalysis {
	factor := models.FactorAnalysis{
		Agent:    def.Name,
		Category: def.Category,
		Factor:   def.Factor,
		Analysis: map[string]interface{}{
			"facts":  ev.Facts,
			"gap":    ev.Gap,
			"source": ev.Source,
		},
	}

	var reply models.FactorReply
	parsed := false
	if raw := extractJSON(content); raw != "" {
		if err := json.Unmarshal([]byte(raw), &reply); err == nil {
			if adv, ok := normalizeAdvantage(reply.Advantage); ok {
				factor.Advantage = adv
				factor.Conclusion = strings.TrimSpace(reply.Conclusion)
				factor.Reasoning = strings.TrimSpace(reply.Reasoning)
				parsed = true
			}
		}
	}
	if !parsed {
		factor.Advantage = ParseAdvantageMarker(content)
		factor.Reasoning = strings.TrimSpace(content)
		factor.Analysis["contract_violation"] = true
	}
	if factor.Conclusion == "" {
		factor.Conclusion = defaultConclusion(def, factor.Advantage)
	}

	if factor.Advantage == models.AdvantageNone {
		factor.Confidence = def.Confidence.Min
	} else {
		factor.Confidence = def.Confidence.Apply(ev.Gap)
	}
	return factor
}

var (
	slightMarker   = regexp.MustCompile(`(?i)\*\*\s*slight advantage player\s*([12])\s*\*\*`)
	advantageMark  = regexp.MustCompile(`(?i)\*\*\s*advantage player\s*([12])\s*\*\*`)
	noClearMarker  = regexp.MustCompile(`(?i)\*\*\s*no clear advantage\s*\*\*`)
	advantageAlias = map[string]models.Advantage{
		"player1":            models.AdvantagePlayer1,
		"player_1":           models.AdvantagePlayer1,
		"p1":                 models.AdvantagePlayer1,
		"player2":            models.AdvantagePlayer2,
		"player_2":           models.AdvantagePlayer2,
		"p2":                 models.AdvantagePlayer2,
		"slight_player1":     models.AdvantageSlightPlayer1,
		"slight_player_1":    models.AdvantageSlightPlayer1,
		"slight_player2":     models.AdvantageSlightPlayer2,
		"slight_player_2":    models.AdvantageSlightPlayer2,
		"none":               models.AdvantageNone,
		"no_clear_advantage": models.AdvantageNone,
		"even":               models.AdvantageNone,
	}
)

// ParseAdvantageMarker reads the **Advantage Player N** style markers. When
// several markers appear the first one wins. Text without a marker yields
// AdvantageNone.
func ParseAdvantageMarker(text string) models.Advantage {
	best := -1
	result := models.AdvantageNone

	consider := func(loc []int, adv models.Advantage) {
		if loc != nil && (best < 0 || loc[0] < best) {
			best = loc[0]
			result = adv
		}
	}

	if loc := slightMarker.FindStringSubmatchIndex(text); loc != nil {
		adv := models.AdvantageSlightPlayer1
		if text[loc[2]:loc[3]] == "2" {
			adv = models.AdvantageSlightPlayer2
		}
		consider(loc, adv)
	}
	if loc := advantageMark.FindStringSubmatchIndex(text); loc != nil {
		adv := models.AdvantagePlayer1
		if text[loc[2]:loc[3]] == "2" {
			adv = models.AdvantagePlayer2
		}
		consider(loc, adv)
	}
	consider(noClearMarker.FindStringIndex(text), models.AdvantageNone)

	return result
}

func normalizeAdvantage(s string) (models.Advantage, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	adv, ok := advantageAlias[key]
	return adv, ok
}

// extractJSON returns the outermost {...} span, tolerating code fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func defaultConclusion(def Definition, adv models.Advantage) string {
	switch adv.Favors() {
	case 1:
		return def.Factor + " favours Player 1"
	case 2:
		return def.Factor + " favours Player 2"
	}
	return "No clear edge on " + strings.ToLower(def.Factor)
}
