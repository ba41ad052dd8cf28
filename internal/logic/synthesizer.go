package logic

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/courtvision/prediction-api/internal/llm"
	"github.com/courtvision/prediction-api/internal/models"
)

const (
	fallbackConfidence = 0.75
	maxKeyFactors      = 3
)

// Synthesizer turns the factor records of a run into one verdict.
type Synthesizer struct {
	completer llm.Completer
	model     string
	validate  *validator.Validate
	logger    *zap.SugaredLogger
}

// NewSynthesizer creates a synthesizer. A nil completer always uses the
// majority-vote fallback.
func NewSynthesizer(completer llm.Completer, model string, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		completer: completer,
		model:     model,
		validate:  validator.New(),
		logger:    logger.Sugar(),
	}
}

// Synthesize asks the completion API for a verdict and falls back to a
// majority vote on any failure. It never returns an error.
func (s *Synthesizer) Synthesize(ctx context.Context, match *models.Match, p1, p2 *models.Player, factors []models.FactorAnalysis) models.Synthesis {
	if s.completer == nil || len(factors) == 0 {
		return FallbackSynthesis(p1, p2, factors)
	}

	resp, err := s.completer.Complete(ctx, &llm.Request{
		System:      synthesisSystemPrompt,
		Prompt:      buildSynthesisPrompt(match, p1, p2, factors),
		Model:       s.model,
		Temperature: 0.2,
		Format:      llm.FormatJSON,
		Label:       "synthesis",
	})
	if err != nil {
		s.logger.Warnw("Synthesis call failed, using fallback", "match_id", match.ID, "error", err)
		return FallbackSynthesis(p1, p2, factors)
	}

	var reply models.SynthesisReply
	if err := json.Unmarshal([]byte(extractObject(resp.Content)), &reply); err != nil {
		s.logger.Warnw("Synthesis reply is not JSON, using fallback", "match_id", match.ID, "error", err)
		return FallbackSynthesis(p1, p2, factors)
	}
	if err := s.validate.Struct(reply); err != nil {
		s.logger.Warnw("Synthesis reply failed validation, using fallback", "match_id", match.ID, "error", err)
		return FallbackSynthesis(p1, p2, factors)
	}

	winner := p1
	if reply.PredictedWinner == 2 {
		winner = p2
	}
	keys := reply.KeyFactors
	if len(keys) == 0 {
		keys = keyFactors(factors, winnerSide(winner, p1))
	}
	return models.Synthesis{
		WinnerID:        winner.ID,
		WinProbability:  reply.WinProbability,
		ConfidenceLevel: reply.Confidence,
		Reasoning:       strings.TrimSpace(reply.Reasoning),
		KeyFactors:      keys,
		Source:          models.SynthesisLLM,
	}
}

// FallbackSynthesis is the deterministic majority vote. Slight advantages
// count as a full vote. With no factors or a tie the better-ranked player is
// picked at even odds.
func FallbackSynthesis(p1, p2 *models.Player, factors []models.FactorAnalysis) models.Synthesis {
	var v1, v2 int
	for _, f := range factors {
		switch f.Advantage.Favors() {
		case 1:
			v1++
		case 2:
			v2++
		}
	}

	out := models.Synthesis{Source: models.SynthesisFallback}
	switch {
	case len(factors) == 0:
		w := favourite(p1, p2)
		out.WinnerID = w.ID
		out.WinProbability = 0.5
		out.ConfidenceLevel = 0
		out.KeyFactors = []string{}
		out.Reasoning = fmt.Sprintf("Fallback consensus: no factor analyses were available, so %s is picked on ranking at even odds.", w.Name)
		return out
	case v1 == v2:
		w := favourite(p1, p2)
		out.WinnerID = w.ID
		out.WinProbability = 0.5
		out.ConfidenceLevel = fallbackConfidence
		out.KeyFactors = keyFactors(factors, winnerSide(w, p1))
		out.Reasoning = fmt.Sprintf("Fallback consensus: the factors are split %d to %d, so %s is picked on ranking at even odds.", v1, v2, w.Name)
		return out
	}

	winner, side, votes, against := p1, 1, v1, v2
	if v2 > v1 {
		winner, side, votes, against = p2, 2, v2, v1
	}
	out.WinnerID = winner.ID
	out.WinProbability = clampFloat(0.5+0.05*math.Abs(float64(v1-v2)), 0.5, 0.9)
	out.ConfidenceLevel = fallbackConfidence
	out.KeyFactors = keyFactors(factors, side)
	out.Reasoning = fmt.Sprintf("Fallback consensus: %d of %d factors favour %s (%d favour the opponent).",
		votes, len(factors), winner.Name, against)
	return out
}

// favourite returns the better-ranked player, player 1 when unknown or equal.
func favourite(p1, p2 *models.Player) *models.Player {
	if p2.Ranking > 0 && (p1.Ranking <= 0 || p2.Ranking < p1.Ranking) {
		return p2
	}
	return p1
}

func winnerSide(winner, p1 *models.Player) int {
	if winner.ID == p1.ID {
		return 1
	}
	return 2
}

// keyFactors lists the most confident factor labels backing a side.
func keyFactors(factors []models.FactorAnalysis, side int) []string {
	backing := make([]models.FactorAnalysis, 0, len(factors))
	for _, f := range factors {
		if f.Advantage.Favors() == side {
			backing = append(backing, f)
		}
	}
	sort.SliceStable(backing, func(i, j int) bool { return backing[i].Confidence > backing[j].Confidence })

	keys := make([]string, 0, maxKeyFactors)
	for _, f := range backing {
		if len(keys) == maxKeyFactors {
			break
		}
		keys = append(keys, f.Factor)
	}
	return keys
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

const synthesisSystemPrompt = `You are the lead analyst of a tennis prediction desk. You receive factor-by-factor findings and give the final call.
Answer with a JSON object: {"predicted_winner": 1 | 2, "win_probability": <0.5 to 1.0>, "confidence": <0.0 to 1.0>, "reasoning": "<three to five sentences>", "key_factors": ["<factor>", ...]}.
Weigh each finding by its confidence. Findings with confidence 0 failed and must be ignored.`

func buildSynthesisPrompt(match *models.Match, p1, p2 *models.Player, factors []models.FactorAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match: %s (Player 1, rank %d) vs %s (Player 2, rank %d) on %s\n\nFindings:\n",
		p1.Name, p1.Ranking, p2.Name, p2.Ranking, match.Surface)
	for _, f := range factors {
		fmt.Fprintf(&b, "- [%s] %s: %s | advantage %s | confidence %.2f\n",
			f.Category, f.Factor, f.Conclusion, f.Advantage, f.Confidence)
	}
	return b.String()
}
