package logic

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/courtvision/prediction-api/internal/llm"
	"github.com/courtvision/prediction-api/internal/models"
)

var (
	alpha = &models.Player{ID: "p-a", Name: "Alpha", Ranking: 12}
	bravo = &models.Player{ID: "p-b", Name: "Bravo", Ranking: 4}
)

func votes(advs ...models.Advantage) []models.FactorAnalysis {
	out := make([]models.FactorAnalysis, len(advs))
	for i, a := range advs {
		out[i] = models.FactorAnalysis{Agent: "a", Factor: string(a), Advantage: a, Confidence: 0.6}
	}
	return out
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestFallbackSynthesis_Majority(t *testing.T) {
	factors := votes(models.AdvantagePlayer1, models.AdvantagePlayer1, models.AdvantagePlayer2)

	got := FallbackSynthesis(alpha, bravo, factors)
	if got.WinnerID != alpha.ID {
		t.Errorf("expected %s, got %s", alpha.ID, got.WinnerID)
	}
	if !almostEqual(got.WinProbability, 0.55) {
		t.Errorf("expected probability 0.55, got %v", got.WinProbability)
	}
	if got.ConfidenceLevel != 0.75 {
		t.Errorf("expected confidence 0.75, got %v", got.ConfidenceLevel)
	}
	if got.Source != models.SynthesisFallback {
		t.Errorf("expected fallback source, got %q", got.Source)
	}

	again := FallbackSynthesis(alpha, bravo, factors)
	if again.WinnerID != got.WinnerID || again.WinProbability != got.WinProbability || again.Reasoning != got.Reasoning {
		t.Error("fallback is not deterministic")
	}
}

func TestFallbackSynthesis_SlightCountsAsVote(t *testing.T) {
	factors := votes(models.AdvantageSlightPlayer2, models.AdvantageSlightPlayer2, models.AdvantageNone, models.AdvantagePlayer1)
	got := FallbackSynthesis(alpha, bravo, factors)
	if got.WinnerID != bravo.ID {
		t.Errorf("expected %s, got %s", bravo.ID, got.WinnerID)
	}
	if !almostEqual(got.WinProbability, 0.55) {
		t.Errorf("expected 0.55, got %v", got.WinProbability)
	}
}

func TestFallbackSynthesis_Clamped(t *testing.T) {
	var advs []models.Advantage
	for i := 0; i < 20; i++ {
		advs = append(advs, models.AdvantagePlayer1)
	}
	got := FallbackSynthesis(alpha, bravo, votes(advs...))
	if got.WinProbability != 0.9 {
		t.Errorf("expected clamp at 0.9, got %v", got.WinProbability)
	}
	if len(got.KeyFactors) != maxKeyFactors {
		t.Errorf("expected %d key factors, got %d", maxKeyFactors, len(got.KeyFactors))
	}
}

func TestFallbackSynthesis_Empty(t *testing.T) {
	got := FallbackSynthesis(alpha, bravo, nil)
	// Bravo holds the better ranking.
	if got.WinnerID != bravo.ID {
		t.Errorf("expected better-ranked %s, got %s", bravo.ID, got.WinnerID)
	}
	if got.WinProbability != 0.5 || got.ConfidenceLevel != 0 {
		t.Errorf("expected 0.5 / 0, got %v / %v", got.WinProbability, got.ConfidenceLevel)
	}

	unranked := FallbackSynthesis(&models.Player{ID: "x"}, &models.Player{ID: "y"}, nil)
	if unranked.WinnerID != "x" {
		t.Errorf("expected player 1 by convention, got %s", unranked.WinnerID)
	}
}

func TestFallbackSynthesis_Tie(t *testing.T) {
	got := FallbackSynthesis(alpha, bravo, votes(models.AdvantagePlayer1, models.AdvantagePlayer2, models.AdvantageNone))
	if got.WinnerID != bravo.ID || got.WinProbability != 0.5 || got.ConfidenceLevel != 0.75 {
		t.Errorf("unexpected tie verdict %+v", got)
	}
}

func TestSynthesize_LLM(t *testing.T) {
	completer := llm.CompleterFunc(func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		if req.Format != llm.FormatJSON {
			t.Errorf("expected JSON format")
		}
		return &llm.Response{Content: `{"predicted_winner": "2", "win_probability": "68%", "confidence": 0.7, "reasoning": "Bravo is stronger.", "key_factors": ["Serve Performance"]}`}, nil
	})
	s := NewSynthesizer(completer, "m", nil)

	got := s.Synthesize(context.Background(), &models.Match{ID: "m1"}, alpha, bravo, votes(models.AdvantagePlayer2))
	if got.Source != models.SynthesisLLM {
		t.Fatalf("expected llm source, got %q (%s)", got.Source, got.Reasoning)
	}
	if got.WinnerID != bravo.ID || !almostEqual(got.WinProbability, 0.68) {
		t.Errorf("unexpected verdict %+v", got)
	}
}

func TestSynthesize_FallsBack(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
	}{
		{"call error", "", errors.New("boom")},
		{"not json", "I think player one wins.", nil},
		{"probability below half", `{"predicted_winner": 1, "win_probability": 0.3, "confidence": 0.5, "reasoning": "x"}`, nil},
		{"bad winner", `{"predicted_winner": 3, "win_probability": 0.6, "confidence": 0.5, "reasoning": "x"}`, nil},
		{"missing reasoning", `{"predicted_winner": 1, "win_probability": 0.6, "confidence": 0.5}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := llm.CompleterFunc(func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return &llm.Response{Content: tt.content}, nil
			})
			s := NewSynthesizer(completer, "m", nil)
			got := s.Synthesize(context.Background(), &models.Match{ID: "m1"}, alpha, bravo, votes(models.AdvantagePlayer1))
			if got.Source != models.SynthesisFallback {
				t.Errorf("expected fallback, got %q", got.Source)
			}
			if got.WinnerID != alpha.ID {
				t.Errorf("expected fallback winner %s, got %s", alpha.ID, got.WinnerID)
			}
		})
	}
}
