package models

import "time"

// Advantage is the categorical output of an analysis task
type Advantage string

const (
	AdvantagePlayer1       Advantage = "player1"
	AdvantagePlayer2       Advantage = "player2"
	AdvantageNone          Advantage = "none"
	AdvantageSlightPlayer1 Advantage = "slight_player1"
	AdvantageSlightPlayer2 Advantage = "slight_player2"
)

// Favors reports which player (1 or 2) the advantage leans to, 0 for none
func (a Advantage) Favors() int {
	switch a {
	case AdvantagePlayer1, AdvantageSlightPlayer1:
		return 1
	case AdvantagePlayer2, AdvantageSlightPlayer2:
		return 2
	}
	return 0
}

// Valid reports whether a is one of the known advantage values
func (a Advantage) Valid() bool {
	switch a {
	case AdvantagePlayer1, AdvantagePlayer2, AdvantageNone, AdvantageSlightPlayer1, AdvantageSlightPlayer2:
		return true
	}
	return false
}

// FactorAnalysis is one task's verdict on a single dimension of the match
type FactorAnalysis struct {
	Agent      string                 `json:"agent"`
	Category   string                 `json:"category"`
	Factor     string                 `json:"factor"`
	Conclusion string                 `json:"conclusion"`
	Advantage  Advantage              `json:"advantage"`
	Confidence float64                `json:"confidence"` // 0..1
	Reasoning  string                 `json:"reasoning"`
	Analysis   map[string]interface{} `json:"analysis,omitempty"`
}

// SynthesisSource records how the final verdict was produced
type SynthesisSource string

const (
	SynthesisLLM      SynthesisSource = "llm"
	SynthesisFallback SynthesisSource = "fallback"
)

// Prediction is the synthesized forecast for a match
type Prediction struct {
	ID                string                 `json:"id"`
	MatchID           string                 `json:"match_id"`
	PredictedWinnerID string                 `json:"predicted_winner_id"`
	WinProbability    float64                `json:"win_probability"`
	ConfidenceLevel   float64                `json:"confidence_level"`
	Factors           []FactorAnalysis       `json:"factors"`
	Reasoning         string                 `json:"reasoning"`
	KeyFactors        []string               `json:"key_factors"`
	CategoryOutputs   map[string]interface{} `json:"category_outputs,omitempty"`
	Source            SynthesisSource        `json:"synthesis_source"`
	CreatedAt         time.Time              `json:"created_at"`
}

// Synthesis is the synthesizer's verdict before it is bound to a match row
type Synthesis struct {
	WinnerID        string          `json:"winner_id"`
	WinProbability  float64         `json:"win_probability"`
	ConfidenceLevel float64         `json:"confidence_level"`
	Reasoning       string          `json:"reasoning"`
	KeyFactors      []string        `json:"key_factors"`
	Source          SynthesisSource `json:"source"`
}

// SynthesisReply is the structured answer requested from the completion API
type SynthesisReply struct {
	PredictedWinner int      `json:"predicted_winner" validate:"oneof=1 2"`
	WinProbability  float64  `json:"win_probability" validate:"gte=0.5,lte=1"`
	Confidence      float64  `json:"confidence" validate:"gte=0,lte=1"`
	Reasoning       string   `json:"reasoning" validate:"required"`
	KeyFactors      []string `json:"key_factors"`
}

// FactorReply is the structured answer requested from each analysis task
type FactorReply struct {
	Advantage  string `json:"advantage"`
	Conclusion string `json:"conclusion"`
	Reasoning  string `json:"reasoning"`
}
