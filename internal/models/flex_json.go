package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UnmarshalJSON accepts the loose shapes models tend to answer with: quoted
// numbers ("0.62"), percentages ("62%"), a named winner ("Player 2") and a
// single key factor given as a plain string.
func (r *SynthesisReply) UnmarshalJSON(data []byte) error {
	type Alias SynthesisReply
	a := (*Alias)(r)

	// Fast path: the reply already has the requested types.
	if err := json.Unmarshal(data, a); err == nil {
		return nil
	}

	var raw struct {
		PredictedWinner json.RawMessage `json:"predicted_winner"`
		WinProbability  json.RawMessage `json:"win_probability"`
		Confidence      json.RawMessage `json:"confidence"`
		Reasoning       json.RawMessage `json:"reasoning"`
		KeyFactors      json.RawMessage `json:"key_factors"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("flex unmarshal: %w", err)
	}

	if s, ok := flexString(raw.PredictedWinner); ok {
		digits := strings.TrimLeftFunc(s, func(c rune) bool { return c < '0' || c > '9' })
		if n, err := strconv.ParseFloat(digits, 64); err == nil {
			r.PredictedWinner = int(n)
		}
	}
	if f, ok := flexFraction(raw.WinProbability); ok {
		r.WinProbability = f
	}
	if f, ok := flexFraction(raw.Confidence); ok {
		r.Confidence = f
	}
	if s, ok := flexString(raw.Reasoning); ok {
		r.Reasoning = s
	}
	if len(raw.KeyFactors) > 0 {
		var list []string
		if err := json.Unmarshal(raw.KeyFactors, &list); err == nil {
			r.KeyFactors = list
		} else if s, ok := flexString(raw.KeyFactors); ok && s != "" {
			r.KeyFactors = []string{s}
		}
	}
	return nil
}

// flexString returns a JSON string or number as trimmed text.
func flexString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// flexFraction reads 0.62, "0.62" or "62%" as 0.62.
func flexFraction(raw json.RawMessage) (float64, bool) {
	s, ok := flexString(raw)
	if !ok || s == "" {
		return 0, false
	}
	scale := 1.0
	if strings.HasSuffix(s, "%") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		scale = 100
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f / scale, true
}
