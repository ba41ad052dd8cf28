package agents

import (
	"context"
	"fmt"

	"github.com/courtvision/prediction-api/internal/models"
)

// styleEdges holds the edge the first style has over the second.
var styleEdges = map[[2]string]float64{
	{"aggressive_baseliner", "counterpuncher"}:   0.1,
	{"counterpuncher", "serve_and_volley"}:       0.15,
	{"serve_and_volley", "aggressive_baseliner"}: 0.1,
	{"big_server", "counterpuncher"}:             0.05,
	{"all_court", "big_server"}:                  0.1,
	{"aggressive_baseliner", "all_court"}:        0.05,
}

func styleEdge(a, b string) float64 {
	if e, ok := styleEdges[[2]string{a, b}]; ok {
		return e
	}
	if e, ok := styleEdges[[2]string{b, a}]; ok {
		return -e
	}
	return 0
}

func gatherHeadToHead(ctx context.Context, sp StatsProvider, in Input) (*Evidence, error) {
	h2h, err := sp.HeadToHead(ctx, in.Player1.ID, in.Player2.ID)
	if err != nil {
		return nil, fmt.Errorf("head to head: %w", err)
	}
	if h2h == nil {
		return &Evidence{
			Facts:  []Fact{fact("Previous meetings", "0", "0")},
			Source: sourceDatabase,
			Notes:  []string{"The players have never met."},
		}, nil
	}

	// Records are stored with the lexically smaller id first.
	w1, w2 := h2h.Player1Wins, h2h.Player2Wins
	if h2h.Player1ID != in.Player1.ID {
		w1, w2 = w2, w1
	}
	last := "none"
	switch h2h.LastWinner {
	case in.Player1.ID:
		last = "Player 1"
	case in.Player2.ID:
		last = "Player 2"
	}
	var gap float64
	if total := w1 + w2; total > 0 {
		gap = float64(w1-w2) / float64(total)
	}
	return &Evidence{
		Facts: []Fact{
			fact("Head-to-head wins", fmt.Sprintf("%d", w1), fmt.Sprintf("%d", w2)),
			fact("Last meeting won by", last, last),
		},
		Gap:    gap,
		Source: sourceDatabase,
	}, nil
}

func gatherStyleMatchup(_ context.Context, _ StatsProvider, in Input) (*Evidence, error) {
	edge := styleEdge(in.Player1.PlayingStyle, in.Player2.PlayingStyle)
	gap := edge + 0.2*priorLean(in.Prior)
	return &Evidence{
		Facts: []Fact{
			fact("Playing style", orUnknown(in.Player1.PlayingStyle), orUnknown(in.Player2.PlayingStyle)),
			fact("Handedness", orUnknown(in.Player1.Hand), orUnknown(in.Player2.Hand)),
			fact("Style edge", fmt.Sprintf("%+.2f", edge), fmt.Sprintf("%+.2f", -edge)),
		},
		Gap:    gap,
		Source: sourceEstimate,
	}, nil
}

func gatherTactical(_ context.Context, _ StatsProvider, in Input) (*Evidence, error) {
	ev := &Evidence{
		Facts: []Fact{
			fact("Playing style", orUnknown(in.Player1.PlayingStyle), orUnknown(in.Player2.PlayingStyle)),
			fact("Surface", string(in.Match.Surface), string(in.Match.Surface)),
		},
		Gap:    0.5 * priorLean(in.Prior),
		Source: sourceEstimate,
	}
	if len(in.Prior) == 0 {
		ev.Notes = append(ev.Notes, "No earlier matchup findings are available.")
	}
	return ev, nil
}

// priorLean sums earlier verdicts weighted by confidence, positive favouring
// player 1.
func priorLean(prior []models.FactorAnalysis) float64 {
	var lean float64
	for _, p := range prior {
		switch p.Advantage.Favors() {
		case 1:
			lean += p.Confidence
		case 2:
			lean -= p.Confidence
		}
	}
	return lean
}
