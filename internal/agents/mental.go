package agents

import (
	"context"
	"fmt"
	"strconv"
)

func gatherPressure(ctx context.Context, sp StatsProvider, in Input) (*Evidence, error) {
	s1, s2, src, err := statsPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	tb := func(won, played int) float64 {
		if played == 0 {
			return 0.5
		}
		return float64(won) / float64(played)
	}
	tb1, tb2 := tb(s1.TiebreaksWon, s1.TiebreaksPlayed), tb(s2.TiebreaksWon, s2.TiebreaksPlayed)
	return &Evidence{
		Facts: []Fact{
			fact("Break points saved", pct(s1.BreakPointsSavedPct), pct(s2.BreakPointsSavedPct)),
			fact("Tiebreaks won", fmt.Sprintf("%d/%d", s1.TiebreaksWon, s1.TiebreaksPlayed), fmt.Sprintf("%d/%d", s2.TiebreaksWon, s2.TiebreaksPlayed)),
		},
		Gap:    (s1.BreakPointsSavedPct - s2.BreakPointsSavedPct) + 0.5*(tb1-tb2),
		Source: src,
	}, nil
}

func gatherMomentum(ctx context.Context, sp StatsProvider, in Input) (*Evidence, error) {
	f1, f2, src, err := formPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	streak := func(n int) string {
		switch {
		case n > 0:
			return fmt.Sprintf("won last %d", n)
		case n < 0:
			return fmt.Sprintf("lost last %d", -n)
		}
		return "no streak"
	}
	return &Evidence{
		Facts: []Fact{
			fact("Streak", streak(f1.Streak), streak(f2.Streak)),
			fact("Recent W-L", fmt.Sprintf("%d-%d", f1.Won, f1.Played-f1.Won), fmt.Sprintf("%d-%d", f2.Won, f2.Played-f2.Won)),
		},
		Gap:    float64(f1.Streak - f2.Streak),
		Source: src,
	}, nil
}

func gatherConfidence(ctx context.Context, sp StatsProvider, in Input) (*Evidence, error) {
	f1, f2, src, err := formPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	n1, n2, err := newsPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	return &Evidence{
		Facts: []Fact{
			fact("Recent win rate", pct(f1.WinRate()), pct(f2.WinRate())),
			fact("News sentiment (-1..1)", fmt.Sprintf("%.2f", n1.Sentiment), fmt.Sprintf("%.2f", n2.Sentiment)),
			fact("Articles considered", strconv.Itoa(n1.Count), strconv.Itoa(n2.Count)),
		},
		Gap:    (f1.WinRate() - f2.WinRate()) + 0.3*(n1.Sentiment-n2.Sentiment),
		Source: src,
	}, nil
}
