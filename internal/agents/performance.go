package agents

import (
	"context"
	"fmt"
	"strconv"
)

func gatherServe(ctx context.Context, sp StatsProvider, in Input) (*Evidence, error) {
	s1, s2, src, err := statsPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	serveIndex := func(first, second float64) float64 { return 0.4*first + 0.6*second }
	return &Evidence{
		Facts: []Fact{
			fact("First serve in", pct(s1.FirstServePct), pct(s2.FirstServePct)),
			fact("First serve points won", pct(s1.FirstServeWonPct), pct(s2.FirstServeWonPct)),
			fact("Second serve points won", pct(s1.SecondServeWonPct), pct(s2.SecondServeWonPct)),
			fact("Aces per match", num(s1.AcesPerMatch), num(s2.AcesPerMatch)),
			fact("Double faults per match", num(s1.DoubleFaultsPerMatch), num(s2.DoubleFaultsPerMatch)),
		},
		Gap:    serveIndex(s1.FirstServeWonPct, s1.SecondServeWonPct) - serveIndex(s2.FirstServeWonPct, s2.SecondServeWonPct),
		Source: src,
	}, nil
}

func gatherReturn(ctx context.Context, sp StatsProvider, in Input) (*Evidence, error) {
	s1, s2, src, err := statsPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	return &Evidence{
		Facts: []Fact{
			fact("Return points won", pct(s1.ReturnPointsWonPct), pct(s2.ReturnPointsWonPct)),
			fact("Break points converted", pct(s1.BreakPointsConvPct), pct(s2.BreakPointsConvPct)),
			fact("Opponent first serve points won", pct(s2.FirstServeWonPct), pct(s1.FirstServeWonPct)),
		},
		Gap:    (s1.ReturnPointsWonPct - s2.ReturnPointsWonPct) + 0.5*(s1.BreakPointsConvPct-s2.BreakPointsConvPct),
		Source: src,
	}, nil
}

func gatherRankingForm(ctx context.Context, sp StatsProvider, in Input) (*Evidence, error) {
	s1, s2, src, err := statsPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	rank := func(r int) string {
		if r <= 0 {
			return "unranked"
		}
		return "#" + strconv.Itoa(r)
	}
	return &Evidence{
		Facts: []Fact{
			fact("Ranking", rank(in.Player1.Ranking), rank(in.Player2.Ranking)),
			fact("Ranking points", strconv.Itoa(in.Player1.RankingPoints), strconv.Itoa(in.Player2.RankingPoints)),
			fact(fmt.Sprintf("Win rate on %s", in.Match.Surface), pct(s1.WinRate()), pct(s2.WinRate())),
			fact("Matches on surface", strconv.Itoa(s1.MatchesPlayed), strconv.Itoa(s2.MatchesPlayed)),
		},
		Gap:    0.5*(strength(in.Player1)-strength(in.Player2)) + (s1.WinRate() - s2.WinRate()),
		Source: src,
	}, nil
}

func gatherRecentForm(ctx context.Context, sp StatsProvider, in Input) (*Evidence, error) {
	f1, f2, src, err := formPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	record := func(won, played int) string { return fmt.Sprintf("%d-%d", won, played-won) }
	return &Evidence{
		Facts: []Fact{
			fact("Last matches W-L", record(f1.Won, f1.Played), record(f2.Won, f2.Played)),
			fact("Recent win rate", pct(f1.WinRate()), pct(f2.WinRate())),
			fact("Current streak", strconv.Itoa(f1.Streak), strconv.Itoa(f2.Streak)),
		},
		Gap:    f1.WinRate() - f2.WinRate(),
		Source: src,
	}, nil
}
