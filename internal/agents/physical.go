package agents

import (
	"context"
	"strconv"
	"time"
)

func gatherFitness(ctx context.Context, sp StatsProvider, in Input) (*Evidence, error) {
	n1, n2, err := newsPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	f1, f2, src, err := formPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	ref := in.Match.ScheduledAt
	if ref.IsZero() {
		ref = time.Now()
	}
	layoff := func(d int) string {
		if d < 0 {
			return "unknown"
		}
		return strconv.Itoa(d) + " days"
	}
	return &Evidence{
		Facts: []Fact{
			fact("Fitness estimate (0-100)", num(in.Player1.Fitness), num(in.Player2.Fitness)),
			fact("Injury-related headlines", strconv.Itoa(n1.Injury), strconv.Itoa(n2.Injury)),
			fact("Time since last match", layoff(daysSince(f1.LastPlayed, ref)), layoff(daysSince(f2.LastPlayed, ref))),
		},
		Gap:    (in.Player1.Fitness-in.Player2.Fitness)/100 - 0.1*float64(n1.Injury-n2.Injury),
		Source: src,
	}, nil
}

func gatherFatigue(ctx context.Context, sp StatsProvider, in Input) (*Evidence, error) {
	f1, f2, src, err := formPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	ref := in.Match.ScheduledAt
	if ref.IsZero() {
		ref = time.Now()
	}
	ev := &Evidence{
		Facts: []Fact{
			fact("Matches in last 14 days", strconv.Itoa(f1.MatchesLast14), strconv.Itoa(f2.MatchesLast14)),
			fact("Days since last match", strconv.Itoa(daysSince(f1.LastPlayed, ref)), strconv.Itoa(daysSince(f2.LastPlayed, ref))),
		},
		// The lighter workload is the advantage.
		Gap:    float64(f2.MatchesLast14 - f1.MatchesLast14),
		Source: src,
	}
	if f1.LastPlayed == nil || f2.LastPlayed == nil {
		ev.Notes = append(ev.Notes, "A negative day count means no recent match is on record.")
	}
	return ev, nil
}

// peakDistance is how far a player is from the usual peak-age window.
func peakDistance(age int) float64 {
	switch {
	case age <= 0:
		return 0
	case age < 23:
		return float64(23 - age)
	case age > 30:
		return float64(age - 30)
	}
	return 0
}

func gatherAgeExperience(_ context.Context, _ StatsProvider, in Input) (*Evidence, error) {
	age := func(a int) string {
		if a <= 0 {
			return "unknown"
		}
		return strconv.Itoa(a)
	}
	src := sourceDatabase
	if in.Player1.Age <= 0 || in.Player2.Age <= 0 {
		src = sourceMixed
	}
	return &Evidence{
		Facts: []Fact{
			fact("Age", age(in.Player1.Age), age(in.Player2.Age)),
			fact("Years from peak window", num(peakDistance(in.Player1.Age)), num(peakDistance(in.Player2.Age))),
			fact("Ranking points (experience proxy)", strconv.Itoa(in.Player1.RankingPoints), strconv.Itoa(in.Player2.RankingPoints)),
		},
		Gap:    peakDistance(in.Player2.Age) - peakDistance(in.Player1.Age) + 0.5*sign(float64(in.Player1.RankingPoints-in.Player2.RankingPoints)),
		Source: src,
	}, nil
}
