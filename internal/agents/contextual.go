package agents

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/courtvision/prediction-api/internal/models"
)

func gatherSurface(ctx context.Context, sp StatsProvider, in Input) (*Evidence, error) {
	s1, s2, src, err := statsPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	fit1 := styleSurfaceFit(in.Player1.PlayingStyle, in.Match.Surface)
	fit2 := styleSurfaceFit(in.Player2.PlayingStyle, in.Match.Surface)
	return &Evidence{
		Facts: []Fact{
			fact(fmt.Sprintf("Win rate on %s", in.Match.Surface), pct(s1.WinRate()), pct(s2.WinRate())),
			fact("Playing style", orUnknown(in.Player1.PlayingStyle), orUnknown(in.Player2.PlayingStyle)),
			fact("Style fit for surface", fmt.Sprintf("%+.2f", fit1), fmt.Sprintf("%+.2f", fit2)),
		},
		Gap:    (s1.WinRate() - s2.WinRate()) + (fit1 - fit2),
		Source: src,
	}, nil
}

func gatherWeather(_ context.Context, _ StatsProvider, in Input) (*Evidence, error) {
	indoor := in.Tournament != nil && in.Tournament.Indoor
	month := in.Match.ScheduledAt.Month()
	hot := !indoor && month >= time.June && month <= time.August

	var gap float64
	var notes []string
	if indoor {
		notes = append(notes, "Indoor event: no wind, quicker conditions.")
		if isBigServer(in.Player1) {
			gap += 0.05
		}
		if isBigServer(in.Player2) {
			gap -= 0.05
		}
	}
	if hot {
		notes = append(notes, "Summer outdoor event: heat favours the fitter player.")
		gap += (in.Player1.Fitness - in.Player2.Fitness) / 200
	}
	conditions := "outdoor"
	if indoor {
		conditions = "indoor"
	}
	return &Evidence{
		Facts: []Fact{
			fact("Conditions", conditions, conditions),
			fact("Month", month.String(), month.String()),
			fact("Fitness estimate", num(in.Player1.Fitness), num(in.Player2.Fitness)),
			fact("Playing style", orUnknown(in.Player1.PlayingStyle), orUnknown(in.Player2.PlayingStyle)),
		},
		Gap:    gap,
		Source: sourceEstimate,
		Notes:  notes,
	}, nil
}

func gatherVenue(ctx context.Context, sp StatsProvider, in Input) (*Evidence, error) {
	s1, s2, src, err := statsPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	altitude, location := 0, "unknown"
	if in.Tournament != nil {
		altitude, location = in.Tournament.Altitude, orUnknown(in.Tournament.Location)
	}
	// Altitude amplifies the serving gap.
	factor := float64(altitude) / 1000
	return &Evidence{
		Facts: []Fact{
			fact("Venue", location, location),
			fact("Altitude (m)", strconv.Itoa(altitude), strconv.Itoa(altitude)),
			fact("Aces per match", num(s1.AcesPerMatch), num(s2.AcesPerMatch)),
		},
		Gap:    factor * (s1.AcesPerMatch - s2.AcesPerMatch) / 10,
		Source: src,
	}, nil
}

// bestOf infers the match format from the tournament category.
func bestOf(t *models.Tournament) int {
	if t != nil && t.Category == "grand_slam" {
		return 5
	}
	return 3
}

func gatherSchedule(ctx context.Context, sp StatsProvider, in Input) (*Evidence, error) {
	f1, f2, src, err := formPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	ref := in.Match.ScheduledAt
	if ref.IsZero() {
		ref = time.Now()
	}
	rest := func(f models.FormSummary) int {
		d := daysSince(f.LastPlayed, ref)
		if d < 0 || d > 3 {
			return 3
		}
		return d
	}
	r1, r2 := rest(f1), rest(f2)
	return &Evidence{
		Facts: []Fact{
			fact("Round", orUnknown(in.Match.Round), orUnknown(in.Match.Round)),
			fact("Format", fmt.Sprintf("best of %d", bestOf(in.Tournament)), fmt.Sprintf("best of %d", bestOf(in.Tournament))),
			fact("Rest days (capped at 3)", strconv.Itoa(r1), strconv.Itoa(r2)),
		},
		Gap:    float64(r1 - r2),
		Source: src,
	}, nil
}
