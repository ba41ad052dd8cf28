package agents

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/courtvision/prediction-api/internal/models"
)

func gatherNewsSentiment(ctx context.Context, sp StatsProvider, in Input) (*Evidence, error) {
	n1, n2, err := newsPair(ctx, sp, in)
	if err != nil {
		return nil, err
	}
	headlines := func(d newsDigest) string {
		if len(d.Headlines) == 0 {
			return "no recent coverage"
		}
		return strings.Join(d.Headlines, " / ")
	}
	src := sourceDatabase
	if n1.Count == 0 && n2.Count == 0 {
		src = sourceEstimate
	}
	return &Evidence{
		Facts: []Fact{
			fact("Articles", strconv.Itoa(n1.Count), strconv.Itoa(n2.Count)),
			fact("Average sentiment", fmt.Sprintf("%.2f", n1.Sentiment), fmt.Sprintf("%.2f", n2.Sentiment)),
			fact("Injury mentions", strconv.Itoa(n1.Injury), strconv.Itoa(n2.Injury)),
			fact("Headlines", headlines(n1), headlines(n2)),
		},
		Gap:    n1.Sentiment - n2.Sentiment,
		Source: src,
	}, nil
}

// isHome reports whether the venue is in the player's country. Locations
// are stored as "City, CCC".
func isHome(p *models.Player, t *models.Tournament) bool {
	if t == nil || p.Nationality == "" {
		return false
	}
	loc := strings.ToUpper(strings.TrimSpace(t.Location))
	return strings.HasSuffix(loc, strings.ToUpper(p.Nationality))
}

func gatherCrowdSupport(_ context.Context, _ StatsProvider, in Input) (*Evidence, error) {
	h1, h2 := isHome(in.Player1, in.Tournament), isHome(in.Player2, in.Tournament)
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}
	var gap float64
	if h1 {
		gap++
	}
	if h2 {
		gap--
	}
	location := "unknown"
	if in.Tournament != nil {
		location = orUnknown(in.Tournament.Location)
	}
	return &Evidence{
		Facts: []Fact{
			fact("Nationality", orUnknown(in.Player1.Nationality), orUnknown(in.Player2.Nationality)),
			fact("Playing at home", yesNo(h1), yesNo(h2)),
			fact("Venue", location, location),
		},
		Gap:    gap,
		Source: sourceDatabase,
	}, nil
}

var categoryPrestige = map[string]float64{
	"grand_slam":   1.0,
	"masters_1000": 0.8,
	"atp_500":      0.6,
	"atp_250":      0.4,
	"challenger":   0.2,
}

func gatherMotivation(_ context.Context, _ StatsProvider, in Input) (*Evidence, error) {
	category := "unknown"
	prestige := 0.5
	if in.Tournament != nil {
		category = orUnknown(in.Tournament.Category)
		if p, ok := categoryPrestige[in.Tournament.Category]; ok {
			prestige = p
		}
	}
	// The lower-ranked player has more to gain, more so at bigger events.
	gap := (strength(in.Player2) - strength(in.Player1)) * prestige
	return &Evidence{
		Facts: []Fact{
			fact("Event category", category, category),
			fact("Ranking points", strconv.Itoa(in.Player1.RankingPoints), strconv.Itoa(in.Player2.RankingPoints)),
			fact("Ranking strength (0-1)", fmt.Sprintf("%.2f", strength(in.Player1)), fmt.Sprintf("%.2f", strength(in.Player2))),
		},
		Gap:    gap,
		Source: sourceEstimate,
	}, nil
}
