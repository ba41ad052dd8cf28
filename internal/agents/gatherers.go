package agents

func builtinGatherers() map[string]GatherFunc {
	return map[string]GatherFunc{
		// performance
		"serve":        gatherServe,
		"return":       gatherReturn,
		"ranking_form": gatherRankingForm,
		"recent_form":  gatherRecentForm,
		// physical
		"fitness":        gatherFitness,
		"fatigue":        gatherFatigue,
		"age_experience": gatherAgeExperience,
		// mental
		"pressure":   gatherPressure,
		"momentum":   gatherMomentum,
		"confidence": gatherConfidence,
		// contextual
		"surface":  gatherSurface,
		"weather":  gatherWeather,
		"venue":    gatherVenue,
		"schedule": gatherSchedule,
		// matchup
		"head_to_head":  gatherHeadToHead,
		"style_matchup": gatherStyleMatchup,
		"tactical":      gatherTactical,
		// external
		"news_sentiment": gatherNewsSentiment,
		"crowd_support":  gatherCrowdSupport,
		"motivation":     gatherMotivation,
	}
}
