package ai

import (
	"github.com/rumbidzaim/habitpulse-backend/internal/trend"
)

// staticSuggestions is the fallback message table, keyed by (trend type,
// category). Used whenever generation fails or times out — a detected trend
// always produces a proactive message, AI or not.
var staticSuggestions = map[trend.Type]map[trend.Category]string{
	trend.TypeNegativeStreak: {
		trend.CategoryDiet:       "Your diet scores have dipped over the last few days. Small changes add up: try planning tomorrow's meals tonight, and lean on your care plan for ideas.",
		trend.CategoryExercise:   "Your exercise scores have been low for a few days in a row. Even a short walk counts. Pick one easy activity from your care plan and give it ten minutes today.",
		trend.CategoryMedication: "Your medication scores have slipped recently. A daily reminder at a fixed time can help. If something is making your medication routine hard, let your care team know.",
	},
	trend.TypePositiveStreak: {
		trend.CategoryDiet:       "You have kept your diet scores high for days in a row. That kind of consistency is exactly what your care plan is built on. Keep it going!",
		trend.CategoryExercise:   "Great streak! Your exercise scores have stayed high day after day. Momentum like this is hard-won, so keep doing what is working.",
		trend.CategoryMedication: "Your medication routine has been rock solid for days running. Staying this consistent is one of the best things you can do for your health. Well done!",
	},
}

// StaticSuggestion returns the templated fallback sentence for a trend.
// Every (type, category) combination is covered; an unknown pair (which would
// indicate a bug elsewhere) gets a generic but still useful message.
func StaticSuggestion(t trend.Type, c trend.Category) string {
	if byCategory, ok := staticSuggestions[t]; ok {
		if msg, ok := byCategory[c]; ok {
			return msg
		}
	}
	return "We noticed a change in your recent scores. Take a look at your care plan and keep tracking every day."
}
