// Package trend implements streak detection over a patient's daily self-score
// history. It is intentionally dependency-free: it imports nothing from
// internal/ and can be tested without a database.
package trend

import (
	"math"
	"time"
)

// ─── CONSTANTS ────────────────────────────────────────────────────────────────

const (
	// minHistory is the smallest history that can yield any trend at all.
	// Fewer entries than this and Analyze returns nil unconditionally.
	minHistory = 3

	// negativeThreshold / negativeMinStreak: a run of consecutive most-recent
	// scores all <= negativeThreshold becomes a negative streak once it is at
	// least negativeMinStreak long.
	negativeThreshold = 6
	negativeMinStreak = 3

	// positiveThreshold / positiveMinStreak: same shape for positive streaks.
	// The positive bar is deliberately higher — we celebrate sustained effort,
	// not a good couple of days.
	positiveThreshold = 8
	positiveMinStreak = 5
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Category identifies one of the three daily self-score channels. String
// values match the Postgres enum and the JSON wire format.
type Category string

const (
	CategoryDiet       Category = "diet"
	CategoryExercise   Category = "exercise"
	CategoryMedication Category = "medication"
)

// Type classifies a detected streak.
type Type string

const (
	TypeNegativeStreak Type = "negative_streak"
	TypePositiveStreak Type = "positive_streak"
)

// Entry is one day's submission as seen by the analyzer. Histories handed to
// Analyze must be chronological, oldest first, with the just-saved submission
// as the final element.
type Entry struct {
	Date       time.Time
	Diet       int
	Exercise   int
	Medication int
}

// Score returns the value for the given category.
func (e Entry) Score(c Category) int {
	switch c {
	case CategoryDiet:
		return e.Diet
	case CategoryExercise:
		return e.Exercise
	default:
		return e.Medication
	}
}

// Result is the single trend reported for a submission. It is transient —
// computed per analysis call and never persisted.
type Result struct {
	Type         Type
	Category     Category
	StreakLength int
	CurrentScore int     // most recent score in the streaking category
	AverageScore float64 // mean over the entire history, 1 decimal place
}

// ─── PRIORITY TABLE ───────────────────────────────────────────────────────────

// categoryPriority is the explicit tie-break order when more than one category
// has a qualifying streak of the same type. Negative streaks always beat
// positive streaks regardless of category; within a type, lower priority value
// wins. This ordering is a product decision (intervene on diet problems first,
// medication last) rather than an accident of iteration order — change it here
// and nowhere else.
var categoryPriority = []Category{
	CategoryDiet,
	CategoryExercise,
	CategoryMedication,
}

// ─── ANALYSIS ─────────────────────────────────────────────────────────────────

// Analyze scans a chronological history and returns at most one Result.
//
// Negative streaks (consecutive most-recent scores <= 6, length >= 3) take
// priority over positive streaks (consecutive most-recent scores >= 8,
// length >= 5). Within the same type, categories are considered in
// categoryPriority order and the first qualifying one wins.
//
// Histories shorter than three entries never produce a trend.
func Analyze(history []Entry) *Result {
	if len(history) < minHistory {
		return nil
	}

	for _, c := range categoryPriority {
		if n := streakLen(history, c, func(s int) bool { return s <= negativeThreshold }); n >= negativeMinStreak {
			return buildResult(history, c, TypeNegativeStreak, n)
		}
	}

	for _, c := range categoryPriority {
		if n := streakLen(history, c, func(s int) bool { return s >= positiveThreshold }); n >= positiveMinStreak {
			return buildResult(history, c, TypePositiveStreak, n)
		}
	}

	return nil
}

// streakLen counts how many consecutive entries, scanning backward from the
// most recent, satisfy the predicate for the given category.
func streakLen(history []Entry, c Category, match func(int) bool) int {
	n := 0
	for i := len(history) - 1; i >= 0; i-- {
		if !match(history[i].Score(c)) {
			break
		}
		n++
	}
	return n
}

func buildResult(history []Entry, c Category, t Type, length int) *Result {
	return &Result{
		Type:         t,
		Category:     c,
		StreakLength: length,
		CurrentScore: history[len(history)-1].Score(c),
		AverageScore: average(history, c),
	}
}

// average computes the mean score across the entire supplied history — not
// just the streak window — rounded to one decimal place.
func average(history []Entry, c Category) float64 {
	total := 0
	for _, e := range history {
		total += e.Score(c)
	}
	mean := float64(total) / float64(len(history))
	return math.Round(mean*10) / 10
}
