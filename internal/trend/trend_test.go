package trend_test

import (
	"testing"
	"time"

	"github.com/rumbidzaim/habitpulse-backend/internal/trend"
)

// historyFor builds a chronological history where one category carries the
// given scores and the other two sit at a neutral 7 (no streak either way).
func historyFor(c trend.Category, scores ...int) []trend.Entry {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := make([]trend.Entry, len(scores))
	for i, s := range scores {
		e := trend.Entry{Date: base.AddDate(0, 0, i), Diet: 7, Exercise: 7, Medication: 7}
		switch c {
		case trend.CategoryDiet:
			e.Diet = s
		case trend.CategoryExercise:
			e.Exercise = s
		case trend.CategoryMedication:
			e.Medication = s
		}
		entries[i] = e
	}
	return entries
}

// ─── MINIMUM HISTORY ─────────────────────────────────────────────────────────

func TestAnalyze_TooFewEntries(t *testing.T) {
	for _, scores := range [][]int{{}, {3}, {3, 3}} {
		if got := trend.Analyze(historyFor(trend.CategoryDiet, scores...)); got != nil {
			t.Errorf("history of %d entries: expected nil, got %+v", len(scores), got)
		}
	}
}

// ─── NEGATIVE STREAKS ────────────────────────────────────────────────────────

func TestAnalyze_NegativeStreak(t *testing.T) {
	// [8,5,5,5]: the last three diet scores are all <= 6.
	got := trend.Analyze(historyFor(trend.CategoryDiet, 8, 5, 5, 5))
	if got == nil {
		t.Fatal("expected a trend, got nil")
	}
	if got.Type != trend.TypeNegativeStreak {
		t.Errorf("type = %q, want negative_streak", got.Type)
	}
	if got.Category != trend.CategoryDiet {
		t.Errorf("category = %q, want diet", got.Category)
	}
	if got.StreakLength != 3 {
		t.Errorf("streak length = %d, want 3", got.StreakLength)
	}
	if got.CurrentScore != 5 {
		t.Errorf("current score = %d, want 5", got.CurrentScore)
	}
	// Average is over all four entries: (8+5+5+5)/4 = 5.75, rounded to 5.8.
	if got.AverageScore != 5.8 {
		t.Errorf("average = %v, want 5.8", got.AverageScore)
	}
}

func TestAnalyze_NegativeStreakBrokenByGoodDay(t *testing.T) {
	// Most recent score breaks the run, so no streak of 3 exists at the tail.
	got := trend.Analyze(historyFor(trend.CategoryExercise, 5, 5, 5, 9))
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestAnalyze_TwoLowDaysIsNotAStreak(t *testing.T) {
	got := trend.Analyze(historyFor(trend.CategoryDiet, 8, 8, 5, 5))
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

// ─── POSITIVE STREAKS ────────────────────────────────────────────────────────

func TestAnalyze_PositiveStreak(t *testing.T) {
	// [6,8,9,8,9,9]: last five all >= 8; the leading 6 caps the streak at 5.
	got := trend.Analyze(historyFor(trend.CategoryExercise, 6, 8, 9, 8, 9, 9))
	if got == nil {
		t.Fatal("expected a trend, got nil")
	}
	if got.Type != trend.TypePositiveStreak {
		t.Errorf("type = %q, want positive_streak", got.Type)
	}
	if got.Category != trend.CategoryExercise {
		t.Errorf("category = %q, want exercise", got.Category)
	}
	if got.StreakLength != 5 {
		t.Errorf("streak length = %d, want 5", got.StreakLength)
	}
}

func TestAnalyze_FourHighDaysIsNotAPositiveStreak(t *testing.T) {
	got := trend.Analyze(historyFor(trend.CategoryMedication, 7, 8, 9, 8, 8))
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

// ─── PRIORITY ─────────────────────────────────────────────────────────────────

func TestAnalyze_NegativeBeatsPositive(t *testing.T) {
	// Medication has a qualifying negative streak while exercise has a
	// qualifying positive one. Negative wins even though exercise comes first
	// in category order.
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var history []trend.Entry
	for i := 0; i < 6; i++ {
		history = append(history, trend.Entry{
			Date: base.AddDate(0, 0, i), Diet: 7, Exercise: 9, Medication: 4,
		})
	}
	got := trend.Analyze(history)
	if got == nil {
		t.Fatal("expected a trend, got nil")
	}
	if got.Type != trend.TypeNegativeStreak || got.Category != trend.CategoryMedication {
		t.Errorf("got (%q, %q), want (negative_streak, medication)", got.Type, got.Category)
	}
}

func TestAnalyze_CategoryPriorityDietFirst(t *testing.T) {
	// Both diet and medication have negative streaks; diet outranks.
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var history []trend.Entry
	for i := 0; i < 4; i++ {
		history = append(history, trend.Entry{
			Date: base.AddDate(0, 0, i), Diet: 5, Exercise: 7, Medication: 4,
		})
	}
	got := trend.Analyze(history)
	if got == nil {
		t.Fatal("expected a trend, got nil")
	}
	if got.Category != trend.CategoryDiet {
		t.Errorf("category = %q, want diet", got.Category)
	}
}

func TestAnalyze_OnlyOneResultEver(t *testing.T) {
	// All three categories streak negative; still exactly one result.
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var history []trend.Entry
	for i := 0; i < 5; i++ {
		history = append(history, trend.Entry{
			Date: base.AddDate(0, 0, i), Diet: 3, Exercise: 2, Medication: 1,
		})
	}
	got := trend.Analyze(history)
	if got == nil {
		t.Fatal("expected a trend, got nil")
	}
	if got.Category != trend.CategoryDiet {
		t.Errorf("category = %q, want diet (highest priority)", got.Category)
	}
}

// ─── AVERAGES ─────────────────────────────────────────────────────────────────

func TestAnalyze_AverageCoversWholeHistory(t *testing.T) {
	// Streak is the last 3; average must include the leading 10s.
	got := trend.Analyze(historyFor(trend.CategoryDiet, 10, 10, 4, 4, 4))
	if got == nil {
		t.Fatal("expected a trend, got nil")
	}
	// (10+10+4+4+4)/5 = 6.4
	if got.AverageScore != 6.4 {
		t.Errorf("average = %v, want 6.4", got.AverageScore)
	}
}

func TestAnalyze_AverageRoundsToOneDecimal(t *testing.T) {
	// (5+5+6)/3 = 5.333… → 5.3
	got := trend.Analyze(historyFor(trend.CategoryDiet, 5, 5, 6))
	if got == nil {
		t.Fatal("expected a trend, got nil")
	}
	if got.AverageScore != 5.3 {
		t.Errorf("average = %v, want 5.3", got.AverageScore)
	}
}
