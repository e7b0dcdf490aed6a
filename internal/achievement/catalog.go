// Package achievement awards tiered badges for sustained scoring behavior.
// The tier table lives in a JSON catalog so thresholds can be tuned without a
// code change; the engine itself is pure and testable without a database.
package achievement

import (
	"encoding/json"
	"fmt"

	"github.com/rumbidzaim/habitpulse-backend/internal/trend"
)

// Tier is one of the four badge levels. String values match the Postgres enum
// and the JSON wire format.
type Tier string

const (
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
)

// TierRequirement defines what it takes to earn one tier of one badge: the
// most recent DaysRequired submissions must all score at or above
// ScoreThreshold in the badge's category. "Most recent" means the last N
// submitted rows by date — calendar gaps between submissions do not reset the
// window. That is a deliberate product behavior, not an oversight.
type TierRequirement struct {
	Tier           Tier `json:"tier"`
	DaysRequired   int  `json:"days_required"`
	ScoreThreshold int  `json:"score_threshold"`
}

// BadgeSpec couples a badge name to its score category and tier ladder.
type BadgeSpec struct {
	Name     string            `json:"name"`
	Category trend.Category    `json:"category"`
	Tiers    []TierRequirement `json:"tiers"`
}

// Catalog is the full badge table. It is versioned so that a future threshold
// change can be distinguished from the table a badge was earned under.
type Catalog struct {
	Version int         `json:"version"`
	Badges  []BadgeSpec `json:"badges"`
}

// defaultCatalogJSON is the shipped tier table: three badges, one per score
// category, four tiers each.
const defaultCatalogJSON = `{
  "version": 1,
  "badges": [
    {
      "name": "Healthy Meal Plan Hero",
      "category": "diet",
      "tiers": [
        {"tier": "Bronze",   "days_required": 14,  "score_threshold": 5},
        {"tier": "Silver",   "days_required": 28,  "score_threshold": 7},
        {"tier": "Gold",     "days_required": 112, "score_threshold": 8},
        {"tier": "Platinum", "days_required": 168, "score_threshold": 9}
      ]
    },
    {
      "name": "Exercise Consistency Champion",
      "category": "exercise",
      "tiers": [
        {"tier": "Bronze",   "days_required": 14,  "score_threshold": 5},
        {"tier": "Silver",   "days_required": 28,  "score_threshold": 7},
        {"tier": "Gold",     "days_required": 112, "score_threshold": 8},
        {"tier": "Platinum", "days_required": 168, "score_threshold": 9}
      ]
    },
    {
      "name": "Medication Adherence Star",
      "category": "medication",
      "tiers": [
        {"tier": "Bronze",   "days_required": 14,  "score_threshold": 5},
        {"tier": "Silver",   "days_required": 28,  "score_threshold": 7},
        {"tier": "Gold",     "days_required": 112, "score_threshold": 8},
        {"tier": "Platinum", "days_required": 168, "score_threshold": 9}
      ]
    }
  ]
}`

// DefaultCatalog returns the built-in tier table. It panics only if the
// embedded JSON is malformed, which a unit test guards against.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog([]byte(defaultCatalogJSON))
	if err != nil {
		panic(fmt.Sprintf("achievement: built-in catalog invalid: %v", err))
	}
	return c
}

// ParseCatalog unmarshals and validates a catalog JSON document. Use this for
// operator-supplied override files; the result is safe to hand to NewEngine.
func ParseCatalog(raw []byte) (Catalog, error) {
	if len(raw) == 0 {
		return Catalog{}, fmt.Errorf("achievement: empty catalog JSON")
	}

	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return Catalog{}, fmt.Errorf("achievement: cannot unmarshal catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate checks structural consistency: every badge has a known category,
// a unique name, at least one tier, and each tier has a positive day count
// and a threshold inside the score range. Call this once at startup, not on
// every evaluation.
func (c Catalog) Validate() error {
	if len(c.Badges) == 0 {
		return fmt.Errorf("achievement: catalog has no badges")
	}

	seen := make(map[string]struct{}, len(c.Badges))
	for _, b := range c.Badges {
		if b.Name == "" {
			return fmt.Errorf("achievement: badge with empty name")
		}
		if _, dup := seen[b.Name]; dup {
			return fmt.Errorf("achievement: duplicate badge name %q", b.Name)
		}
		seen[b.Name] = struct{}{}

		switch b.Category {
		case trend.CategoryDiet, trend.CategoryExercise, trend.CategoryMedication:
		default:
			return fmt.Errorf("achievement: badge %q has unknown category %q", b.Name, b.Category)
		}

		if len(b.Tiers) == 0 {
			return fmt.Errorf("achievement: badge %q has no tiers", b.Name)
		}
		for _, tr := range b.Tiers {
			switch tr.Tier {
			case TierBronze, TierSilver, TierGold, TierPlatinum:
			default:
				return fmt.Errorf("achievement: badge %q has unknown tier %q", b.Name, tr.Tier)
			}
			if tr.DaysRequired <= 0 {
				return fmt.Errorf("achievement: badge %q tier %s: days_required must be positive, got %d",
					b.Name, tr.Tier, tr.DaysRequired)
			}
			if tr.ScoreThreshold < 1 || tr.ScoreThreshold > 10 {
				return fmt.Errorf("achievement: badge %q tier %s: score_threshold %d out of range [1,10]",
					b.Name, tr.Tier, tr.ScoreThreshold)
			}
		}
	}
	return nil
}
