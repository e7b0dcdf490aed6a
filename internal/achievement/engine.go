package achievement

import (
	"time"

	"github.com/google/uuid"

	"github.com/rumbidzaim/habitpulse-backend/internal/trend"
)

// Badge is one earned (patient, badge name, tier) tuple. The tuple is unique
// and immutable once created — awarding is monotonic and never revoked. The
// persistence layer backs this with a unique index so a concurrent duplicate
// award degrades to a no-op rather than a double badge.
type Badge struct {
	ID         uuid.UUID `json:"id"`
	PatientID  uuid.UUID `json:"patient_id"`
	Name       string    `json:"badge_name"`
	Tier       Tier      `json:"tier"`
	EarnedDate time.Time `json:"earned_date"`
}

// Engine evaluates a score history against a catalog. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	catalog Catalog
}

// NewEngine returns an Engine over a validated catalog.
func NewEngine(catalog Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Catalog returns the tier table the engine was built with.
func (e *Engine) Catalog() Catalog { return e.catalog }

// Evaluate runs every (badge, tier) combination in the catalog against the
// history and returns the badges that newly qualify.
//
// history must be chronological (oldest first) and reflect the committed state
// including the just-saved submission. existing is the patient's already
// persisted badges; combinations present there are skipped, which is what
// makes repeated evaluation of an unchanged history award nothing further.
//
// A single pass may award several badges at once — a patient returning after
// a data import can jump straight to Silver, collecting Bronze in the same
// evaluation.
func (e *Engine) Evaluate(patientID uuid.UUID, history []trend.Entry, existing []Badge, now time.Time) []Badge {
	held := make(map[badgeKey]struct{}, len(existing))
	for _, b := range existing {
		held[badgeKey{b.Name, b.Tier}] = struct{}{}
	}

	var awarded []Badge
	for _, spec := range e.catalog.Badges {
		for _, req := range spec.Tiers {
			if _, ok := held[badgeKey{spec.Name, req.Tier}]; ok {
				continue
			}
			if !windowQualifies(history, spec.Category, req) {
				continue
			}
			awarded = append(awarded, Badge{
				ID:         uuid.New(),
				PatientID:  patientID,
				Name:       spec.Name,
				Tier:       req.Tier,
				EarnedDate: now,
			})
		}
	}
	return awarded
}

type badgeKey struct {
	name string
	tier Tier
}

// windowQualifies reports whether the most recent req.DaysRequired entries
// all meet the tier's threshold in the given category. The window is counted
// in submitted rows, not calendar days.
func windowQualifies(history []trend.Entry, c trend.Category, req TierRequirement) bool {
	if len(history) < req.DaysRequired {
		return false
	}
	for _, e := range history[len(history)-req.DaysRequired:] {
		if e.Score(c) < req.ScoreThreshold {
			return false
		}
	}
	return true
}
