package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rumbidzaim/habitpulse-backend/internal/achievement"
)

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrDuplicateBadge is returned when an insert hits the unique index on
// (patient_id, badge_name, tier). Two in-flight submissions for the same
// patient can both pass the engine's existence check; the index is the
// backstop and the loser's conflict is a benign no-op, not a retry case.
var ErrDuplicateBadge = errors.New("store: badge already awarded")

// ─── METHODS ─────────────────────────────────────────────────────────────────

// GetBadges returns every badge the patient has earned, oldest first.
func (s *Store) GetBadges(ctx context.Context, patientID uuid.UUID) ([]achievement.Badge, error) {
	rows, err := s.pool.QueryContext(ctx, `
		SELECT id, patient_id, badge_name, tier, earned_date
		FROM badges
		WHERE patient_id = $1
		ORDER BY earned_date ASC, badge_name ASC`,
		patientID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetBadges: query: %w", err)
	}
	defer rows.Close()

	var out []achievement.Badge
	for rows.Next() {
		var b achievement.Badge
		if err := rows.Scan(&b.ID, &b.PatientID, &b.Name, &b.Tier, &b.EarnedDate); err != nil {
			return nil, fmt.Errorf("GetBadges: scan: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertBadge persists one newly awarded badge. Awarded badges are immutable;
// there is no update path. A unique-index conflict surfaces as
// ErrDuplicateBadge so the caller can swallow it without string matching.
func (s *Store) InsertBadge(ctx context.Context, b achievement.Badge) error {
	_, err := s.pool.ExecContext(ctx, `
		INSERT INTO badges (id, patient_id, badge_name, tier, earned_date)
		VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.PatientID, b.Name, b.Tier, b.EarnedDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateBadge
		}
		return fmt.Errorf("InsertBadge: %w", err)
	}
	return nil
}
