package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rumbidzaim/habitpulse-backend/internal/trend"
)

// ─── TYPES ───────────────────────────────────────────────────────────────────

// Submission is one persisted daily score row.
type Submission struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	Date            time.Time `json:"date"`
	DietScore       int       `json:"diet_score"`
	ExerciseScore   int       `json:"exercise_score"`
	MedicationScore int       `json:"medication_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// RecordSubmissionParams is the validated input for RecordSubmission.
type RecordSubmissionParams struct {
	PatientID       uuid.UUID
	Date            time.Time
	DietScore       int
	ExerciseScore   int
	MedicationScore int
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrDuplicateSubmission is returned when a submission already exists for the
// (patient, date) pair. Submitting twice in one day is an upstream rule; the
// unique index here is the backstop, and the handler maps this to 409.
var ErrDuplicateSubmission = errors.New("store: submission already exists for this date")

// ─── METHODS ─────────────────────────────────────────────────────────────────

// RecordSubmission atomically inserts the submission and reads back the
// patient's full history, including the just-inserted row. Doing both inside
// one serializable transaction is what gives the analyzers their
// read-after-write guarantee: the history they score is exactly the committed
// state the submission belongs to.
//
// The returned history is chronological, oldest first.
func (s *Store) RecordSubmission(ctx context.Context, p RecordSubmissionParams) (Submission, []trend.Entry, error) {
	var (
		saved   Submission
		history []trend.Entry
	)

	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO score_submissions
				(id, patient_id, score_date, diet_score, exercise_score, medication_score)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, patient_id, score_date, diet_score, exercise_score, medication_score, created_at`,
			uuid.New(), p.PatientID, p.Date, p.DietScore, p.ExerciseScore, p.MedicationScore,
		)
		if err := scanSubmission(row, &saved); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateSubmission
			}
			return fmt.Errorf("RecordSubmission: insert: %w", err)
		}

		entries, err := queryHistory(ctx, tx, p.PatientID)
		if err != nil {
			return fmt.Errorf("RecordSubmission: read back history: %w", err)
		}
		history = entries
		return nil
	})

	if errors.Is(err, ErrDuplicateSubmission) {
		return Submission{}, nil, ErrDuplicateSubmission
	}
	if err != nil {
		return Submission{}, nil, err
	}

	return saved, history, nil
}

// GetHistory returns the patient's full score history, chronological, oldest
// first. Used by the read-only history endpoint and by analytics re-runs.
func (s *Store) GetHistory(ctx context.Context, patientID uuid.UUID) ([]trend.Entry, error) {
	entries, err := queryHistory(ctx, s.pool, patientID)
	if err != nil {
		return nil, fmt.Errorf("GetHistory: %w", err)
	}
	return entries, nil
}

// GetSubmissions returns full submission rows, chronological. The history
// endpoint serves these directly.
func (s *Store) GetSubmissions(ctx context.Context, patientID uuid.UUID) ([]Submission, error) {
	rows, err := s.pool.QueryContext(ctx, `
		SELECT id, patient_id, score_date, diet_score, exercise_score, medication_score, created_at
		FROM score_submissions
		WHERE patient_id = $1
		ORDER BY score_date ASC`,
		patientID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetSubmissions: query: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var sub Submission
		if err := scanSubmission(rows, &sub); err != nil {
			return nil, fmt.Errorf("GetSubmissions: scan: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryHistory loads the analyzer view of a patient's history: date plus the
// three scores, chronological.
func queryHistory(ctx context.Context, q queryer, patientID uuid.UUID) ([]trend.Entry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT score_date, diet_score, exercise_score, medication_score
		FROM score_submissions
		WHERE patient_id = $1
		ORDER BY score_date ASC`,
		patientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []trend.Entry
	for rows.Next() {
		var e trend.Entry
		if err := rows.Scan(&e.Date, &e.Diet, &e.Exercise, &e.Medication); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner, s *Submission) error {
	return row.Scan(
		&s.ID,
		&s.PatientID,
		&s.Date,
		&s.DietScore,
		&s.ExerciseScore,
		&s.MedicationScore,
		&s.CreatedAt,
	)
}
