package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Patient is the demographic record. Patient CRUD lives elsewhere; the
// pipeline only ever reads this, and only so the sanitizer has concrete
// identifying fields to strip.
type Patient struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// ErrPatientNotFound is returned when the patient ID has no row.
var ErrPatientNotFound = errors.New("store: patient not found")

// GetPatient loads one patient by ID.
func (s *Store) GetPatient(ctx context.Context, patientID uuid.UUID) (Patient, error) {
	var (
		p     Patient
		phone sql.NullString
	)
	err := s.pool.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, phone
		FROM patients
		WHERE id = $1`,
		patientID,
	).Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &phone)
	if errors.Is(err, sql.ErrNoRows) {
		return Patient{}, ErrPatientNotFound
	}
	if err != nil {
		return Patient{}, fmt.Errorf("GetPatient: %w", err)
	}
	p.Phone = phone.String
	return p, nil
}

// CarePlan is the clinician-authored directive text per category. Missing
// directives come back as empty strings, never as errors.
type CarePlan struct {
	Diet       string
	Exercise   string
	Medication string
}

// GetCarePlan loads the patient's care plan directives. A patient with no
// directives at all gets a zero-valued CarePlan.
func (s *Store) GetCarePlan(ctx context.Context, patientID uuid.UUID) (CarePlan, error) {
	rows, err := s.pool.QueryContext(ctx, `
		SELECT category, directive
		FROM care_plan_directives
		WHERE patient_id = $1`,
		patientID,
	)
	if err != nil {
		return CarePlan{}, fmt.Errorf("GetCarePlan: query: %w", err)
	}
	defer rows.Close()

	var cp CarePlan
	for rows.Next() {
		var category, directive string
		if err := rows.Scan(&category, &directive); err != nil {
			return CarePlan{}, fmt.Errorf("GetCarePlan: scan: %w", err)
		}
		switch category {
		case "diet":
			cp.Diet = directive
		case "exercise":
			cp.Exercise = directive
		case "medication":
			cp.Medication = directive
		}
	}
	return cp, rows.Err()
}
