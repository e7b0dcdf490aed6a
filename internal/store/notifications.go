package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/rumbidzaim/habitpulse-backend/internal/notify"
)

// AppendDelivery records one proactive-suggestion delivery attempt. It
// implements notify.DeliveryLog. Best effort by contract: the dispatcher logs
// a returned error and moves on, so this method never needs to retry.
//
// The payload snapshot is stored as JSONB; if serialisation somehow fails the
// row is still written with a NULL payload rather than losing the audit entry.
func (s *Store) AppendDelivery(ctx context.Context, patientID uuid.UUID, p notify.Payload, delivered bool, deliveryErr string) error {
	var payload pqtype.NullRawMessage
	if raw, err := json.Marshal(p); err == nil {
		payload = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}

	_, err := s.pool.ExecContext(ctx, `
		INSERT INTO notification_log (patient_id, payload, delivered, delivery_error)
		VALUES ($1, $2, $3, $4)`,
		patientID,
		payload,
		delivered,
		sql.NullString{String: deliveryErr, Valid: deliveryErr != ""},
	)
	if err != nil {
		return fmt.Errorf("AppendDelivery: %w", err)
	}
	return nil
}
