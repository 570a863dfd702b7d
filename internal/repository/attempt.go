// internal/repository/attempt.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"comms-delivery/internal/models"
)

// DeliveryAttemptRepository persists per-channel dispatch outcomes. Attempt
// rows are append-only: a bus-level retry creates a new row rather than
// mutating a terminal one.
type DeliveryAttemptRepository struct {
	db *sql.DB
}

func NewDeliveryAttemptRepository(db *sql.DB) *DeliveryAttemptRepository {
	return &DeliveryAttemptRepository{db: db}
}

func (r *DeliveryAttemptRepository) Create(ctx context.Context, a *models.DeliveryAttempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delivery_attempts (
			id, request_id, channel, address, status, provider_message_id,
			error, attempt_number, created_at, next_retry_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.RequestID, string(a.Channel), a.Address, string(a.Status),
		nullable(a.ProviderMessageID), nullable(a.Error), a.AttemptNumber,
		a.CreatedAt, a.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery attempt: %w", err)
	}
	return nil
}

// FindByRequestID returns all attempts for a request in creation order.
func (r *DeliveryAttemptRepository) FindByRequestID(ctx context.Context, requestID string) ([]*models.DeliveryAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, channel, address, status, provider_message_id,
		       error, attempt_number, created_at, next_retry_at
		FROM delivery_attempts WHERE request_id = $1
		ORDER BY created_at, attempt_number`, requestID)
	if err != nil {
		return nil, fmt.Errorf("find attempts for request %s: %w", requestID, err)
	}
	defer rows.Close()

	var out []*models.DeliveryAttempt
	for rows.Next() {
		var a models.DeliveryAttempt
		var channel, status string
		var providerID, errText sql.NullString
		if err := rows.Scan(&a.ID, &a.RequestID, &channel, &a.Address, &status,
			&providerID, &errText, &a.AttemptNumber, &a.CreatedAt, &a.NextRetryAt); err != nil {
			return nil, fmt.Errorf("scan delivery attempt: %w", err)
		}
		a.Channel = models.Channel(channel)
		a.Status = models.AttemptStatus(status)
		a.ProviderMessageID = providerID.String
		a.Error = errText.String
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery attempts: %w", err)
	}
	return out, nil
}
