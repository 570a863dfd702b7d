// internal/repository/request.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	stderrors "comms-delivery/internal/common/errors"
	"comms-delivery/internal/models"
)

// pqUniqueViolation is the Postgres error code for a unique constraint
// conflict, the safety net under concurrent deliveries racing on an unseen
// correlation id.
const pqUniqueViolation = "23505"

// DeliveryRequestRepository persists the idempotency unit of the pipeline.
type DeliveryRequestRepository struct {
	db *sql.DB
}

func NewDeliveryRequestRepository(db *sql.DB) *DeliveryRequestRepository {
	return &DeliveryRequestRepository{db: db}
}

// Create inserts a delivery request. A correlation-id conflict surfaces as a
// DUPLICATE_CORRELATION error so the orchestrator can re-read the winner's
// row instead of failing the delivery.
func (r *DeliveryRequestRepository) Create(ctx context.Context, req *models.DeliveryRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delivery_requests (
			id, message_id, correlation_id, recipient_user_id, recipient_contact_id,
			channels, template_name, callback_topic, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		req.ID, req.MessageID, req.CorrelationID,
		nullable(req.RecipientUserID), nullable(req.RecipientContactID),
		encodeChannels(req.Channels), nullable(req.TemplateName), nullable(req.CallbackTopic),
		req.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if isPQError(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return stderrors.NewDuplicateCorrelationError(req.CorrelationID)
		}
		return fmt.Errorf("insert delivery request: %w", err)
	}
	return nil
}

func (r *DeliveryRequestRepository) FindByID(ctx context.Context, id string) (*models.DeliveryRequest, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindByCorrelationID is the idempotency point lookup. A miss returns
// (nil, nil).
func (r *DeliveryRequestRepository) FindByCorrelationID(ctx context.Context, correlationID string) (*models.DeliveryRequest, error) {
	return r.findOne(ctx, `WHERE correlation_id = $1`, correlationID)
}

// MarkProcessed stamps processed_at once dispatch has completed, regardless
// of per-channel outcomes.
func (r *DeliveryRequestRepository) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE delivery_requests SET processed_at = $2 WHERE id = $1 AND processed_at IS NULL`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("mark request processed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark request processed: request %s not found or already processed", id)
	}
	return nil
}

func (r *DeliveryRequestRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.DeliveryRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, message_id, correlation_id, recipient_user_id, recipient_contact_id,
		       channels, template_name, callback_topic, created_at, processed_at
		FROM delivery_requests `+where, arg)

	var req models.DeliveryRequest
	var userID, contactID, channels, template, callback sql.NullString
	err := row.Scan(&req.ID, &req.MessageID, &req.CorrelationID, &userID, &contactID,
		&channels, &template, &callback, &req.CreatedAt, &req.ProcessedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find delivery request: %w", err)
	}

	req.RecipientUserID = userID.String
	req.RecipientContactID = contactID.String
	req.Channels = decodeChannels(channels)
	req.TemplateName = template.String
	req.CallbackTopic = callback.String
	return &req, nil
}

// Channels are stored as a comma-separated list. NULL means the caller gave
// no explicit list; empty string means an explicit empty list.
func encodeChannels(channels []models.Channel) sql.NullString {
	if channels == nil {
		return sql.NullString{}
	}
	parts := make([]string, len(channels))
	for i, c := range channels {
		parts[i] = string(c)
	}
	return sql.NullString{String: strings.Join(parts, ","), Valid: true}
}

func decodeChannels(ns sql.NullString) []models.Channel {
	if !ns.Valid {
		return nil
	}
	if ns.String == "" {
		return []models.Channel{}
	}
	parts := strings.Split(ns.String, ",")
	out := make([]models.Channel, 0, len(parts))
	for _, p := range parts {
		out = append(out, models.Channel(p))
	}
	return out
}

func isPQError(err error, target **pq.Error) bool {
	if e, ok := err.(*pq.Error); ok {
		*target = e
		return true
	}
	return false
}
