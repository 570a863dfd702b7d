// internal/repository/message.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"comms-delivery/internal/models"
)

// MessageRepository persists immutable message content rows.
type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, m *models.Message) error {
	metadata, err := json.Marshal(m.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO messages (
			id, thread_id, title, content, plain_text_content, content_format,
			urgency, sensitive, sender_user_id, sender_contact_id, sender_service,
			related_entity_id, related_entity_type, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		m.ID, nullable(m.ThreadID), nullable(m.Title), m.Content, m.PlainTextContent,
		string(m.ContentFormat), string(m.Urgency), m.Sensitive,
		nullable(m.SenderUserID), nullable(m.SenderContactID), nullable(m.SenderService),
		nullable(m.RelatedEntityID), nullable(m.RelatedEntity), metadata, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, thread_id, title, content, plain_text_content, content_format,
		       urgency, sensitive, sender_user_id, sender_contact_id, sender_service,
		       related_entity_id, related_entity_type, metadata, created_at, edited_at, deleted_at
		FROM messages WHERE id = $1`, id)

	var m models.Message
	var threadID, title, senderUser, senderContact, senderService, relatedID, relatedType sql.NullString
	var format, urgency string
	var metadata []byte
	err := row.Scan(&m.ID, &threadID, &title, &m.Content, &m.PlainTextContent, &format,
		&urgency, &m.Sensitive, &senderUser, &senderContact, &senderService,
		&relatedID, &relatedType, &metadata, &m.CreatedAt, &m.EditedAt, &m.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find message %s: %w", id, err)
	}

	m.ThreadID = threadID.String
	m.Title = title.String
	m.ContentFormat = models.ContentFormat(format)
	m.Urgency = models.Urgency(urgency)
	m.SenderUserID = senderUser.String
	m.SenderContactID = senderContact.String
	m.SenderService = senderService.String
	m.RelatedEntityID = relatedID.String
	m.RelatedEntity = relatedType.String
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal message metadata: %w", err)
		}
	}
	return &m, nil
}

// nullable converts an empty string to a SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
