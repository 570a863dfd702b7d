// internal/models/message.go
package models

import (
	"fmt"
	"time"
)

// MaxContentLength bounds both rendered content and the plain-text fallback.
const MaxContentLength = 16384

// ContentFormat describes how Message.Content should be rendered.
type ContentFormat string

const (
	FormatText     ContentFormat = "text"
	FormatMarkdown ContentFormat = "markdown"
	FormatHTML     ContentFormat = "html"
)

// Urgency controls whether quiet hours apply to a delivery.
type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyUrgent Urgency = "urgent"
)

// Message is the immutable content record behind a delivery. It carries the
// rendered body, a plain-text fallback for channels that cannot render the
// primary format, and the sender identity for auditing.
type Message struct {
	ID               string                 `json:"id"`
	ThreadID         string                 `json:"threadId,omitempty"`
	Title            string                 `json:"title,omitempty"`
	Content          string                 `json:"content"`
	PlainTextContent string                 `json:"plainTextContent"`
	ContentFormat    ContentFormat          `json:"contentFormat"`
	Urgency          Urgency                `json:"urgency"`
	Sensitive        bool                   `json:"sensitive,omitempty"`
	SenderUserID     string                 `json:"senderUserId,omitempty"`
	SenderContactID  string                 `json:"senderContactId,omitempty"`
	SenderService    string                 `json:"senderService,omitempty"`
	RelatedEntityID  string                 `json:"relatedEntityId,omitempty"`
	RelatedEntity    string                 `json:"relatedEntityType,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
	EditedAt         *time.Time             `json:"editedAt,omitempty"`
	DeletedAt        *time.Time             `json:"deletedAt,omitempty"`
}

func (m *Message) Validate() error {
	if m.Content == "" {
		return fmt.Errorf("message content is required")
	}
	if m.PlainTextContent == "" {
		return fmt.Errorf("message plain text content is required")
	}
	if len(m.Content) > MaxContentLength {
		return fmt.Errorf("message content exceeds %d characters", MaxContentLength)
	}
	if len(m.PlainTextContent) > MaxContentLength {
		return fmt.Errorf("message plain text content exceeds %d characters", MaxContentLength)
	}
	switch m.ContentFormat {
	case FormatText, FormatMarkdown, FormatHTML:
	default:
		return fmt.Errorf("invalid content format: %q", m.ContentFormat)
	}
	switch m.Urgency {
	case UrgencyNormal, UrgencyUrgent:
	default:
		return fmt.Errorf("invalid urgency: %q", m.Urgency)
	}
	return nil
}
