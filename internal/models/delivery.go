// internal/models/delivery.go
package models

import (
	"fmt"
	"time"
)

// Channel is a delivery transport.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// ParseChannel validates a wire-format channel name.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelEmail, ChannelSMS:
		return Channel(s), nil
	}
	return "", fmt.Errorf("unknown channel: %q", s)
}

// AttemptStatus is the lifecycle state of one delivery attempt.
type AttemptStatus string

const (
	AttemptPending AttemptStatus = "pending"
	AttemptSent    AttemptStatus = "sent"
	AttemptFailed  AttemptStatus = "failed"
)

// DeliveryRequest is the idempotency anchor: one row per correlation id,
// enforced by a unique index. Channels records the resolved channel list so
// a redelivered request re-dispatches exactly what the first run decided.
// A nil Channels means the caller gave no explicit list; an empty slice is
// an explicit "attempt no channels".
type DeliveryRequest struct {
	ID                 string     `json:"id"`
	MessageID          string     `json:"messageId"`
	CorrelationID      string     `json:"correlationId"`
	RecipientUserID    string     `json:"recipientUserId,omitempty"`
	RecipientContactID string     `json:"recipientContactId,omitempty"`
	Channels           []Channel  `json:"channels"`
	TemplateName       string     `json:"templateName,omitempty"`
	CallbackTopic      string     `json:"callbackTopic,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	ProcessedAt        *time.Time `json:"processedAt,omitempty"`
}

func (r *DeliveryRequest) Validate() error {
	if r.MessageID == "" {
		return fmt.Errorf("delivery request message id is required")
	}
	if r.CorrelationID == "" {
		return fmt.Errorf("delivery request correlation id is required")
	}
	if r.RecipientUserID == "" && r.RecipientContactID == "" {
		return fmt.Errorf("delivery request needs a recipient user id or contact id")
	}
	return nil
}

// DeliveryAttempt is one dispatch to one channel. Rows are append-only;
// retries add new rows with an incremented AttemptNumber.
type DeliveryAttempt struct {
	ID                string        `json:"id"`
	RequestID         string        `json:"requestId"`
	Channel           Channel       `json:"channel"`
	Address           string        `json:"address"`
	Status            AttemptStatus `json:"status"`
	ProviderMessageID string        `json:"providerMessageId,omitempty"`
	Error             string        `json:"error,omitempty"`
	AttemptNumber     int           `json:"attemptNumber"`
	CreatedAt         time.Time     `json:"createdAt"`
	NextRetryAt       *time.Time    `json:"nextRetryAt,omitempty"`
}
