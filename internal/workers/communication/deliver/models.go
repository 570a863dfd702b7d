// internal/workers/communication/deliver/models.go
package deliver

import (
	"comms-delivery/internal/models"
)

// Input is one logical "notify this recipient" request. CorrelationID is the
// caller-generated idempotency key. Channels distinguishes nil (resolve from
// preferences) from an explicit empty list (attempt no channels).
type Input struct {
	SenderService      string                 `json:"senderService"`
	Title              string                 `json:"title,omitempty"`
	Content            string                 `json:"content"`
	PlainTextContent   string                 `json:"plaintext"`
	ContentFormat      string                 `json:"contentFormat,omitempty"`
	Sensitive          bool                   `json:"sensitive,omitempty"`
	Urgency            string                 `json:"urgency,omitempty"`
	RecipientUserID    string                 `json:"recipientUserId,omitempty"`
	RecipientContactID string                 `json:"recipientContactId,omitempty"`
	Channels           []string               `json:"channels,omitempty"`
	TemplateName       string                 `json:"templateName,omitempty"`
	CallbackTopic      string                 `json:"callbackTopic,omitempty"`
	CorrelationID      string                 `json:"correlationId"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
}

// AttemptResult mirrors one persisted delivery attempt in the aggregate
// output.
type AttemptResult struct {
	Channel           models.Channel       `json:"channel"`
	Address           string               `json:"address"`
	Status            models.AttemptStatus `json:"status"`
	ProviderMessageID string               `json:"providerMessageId,omitempty"`
	Error             string               `json:"error,omitempty"`
	Retryable         bool                 `json:"retryable,omitempty"`
	AttemptNumber     int                  `json:"attemptNumber"`
}

// Output is the aggregate delivery result. Success is false only when every
// attempted channel failed; zero attempted channels is a success.
type Output struct {
	MessageID string          `json:"messageId"`
	RequestID string          `json:"requestId"`
	Success   bool            `json:"success"`
	Attempts  []AttemptResult `json:"attempts"`
}
