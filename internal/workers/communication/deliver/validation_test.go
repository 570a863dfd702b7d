// internal/workers/communication/deliver/validation_test.go
package deliver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"comms-delivery/internal/models"
)

func validInput() *Input {
	return &Input{
		SenderService:    "billing",
		Content:          "Your invoice is ready",
		PlainTextContent: "Your invoice is ready",
		CorrelationID:    "corr-123",
		RecipientUserID:  "user-1",
	}
}

func TestValidateInput_Valid(t *testing.T) {
	assert.NoError(t, validateInput(validInput()))
}

func TestValidateInput_RequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		want   string
	}{
		{"missing correlation id", func(i *Input) { i.CorrelationID = "" }, "correlationId"},
		{"missing sender service", func(i *Input) { i.SenderService = "" }, "senderService"},
		{"missing content", func(i *Input) { i.Content = "" }, "content is required"},
		{"missing plaintext", func(i *Input) { i.PlainTextContent = "" }, "plaintext is required"},
		{"missing recipient", func(i *Input) { i.RecipientUserID = "" }, "recipientUserId or recipientContactId"},
		{"bad urgency", func(i *Input) { i.Urgency = "asap" }, "invalid urgency"},
		{"bad format", func(i *Input) { i.ContentFormat = "xml" }, "invalid content format"},
		{"bad channel", func(i *Input) { i.Channels = []string{"pigeon"} }, "unknown channel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			err := validateInput(input)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateInput_ContentLength(t *testing.T) {
	input := validInput()
	input.Content = strings.Repeat("a", models.MaxContentLength)
	assert.NoError(t, validateInput(input))

	input.Content = strings.Repeat("a", models.MaxContentLength+1)
	err := validateInput(input)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "content exceeds")
}

func TestValidateInput_CollectsAllProblems(t *testing.T) {
	err := validateInput(&Input{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "correlationId")
	assert.Contains(t, err.Error(), "senderService")
	assert.Contains(t, err.Error(), "content is required")
}

func TestDefaults(t *testing.T) {
	input := validInput()
	assert.Equal(t, models.UrgencyNormal, urgencyOf(input))
	assert.Equal(t, models.FormatText, formatOf(input))

	input.Urgency = "urgent"
	input.ContentFormat = "markdown"
	assert.Equal(t, models.UrgencyUrgent, urgencyOf(input))
	assert.Equal(t, models.FormatMarkdown, formatOf(input))
}

func TestExplicitChannels_NilVersusEmpty(t *testing.T) {
	input := validInput()
	assert.Nil(t, explicitChannels(input))

	input.Channels = []string{}
	got := explicitChannels(input)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	input.Channels = []string{"sms", "email"}
	assert.Equal(t, []models.Channel{models.ChannelSMS, models.ChannelEmail}, explicitChannels(input))
}
