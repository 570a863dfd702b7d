// internal/workers/communication/deliver/validation.go
package deliver

import (
	"fmt"
	"strings"

	"comms-delivery/internal/models"
)

// validateInput enforces the orchestrator's input contract. The consumer has
// already schema-checked the wire payload; this guards direct callers too.
func validateInput(input *Input) error {
	var problems []string

	if input.CorrelationID == "" {
		problems = append(problems, "correlationId is required")
	}
	if input.SenderService == "" {
		problems = append(problems, "senderService is required")
	}
	if input.Content == "" {
		problems = append(problems, "content is required")
	}
	if input.PlainTextContent == "" {
		problems = append(problems, "plaintext is required")
	}
	if len(input.Content) > models.MaxContentLength {
		problems = append(problems, fmt.Sprintf("content exceeds %d characters", models.MaxContentLength))
	}
	if len(input.PlainTextContent) > models.MaxContentLength {
		problems = append(problems, fmt.Sprintf("plaintext exceeds %d characters", models.MaxContentLength))
	}
	if input.RecipientUserID == "" && input.RecipientContactID == "" {
		problems = append(problems, "recipientUserId or recipientContactId is required")
	}
	if input.Urgency != "" {
		switch models.Urgency(input.Urgency) {
		case models.UrgencyNormal, models.UrgencyUrgent:
		default:
			problems = append(problems, fmt.Sprintf("invalid urgency: %q", input.Urgency))
		}
	}
	if input.ContentFormat != "" {
		switch models.ContentFormat(input.ContentFormat) {
		case models.FormatText, models.FormatMarkdown, models.FormatHTML:
		default:
			problems = append(problems, fmt.Sprintf("invalid content format: %q", input.ContentFormat))
		}
	}
	for _, c := range input.Channels {
		if _, err := models.ParseChannel(c); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// urgencyOf applies the default urgency.
func urgencyOf(input *Input) models.Urgency {
	if input.Urgency == "" {
		return models.UrgencyNormal
	}
	return models.Urgency(input.Urgency)
}

// formatOf applies the default content format.
func formatOf(input *Input) models.ContentFormat {
	if input.ContentFormat == "" {
		return models.FormatText
	}
	return models.ContentFormat(input.ContentFormat)
}

// explicitChannels converts the wire channel list, preserving the nil vs
// empty distinction.
func explicitChannels(input *Input) []models.Channel {
	if input.Channels == nil {
		return nil
	}
	out := make([]models.Channel, 0, len(input.Channels))
	for _, c := range input.Channels {
		ch, err := models.ParseChannel(c)
		if err != nil {
			continue // validated earlier
		}
		out = append(out, ch)
	}
	return out
}
