// internal/consumer/schema.go
package consumer

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// notifySchema is the wire contract for messages on the notify queue.
// Payloads that fail it are dropped, never retried: a malformed message
// stays malformed on every redelivery.
const notifySchema = `{
	"type": "object",
	"properties": {
		"correlationId": {"type": "string", "minLength": 1},
		"senderService": {"type": "string", "minLength": 1},
		"title": {"type": "string"},
		"content": {"type": "string", "minLength": 1, "maxLength": 16384},
		"plaintext": {"type": "string", "minLength": 1, "maxLength": 16384},
		"contentFormat": {"type": "string", "enum": ["text", "markdown", "html"]},
		"sensitive": {"type": "boolean"},
		"urgency": {"type": "string", "enum": ["normal", "urgent"]},
		"recipientUserId": {"type": "string"},
		"recipientContactId": {"type": "string"},
		"channels": {
			"type": "array",
			"items": {"type": "string", "enum": ["email", "sms"]}
		},
		"templateName": {"type": "string"},
		"callbackTopic": {"type": "string"},
		"metadata": {"type": "object"}
	},
	"required": ["correlationId", "senderService", "content", "plaintext"],
	"anyOf": [
		{"required": ["recipientUserId"]},
		{"required": ["recipientContactId"]}
	]
}`

var notifySchemaLoader = gojsonschema.NewStringLoader(notifySchema)

// validatePayload checks the raw message body against the notify schema.
func validatePayload(body []byte) error {
	result, err := gojsonschema.Validate(notifySchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("payload is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return fmt.Errorf("payload failed schema validation: %s", strings.Join(problems, "; "))
}
