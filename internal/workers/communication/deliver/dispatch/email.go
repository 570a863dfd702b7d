// internal/workers/communication/deliver/dispatch/email.go
package dispatch

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	stderrors "comms-delivery/internal/common/errors"
	"comms-delivery/internal/common/logger"
	"comms-delivery/internal/models"
)

// SESService is the slice of the SES client the dispatcher uses; defined
// here for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailDispatcher sends message content as email through SES.
type EmailDispatcher struct {
	client    SESService
	fromEmail string
	log       logger.Logger
}

func NewEmailDispatcher(ctx context.Context, region, fromEmail string, log logger.Logger) (*EmailDispatcher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &EmailDispatcher{
		client:    ses.NewFromConfig(awsCfg),
		fromEmail: fromEmail,
		log:       log.WithFields(map[string]interface{}{"channel": "email"}),
	}, nil
}

// NewEmailDispatcherWithClient wires a pre-built client; used by tests.
func NewEmailDispatcherWithClient(client SESService, fromEmail string, log logger.Logger) *EmailDispatcher {
	return &EmailDispatcher{
		client:    client,
		fromEmail: fromEmail,
		log:       log.WithFields(map[string]interface{}{"channel": "email"}),
	}
}

func (d *EmailDispatcher) Channel() models.Channel {
	return models.ChannelEmail
}

func (d *EmailDispatcher) Send(ctx context.Context, address string, content *Content) (*SendResult, error) {
	subject := content.Title
	if subject == "" {
		subject = "Notification"
	}

	body := &types.Body{
		Text: &types.Content{Data: aws.String(content.PlainText)},
	}
	if content.Format == models.FormatHTML {
		body.Html = &types.Content{Data: aws.String(content.Body)}
	}

	out, err := d.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{address},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body:    body,
		},
		Source: aws.String(d.fromEmail),
	})
	if err != nil {
		return nil, stderrors.NewProviderError("email", isEmailErrorRetryable(err), err)
	}

	result := &SendResult{}
	if out.MessageId != nil {
		result.ProviderMessageID = *out.MessageId
	}
	return result, nil
}

// isEmailErrorRetryable classifies SES failures. Address/domain rejections
// are permanent; everything else (throttling, network, 5xx) fails toward
// retry.
func isEmailErrorRetryable(err error) bool {
	var rejected *types.MessageRejected
	if errors.As(err, &rejected) {
		return false
	}
	var notVerified *types.MailFromDomainNotVerifiedException
	if errors.As(err, &notVerified) {
		return false
	}
	return true
}
