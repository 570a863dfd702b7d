// internal/workers/communication/deliver/dispatch/sms.go
package dispatch

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	stderrors "comms-delivery/internal/common/errors"
	"comms-delivery/internal/common/logger"
	"comms-delivery/internal/models"
)

// SNSService is the slice of the SNS client the dispatcher uses; defined
// here for mocking.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSDispatcher sends the plain-text body through SNS. The SMS provider is
// optional at assembly: without SNS config the dispatcher is simply not
// registered, and the orchestrator records a failed attempt for any sms
// channel it cannot dispatch.
type SMSDispatcher struct {
	client   SNSService
	senderID string
	log      logger.Logger
}

func NewSMSDispatcher(ctx context.Context, region, senderID string, log logger.Logger) (*SMSDispatcher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SMSDispatcher{
		client:   sns.NewFromConfig(awsCfg),
		senderID: senderID,
		log:      log.WithFields(map[string]interface{}{"channel": "sms"}),
	}, nil
}

// NewSMSDispatcherWithClient wires a pre-built client; used by tests.
func NewSMSDispatcherWithClient(client SNSService, senderID string, log logger.Logger) *SMSDispatcher {
	return &SMSDispatcher{
		client:   client,
		senderID: senderID,
		log:      log.WithFields(map[string]interface{}{"channel": "sms"}),
	}
}

func (d *SMSDispatcher) Channel() models.Channel {
	return models.ChannelSMS
}

func (d *SMSDispatcher) Send(ctx context.Context, address string, content *Content) (*SendResult, error) {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(address),
		Message:     aws.String(content.PlainText),
	}
	if d.senderID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(d.senderID),
			},
		}
	}

	out, err := d.client.Publish(ctx, input)
	if err != nil {
		return nil, stderrors.NewProviderError("sms", isSMSErrorRetryable(err), err)
	}

	result := &SendResult{}
	if out.MessageId != nil {
		result.ProviderMessageID = *out.MessageId
	}
	return result, nil
}

// isSMSErrorRetryable classifies SNS failures. Bad phone numbers and
// parameter rejections are permanent; everything else fails toward retry.
func isSMSErrorRetryable(err error) bool {
	var invalidParam *types.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return false
	}
	var invalidValue *types.InvalidParameterValueException
	if errors.As(err, &invalidValue) {
		return false
	}
	return true
}
