// Package ses sends messages through the AWS SES v2 raw email API.
package ses

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
	"github.com/mikey/llm-email-agent/internal/core"
	"github.com/mikey/llm-email-agent/internal/message"
	"go.uber.org/zap"
)

// SendEmailAPI is the interface for the SES v2 SendEmail operation
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Settings holds the configuration for creating a Transport
type Settings struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Sender          string
}

// Transport sends raw messages through SES. SES has no drafts.
type Transport struct {
	sender string
	client SendEmailAPI
	logger *zap.Logger
}

// New creates a Transport from the default AWS credential chain, or from
// static keys when both are set
func New(ctx context.Context, settings Settings, logger *zap.Logger) (*Transport, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(settings.Region)}
	if settings.AccessKeyID != "" && settings.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(settings.Sender, sesv2.NewFromConfig(awsCfg), logger), nil
}

// NewWithClient creates a Transport with a custom client
func NewWithClient(sender string, client SendEmailAPI, logger *zap.Logger) *Transport {
	return &Transport{sender: sender, client: client, logger: logger}
}

// Name returns the transport name
func (t *Transport) Name() string {
	return "ses"
}

// SenderAddress returns the configured verified sender
func (t *Transport) SenderAddress(_ context.Context) (string, error) {
	if t.sender == "" {
		return "", errors.New("no SES sender configured")
	}
	return t.sender, nil
}

// Send submits the message with an explicit destination so Bcc recipients
// receive it without the header being delivered
func (t *Transport) Send(ctx context.Context, msg *core.OutboundMessage) (string, error) {
	raw, err := message.Decode(msg.Raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrDeliveryFailed, err)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(t.sender),
		Destination: &types.Destination{
			ToAddresses:  message.Recipients(msg.To),
			CcAddresses:  message.Recipients(msg.Cc),
			BccAddresses: message.Recipients(msg.Bcc),
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: message.StripHeader(raw, "Bcc")},
		},
	}

	out, err := t.client.SendEmail(ctx, input)
	if err != nil {
		return "", classifyError(err)
	}

	id := aws.ToString(out.MessageId)
	t.logger.Debug("SES message sent", zap.String("message_id", id))
	return id, nil
}

// CreateDraft always fails with core.ErrDraftUnsupported
func (t *Transport) CreateDraft(_ context.Context, _ *core.OutboundMessage) (string, error) {
	return "", fmt.Errorf("%w: ses has no drafts", core.ErrDraftUnsupported)
}

var throttlingCodes = map[string]bool{
	"TooManyRequestsException": true,
	"LimitExceededException":   true,
	"Throttling":               true,
	"ThrottlingException":      true,
}

// classifyError maps SES throttling responses to core.ErrRateLimited
func classifyError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && throttlingCodes[apiErr.ErrorCode()] {
		return fmt.Errorf("%w: ses %s: %w", core.ErrRateLimited, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("%w: ses: %w", core.ErrDeliveryFailed, err)
}
