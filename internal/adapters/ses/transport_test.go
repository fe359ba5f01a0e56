package ses

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/smithy-go"
	"github.com/mikey/llm-email-agent/internal/core"
	"github.com/mikey/llm-email-agent/internal/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockSESClient struct {
	mock.Mock
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*sesv2.SendEmailOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func build(t *testing.T) *core.OutboundMessage {
	t.Helper()
	msg, err := message.NewBuilder(zap.NewNop()).Build(core.BuildRequest{
		To:       "bob@example.com",
		Cc:       "Amy <amy@example.com>",
		Bcc:      "boss@example.com",
		Subject:  "Report",
		BodyText: "Attached soon.",
		Sender:   "bot@example.com",
	})
	require.NoError(t, err)
	return msg
}

func TestSend(t *testing.T) {
	client := new(MockSESClient)
	var input *sesv2.SendEmailInput
	client.On("SendEmail", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { input = args.Get(1).(*sesv2.SendEmailInput) }).
		Return(&sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil)

	tr := NewWithClient("bot@example.com", client, zap.NewNop())
	id, err := tr.Send(context.Background(), build(t))

	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)
	require.NotNil(t, input)
	assert.Equal(t, "bot@example.com", aws.ToString(input.FromEmailAddress))
	assert.Equal(t, []string{"bob@example.com"}, input.Destination.ToAddresses)
	assert.Equal(t, []string{"amy@example.com"}, input.Destination.CcAddresses)
	assert.Equal(t, []string{"boss@example.com"}, input.Destination.BccAddresses)

	raw := string(input.Content.Raw.Data)
	assert.Contains(t, raw, "Subject: Report")
	assert.NotContains(t, raw, "boss@example.com")
}

func TestSend_Throttled(t *testing.T) {
	client := new(MockSESClient)
	client.On("SendEmail", mock.Anything, mock.Anything).
		Return(nil, &smithy.GenericAPIError{Code: "TooManyRequestsException", Message: "slow down"})

	tr := NewWithClient("bot@example.com", client, zap.NewNop())
	_, err := tr.Send(context.Background(), build(t))
	assert.ErrorIs(t, err, core.ErrRateLimited)
}

func TestSend_Rejected(t *testing.T) {
	client := new(MockSESClient)
	client.On("SendEmail", mock.Anything, mock.Anything).
		Return(nil, &smithy.GenericAPIError{Code: "MessageRejected", Message: "unverified"})

	tr := NewWithClient("bot@example.com", client, zap.NewNop())
	_, err := tr.Send(context.Background(), build(t))
	assert.ErrorIs(t, err, core.ErrDeliveryFailed)
	assert.NotErrorIs(t, err, core.ErrRateLimited)
}

func TestSend_BadRaw(t *testing.T) {
	tr := NewWithClient("bot@example.com", new(MockSESClient), zap.NewNop())
	_, err := tr.Send(context.Background(), &core.OutboundMessage{Raw: "not base64!"})
	assert.ErrorIs(t, err, core.ErrDeliveryFailed)
}

func TestCreateDraft_Unsupported(t *testing.T) {
	tr := NewWithClient("bot@example.com", new(MockSESClient), zap.NewNop())
	_, err := tr.CreateDraft(context.Background(), build(t))
	assert.ErrorIs(t, err, core.ErrDraftUnsupported)
}

func TestSenderAddress(t *testing.T) {
	addr, err := NewWithClient("bot@example.com", nil, zap.NewNop()).SenderAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bot@example.com", addr)

	_, err = NewWithClient("", nil, zap.NewNop()).SenderAddress(context.Background())
	assert.Error(t, err)
}
