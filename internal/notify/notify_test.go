package notify

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-program-wizard/internal/common/aws"
	commonerrors "card-program-wizard/internal/common/errors"
	"card-program-wizard/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSNS struct {
	calls int
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.calls++
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: awssdk.String("m-1")}, nil
}

type fakeSES struct {
	calls int
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.calls++
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: awssdk.String("e-1")}, nil
}

func createTestNotifier(t *testing.T, snsAPI *fakeSNS, sesAPI *fakeSES) *AWSNotifier {
	return NewAWSNotifier(
		aws.NewSNSClientWithAPI(snsAPI),
		aws.NewSESClientWithAPI(sesAPI),
		AWSConfig{
			TopicARN:   "arn:aws:sns:eu-west-1:123:wizard",
			FromEmail:  "wizard@acme.example",
			Recipients: []string{"product@acme.example"},
		},
		logger.NewTestLogger(t),
	)
}

// ==========================
// Notifier Tests
// ==========================

func TestAWSNotifier_ConfigurationCreated(t *testing.T) {
	snsAPI := &fakeSNS{}
	n := createTestNotifier(t, snsAPI, &fakeSES{})

	err := n.ConfigurationCreated(context.Background(), ConfigurationEvent{ConfigurationID: "cfg-1", ProgramName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, 1, snsAPI.calls)
	assert.Contains(t, awssdk.ToString(snsAPI.input.Message), `"configuration_id":"cfg-1"`)
}

func TestAWSNotifier_FeedbackReceived(t *testing.T) {
	sesAPI := &fakeSES{}
	n := createTestNotifier(t, &fakeSNS{}, sesAPI)
	ease := 4

	err := n.FeedbackReceived(context.Background(), FeedbackEvent{
		FeedbackID: "fb-1", SatisfactionRating: 5, EaseOfUseRating: &ease, Comments: "Smooth!", SessionID: "anon_1",
	})
	require.NoError(t, err)
	require.Equal(t, 1, sesAPI.calls)
	assert.Equal(t, "Wizard feedback: 5/5", awssdk.ToString(sesAPI.input.Message.Subject.Data))
	body := awssdk.ToString(sesAPI.input.Message.Body.Text.Data)
	assert.Contains(t, body, "Ease of use: 4/5")
	assert.Contains(t, body, "Smooth!")
}

func TestAWSNotifier_SendFailures(t *testing.T) {
	n := createTestNotifier(t, &fakeSNS{err: errors.New("denied")}, &fakeSES{err: errors.New("throttled")})

	err := n.ConfigurationCreated(context.Background(), ConfigurationEvent{ConfigurationID: "cfg-1"})
	stdErr, ok := commonerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeNotificationSendFailed, stdErr.Code)

	err = n.FeedbackReceived(context.Background(), FeedbackEvent{FeedbackID: "fb-1", SatisfactionRating: 3})
	stdErr, ok = commonerrors.As(err)
	require.True(t, ok)
	assert.Contains(t, stdErr.Details, "ses")
}

func TestAWSNotifier_DisabledChannels(t *testing.T) {
	n := NewAWSNotifier(nil, nil, AWSConfig{}, logger.NewNoOpLogger())
	assert.NoError(t, n.ConfigurationCreated(context.Background(), ConfigurationEvent{}))
	assert.NoError(t, n.FeedbackReceived(context.Background(), FeedbackEvent{}))

	var nop Notifier = Nop{}
	assert.NoError(t, nop.ConfigurationCreated(context.Background(), ConfigurationEvent{}))
	assert.NoError(t, nop.FeedbackReceived(context.Background(), FeedbackEvent{}))
}
