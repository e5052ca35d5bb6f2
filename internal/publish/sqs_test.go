package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/smithy-go/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/pixelscan/internal/model"
)

// mockSQSMiddleware short-circuits the request before it is signed and sent.
func mockSQSMiddleware(output *sqs.SendMessageOutput, err error) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		return stack.Finalize.Add(
			middleware.FinalizeMiddlewareFunc("mock", func(ctx context.Context, in middleware.FinalizeInput, next middleware.FinalizeHandler) (middleware.FinalizeOutput, middleware.Metadata, error) {
				if err != nil {
					return middleware.FinalizeOutput{}, middleware.Metadata{}, err
				}
				return middleware.FinalizeOutput{Result: output}, middleware.Metadata{}, nil
			}),
			middleware.Before,
		)
	}
}

func newMockClient(output *sqs.SendMessageOutput, err error) *sqs.Client {
	return sqs.NewFromConfig(aws.Config{Region: "us-east-1"}, func(o *sqs.Options) {
		o.DisableMessageChecksumValidation = true
		o.APIOptions = append(o.APIOptions, mockSQSMiddleware(output, err))
	})
}

type mockSQSClient struct {
	mock.Mock
}

func (m *mockSQSClient) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sqs.SendMessageOutput)
	return out, args.Error(1)
}

func decodeMessage(t *testing.T, in *sqs.SendMessageInput) Message {
	t.Helper()
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &msg))
	return msg
}

func result(t *testing.T, rawURL string) *model.ScanResult {
	t.Helper()
	r := model.NewScanResult(rawURL)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.Start(now))
	require.NoError(t, r.Complete(now.Add(time.Second), nil, model.PrivacyAssessment{Score: 100, RiskLevel: model.RiskLow}))
	return r
}

func TestNewSQSPublisher(t *testing.T) {
	t.Parallel()

	_, err := NewSQSPublisher(&mockSQSClient{}, "")
	assert.ErrorIs(t, err, ErrNoQueueURL)

	p, err := NewSQSPublisher(&mockSQSClient{}, "https://sqs.example/queue")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestSQSPublisher_Publish(t *testing.T) {
	t.Parallel()

	ctx := context.TODO()
	queueURL := "https://sqs.us-east-1.amazonaws.com/123456789012/results"

	t.Run("success through the sdk client", func(t *testing.T) {
		t.Parallel()
		client := newMockClient(&sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil)
		p, err := NewSQSPublisher(client, queueURL)
		require.NoError(t, err)
		assert.NoError(t, p.Publish(ctx, result(t, "https://example.com/")))
	})

	t.Run("sdk error is wrapped", func(t *testing.T) {
		t.Parallel()
		client := newMockClient(nil, errors.New("sqs error"))
		p, err := NewSQSPublisher(client, queueURL)
		require.NoError(t, err)
		err = p.Publish(ctx, result(t, "https://example.com/"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "send message for https://example.com/")
	})

	t.Run("client without output", func(t *testing.T) {
		t.Parallel()
		client := &mockSQSClient{}
		client.On("SendMessage", mock.Anything, mock.Anything).Return(nil, nil).Once()

		p, err := NewSQSPublisher(client, queueURL)
		require.NoError(t, err)
		assert.NotPanics(t, func() {
			assert.NoError(t, p.Publish(ctx, result(t, "https://example.com/")))
		})
		client.AssertExpectations(t)
	})

	t.Run("message body and attributes", func(t *testing.T) {
		t.Parallel()
		client := &mockSQSClient{}
		var in *sqs.SendMessageInput
		client.On("SendMessage", mock.Anything, mock.AnythingOfType("*sqs.SendMessageInput")).
			Run(func(args mock.Arguments) { in = args.Get(1).(*sqs.SendMessageInput) }).
			Return(&sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil).
			Once()

		p, err := NewSQSPublisher(client, queueURL)
		require.NoError(t, err)
		p.now = func() time.Time { return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) }

		require.NoError(t, p.Publish(ctx, result(t, "https://Example.com/page")))
		client.AssertExpectations(t)
		require.NotNil(t, in)

		assert.Equal(t, queueURL, aws.ToString(in.QueueUrl))
		assert.Equal(t, "completed", aws.ToString(in.MessageAttributes["status"].StringValue))
		assert.Equal(t, "example.com", aws.ToString(in.MessageAttributes["host"].StringValue))
		assert.NotContains(t, in.MessageAttributes, "batch_id")

		msg := decodeMessage(t, in)
		assert.Equal(t, MessageType, msg.Type)
		assert.Len(t, msg.ID, 36)
		assert.Empty(t, msg.BatchID)
		assert.Equal(t, 2, msg.PublishedAt.Day())
		require.NotNil(t, msg.Result)
		assert.Equal(t, "https://Example.com/page", msg.Result.URL)
		assert.Equal(t, 100, msg.Result.Assessment.Score)
	})
}

func TestSQSPublisher_PublishAll(t *testing.T) {
	t.Parallel()

	t.Run("shares one batch id and joins errors", func(t *testing.T) {
		t.Parallel()
		client := &mockSQSClient{}
		var inputs []*sqs.SendMessageInput
		client.On("SendMessage", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { inputs = append(inputs, args.Get(1).(*sqs.SendMessageInput)) }).
			Return(nil, errors.New("throttled"))

		p, err := NewSQSPublisher(client, "https://sqs.example/queue")
		require.NoError(t, err)
		ids := []string{"batch", "m1", "m2"}
		p.newID = func() string {
			id := ids[0]
			ids = ids[1:]
			return id
		}

		err = p.PublishAll(context.TODO(), []*model.ScanResult{
			result(t, "https://a.example/"),
			result(t, "https://b.example/"),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "a.example")
		assert.Contains(t, err.Error(), "b.example")
		client.AssertNumberOfCalls(t, "SendMessage", 2)

		require.Len(t, inputs, 2)
		for i, in := range inputs {
			msg := decodeMessage(t, in)
			assert.Equal(t, "batch", msg.BatchID)
			assert.Equal(t, []string{"m1", "m2"}[i], msg.ID)
			assert.Equal(t, "batch", aws.ToString(in.MessageAttributes["batch_id"].StringValue))
		}
	})

	t.Run("stops when cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := &mockSQSClient{}
		p, err := NewSQSPublisher(client, "https://sqs.example/queue")
		require.NoError(t, err)
		assert.ErrorIs(t, p.PublishAll(ctx, []*model.ScanResult{result(t, "https://a.example/")}), context.Canceled)
		client.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
	})
}
