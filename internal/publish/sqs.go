package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/nao1215/pixelscan/internal/model"
)

// ErrNoQueueURL is returned when a publisher is created without a queue.
var ErrNoQueueURL = errors.New("sqs queue url is required")

// MessageType is the value of the "type" field of every message.
const MessageType = "pixelscan.result"

// SQSAPI is the part of the SQS client the publisher needs.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Message is the body sent for each result.
type Message struct {
	// ID is unique per message so that consumers can drop redeliveries.
	ID   string `json:"id"`
	Type string `json:"type"`

	// BatchID groups the messages sent by one PublishAll call.
	BatchID     string            `json:"batch_id,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
	Result      *model.ScanResult `json:"result"`
}

// SQSPublisher sends scan results to a queue.
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

// Option configures an SQSPublisher.
type Option func(*SQSPublisher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *SQSPublisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewSQSPublisher creates a publisher sending to queueURL through client.
func NewSQSPublisher(client SQSAPI, queueURL string, opts ...Option) (*SQSPublisher, error) {
	if queueURL == "" {
		return nil, ErrNoQueueURL
	}
	p := &SQSPublisher{
		client:   client,
		queueURL: queueURL,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewDefaultSQSPublisher loads AWS credentials and region from the
// environment and shared config files.
func NewDefaultSQSPublisher(ctx context.Context, queueURL string, opts ...Option) (*SQSPublisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSQSPublisher(sqs.NewFromConfig(cfg), queueURL, opts...)
}

// Publish sends one result. The status and host are set as message
// attributes so that subscribers can filter without decoding the body.
func (p *SQSPublisher) Publish(ctx context.Context, result *model.ScanResult) error {
	return p.publish(ctx, result, "")
}

func (p *SQSPublisher) publish(ctx context.Context, result *model.ScanResult, batchID string) error {
	body, err := json.Marshal(Message{
		ID:          p.newID(),
		Type:        MessageType,
		BatchID:     batchID,
		PublishedAt: p.now().UTC(),
		Result:      result,
	})
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", result.URL, err)
	}

	attrs := map[string]types.MessageAttributeValue{
		"status": {DataType: aws.String("String"), StringValue: aws.String(result.Status.String())},
		"host":   {DataType: aws.String("String"), StringValue: aws.String(hostOrUnknown(result))},
	}
	if batchID != "" {
		attrs["batch_id"] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(batchID)}
	}

	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(p.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("send message for %s: %w", result.URL, err)
	}
	var messageID string
	if out != nil {
		messageID = aws.ToString(out.MessageId)
	}
	p.logger.Debug("published result", "url", result.URL, "message_id", messageID)
	return nil
}

// PublishAll sends every result under a fresh batch ID and joins the
// errors of those that failed.
func (p *SQSPublisher) PublishAll(ctx context.Context, results []*model.ScanResult) error {
	batchID := p.newID()
	var errs []error
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := p.publish(ctx, r, batchID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func hostOrUnknown(r *model.ScanResult) string {
	if h := r.Host(); h != "" {
		return h
	}
	return "unknown"
}
