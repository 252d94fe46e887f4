// Package status publishes the normalized per-stage status envelope to the
// durable queue consumed by the upstream system. Messages carry siteid and
// objectkey attributes so consumers can filter and deduplicate without
// decoding bodies.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Queue is the SQS send surface. *sqs.Client satisfies it.
type Queue interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, opts ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SiteResolver looks up the site identifier attached to a source object's
// metadata.
type SiteResolver interface {
	SiteID(ctx context.Context, objectKey string) (string, error)
}

// Message is the envelope published for every stage transition.
type Message struct {
	ID        string          `json:"messageid"`
	SiteID    string          `json:"siteid"`
	ObjectKey string          `json:"objectkey"`
	Process   string          `json:"process"`
	Status    string          `json:"status"`
	Payload   json.RawMessage `json:"message,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Publisher builds and sends status envelopes.
type Publisher struct {
	queue    Queue
	queueURL string
	sites    SiteResolver

	// now is the timestamp source; replaced in tests.
	now func() time.Time
}

// NewPublisher returns a Publisher for the given queue.
func NewPublisher(queue Queue, queueURL string, sites SiteResolver) *Publisher {
	return &Publisher{queue: queue, queueURL: queueURL, sites: sites, now: time.Now}
}

// Publish emits one status envelope for objectKey's process transition.
// payload may be nil; when present it is carried verbatim in the message
// body. A publish failure is fatal for the invocation — the transport's
// redelivery retries the whole handler.
func (p *Publisher) Publish(ctx context.Context, objectKey, process, statusValue string, payload any) error {
	siteID, err := p.sites.SiteID(ctx, objectKey)
	if err != nil {
		return fmt.Errorf("resolve site for %s: %w", objectKey, err)
	}

	var raw json.RawMessage
	if payload != nil {
		raw, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal status payload: %w", err)
		}
	}

	body, err := json.Marshal(Message{
		ID:        uuid.NewString(),
		SiteID:    siteID,
		ObjectKey: objectKey,
		Process:   process,
		Status:    statusValue,
		Payload:   raw,
		Timestamp: p.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal status message: %w", err)
	}

	_, err = p.queue.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"siteid": {
				DataType:    aws.String("String"),
				StringValue: aws.String(siteID),
			},
			"objectkey": {
				DataType:    aws.String("String"),
				StringValue: aws.String(objectKey),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish status for %s: %w", objectKey, err)
	}

	log.Info().
		Str("objectKey", objectKey).
		Str("process", process).
		Str("status", statusValue).
		Msg("Status event published")
	return nil
}
