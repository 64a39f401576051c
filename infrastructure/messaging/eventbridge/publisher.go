// Package eventbridge publishes continuation tasks onto an EventBridge bus.
// A rule routes them to the worker Lambda, which is how deferred work
// outlives the short-lived gateway invocation.
package eventbridge

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"muse-backend/application/ports"
	apperrors "muse-backend/pkg/errors"
)

// Source tags events published by the gateway
const Source = "muse.gateway"

// DetailTypeContinuation is the event detail type for continuation tasks
const DetailTypeContinuation = "interaction.continuation"

// Publisher implements ports.TaskQueue over EventBridge
type Publisher struct {
	client       *awseventbridge.Client
	eventBusName string
	logger       *zap.Logger
}

// NewPublisher creates a publisher onto the named bus
func NewPublisher(client *awseventbridge.Client, eventBusName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
	}
}

// Enqueue publishes one continuation task. Delivery is at-least-once; the
// worker tolerates duplicates.
func (p *Publisher) Enqueue(ctx context.Context, task ports.ContinuationTask) error {
	detail, err := json.Marshal(task)
	if err != nil {
		return err
	}

	out, err := p.client.PutEvents(ctx, &awseventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				EventBusName: aws.String(p.eventBusName),
				Source:       aws.String(Source),
				DetailType:   aws.String(DetailTypeContinuation),
				Detail:       aws.String(string(detail)),
				Time:         aws.Time(task.EnqueuedAt),
			},
		},
	})
	if err != nil {
		return apperrors.NewUnavailableError("eventbridge", err)
	}
	if out.FailedEntryCount > 0 {
		p.logger.Error("eventbridge rejected continuation",
			zap.String("task_id", task.TaskID),
			zap.Int32("failed", out.FailedEntryCount),
		)
		return apperrors.NewUnavailableError("eventbridge", nil).WithCode("PUT_EVENTS_FAILED")
	}

	p.logger.Info("continuation enqueued",
		zap.String("task_id", task.TaskID),
		zap.String("command", task.Command),
	)
	return nil
}
