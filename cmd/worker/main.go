// The worker Lambda runs the background half of deferred interactions. An
// EventBridge rule on the gateway's bus routes continuation events here;
// the platform gives no retry if we throw, so Continue converts every
// failure into a user-visible follow-up instead.
package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"muse-backend/application/ports"
	"muse-backend/infrastructure/config"
	"muse-backend/infrastructure/di"
)

var container *di.Container

func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
}

// Handler consumes one continuation event
func Handler(ctx context.Context, event events.CloudWatchEvent) error {
	var task ports.ContinuationTask
	if err := json.Unmarshal(event.Detail, &task); err != nil {
		// A malformed event will never parse on redelivery either; log and
		// drop rather than poison-pill the rule.
		container.Logger.Error("unparseable continuation event",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return nil
	}

	container.Logger.Info("continuation started",
		zap.String("task_id", task.TaskID),
		zap.String("command", task.Command),
	)

	container.Dispatcher.Continue(ctx, task)
	return nil
}

func main() {
	lambda.Start(Handler)
}
