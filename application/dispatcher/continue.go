package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"muse-backend/application/agent"
	"muse-backend/application/intent"
	"muse-backend/application/memory"
	"muse-backend/application/ports"
	"muse-backend/domain/interaction"
)

// fixedIntents maps plain playback commands to their pre-resolved intents
var fixedIntents = map[string]intent.Action{
	"pause":  intent.ActionPause,
	"resume": intent.ActionResume,
	"skip":   intent.ActionSkip,
	"status": intent.ActionStatus,
}

// Continue runs the background half of a deferred interaction. The host
// gives no retry if this fails, so everything is caught here and converted
// into a user-visible follow-up; the pending follow-up is never silently
// dropped.
func (d *Dispatcher) Continue(ctx context.Context, task ports.ContinuationTask) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("continuation panicked",
				zap.String("task_id", task.TaskID),
				zap.Any("panic", r),
			)
			d.deliverGeneric(ctx, task)
		}
	}()

	result, exchange := d.runTask(ctx, task)

	delivered := d.deliver(ctx, task, result)

	// The memory update is an independent side effect: it proceeds whether
	// or not delivery succeeded, and its own failure must not be reported
	// as a failure of the delivered result.
	if exchange != nil {
		scope := interaction.ScopeKey{
			Conversation: conversationOf(task),
			Channel:      task.ChannelID,
			User:         task.UserID,
		}
		if _, err := d.memory.Update(ctx, scope, exchange.userMsg, exchange.assistantMsg); err != nil {
			d.logger.Warn("memory update failed after delivery",
				zap.String("task_id", task.TaskID),
				zap.Bool("delivered", delivered),
				zap.Error(err),
			)
		}
	}
}

type exchange struct {
	userMsg      string
	assistantMsg string
}

// runTask executes the deferred command and returns the result plus the
// exchange to record in memory, if any.
func (d *Dispatcher) runTask(ctx context.Context, task ports.ContinuationTask) (agent.Result, *exchange) {
	scope := interaction.ScopeKey{
		Conversation: conversationOf(task),
		Channel:      task.ChannelID,
		User:         task.UserID,
	}

	// Memory load happens before the model call that consumes it.
	entry, err := d.memory.Load(ctx, scope)
	if err != nil {
		d.logger.Warn("memory load failed, continuing without context", zap.Error(err))
	}
	conversationContext := d.memory.BuildContext(entry)

	opts := agent.Options{
		MaxIterations: d.maxIterations,
		RetryEnabled:  d.retryEnabled,
		Context:       conversationContext,
	}

	query := task.Query

	switch task.Command {
	case "ask", "play":
		result := d.loop.Run(ctx, task.UserID, query, opts)
		return result, &exchange{userMsg: query, assistantMsg: result.Message}

	case retryComponentID:
		// Re-run the most recent user request from memory.
		query = lastUserMessage(entry)
		if query == "" {
			return agent.Result{
				Success: false,
				Message: "I don't have a previous request to retry. Send it again with /ask.",
			}, nil
		}
		result := d.loop.Run(ctx, task.UserID, query, opts)
		return result, &exchange{userMsg: query, assistantMsg: result.Message}

	default:
		action, ok := fixedIntents[task.Command]
		if !ok {
			return agent.Result{
				Success: false,
				Message: fmt.Sprintf("I don't know how to finish %q.", task.Command),
			}, nil
		}
		result := d.loop.RunFixed(ctx, task.UserID, intent.Intent{Action: action}, opts)
		return result, nil
	}
}

// deliver sends the follow-up with bounded exponential backoff. Delivery is
// best-effort, not exactly-once: if every attempt fails, a generic "please
// retry" message is sent instead of dropping the result. Returns whether
// the real result reached the user.
func (d *Dispatcher) deliver(ctx context.Context, task ports.ContinuationTask, result agent.Result) bool {
	msg := ports.FollowupMessage{Content: result.Message}
	if !result.Success {
		msg.Components = []interaction.ActionRow{interaction.RetryRow(retryComponentID)}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(250*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
	), 3), ctx)

	err := backoff.Retry(func() error {
		return d.sender.SendFollowup(ctx, task.InteractionToken, msg)
	}, policy)
	if err == nil {
		return true
	}

	d.metrics.CountFollowupFailure(ctx)
	d.logger.Error("follow-up delivery exhausted retries",
		zap.String("task_id", task.TaskID),
		zap.Error(err),
	)
	d.deliverGeneric(ctx, task)
	return false
}

// deliverGeneric makes a last best-effort attempt to tell the user
// something went wrong.
func (d *Dispatcher) deliverGeneric(ctx context.Context, task ports.ContinuationTask) {
	err := d.sender.SendFollowup(ctx, task.InteractionToken, ports.FollowupMessage{
		Content: "Something went wrong while processing your request. Please try again.",
	})
	if err != nil {
		d.logger.Error("generic follow-up also failed", zap.String("task_id", task.TaskID), zap.Error(err))
	}
}

func conversationOf(task ports.ContinuationTask) string {
	if task.GuildID != "" {
		return task.GuildID
	}
	return task.ChannelID
}

// lastUserMessage finds the most recent user turn in a memory entry
func lastUserMessage(entry *memory.Entry) string {
	if entry == nil {
		return ""
	}
	for i := len(entry.Messages) - 1; i >= 0; i-- {
		if entry.Messages[i].Role == "user" {
			return entry.Messages[i].Content
		}
	}
	return ""
}
