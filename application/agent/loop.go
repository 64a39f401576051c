// Package agent runs the bounded resolve-execute-classify-retry loop for
// free-text playback requests.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"muse-backend/application/intent"
	"muse-backend/application/ports"
	apperrors "muse-backend/pkg/errors"
)

// Resolver is the intent-resolution dependency
type Resolver interface {
	Resolve(ctx context.Context, freeText, conversationContext string) intent.Intent
}

// Outcome classifies how an attempt ended
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeFailure    Outcome = "failure"
	OutcomeUnknown    Outcome = "unknown_intent"
	OutcomeModeration Outcome = "moderation"
)

// Attempt is one recorded iteration of the loop
type Attempt struct {
	Intent    intent.Intent
	Outcome   Outcome
	Error     string
	Retryable bool
}

// Result is the loop's terminal state
type Result struct {
	Success bool
	Message string
	Trace   []Attempt
}

// Options bound a single run
type Options struct {
	MaxIterations int
	RetryEnabled  bool
	Context       string
}

// Substrings marking transient upstream failures worth retrying with the
// identical query.
var retryableFragments = []string{
	"no active device",
	"rate limit",
	"timeout",
	"timed out",
	"temporarily unavailable",
	"503",
}

// Substrings marking a provider content-policy rejection, which gets its
// own user-facing text instead of the generic failure message.
var moderationFragments = []string{
	"content management policy",
	"content policy",
	"moderation",
}

// Loop executes resolved intents against the media controller
type Loop struct {
	resolver Resolver
	media    ports.MediaController
	logger   *zap.Logger
	timeout  time.Duration
}

// NewLoop creates an execution loop. timeout bounds each upstream call.
func NewLoop(resolver Resolver, media ports.MediaController, logger *zap.Logger, timeout time.Duration) *Loop {
	return &Loop{resolver: resolver, media: media, logger: logger, timeout: timeout}
}

// Run resolves and executes freeText for userID, retrying transient
// failures with the identical original query. The loop never rewrites the
// query; an unresolvable request terminates in one iteration. Every attempt
// lands in the trace.
func (l *Loop) Run(ctx context.Context, userID, freeText string, opts Options) Result {
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 1
	}

	var trace []Attempt
	for i := 0; i < opts.MaxIterations; i++ {
		resolved := l.resolver.Resolve(ctx, freeText, opts.Context)

		if resolved.Action == intent.ActionUnknown {
			trace = append(trace, Attempt{Intent: resolved, Outcome: OutcomeUnknown})
			return Result{
				Success: false,
				Message: "I couldn't work out what you'd like me to play. Could you rephrase that?",
				Trace:   trace,
			}
		}

		message, err := l.execute(ctx, userID, resolved)
		if err == nil {
			trace = append(trace, Attempt{Intent: resolved, Outcome: OutcomeSuccess})
			return Result{Success: true, Message: message, Trace: trace}
		}

		errText := strings.ToLower(err.Error())

		if matchesAny(errText, moderationFragments) || apperrors.IsType(err, apperrors.ErrorTypeModeration) {
			trace = append(trace, Attempt{Intent: resolved, Outcome: OutcomeModeration, Error: err.Error()})
			return Result{
				Success: false,
				Message: "That request was declined by the provider's content policy, so I can't run it.",
				Trace:   trace,
			}
		}

		retryable := matchesAny(errText, retryableFragments) || apperrors.IsRetryable(err)
		trace = append(trace, Attempt{Intent: resolved, Outcome: OutcomeFailure, Error: err.Error(), Retryable: retryable})

		l.logger.Warn("execution attempt failed",
			zap.String("action", string(resolved.Action)),
			zap.Int("attempt", i+1),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)

		if !retryable || !opts.RetryEnabled {
			break
		}
	}

	return Result{
		Success: false,
		Message: "I couldn't complete that request. Please try again in a moment.",
		Trace:   trace,
	}
}

// RunFixed executes a pre-resolved intent with the same failure
// classification and bounded retry as Run, skipping resolution. Used for
// plain playback commands that don't need the model.
func (l *Loop) RunFixed(ctx context.Context, userID string, in intent.Intent, opts Options) Result {
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 1
	}

	var trace []Attempt
	for i := 0; i < opts.MaxIterations; i++ {
		message, err := l.execute(ctx, userID, in)
		if err == nil {
			trace = append(trace, Attempt{Intent: in, Outcome: OutcomeSuccess})
			return Result{Success: true, Message: message, Trace: trace}
		}

		errText := strings.ToLower(err.Error())

		if matchesAny(errText, moderationFragments) || apperrors.IsType(err, apperrors.ErrorTypeModeration) {
			trace = append(trace, Attempt{Intent: in, Outcome: OutcomeModeration, Error: err.Error()})
			return Result{
				Success: false,
				Message: "That request was declined by the provider's content policy, so I can't run it.",
				Trace:   trace,
			}
		}

		retryable := matchesAny(errText, retryableFragments) || apperrors.IsRetryable(err)
		trace = append(trace, Attempt{Intent: in, Outcome: OutcomeFailure, Error: err.Error(), Retryable: retryable})

		if !retryable || !opts.RetryEnabled {
			break
		}
	}

	return Result{
		Success: false,
		Message: "I couldn't complete that request. Please try again in a moment.",
		Trace:   trace,
	}
}

func matchesAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// execute performs one resolved action against the media controller,
// returning the user-facing success message.
func (l *Loop) execute(ctx context.Context, userID string, in intent.Intent) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	switch in.Action {
	case intent.ActionPlay, intent.ActionSearch:
		track, err := l.media.Search(ctx, userID, searchQuery(in))
		if err != nil {
			return "", err
		}
		if in.Action == intent.ActionSearch {
			return fmt.Sprintf("Found **%s** by %s.", track.Name, track.Artist), nil
		}
		if err := l.media.Play(ctx, userID, track); err != nil {
			return "", err
		}
		return fmt.Sprintf("Now playing **%s** by %s.", track.Name, track.Artist), nil

	case intent.ActionQueue:
		track, err := l.media.Search(ctx, userID, searchQuery(in))
		if err != nil {
			return "", err
		}
		if err := l.media.Queue(ctx, userID, track); err != nil {
			return "", err
		}
		return fmt.Sprintf("Queued **%s** by %s.", track.Name, track.Artist), nil

	case intent.ActionPause:
		if err := l.media.Pause(ctx, userID); err != nil {
			return "", err
		}
		return "Playback paused.", nil

	case intent.ActionResume:
		if err := l.media.Resume(ctx, userID); err != nil {
			return "", err
		}
		return "Playback resumed.", nil

	case intent.ActionSkip:
		if err := l.media.Skip(ctx, userID); err != nil {
			return "", err
		}
		return "Skipped to the next track.", nil

	case intent.ActionStatus:
		state, err := l.media.State(ctx, userID)
		if err != nil {
			return "", err
		}
		if state == nil || state.Track == nil {
			return "Nothing is playing right now.", nil
		}
		verb := "Paused on"
		if state.Playing {
			verb = "Playing"
		}
		return fmt.Sprintf("%s **%s** by %s on %s.", verb, state.Track.Name, state.Track.Artist, state.Device), nil
	}

	return "", fmt.Errorf("unsupported action %q", in.Action)
}

// searchQuery picks the best search string from the resolved entities
func searchQuery(in intent.Intent) string {
	switch {
	case in.Entities.Target != "":
		return in.Entities.Target
	case in.Entities.Collection != "":
		return in.Entities.Collection
	case in.Entities.Category != "":
		return in.Entities.Category
	default:
		return in.Entities.FreeText
	}
}
