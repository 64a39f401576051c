// Package dispatcher ties verification, rate limiting, memory, and the
// execution loop into the interaction request/response state machine. It
// decides, per interaction, between an immediate reply and a deferred
// acknowledgment completed on the background path.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"muse-backend/application/agent"
	"muse-backend/application/memory"
	"muse-backend/application/ports"
	"muse-backend/domain/interaction"
	"muse-backend/pkg/auth"
)

// Linker builds the identity-provider authorization URL for a signed state
// token. Implemented by the media client's OAuth configuration.
type Linker interface {
	AuthURL(state string) string
}

// Dispatcher is the interaction state machine
type Dispatcher struct {
	limiter *auth.RateLimiter
	memory  *memory.Manager
	loop    *agent.Loop
	media   ports.MediaController
	queue   ports.TaskQueue
	sender  ports.Messenger
	signer  *auth.StateSigner
	linker  Linker
	metrics ports.MetricsRecorder
	logger  *zap.Logger

	maxIterations int
	retryEnabled  bool
}

// New creates a dispatcher
func New(
	limiter *auth.RateLimiter,
	mem *memory.Manager,
	loop *agent.Loop,
	media ports.MediaController,
	queue ports.TaskQueue,
	sender ports.Messenger,
	signer *auth.StateSigner,
	linker Linker,
	metrics ports.MetricsRecorder,
	logger *zap.Logger,
	maxIterations int,
	retryEnabled bool,
) *Dispatcher {
	return &Dispatcher{
		limiter:       limiter,
		memory:        mem,
		loop:          loop,
		media:         media,
		queue:         queue,
		sender:        sender,
		signer:        signer,
		linker:        linker,
		metrics:       metrics,
		logger:        logger,
		maxIterations: maxIterations,
		retryEnabled:  retryEnabled,
	}
}

// SetQueue swaps the continuation queue. The local dev server uses an
// in-process runner that needs the dispatcher itself, so it is wired in
// after construction, before any request is served.
func (d *Dispatcher) SetQueue(queue ports.TaskQueue) {
	d.queue = queue
}

// Dispatch handles one verified interaction and returns the synchronous
// response. Pings are acknowledged without touching the store. Unknown
// commands and components always take the immediate error path, never the
// deferred one.
func (d *Dispatcher) Dispatch(ctx context.Context, in *interaction.Interaction) *interaction.Response {
	switch in.Type {
	case interaction.TypePing:
		return interaction.Pong()
	case interaction.TypeCommand, interaction.TypeMessageComponent:
		return d.dispatchCommand(ctx, in)
	default:
		return interaction.Ephemeral("Unsupported interaction.")
	}
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, in *interaction.Interaction) *interaction.Response {
	started := time.Now()
	name := in.CommandName()

	spec, ok := Registry[name]
	if !ok {
		return interaction.Ephemeral(fmt.Sprintf("Unknown command %q.", name))
	}

	userID := in.UserID()
	if userID == "" {
		return interaction.Ephemeral("Couldn't identify who sent this request.")
	}

	d.metrics.CountCommand(ctx, name)
	defer func() { d.metrics.ObserveLatency(ctx, name, time.Since(started)) }()

	decision, err := d.limiter.Check(ctx, name, userID)
	if err != nil {
		// The limiter fails open; log and continue with its decision.
		d.logger.Warn("rate limit check degraded", zap.String("command", name), zap.Error(err))
	}
	if !decision.Allowed {
		d.metrics.CountRateLimited(ctx, name)
		wait := int(decision.RetryAfter.Seconds()) + 1
		return interaction.Ephemeral(fmt.Sprintf("You're sending requests too quickly. Try again in %d seconds.", wait))
	}

	if spec.NeedsLink {
		linked, err := d.media.Linked(ctx, userID)
		if err != nil {
			d.logger.Warn("link lookup failed", zap.String("user_id", userID), zap.Error(err))
			return interaction.Ephemeral("I couldn't check your account link. Please try again.")
		}
		if !linked {
			// Immediate clarification; no deferred state is created.
			return interaction.Ephemeral("You haven't linked a music account yet. Use /link first.")
		}
	}

	if !spec.Deferred {
		return d.immediate(name, userID)
	}

	task := ports.ContinuationTask{
		TaskID:           uuid.NewString(),
		InteractionID:    in.ID,
		InteractionToken: in.Token,
		Command:          name,
		UserID:           userID,
		GuildID:          in.GuildID,
		ChannelID:        in.ChannelID,
		Query:            in.StringOption("query"),
		EnqueuedAt:       time.Now(),
	}
	if err := d.queue.Enqueue(ctx, task); err != nil {
		d.logger.Error("failed to enqueue continuation", zap.String("command", name), zap.Error(err))
		return interaction.Ephemeral("Something went wrong before I could start. Please try again.")
	}

	return interaction.Deferred()
}

// immediate handles commands that never need the background path
func (d *Dispatcher) immediate(name, userID string) *interaction.Response {
	switch name {
	case "help":
		return interaction.Ephemeral(helpText())
	case "link":
		state, err := d.signer.Sign(userID)
		if err != nil {
			d.logger.Error("failed to sign link state", zap.Error(err))
			return interaction.Ephemeral("Couldn't start the link flow. Please try again.")
		}
		return interaction.Ephemeral(fmt.Sprintf("Connect your account here: %s\nThe link is valid for 10 minutes.", d.linker.AuthURL(state)))
	}
	return interaction.Ephemeral(fmt.Sprintf("Unknown command %q.", name))
}

func helpText() string {
	return "I control your music from chat.\n" +
		"`/play` or `/ask` — describe what you want to hear\n" +
		"`/pause` `/resume` `/skip` `/status` — playback controls\n" +
		"`/link` — connect your music account"
}
