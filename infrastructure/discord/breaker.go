package discord

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"muse-backend/application/ports"
	apperrors "muse-backend/pkg/errors"
)

// Breaker wraps a messenger in a circuit breaker. A platform outage should
// not burn the continuation's time budget on calls that cannot land; the
// dispatcher's generic-fallback path still runs when the circuit is open.
type Breaker struct {
	inner ports.Messenger
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker creates the breaker decorator
func NewBreaker(inner ports.Messenger, logger *zap.Logger) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "discord",
		MaxRequests: 2,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("messenger breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Breaker{inner: inner, cb: cb}
}

func (b *Breaker) execute(op func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, op()
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return apperrors.NewUnavailableError("discord", err)
	}
	return err
}

// SendFollowup implements ports.Messenger
func (b *Breaker) SendFollowup(ctx context.Context, interactionToken string, msg ports.FollowupMessage) error {
	return b.execute(func() error {
		return b.inner.SendFollowup(ctx, interactionToken, msg)
	})
}

// PostMessage implements ports.Messenger
func (b *Breaker) PostMessage(ctx context.Context, channelID, content string) (string, error) {
	var id string
	err := b.execute(func() error {
		var innerErr error
		id, innerErr = b.inner.PostMessage(ctx, channelID, content)
		return innerErr
	})
	return id, err
}

// EditMessage implements ports.Messenger
func (b *Breaker) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	return b.execute(func() error {
		return b.inner.EditMessage(ctx, channelID, messageID, content)
	})
}

// DeleteMessage implements ports.Messenger
func (b *Breaker) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return b.execute(func() error {
		return b.inner.DeleteMessage(ctx, channelID, messageID)
	})
}

// ChannelHistory implements ports.Messenger
func (b *Breaker) ChannelHistory(ctx context.Context, channelID string, limit int) ([]string, error) {
	var contents []string
	err := b.execute(func() error {
		var innerErr error
		contents, innerErr = b.inner.ChannelHistory(ctx, channelID, limit)
		return innerErr
	})
	return contents, err
}
