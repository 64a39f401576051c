package llm

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"muse-backend/application/ports"
	apperrors "muse-backend/pkg/errors"
)

// Breaker wraps a completion provider in a circuit breaker so a flapping
// upstream stops burning the invocation's time budget on doomed calls.
type Breaker struct {
	inner ports.Completer
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker creates the breaker decorator
func NewBreaker(name string, inner ports.Completer, logger *zap.Logger) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
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
			logger.Warn("completion breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Breaker{inner: inner, cb: cb}
}

// Complete implements ports.Completer
func (b *Breaker) Complete(ctx context.Context, req ports.CompletionRequest) (ports.Completion, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Complete(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return ports.Completion{}, apperrors.NewUnavailableError(b.cb.Name(), err)
		}
		return ports.Completion{}, err
	}
	return result.(ports.Completion), nil
}
