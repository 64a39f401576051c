package llm

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"muse-backend/application/ports"
	apperrors "muse-backend/pkg/errors"
)

// Fallback tries the primary provider first and falls back to the
// secondary on error or empty output. Moderation rejections do not fall
// through: a second provider answering a policy-rejected request is not a
// recovery.
type Fallback struct {
	primary   ports.Completer
	secondary ports.Completer
	logger    *zap.Logger
}

// NewFallback creates the decorator. secondary may be nil, in which case
// primary errors surface directly.
func NewFallback(primary, secondary ports.Completer, logger *zap.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Complete implements ports.Completer
func (f *Fallback) Complete(ctx context.Context, req ports.CompletionRequest) (ports.Completion, error) {
	completion, err := f.primary.Complete(ctx, req)
	if err == nil && strings.TrimSpace(completion.Content) != "" {
		return completion, nil
	}

	if apperrors.IsType(err, apperrors.ErrorTypeModeration) {
		return ports.Completion{}, err
	}

	if f.secondary == nil {
		if err != nil {
			return ports.Completion{}, err
		}
		return ports.Completion{}, apperrors.NewUnavailableError("llm", nil).WithCode("EMPTY_RESPONSE")
	}

	f.logger.Warn("primary completion provider failed, trying fallback", zap.Error(err))
	return f.secondary.Complete(ctx, req)
}
