// Package llm implements the completion providers. Each provider decodes
// its wire response once at the boundary into the provider-tagged
// ports.Completion; nothing downstream touches provider-specific shapes.
package llm

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"muse-backend/application/ports"
	apperrors "muse-backend/pkg/errors"
)

// OpenAIProvider is the primary completion provider
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIProvider creates the provider with the given API key and model
func NewOpenAIProvider(apiKey, model string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

// Complete issues a chat completion with a hard per-call deadline
func (p *OpenAIProvider) Complete(ctx context.Context, req ports.CompletionRequest) (ports.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 400
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ports.Completion{}, apperrors.NewTimeoutError("openai completion")
		}
		if isModerationRejection(err.Error()) {
			return ports.Completion{}, apperrors.NewModerationError("").WithCause(err)
		}
		return ports.Completion{}, apperrors.NewUnavailableError("openai", err)
	}

	if len(resp.Choices) == 0 {
		return ports.Completion{}, apperrors.NewUnavailableError("openai", nil).WithCode("EMPTY_RESPONSE")
	}

	content := resp.Choices[0].Message.Content
	if resp.Choices[0].FinishReason == openai.FinishReasonContentFilter {
		return ports.Completion{}, apperrors.NewModerationError("")
	}

	return ports.Completion{Provider: "openai", Content: content}, nil
}

func isModerationRejection(errText string) bool {
	lower := strings.ToLower(errText)
	return strings.Contains(lower, "content management policy") ||
		strings.Contains(lower, "content policy") ||
		strings.Contains(lower, "content_filter")
}
