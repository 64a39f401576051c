package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"muse-backend/application/ports"
	apperrors "muse-backend/pkg/errors"
)

// RESTProvider is the secondary completion provider, an OpenAI-compatible
// chat endpoint reached over plain HTTP (e.g. a Workers AI gateway).
type RESTProvider struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewRESTProvider creates the provider against the given endpoint
func NewRESTProvider(endpoint, apiKey, model string, timeout time.Duration) *RESTProvider {
	return &RESTProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

type restRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Messages  []restMessage `json:"messages"`
}

type restMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type restResponse struct {
	Choices []struct {
		Message restMessage `json:"message"`
	} `json:"choices"`
	Result *struct {
		Response string `json:"response"`
	} `json:"result"`
}

// Complete issues a completion request. Both the OpenAI-compatible choices
// shape and the Workers-AI result shape are accepted and normalized here.
func (p *RESTProvider) Complete(ctx context.Context, req ports.CompletionRequest) (ports.Completion, error) {
	payload, err := json.Marshal(restRequest{
		Model:     p.model,
		MaxTokens: req.MaxTokens,
		Messages: []restMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
	})
	if err != nil {
		return ports.Completion{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return ports.Completion{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ports.Completion{}, apperrors.NewTimeoutError("fallback completion")
		}
		return ports.Completion{}, apperrors.NewUnavailableError("fallback llm", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ports.Completion{}, apperrors.NewUnavailableError("fallback llm", err)
	}

	if resp.StatusCode != http.StatusOK {
		return ports.Completion{}, apperrors.NewUnavailableError("fallback llm",
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var decoded restResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ports.Completion{}, apperrors.NewUnavailableError("fallback llm", err)
	}

	content := ""
	switch {
	case len(decoded.Choices) > 0:
		content = decoded.Choices[0].Message.Content
	case decoded.Result != nil:
		content = decoded.Result.Response
	}
	if content == "" {
		return ports.Completion{}, apperrors.NewUnavailableError("fallback llm", nil).WithCode("EMPTY_RESPONSE")
	}

	return ports.Completion{Provider: "fallback", Content: content}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
