// Package discord implements the chat platform's REST API: follow-up
// delivery for deferred interactions and basic channel message management.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"muse-backend/application/ports"
	"muse-backend/domain/interaction"
	apperrors "muse-backend/pkg/errors"
)

// Client is the Messenger implementation
type Client struct {
	base    string
	appID   string
	token   string
	http    *http.Client
	logger  *zap.Logger
	timeout time.Duration
}

// NewClient creates a messenger. base is the platform API base URL.
func NewClient(base, appID, botToken string, logger *zap.Logger, timeout time.Duration) *Client {
	return &Client{
		base:    base,
		appID:   appID,
		token:   botToken,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		timeout: timeout,
	}
}

// SendFollowup edits the deferred placeholder into the real result. The
// interaction token authorizes this without the bot token.
func (c *Client) SendFollowup(ctx context.Context, interactionToken string, msg ports.FollowupMessage) error {
	payload := map[string]interface{}{"content": msg.Content}
	if msg.Components != nil {
		payload["components"] = msg.Components
	}
	if msg.Ephemeral {
		payload["flags"] = interaction.FlagEphemeral
	}

	path := fmt.Sprintf("/webhooks/%s/%s/messages/@original", c.appID, interactionToken)
	_, err := c.do(ctx, http.MethodPatch, path, payload, false)
	return err
}

// PostMessage creates a channel message and returns its ID
func (c *Client) PostMessage(ctx context.Context, channelID, content string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages", channelID),
		map[string]interface{}{"content": content}, true)
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", apperrors.NewExternalError("discord", err)
	}
	return created.ID, nil
}

// EditMessage edits a channel message
func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	_, err := c.do(ctx, http.MethodPatch,
		fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID),
		map[string]interface{}{"content": content}, true)
	return err
}

// DeleteMessage deletes a channel message
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	_, err := c.do(ctx, http.MethodDelete,
		fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID), nil, true)
	return err
}

// ChannelHistory fetches the content of the most recent channel messages,
// newest first.
func (c *Client) ChannelHistory(ctx context.Context, channelID string, limit int) ([]string, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	body, err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("/channels/%s/messages?limit=%d", channelID, limit), nil, true)
	if err != nil {
		return nil, err
	}

	var messages []struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &messages); err != nil {
		return nil, apperrors.NewExternalError("discord", err)
	}

	contents := make([]string, 0, len(messages))
	for _, m := range messages {
		contents = append(contents, m.Content)
	}
	return contents, nil
}

// do issues one API call with a hard deadline. authed selects bot-token
// authentication; webhook endpoints are authorized by the URL itself.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}, authed bool) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bot "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewTimeoutError("discord " + path)
		}
		return nil, apperrors.NewUnavailableError("discord", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.NewExternalError("discord", err)
	}

	switch {
	case resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.NewUnavailableError("discord", fmt.Errorf("rate limited"))
	case resp.StatusCode >= 500:
		return nil, apperrors.NewUnavailableError("discord", fmt.Errorf("status %d", resp.StatusCode))
	default:
		return nil, apperrors.NewExternalError("discord",
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
