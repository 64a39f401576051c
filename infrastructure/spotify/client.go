package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"muse-backend/application/ports"
	apperrors "muse-backend/pkg/errors"
)

const defaultAPIBase = "https://api.spotify.com/v1"

// Client is the MediaController implementation over the Spotify Web API
type Client struct {
	auth    *Authenticator
	http    *http.Client
	base    string
	logger  *zap.Logger
	timeout time.Duration
}

// NewClient creates a media client. Every call is individually time-boxed.
func NewClient(auth *Authenticator, logger *zap.Logger, timeout time.Duration) *Client {
	return &Client{
		auth:    auth,
		http:    &http.Client{Timeout: timeout},
		base:    defaultAPIBase,
		logger:  logger,
		timeout: timeout,
	}
}

// Linked reports whether the user has a linked account
func (c *Client) Linked(ctx context.Context, userID string) (bool, error) {
	token, err := c.auth.Token(ctx, userID)
	if err != nil {
		return false, err
	}
	return token != nil, nil
}

// State returns the user's current playback state, or an empty state when
// nothing is playing (the API answers 204 in that case).
func (c *Client) State(ctx context.Context, userID string) (*ports.PlaybackState, error) {
	body, status, err := c.do(ctx, userID, http.MethodGet, "/me/player", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return &ports.PlaybackState{}, nil
	}

	var decoded struct {
		IsPlaying bool `json:"is_playing"`
		Device    struct {
			Name string `json:"name"`
		} `json:"device"`
		Item *struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			URI     string `json:"uri"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"item"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, apperrors.NewExternalError("spotify state", err)
	}

	state := &ports.PlaybackState{Playing: decoded.IsPlaying, Device: decoded.Device.Name}
	if decoded.Item != nil {
		artist := ""
		if len(decoded.Item.Artists) > 0 {
			artist = decoded.Item.Artists[0].Name
		}
		state.Track = &ports.Track{
			ID:     decoded.Item.ID,
			Name:   decoded.Item.Name,
			Artist: artist,
			URI:    decoded.Item.URI,
		}
	}
	return state, nil
}

// Search resolves a query to the best-matching track
func (c *Client) Search(ctx context.Context, userID, query string) (*ports.Track, error) {
	q := url.Values{"q": {query}, "type": {"track"}, "limit": {"1"}}
	body, _, err := c.do(ctx, userID, http.MethodGet, "/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Tracks struct {
			Items []struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				URI     string `json:"uri"`
				Artists []struct {
					Name string `json:"name"`
				} `json:"artists"`
			} `json:"items"`
		} `json:"tracks"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, apperrors.NewExternalError("spotify search", err)
	}
	if len(decoded.Tracks.Items) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("track matching %q", query))
	}

	item := decoded.Tracks.Items[0]
	artist := ""
	if len(item.Artists) > 0 {
		artist = item.Artists[0].Name
	}
	return &ports.Track{ID: item.ID, Name: item.Name, Artist: artist, URI: item.URI}, nil
}

// Play starts playback of the given track on the user's active device
func (c *Client) Play(ctx context.Context, userID string, track *ports.Track) error {
	payload := map[string]interface{}{"uris": []string{track.URI}}
	_, _, err := c.do(ctx, userID, http.MethodPut, "/me/player/play", payload)
	return err
}

// Pause pauses playback
func (c *Client) Pause(ctx context.Context, userID string) error {
	_, _, err := c.do(ctx, userID, http.MethodPut, "/me/player/pause", nil)
	return err
}

// Resume resumes playback
func (c *Client) Resume(ctx context.Context, userID string) error {
	_, _, err := c.do(ctx, userID, http.MethodPut, "/me/player/play", nil)
	return err
}

// Skip advances to the next track
func (c *Client) Skip(ctx context.Context, userID string) error {
	_, _, err := c.do(ctx, userID, http.MethodPost, "/me/player/next", nil)
	return err
}

// Queue appends a track to the user's queue
func (c *Client) Queue(ctx context.Context, userID string, track *ports.Track) error {
	q := url.Values{"uri": {track.URI}}
	_, _, err := c.do(ctx, userID, http.MethodPost, "/me/player/queue?"+q.Encode(), nil)
	return err
}

// do issues one authenticated API call with a hard deadline and maps error
// statuses onto the application taxonomy. The "no active device" answer
// (404 on player endpoints) keeps its upstream wording because the
// execution loop classifies failures by error text.
func (c *Client) do(ctx context.Context, userID, method, path string, payload interface{}) ([]byte, int, error) {
	token, err := c.auth.Token(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if token == nil {
		return nil, 0, apperrors.NewUnauthorizedError("no linked account")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, 0, apperrors.NewTimeoutError("spotify " + path)
		}
		return nil, 0, apperrors.NewUnavailableError("spotify", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, apperrors.NewExternalError("spotify", err)
	}

	switch {
	case resp.StatusCode == http.StatusNoContent, resp.StatusCode < 300:
		return body, resp.StatusCode, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, resp.StatusCode, fmt.Errorf("no active device found")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resp.StatusCode, fmt.Errorf("spotify rate limit hit")
	case resp.StatusCode >= 500:
		return nil, resp.StatusCode, apperrors.NewUnavailableError("spotify", fmt.Errorf("status %d", resp.StatusCode))
	default:
		return nil, resp.StatusCode, apperrors.NewExternalError("spotify",
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
