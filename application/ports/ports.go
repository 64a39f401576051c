// Package ports declares the interfaces the application layer consumes from
// infrastructure. Implementations live under infrastructure/ and are wired
// by the DI container.
package ports

import (
	"context"
	"time"
)

// Store is an expiring key-value store. It is the only durable state the
// system has; nothing in process memory is authoritative between
// invocations.
type Store interface {
	// Get returns the value and whether the key exists and has not expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put writes the value with a fresh lifetime. A zero ttl stores the
	// value without expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Completion is a language-model reply, decoded once at the provider
// boundary into a provider-tagged normalized form.
type Completion struct {
	Provider string
	Content  string
}

// CompletionRequest is a provider-neutral completion call
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Completer produces language-model completions
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Track is a playable item resolved by the media API
type Track struct {
	ID     string
	Name   string
	Artist string
	URI    string
}

// PlaybackState is the current player state for a user
type PlaybackState struct {
	Playing bool
	Track   *Track
	Device  string
}

// MediaController is the token-bearing media-control REST API. Every method
// operates on the linked account of the given user.
type MediaController interface {
	// Linked reports whether the user has a linked account
	Linked(ctx context.Context, userID string) (bool, error)
	State(ctx context.Context, userID string) (*PlaybackState, error)
	Search(ctx context.Context, userID, query string) (*Track, error)
	Play(ctx context.Context, userID string, track *Track) error
	Pause(ctx context.Context, userID string) error
	Resume(ctx context.Context, userID string) error
	Skip(ctx context.Context, userID string) error
	Queue(ctx context.Context, userID string, track *Track) error
}

// FollowupMessage is the payload of an asynchronous follow-up
type FollowupMessage struct {
	Content    string
	Components interface{}
	Ephemeral  bool
}

// Messenger is the chat platform REST API used to deliver follow-ups and
// manage channel messages.
type Messenger interface {
	// SendFollowup edits the deferred placeholder identified by the
	// interaction token into the real result.
	SendFollowup(ctx context.Context, interactionToken string, msg FollowupMessage) error
	PostMessage(ctx context.Context, channelID, content string) (string, error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	ChannelHistory(ctx context.Context, channelID string, limit int) ([]string, error)
}

// ContinuationTask is the unit of deferred work published when the
// dispatcher answers with a deferred acknowledgment.
type ContinuationTask struct {
	TaskID           string    `json:"task_id"`
	InteractionID    string    `json:"interaction_id"`
	InteractionToken string    `json:"interaction_token"`
	Command          string    `json:"command"`
	UserID           string    `json:"user_id"`
	GuildID          string    `json:"guild_id"`
	ChannelID        string    `json:"channel_id"`
	Query            string    `json:"query"`
	EnqueuedAt       time.Time `json:"enqueued_at"`
}

// TaskQueue carries continuation tasks from the gateway to the background
// worker. Delivery is at-least-once at best; the worker must tolerate
// duplicates and the gateway must not depend on completion.
type TaskQueue interface {
	Enqueue(ctx context.Context, task ContinuationTask) error
}

// RowStore is a structured lookup store for exact and fuzzy queries. Only
// features outside the session-orchestration core consume it.
type RowStore interface {
	Lookup(ctx context.Context, table, key string) (map[string]string, error)
	FuzzyLookup(ctx context.Context, table, query string, limit int) ([]map[string]string, error)
}

// MetricsRecorder records operational counters and timings, best-effort
type MetricsRecorder interface {
	CountCommand(ctx context.Context, command string)
	CountRateLimited(ctx context.Context, command string)
	CountFollowupFailure(ctx context.Context)
	ObserveLatency(ctx context.Context, command string, d time.Duration)
}
