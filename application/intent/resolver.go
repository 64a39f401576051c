// Package intent turns free text into a structured playback action via a
// schema-constrained language-model call.
package intent

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"muse-backend/application/ports"
)

// Action is a resolved playback action
type Action string

const (
	ActionPlay    Action = "play"
	ActionPause   Action = "pause"
	ActionResume  Action = "resume"
	ActionSkip    Action = "skip"
	ActionQueue   Action = "queue"
	ActionSearch  Action = "search"
	ActionStatus  Action = "status"
	ActionUnknown Action = "unknown"
)

var allowedActions = map[Action]bool{
	ActionPlay:   true,
	ActionPause:  true,
	ActionResume: true,
	ActionSkip:   true,
	ActionQueue:  true,
	ActionSearch: true,
	ActionStatus: true,
}

// Entities are the optional slots the model may fill
type Entities struct {
	Target     string `json:"target,omitempty"`
	Collection string `json:"collection,omitempty"`
	Category   string `json:"category,omitempty"`
	FreeText   string `json:"free_text,omitempty"`
}

// Intent is the structured result of resolution. Produced once, consumed
// once.
type Intent struct {
	Action   Action   `json:"action"`
	Entities Entities `json:"entities"`
}

// Unknown is the sentinel intent for anything that could not be resolved.
// Callers treat it as a normal terminal outcome needing a clarifying reply.
func Unknown() Intent {
	return Intent{Action: ActionUnknown}
}

const instructions = `You translate music requests into a single JSON object and nothing else.
Schema: {"action": one of play|pause|resume|skip|queue|search|status|unknown,
"entities": {"target": song or item name, "collection": album or playlist,
"category": genre or mood, "free_text": anything else}}.
All entity fields are optional. If the request is not about music playback,
use action "unknown".`

// Resolver resolves free text into intents
type Resolver struct {
	completer ports.Completer
	logger    *zap.Logger
}

// NewResolver creates a resolver over the given completion provider
func NewResolver(completer ports.Completer, logger *zap.Logger) *Resolver {
	return &Resolver{completer: completer, logger: logger}
}

// Resolve asks the model for a structured action. Any provider, parse, or
// validation failure yields the unknown intent; Resolve never returns an
// error for bad model output.
func (r *Resolver) Resolve(ctx context.Context, freeText, conversationContext string) Intent {
	prompt := freeText
	if conversationContext != "" {
		prompt = conversationContext + "\nRequest: " + freeText
	}

	completion, err := r.completer.Complete(ctx, ports.CompletionRequest{
		System:    instructions,
		Prompt:    prompt,
		MaxTokens: 200,
	})
	if err != nil {
		r.logger.Warn("intent resolution call failed", zap.Error(err))
		return Unknown()
	}

	return parseIntent(completion.Content)
}

// parseIntent defensively extracts an intent from raw model output: strip
// code fencing, find the first balanced JSON object, decode, and validate
// the action against the allow-list.
func parseIntent(output string) Intent {
	cleaned := stripFences(output)
	object := firstJSONObject(cleaned)
	if object == "" {
		return Unknown()
	}

	var parsed Intent
	if err := json.Unmarshal([]byte(object), &parsed); err != nil {
		return Unknown()
	}

	parsed.Action = Action(strings.ToLower(strings.TrimSpace(string(parsed.Action))))
	if !allowedActions[parsed.Action] {
		return Unknown()
	}
	return parsed
}

// stripFences removes markdown code fencing the model sometimes wraps
// around its output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Language hint on the opening fence
	if idx := strings.IndexByte(s, '\n'); idx >= 0 && !strings.ContainsAny(s[:idx], "{}") {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
