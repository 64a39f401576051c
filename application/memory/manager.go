// Package memory implements short-term conversational memory: a rolling
// exchange window, extracted facts, and a periodically refreshed summary,
// scoped per conversation and expiring after a fixed idle period. It is
// what lets a fleet of stateless request handlers look like one continuous
// conversation.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"muse-backend/application/ports"
	"muse-backend/domain/interaction"
)

// Message is one conversational turn
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	TS      time.Time `json:"ts"`
}

// Entry is the persisted memory for one scope
type Entry struct {
	Messages  []Message         `json:"messages"`
	Facts     map[string]string `json:"facts,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Manager loads and updates memory entries. Writes are last-write-wins:
// concurrent invocations from the same user may clobber each other, which
// is accepted for a short-lived advisory cache.
type Manager struct {
	store       ports.Store
	summarizer  ports.Completer
	logger      *zap.Logger
	maxMessages int
	summarizeAt int
	idleExpiry  time.Duration
	now         func() time.Time
}

// NewManager creates a memory manager. summarizer may be nil, in which case
// entries simply never carry a summary.
func NewManager(store ports.Store, summarizer ports.Completer, logger *zap.Logger, maxMessages, summarizeAt int, idleExpiry time.Duration) *Manager {
	return &Manager{
		store:       store,
		summarizer:  summarizer,
		logger:      logger,
		maxMessages: maxMessages,
		summarizeAt: summarizeAt,
		idleExpiry:  idleExpiry,
		now:         time.Now,
	}
}

func storeKey(scope interaction.ScopeKey) string {
	return fmt.Sprintf("stm:%s:%s:%s", scope.Conversation, scope.Channel, scope.User)
}

// Load fetches the memory entry for scope, or nil when none exists. A nil
// entry is a normal state for a fresh conversation, not an error.
func (m *Manager) Load(ctx context.Context, scope interaction.ScopeKey) (*Entry, error) {
	raw, found, err := m.store.Get(ctx, storeKey(scope))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A corrupt entry is dropped rather than surfaced; memory is
		// disposable.
		m.logger.Warn("discarding unreadable memory entry", zap.Error(err))
		return nil, nil
	}
	return &entry, nil
}

// Update appends the latest exchange, merges extracted facts, refreshes the
// summary when due, and persists with a renewed lifetime. The entry's
// message count never exceeds the configured maximum; the oldest messages
// are evicted first.
func (m *Manager) Update(ctx context.Context, scope interaction.ScopeKey, userMsg, assistantMsg string) (*Entry, error) {
	entry, err := m.Load(ctx, scope)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if entry == nil {
		entry = &Entry{CreatedAt: now}
	}

	entry.Messages = append(entry.Messages,
		Message{Role: "user", Content: userMsg, TS: now},
		Message{Role: "assistant", Content: assistantMsg, TS: now},
	)
	if over := len(entry.Messages) - m.maxMessages; over > 0 {
		entry.Messages = entry.Messages[over:]
	}

	for k, v := range extractFacts(userMsg) {
		if entry.Facts == nil {
			entry.Facts = make(map[string]string)
		}
		entry.Facts[k] = v
	}

	if m.summaryDue(entry) {
		m.refreshSummary(ctx, entry)
	}

	entry.UpdatedAt = now

	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	if err := m.store.Put(ctx, storeKey(scope), raw, m.idleExpiry); err != nil {
		return nil, err
	}
	return entry, nil
}

// summaryDue is true when the window first reaches the summarize threshold
// with no summary yet, and every time it fills completely.
func (m *Manager) summaryDue(entry *Entry) bool {
	if m.summarizer == nil {
		return false
	}
	count := len(entry.Messages)
	if entry.Summary == "" && count >= m.summarizeAt {
		return true
	}
	return count >= m.maxMessages
}

// refreshSummary asks the model for a short synopsis. Best-effort: on any
// provider failure the previous summary is kept and the update proceeds.
func (m *Manager) refreshSummary(ctx context.Context, entry *Entry) {
	var transcript strings.Builder
	for _, msg := range entry.Messages {
		transcript.WriteString(msg.Role)
		transcript.WriteString(": ")
		transcript.WriteString(msg.Content)
		transcript.WriteString("\n")
	}

	completion, err := m.summarizer.Complete(ctx, ports.CompletionRequest{
		System:    "Summarize this conversation in at most three sentences. Keep names, preferences, and open requests.",
		Prompt:    transcript.String(),
		MaxTokens: 150,
	})
	if err != nil || strings.TrimSpace(completion.Content) == "" {
		m.logger.Warn("summary refresh failed, keeping previous", zap.Error(err))
		return
	}
	entry.Summary = strings.TrimSpace(completion.Content)
}

// BuildContext assembles the summary, facts, and last few raw exchanges for
// injection into a model call. Returns "" when there is no memory; callers
// treat that as a normal cold start.
func (m *Manager) BuildContext(entry *Entry) string {
	if entry == nil {
		return ""
	}

	var b strings.Builder
	if entry.Summary != "" {
		b.WriteString("Conversation summary: ")
		b.WriteString(entry.Summary)
		b.WriteString("\n")
	}
	if len(entry.Facts) > 0 {
		b.WriteString("Known facts:\n")
		for k, v := range entry.Facts {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}

	// Only the tail of the window goes in raw; the summary carries the rest.
	const recent = 6
	msgs := entry.Messages
	if len(msgs) > recent {
		msgs = msgs[len(msgs)-recent:]
	}
	if len(msgs) > 0 {
		b.WriteString("Recent exchanges:\n")
		for _, msg := range msgs {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
	}
	return b.String()
}
