package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"muse-backend/application/ports"
)

// RateLimitRecord is the persisted per-(command,user) counter. Windows are
// half-open: [WindowStart, WindowStart+window).
type RateLimitRecord struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// Decision is the outcome of a rate-limit check
type Decision struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RateLimiter is a fixed-window admission controller over the expiring
// store. Read-then-write without compare-and-swap: concurrent increments
// can race, and bursts of up to roughly twice the limit are possible at
// window boundaries. Both are accepted; the limiter is advisory.
type RateLimiter struct {
	store  ports.Store
	window time.Duration
	limits map[string]int
	// defaultLimit applies to commands without an entry in limits
	defaultLimit int
	now          func() time.Time
}

// NewRateLimiter creates a fixed-window rate limiter. limits maps command
// names to their per-window maximum; unlisted commands use defaultLimit.
func NewRateLimiter(store ports.Store, window time.Duration, defaultLimit int, limits map[string]int) *RateLimiter {
	if limits == nil {
		limits = map[string]int{}
	}
	return &RateLimiter{
		store:        store,
		window:       window,
		limits:       limits,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// Check admits or denies one invocation of command by userID. Store errors
// fail open: an unavailable limiter should not take the bot down with it.
func (r *RateLimiter) Check(ctx context.Context, command, userID string) (Decision, error) {
	limit := r.defaultLimit
	if l, ok := r.limits[command]; ok {
		limit = l
	}

	now := r.now()
	key := fmt.Sprintf("rl:%s:%s", command, userID)

	raw, found, err := r.store.Get(ctx, key)
	if err != nil {
		return Decision{Allowed: true, Remaining: limit - 1, ResetAt: now.Add(r.window)}, err
	}

	var record RateLimitRecord
	if found {
		if err := json.Unmarshal(raw, &record); err != nil {
			found = false
		}
	}

	// First request in a window, or a stale record from a past window:
	// start a fresh window.
	if !found || now.Sub(record.WindowStart) >= r.window {
		record = RateLimitRecord{Count: 1, WindowStart: now}
		err := r.put(ctx, key, record)
		return Decision{
			Allowed:   true,
			Remaining: limit - 1,
			ResetAt:   record.WindowStart.Add(r.window),
		}, err
	}

	resetAt := record.WindowStart.Add(r.window)
	if record.Count >= limit {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}, nil
	}

	record.Count++
	err = r.put(ctx, key, record)
	return Decision{
		Allowed:   true,
		Remaining: limit - record.Count,
		ResetAt:   resetAt,
	}, err
}

func (r *RateLimiter) put(ctx context.Context, key string, record RateLimitRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	// TTL covers the window remainder plus slack so a stale record never
	// outlives the next window by much.
	ttl := r.window - r.now().Sub(record.WindowStart) + 10*time.Second
	return r.store.Put(ctx, key, raw, ttl)
}
