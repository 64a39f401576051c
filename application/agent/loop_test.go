package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"muse-backend/application/intent"
	"muse-backend/application/ports"
)

type fakeResolver struct {
	intent intent.Intent
	calls  int
}

func (f *fakeResolver) Resolve(_ context.Context, _, _ string) intent.Intent {
	f.calls++
	return f.intent
}

// fakeMedia fails each call with the queued errors, then succeeds.
type fakeMedia struct {
	errs        []error
	searchCalls int
	playCalls   int
	pauseCalls  int
	track       ports.Track
}

func (f *fakeMedia) next() error {
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeMedia) Linked(context.Context, string) (bool, error) { return true, nil }

func (f *fakeMedia) State(context.Context, string) (*ports.PlaybackState, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return &ports.PlaybackState{Playing: true, Track: &f.track, Device: "Kitchen"}, nil
}

func (f *fakeMedia) Search(context.Context, string, string) (*ports.Track, error) {
	f.searchCalls++
	if err := f.next(); err != nil {
		return nil, err
	}
	return &f.track, nil
}

func (f *fakeMedia) Play(context.Context, string, *ports.Track) error {
	f.playCalls++
	return f.next()
}

func (f *fakeMedia) Pause(context.Context, string) error {
	f.pauseCalls++
	return f.next()
}

func (f *fakeMedia) Resume(context.Context, string) error { return f.next() }
func (f *fakeMedia) Skip(context.Context, string) error   { return f.next() }

func (f *fakeMedia) Queue(context.Context, string, *ports.Track) error { return f.next() }

func newTestLoop(resolver Resolver, media ports.MediaController) *Loop {
	return NewLoop(resolver, media, zap.NewNop(), time.Second)
}

func TestRun_UnknownIntentTerminatesInOneIteration(t *testing.T) {
	resolver := &fakeResolver{intent: intent.Unknown()}
	media := &fakeMedia{}
	loop := newTestLoop(resolver, media)

	result := loop.Run(context.Background(), "user-1", "make me a sandwich", Options{
		MaxIterations: 3,
		RetryEnabled:  true,
	})

	assert.False(t, result.Success)
	assert.Len(t, result.Trace, 1)
	assert.Equal(t, OutcomeUnknown, result.Trace[0].Outcome)
	assert.Equal(t, 1, resolver.calls)
	assert.Zero(t, media.searchCalls)
	assert.Contains(t, result.Message, "rephrase")
}

func TestRun_RetriesTransientFailuresWithIdenticalQuery(t *testing.T) {
	resolver := &fakeResolver{intent: intent.Intent{
		Action:   intent.ActionPlay,
		Entities: intent.Entities{Target: "So What"},
	}}
	media := &fakeMedia{errs: []error{
		errors.New("no active device found"),
		errors.New("no active device found"),
		errors.New("no active device found"),
	}}
	loop := newTestLoop(resolver, media)

	result := loop.Run(context.Background(), "user-1", "play so what", Options{
		MaxIterations: 3,
		RetryEnabled:  true,
	})

	assert.False(t, result.Success)
	require.Len(t, result.Trace, 3)
	for _, attempt := range result.Trace {
		assert.Equal(t, OutcomeFailure, attempt.Outcome)
		assert.True(t, attempt.Retryable)
	}
	assert.Equal(t, 3, resolver.calls)
}

func TestRun_TransientFailureThenSuccess(t *testing.T) {
	resolver := &fakeResolver{intent: intent.Intent{
		Action:   intent.ActionPlay,
		Entities: intent.Entities{Target: "So What"},
	}}
	media := &fakeMedia{
		errs:  []error{errors.New("spotify rate limit hit")},
		track: ports.Track{Name: "So What", Artist: "Miles Davis"},
	}
	loop := newTestLoop(resolver, media)

	result := loop.Run(context.Background(), "user-1", "play so what", Options{
		MaxIterations: 3,
		RetryEnabled:  true,
	})

	assert.True(t, result.Success)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, OutcomeFailure, result.Trace[0].Outcome)
	assert.Equal(t, OutcomeSuccess, result.Trace[1].Outcome)
	assert.Equal(t, "Now playing **So What** by Miles Davis.", result.Message)
}

func TestRun_NonRetryableFailureStopsImmediately(t *testing.T) {
	resolver := &fakeResolver{intent: intent.Intent{
		Action:   intent.ActionPlay,
		Entities: intent.Entities{Target: "So What"},
	}}
	media := &fakeMedia{errs: []error{
		errors.New("nothing matched the search"),
		errors.New("nothing matched the search"),
	}}
	loop := newTestLoop(resolver, media)

	result := loop.Run(context.Background(), "user-1", "play so what", Options{
		MaxIterations: 3,
		RetryEnabled:  true,
	})

	assert.False(t, result.Success)
	require.Len(t, result.Trace, 1)
	assert.False(t, result.Trace[0].Retryable)
}

func TestRun_RetryDisabledStopsAfterFirstFailure(t *testing.T) {
	resolver := &fakeResolver{intent: intent.Intent{Action: intent.ActionSkip}}
	media := &fakeMedia{errs: []error{errors.New("request timed out")}}
	loop := newTestLoop(resolver, media)

	result := loop.Run(context.Background(), "user-1", "skip this", Options{
		MaxIterations: 3,
		RetryEnabled:  false,
	})

	assert.False(t, result.Success)
	require.Len(t, result.Trace, 1)
	assert.True(t, result.Trace[0].Retryable)
}

func TestRun_ModerationGetsDedicatedMessage(t *testing.T) {
	resolver := &fakeResolver{intent: intent.Intent{
		Action:   intent.ActionPlay,
		Entities: intent.Entities{Target: "something"},
	}}
	media := &fakeMedia{errs: []error{
		errors.New("rejected by content management policy"),
	}}
	loop := newTestLoop(resolver, media)

	result := loop.Run(context.Background(), "user-1", "play something", Options{
		MaxIterations: 3,
		RetryEnabled:  true,
	})

	assert.False(t, result.Success)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, OutcomeModeration, result.Trace[0].Outcome)
	assert.Contains(t, result.Message, "content policy")
}

func TestRunFixed_ExecutesWithoutResolution(t *testing.T) {
	resolver := &fakeResolver{}
	media := &fakeMedia{}
	loop := newTestLoop(resolver, media)

	result := loop.RunFixed(context.Background(), "user-1", intent.Intent{Action: intent.ActionPause}, Options{
		MaxIterations: 3,
		RetryEnabled:  true,
	})

	assert.True(t, result.Success)
	assert.Equal(t, "Playback paused.", result.Message)
	assert.Zero(t, resolver.calls)
	assert.Equal(t, 1, media.pauseCalls)
}

func TestSearchQueryPrecedence(t *testing.T) {
	in := intent.Intent{Entities: intent.Entities{
		Target:     "a",
		Collection: "b",
		Category:   "c",
		FreeText:   "d",
	}}
	assert.Equal(t, "a", searchQuery(in))

	in.Entities.Target = ""
	assert.Equal(t, "b", searchQuery(in))

	in.Entities.Collection = ""
	assert.Equal(t, "c", searchQuery(in))

	in.Entities.Category = ""
	assert.Equal(t, "d", searchQuery(in))
}
