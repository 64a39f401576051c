package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"muse-backend/application/agent"
	"muse-backend/application/intent"
	"muse-backend/application/memory"
	"muse-backend/application/ports"
	"muse-backend/domain/interaction"
	memstore "muse-backend/infrastructure/persistence/memory"
	"muse-backend/pkg/auth"
)

// countingStore wraps a store and counts every access, so tests can assert
// that a code path never touches durable state.
type countingStore struct {
	inner    ports.Store
	accesses int
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.accesses++
	return c.inner.Get(ctx, key)
}

func (c *countingStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.accesses++
	return c.inner.Put(ctx, key, value, ttl)
}

func (c *countingStore) Delete(ctx context.Context, key string) error {
	c.accesses++
	return c.inner.Delete(ctx, key)
}

type fakeCompleter struct {
	content string
}

func (f *fakeCompleter) Complete(_ context.Context, _ ports.CompletionRequest) (ports.Completion, error) {
	return ports.Completion{Provider: "fake", Content: f.content}, nil
}

type dispatchMedia struct {
	linked    bool
	linkedErr error
	track     ports.Track
	playErr   error
}

func (m *dispatchMedia) Linked(context.Context, string) (bool, error) {
	return m.linked, m.linkedErr
}

func (m *dispatchMedia) State(context.Context, string) (*ports.PlaybackState, error) {
	return &ports.PlaybackState{Playing: true, Track: &m.track, Device: "Office"}, nil
}

func (m *dispatchMedia) Search(context.Context, string, string) (*ports.Track, error) {
	return &m.track, nil
}

func (m *dispatchMedia) Play(context.Context, string, *ports.Track) error { return m.playErr }
func (m *dispatchMedia) Pause(context.Context, string) error              { return nil }
func (m *dispatchMedia) Resume(context.Context, string) error             { return nil }
func (m *dispatchMedia) Skip(context.Context, string) error               { return nil }

func (m *dispatchMedia) Queue(context.Context, string, *ports.Track) error { return nil }

type fakeQueue struct {
	tasks []ports.ContinuationTask
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, task ports.ContinuationTask) error {
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

// fakeMessenger fails the first failUntil SendFollowup calls, then records
type fakeMessenger struct {
	failUntil int
	calls     int
	sent      []ports.FollowupMessage
}

func (m *fakeMessenger) SendFollowup(_ context.Context, _ string, msg ports.FollowupMessage) error {
	m.calls++
	if m.calls <= m.failUntil {
		return errors.New("delivery refused")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMessenger) PostMessage(context.Context, string, string) (string, error) {
	return "", nil
}

func (m *fakeMessenger) EditMessage(context.Context, string, string, string) error   { return nil }
func (m *fakeMessenger) DeleteMessage(context.Context, string, string) error         { return nil }
func (m *fakeMessenger) ChannelHistory(context.Context, string, int) ([]string, error) {
	return nil, nil
}

type fakeMetrics struct {
	commands        int
	rateLimited     int
	followupFailure int
}

func (m *fakeMetrics) CountCommand(context.Context, string)              { m.commands++ }
func (m *fakeMetrics) CountRateLimited(context.Context, string)          { m.rateLimited++ }
func (m *fakeMetrics) CountFollowupFailure(context.Context)              { m.followupFailure++ }
func (m *fakeMetrics) ObserveLatency(context.Context, string, time.Duration) {}

type fakeLinker struct{}

func (fakeLinker) AuthURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + state
}

type testHarness struct {
	dispatcher *Dispatcher
	store      *countingStore
	media      *dispatchMedia
	queue      *fakeQueue
	sender     *fakeMessenger
	metrics    *fakeMetrics
	memory     *memory.Manager
}

func newHarness(t *testing.T, llmOutput string) *testHarness {
	t.Helper()
	logger := zap.NewNop()
	store := &countingStore{inner: memstore.NewStore()}
	media := &dispatchMedia{linked: true, track: ports.Track{Name: "So What", Artist: "Miles Davis"}}
	queue := &fakeQueue{}
	sender := &fakeMessenger{}
	metrics := &fakeMetrics{}

	completer := &fakeCompleter{content: llmOutput}
	mem := memory.NewManager(store, completer, logger, 20, 10, 2*time.Hour)
	resolver := intent.NewResolver(completer, logger)
	loop := agent.NewLoop(resolver, media, logger, time.Second)
	limiter := auth.NewRateLimiter(store, time.Minute, 10, CommandLimits())
	signer := auth.NewStateSigner("test-secret", 10*time.Minute)

	d := New(limiter, mem, loop, media, queue, sender, signer, fakeLinker{}, metrics, logger, 3, true)
	return &testHarness{
		dispatcher: d,
		store:      store,
		media:      media,
		queue:      queue,
		sender:     sender,
		metrics:    metrics,
		memory:     mem,
	}
}

func commandInteraction(name, query string) *interaction.Interaction {
	in := &interaction.Interaction{
		Type:      interaction.TypeCommand,
		ID:        "int-1",
		Token:     "tok-1",
		GuildID:   "guild-1",
		ChannelID: "chan-1",
		Data:      &interaction.Data{Name: name},
		Member:    &interaction.Member{User: &interaction.User{ID: "user-1"}},
	}
	if query != "" {
		in.Data.Options = []interaction.Option{
			{Name: "query", Type: 3, Value: []byte(fmt.Sprintf("%q", query))},
		}
	}
	return in
}

func TestDispatch_PingNeverTouchesStore(t *testing.T) {
	h := newHarness(t, "")

	resp := h.dispatcher.Dispatch(context.Background(), &interaction.Interaction{
		Type: interaction.TypePing,
		ID:   "int-1",
	})

	assert.Equal(t, interaction.ResponsePong, resp.Type)
	assert.Zero(t, h.store.accesses)
}

func TestDispatch_UnknownCommandIsImmediateError(t *testing.T) {
	h := newHarness(t, "")

	resp := h.dispatcher.Dispatch(context.Background(), commandInteraction("dance", ""))

	assert.Equal(t, interaction.ResponseMessage, resp.Type)
	assert.Contains(t, resp.Data.Content, "Unknown command")
	assert.Equal(t, interaction.FlagEphemeral, resp.Data.Flags)
	assert.Empty(t, h.queue.tasks)
}

func TestDispatch_UnlinkedUserGetsImmediateClarification(t *testing.T) {
	h := newHarness(t, "")
	h.media.linked = false

	resp := h.dispatcher.Dispatch(context.Background(), commandInteraction("play", "some jazz"))

	assert.Equal(t, interaction.ResponseMessage, resp.Type)
	assert.Contains(t, resp.Data.Content, "/link")
	assert.Empty(t, h.queue.tasks, "no deferred state when the precondition fails")
}

func TestDispatch_DeferredCommandEnqueuesTask(t *testing.T) {
	h := newHarness(t, "")

	resp := h.dispatcher.Dispatch(context.Background(), commandInteraction("ask", "play some jazz"))

	assert.Equal(t, interaction.ResponseDeferred, resp.Type)
	require.Len(t, h.queue.tasks, 1)
	task := h.queue.tasks[0]
	assert.NotEmpty(t, task.TaskID)
	assert.Equal(t, "ask", task.Command)
	assert.Equal(t, "user-1", task.UserID)
	assert.Equal(t, "tok-1", task.InteractionToken)
	assert.Equal(t, "play some jazz", task.Query)
	assert.Equal(t, 1, h.metrics.commands)
}

func TestDispatch_EnqueueFailureIsImmediateError(t *testing.T) {
	h := newHarness(t, "")
	h.queue.err = errors.New("bus unavailable")

	resp := h.dispatcher.Dispatch(context.Background(), commandInteraction("ask", "play some jazz"))

	assert.Equal(t, interaction.ResponseMessage, resp.Type)
	assert.Contains(t, resp.Data.Content, "try again")
}

func TestDispatch_RateLimitedCommandIsRejected(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	// The link command allows 5 per window.
	for i := 0; i < 5; i++ {
		resp := h.dispatcher.Dispatch(ctx, commandInteraction("link", ""))
		assert.Equal(t, interaction.ResponseMessage, resp.Type, "request %d should pass", i+1)
	}

	resp := h.dispatcher.Dispatch(ctx, commandInteraction("link", ""))
	assert.Contains(t, resp.Data.Content, "too quickly")
	assert.Equal(t, 1, h.metrics.rateLimited)
}

func TestDispatch_LinkReturnsAuthURLWithState(t *testing.T) {
	h := newHarness(t, "")

	resp := h.dispatcher.Dispatch(context.Background(), commandInteraction("link", ""))

	assert.Equal(t, interaction.ResponseMessage, resp.Type)
	assert.Contains(t, resp.Data.Content, "https://accounts.example.com/authorize?state=")
	assert.Equal(t, interaction.FlagEphemeral, resp.Data.Flags)
}

func TestDispatch_HelpIsImmediate(t *testing.T) {
	h := newHarness(t, "")

	resp := h.dispatcher.Dispatch(context.Background(), commandInteraction("help", ""))

	assert.Equal(t, interaction.ResponseMessage, resp.Type)
	assert.Contains(t, resp.Data.Content, "/play")
	assert.Empty(t, h.queue.tasks)
}

func continuationTask(command, query string) ports.ContinuationTask {
	return ports.ContinuationTask{
		TaskID:           "task-1",
		InteractionID:    "int-1",
		InteractionToken: "tok-1",
		Command:          command,
		UserID:           "user-1",
		GuildID:          "guild-1",
		ChannelID:        "chan-1",
		Query:            query,
		EnqueuedAt:       time.Now(),
	}
}

func TestContinue_DeliversResultAndRecordsMemory(t *testing.T) {
	h := newHarness(t, `{"action":"play","entities":{"target":"So What"}}`)
	ctx := context.Background()

	h.dispatcher.Continue(ctx, continuationTask("ask", "play so what"))

	require.Len(t, h.sender.sent, 1)
	assert.Contains(t, h.sender.sent[0].Content, "So What")
	assert.Contains(t, h.sender.sent[0].Content, "Miles Davis")
	assert.Nil(t, h.sender.sent[0].Components, "no retry button on success")

	entry, err := h.memory.Load(ctx, interaction.ScopeKey{
		Conversation: "guild-1", Channel: "chan-1", User: "user-1",
	})
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Len(t, entry.Messages, 2)
	assert.Equal(t, "play so what", entry.Messages[0].Content)
}

func TestContinue_FailureCarriesRetryButton(t *testing.T) {
	h := newHarness(t, `{"action":"play","entities":{"target":"So What"}}`)
	h.media.playErr = errors.New("nothing to play on")

	h.dispatcher.Continue(context.Background(), continuationTask("ask", "play so what"))

	require.Len(t, h.sender.sent, 1)
	rows, ok := h.sender.sent[0].Components.([]interaction.ActionRow)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, retryComponentID, rows[0].Components[0].CustomID)
}

func TestContinue_DeliveryExhaustionFallsBackToGenericMessage(t *testing.T) {
	h := newHarness(t, `{"action":"play","entities":{"target":"So What"}}`)
	ctx := context.Background()
	// Four attempts of the real message fail; the generic fallback lands.
	h.sender.failUntil = 4

	h.dispatcher.Continue(ctx, continuationTask("ask", "play so what"))

	require.Len(t, h.sender.sent, 1)
	assert.Contains(t, h.sender.sent[0].Content, "Something went wrong")
	assert.Equal(t, 1, h.metrics.followupFailure)

	// The memory update is independent of delivery.
	entry, err := h.memory.Load(ctx, interaction.ScopeKey{
		Conversation: "guild-1", Channel: "chan-1", User: "user-1",
	})
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Len(t, entry.Messages, 2)
}

func TestContinue_FixedCommandSkipsMemory(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	h.dispatcher.Continue(ctx, continuationTask("pause", ""))

	require.Len(t, h.sender.sent, 1)
	assert.Equal(t, "Playback paused.", h.sender.sent[0].Content)

	entry, err := h.memory.Load(ctx, interaction.ScopeKey{
		Conversation: "guild-1", Channel: "chan-1", User: "user-1",
	})
	require.NoError(t, err)
	assert.Nil(t, entry, "plain playback commands record no conversation")
}

func TestContinue_RetryReplaysLastUserRequest(t *testing.T) {
	h := newHarness(t, `{"action":"play","entities":{"target":"So What"}}`)
	ctx := context.Background()

	// Seed the conversation, then replay it through the retry component.
	h.dispatcher.Continue(ctx, continuationTask("ask", "play so what"))
	h.dispatcher.Continue(ctx, continuationTask(retryComponentID, ""))

	require.Len(t, h.sender.sent, 2)
	assert.Contains(t, h.sender.sent[1].Content, "So What")
}

func TestContinue_RetryWithoutHistoryExplainsItself(t *testing.T) {
	h := newHarness(t, "")

	h.dispatcher.Continue(context.Background(), continuationTask(retryComponentID, ""))

	require.Len(t, h.sender.sent, 1)
	assert.Contains(t, h.sender.sent[0].Content, "previous request")
}
