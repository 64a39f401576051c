package inprocess

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"muse-backend/application/ports"
)

type recordingContinuer struct {
	mu       sync.Mutex
	tasks    []ports.ContinuationTask
	deadline bool
}

func (r *recordingContinuer) Continue(ctx context.Context, task ports.ContinuationTask) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, r.deadline = ctx.Deadline()
	r.tasks = append(r.tasks, task)
}

func TestRunner_RunsTasksDetachedFromCaller(t *testing.T) {
	continuer := &recordingContinuer{}
	runner := NewRunner(continuer, zap.NewNop(), time.Minute)

	// A cancelled request context must not cancel the background task.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.Enqueue(ctx, ports.ContinuationTask{TaskID: "task-1"})
	require.NoError(t, err)
	runner.Wait()

	require.Len(t, continuer.tasks, 1)
	assert.Equal(t, "task-1", continuer.tasks[0].TaskID)
	assert.True(t, continuer.deadline, "task context should carry the runner timeout")
}

func TestRunner_WaitCoversAllTasks(t *testing.T) {
	continuer := &recordingContinuer{}
	runner := NewRunner(continuer, zap.NewNop(), time.Minute)

	for i := 0; i < 5; i++ {
		require.NoError(t, runner.Enqueue(context.Background(), ports.ContinuationTask{}))
	}
	runner.Wait()

	assert.Len(t, continuer.tasks, 5)
}
