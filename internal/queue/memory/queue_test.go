package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

func TestQueueHandsJobToWaitingWorker(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	got := make(chan baseline.QueueItem, 1)
	go func() {
		item, err := q.Dequeue(context.Background())
		if err == nil {
			got <- item
		}
	}()

	want := baseline.QueueItem{JobID: "job-1", URL: "https://example.com"}
	require.NoError(t, q.Enqueue(context.Background(), want))

	select {
	case item := <-got:
		require.Equal(t, want, item)
	case <-time.After(time.Second):
		t.Fatal("worker never received the job")
	}
}

func TestQueueRespectsCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewQueue(1).Dequeue(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorContains(t, err, "dequeue canceled")

	full := NewQueue(1)
	require.NoError(t, full.Enqueue(context.Background(), baseline.QueueItem{JobID: "a-1"}))
	err = full.Enqueue(ctx, baseline.QueueItem{JobID: "a-2"})
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorContains(t, err, "enqueue canceled")
}

func TestQueueTryEnqueueReportsBackpressure(t *testing.T) {
	t.Parallel()

	q := NewQueue(0)
	ok, err := q.TryEnqueue(baseline.QueueItem{JobID: "a-1"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = q.TryEnqueue(baseline.QueueItem{JobID: "a-2"})
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, q.Len())
}

func TestQueueCloseDrainsPendingJobs(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	require.NoError(t, q.Enqueue(context.Background(), baseline.QueueItem{JobID: "a-1"}))
	require.NoError(t, q.Enqueue(context.Background(), baseline.QueueItem{JobID: "a-2"}))
	q.Close()
	q.Close()

	for _, id := range []string{"a-1", "a-2"} {
		item, err := q.Dequeue(context.Background())
		require.NoError(t, err)
		require.Equal(t, id, item.JobID)
	}
	_, err := q.Dequeue(context.Background())
	require.ErrorIs(t, err, ErrClosed)

	require.ErrorIs(t, q.Enqueue(context.Background(), baseline.QueueItem{}), ErrClosed)
	_, err = q.TryEnqueue(baseline.QueueItem{})
	require.ErrorIs(t, err, ErrClosed)
}
