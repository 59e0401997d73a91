package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu    sync.Mutex
	paths []string
}

func (h *recordingHandler) Handle(_ context.Context, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, path)
	if path == "bad.pdf" {
		return errors.New("boom")
	}
	return nil
}

func TestProcessorQueue_SequentialByDefault(t *testing.T) {
	h := &recordingHandler{}
	q := NewProcessorQueue(h, nil)
	ctx := context.Background()

	for _, p := range []string{"a.pdf", "bad.pdf", "c.png"} {
		require.NoError(t, q.Enqueue(ctx, Job{Path: p}))
	}
	q.Shutdown(ctx)

	assert.Equal(t, []string{"a.pdf", "bad.pdf", "c.png"}, h.paths)
	ok, failed := q.Counts()
	assert.Equal(t, int64(2), ok)
	assert.Equal(t, int64(1), failed)

	assert.ErrorIs(t, q.Enqueue(ctx, Job{Path: "late.pdf"}), ErrQueueClosed)
	q.Shutdown(ctx) // idempotent
}

func TestProcessorQueue_BackpressureHonoursContext(t *testing.T) {
	release := make(chan struct{})
	h := HandlerFunc(func(context.Context, string) error {
		<-release
		return nil
	})
	q := NewProcessorQueue(h, nil, WithQueueSize(1), WithProcessTimeout(time.Minute))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "1"}))
	// Wait until the worker has taken job 1 so the buffer is empty again.
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "2"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Job{Path: "3"}), context.DeadlineExceeded)

	close(release)
	q.Shutdown(context.Background())
	ok, _ := q.Counts()
	assert.Equal(t, int64(2), ok)
}
