package player

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePushNeverBlocks(t *testing.T) {
	q := NewFrameQueue(4)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			q.Push(Handle{Index: i})
			if q.Len() > q.Cap() {
				t.Errorf("queue grew past its bound: %d > %d", q.Len(), q.Cap())
			}
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Push blocked on a full queue")
	}

	assert.Equal(t, 4, q.Len())
	assert.Equal(t, uint64(4), q.Sent())
	assert.Equal(t, uint64(96), q.Dropped())
}

func TestQueueDropsNewest(t *testing.T) {
	q := NewFrameQueue(2)
	assert.True(t, q.Push(Handle{Index: 0}))
	assert.True(t, q.Push(Handle{Index: 1}))
	assert.False(t, q.Push(Handle{Index: 2}))

	h, ok, eos := q.TryPop()
	require.True(t, ok)
	assert.False(t, eos)
	assert.Equal(t, 0, h.Index)

	h, ok, _ = q.TryPop()
	require.True(t, ok)
	assert.Equal(t, 1, h.Index)
}

func TestQueueCloseIsEndOfStream(t *testing.T) {
	q := NewFrameQueue(3)
	q.Push(Handle{Index: 7})
	q.Close()
	q.Close()

	assert.False(t, q.Push(Handle{Index: 8}), "push after close is dropped")

	h, ok := q.Pop(context.Background())
	require.True(t, ok)
	assert.Equal(t, 7, h.Index)

	_, ok = q.Pop(context.Background())
	assert.False(t, ok)

	_, ok, eos := q.TryPop()
	assert.False(t, ok)
	assert.True(t, eos)
}

func TestQueuePopHonorsContext(t *testing.T) {
	q := NewFrameQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := q.Pop(ctx)
	assert.False(t, ok)

	_, ok, eos := q.TryPop()
	assert.False(t, ok)
	assert.False(t, eos)
}
