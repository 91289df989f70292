package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsetrack/api/config"
	"pulsetrack/api/models"
)

type captureFlusher struct {
	mu      sync.Mutex
	batches [][]models.EnrichedEvent
	err     error
}

func (f *captureFlusher) InsertEvents(_ context.Context, events []models.EnrichedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make([]models.EnrichedEvent, len(events))
	copy(copied, events)
	f.batches = append(f.batches, copied)
	return f.err
}

func (f *captureFlusher) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *captureFlusher) batch(i int) []models.EnrichedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches[i]
}

func testEvent(i int) models.EnrichedEvent {
	return models.EnrichedEvent{
		SiteID: "site",
		Type:   "page",
		Event:  fmt.Sprintf("/page-%d", i),
	}
}

func TestSizeTriggerFlushesAtThreshold(t *testing.T) {
	flusher := &captureFlusher{}
	q := New(flusher, config.Queue{FlushSize: 15, FlushInterval: time.Minute, IntakeBuffer: 64})
	go q.Run()
	defer q.Stop(context.Background())

	for i := 0; i < 14; i++ {
		require.True(t, q.Enqueue(testEvent(i)))
	}

	// 14 events stay buffered; neither trigger has fired.
	require.Eventually(t, func() bool { return q.Len() == 14 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, flusher.batchCount())

	require.True(t, q.Enqueue(testEvent(14)))

	require.Eventually(t, func() bool { return flusher.batchCount() == 1 }, time.Second, 5*time.Millisecond)
	batch := flusher.batch(0)
	require.Len(t, batch, 15)
	assert.Equal(t, 0, q.Len())
}

func TestFlushPreservesEnqueueOrder(t *testing.T) {
	flusher := &captureFlusher{}
	q := New(flusher, config.Queue{FlushSize: 5, FlushInterval: time.Minute, IntakeBuffer: 64})
	go q.Run()
	defer q.Stop(context.Background())

	for i := 0; i < 5; i++ {
		require.True(t, q.Enqueue(testEvent(i)))
	}

	require.Eventually(t, func() bool { return flusher.batchCount() == 1 }, time.Second, 5*time.Millisecond)

	batch := flusher.batch(0)
	require.Len(t, batch, 5)
	for i, ev := range batch {
		assert.Equal(t, fmt.Sprintf("/page-%d", i), ev.Event)
	}
}

func TestTimeTriggerFlushesNonEmptyBuffer(t *testing.T) {
	flusher := &captureFlusher{}
	q := New(flusher, config.Queue{FlushSize: 100, FlushInterval: 50 * time.Millisecond, IntakeBuffer: 64})
	go q.Run()
	defer q.Stop(context.Background())

	for i := 0; i < 5; i++ {
		require.True(t, q.Enqueue(testEvent(i)))
	}

	require.Eventually(t, func() bool { return flusher.batchCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, flusher.batch(0), 5)
}

func TestTimeTriggerSkipsEmptyBuffer(t *testing.T) {
	flusher := &captureFlusher{}
	q := New(flusher, config.Queue{FlushSize: 100, FlushInterval: 20 * time.Millisecond, IntakeBuffer: 64})
	go q.Run()
	defer q.Stop(context.Background())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, flusher.batchCount())
}

func TestWriterErrorDiscardsBatch(t *testing.T) {
	flusher := &captureFlusher{err: errors.New("transport down")}
	q := New(flusher, config.Queue{FlushSize: 2, FlushInterval: time.Minute, IntakeBuffer: 64})
	go q.Run()
	defer q.Stop(context.Background())

	require.True(t, q.Enqueue(testEvent(0)))
	require.True(t, q.Enqueue(testEvent(1)))

	require.Eventually(t, func() bool { return flusher.batchCount() == 1 }, time.Second, 5*time.Millisecond)

	// The failed batch is not restored.
	assert.Equal(t, 0, q.Len())

	require.True(t, q.Enqueue(testEvent(2)))
	require.True(t, q.Enqueue(testEvent(3)))

	require.Eventually(t, func() bool { return flusher.batchCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Len(t, flusher.batch(1), 2)
}

func TestEnqueueDropsWhenIntakeFull(t *testing.T) {
	flusher := &captureFlusher{}
	// No consumer running: the channel fills at its capacity.
	q := New(flusher, config.Queue{FlushSize: 15, FlushInterval: time.Minute, IntakeBuffer: 2})

	assert.True(t, q.Enqueue(testEvent(0)))
	assert.True(t, q.Enqueue(testEvent(1)))
	assert.False(t, q.Enqueue(testEvent(2)))
	assert.False(t, q.Enqueue(testEvent(3)))

	assert.Equal(t, uint64(2), q.Dropped())
}

func TestStopDrainsBufferedEvents(t *testing.T) {
	flusher := &captureFlusher{}
	q := New(flusher, config.Queue{FlushSize: 100, FlushInterval: time.Minute, IntakeBuffer: 64})
	go q.Run()

	for i := 0; i < 3; i++ {
		require.True(t, q.Enqueue(testEvent(i)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, q.Stop(ctx))

	require.Equal(t, 1, flusher.batchCount())
	assert.Len(t, flusher.batch(0), 3)
}

func TestStopIsIdempotent(t *testing.T) {
	flusher := &captureFlusher{}
	q := New(flusher, config.Queue{FlushSize: 100, FlushInterval: time.Minute, IntakeBuffer: 64})
	go q.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, q.Stop(ctx))
	require.NoError(t, q.Stop(ctx))
}
