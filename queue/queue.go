package queue

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"pulsetrack/api/config"
	"pulsetrack/api/models"
)

// flushTimeout bounds a single batch submission to the columnar writer.
const flushTimeout = 15 * time.Second

// Flusher receives a drained batch. A returned error loses the batch;
// delivery is at-most-once.
type Flusher interface {
	InsertEvents(ctx context.Context, events []models.EnrichedEvent) error
}

// Queue is the in-memory staging buffer between the ingest handler and
// the columnar writer. A single consumer goroutine owns the buffer and
// the flush scheduling; producers only touch the intake channel.
type Queue struct {
	intake  chan models.EnrichedEvent
	flusher Flusher

	flushSize     int
	flushInterval time.Duration

	lock    sync.RWMutex
	pending []models.EnrichedEvent

	dropped atomic.Uint64

	stopOnce sync.Once
	done     chan struct{}
}

func New(flusher Flusher, cfg config.Queue) *Queue {
	return &Queue{
		intake:        make(chan models.EnrichedEvent, cfg.IntakeBuffer),
		flusher:       flusher,
		flushSize:     cfg.FlushSize,
		flushInterval: cfg.FlushInterval,
		done:          make(chan struct{}),
	}
}

// Enqueue hands an event to the consumer without ever blocking the
// caller. When the intake channel is full the event is dropped and
// counted; the beacon transport cannot observe delivery anyway.
func (q *Queue) Enqueue(event models.EnrichedEvent) bool {
	select {
	case q.intake <- event:
		return true
	default:
		dropped := q.dropped.Add(1)
		log.Printf("intake channel full, dropping event for site %s (%d dropped total)", event.SiteID, dropped)
		return false
	}
}

// Dropped reports how many events were discarded at intake since start.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Len reports the number of buffered events awaiting a flush.
func (q *Queue) Len() int {
	q.lock.RLock()
	defer q.lock.RUnlock()
	return len(q.pending)
}

// Run is the consumer loop. It buffers intake events and flushes on two
// triggers: the buffer reaching the size threshold, and a repeating
// interval tick when the buffer is non-empty. A size flush does not
// reset the interval. Run returns after the intake channel is closed and
// the residue flushed.
func (q *Queue) Run() {
	defer close(q.done)

	ticker := time.NewTicker(q.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-q.intake:
			if !ok {
				q.drainIntake()
				q.flush()
				return
			}

			q.lock.Lock()
			q.pending = append(q.pending, event)
			count := len(q.pending)
			q.lock.Unlock()

			if count >= q.flushSize {
				q.flush()
			}
		case <-ticker.C:
			q.lock.RLock()
			count := len(q.pending)
			q.lock.RUnlock()

			if count > 0 {
				q.flush()
			}
		}
	}
}

// Stop closes intake and waits for the consumer's final drain, bounded
// by ctx. Events still in flight when ctx expires are lost.
func (q *Queue) Stop(ctx context.Context) error {
	q.stopOnce.Do(func() {
		close(q.intake)
	})

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drainIntake moves whatever is left on the closed channel into the
// buffer so the final flush sees it.
func (q *Queue) drainIntake() {
	for event := range q.intake {
		q.lock.Lock()
		q.pending = append(q.pending, event)
		q.lock.Unlock()
	}
}

// flush moves the whole buffer out under the write lock, releases it,
// and submits the batch. A writer error does not restore the drained
// events.
func (q *Queue) flush() {
	q.lock.Lock()
	batch := q.pending
	q.pending = nil
	q.lock.Unlock()

	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := q.flusher.InsertEvents(ctx, batch); err != nil {
		log.Printf("error while inserting batch of %d events: %v", len(batch), err)
	}
}
