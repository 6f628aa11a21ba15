package audit

import (
	"context"
	"fmt"
	"sync"

	"github.com/abhisek/skillissue/internal/logger"
	"github.com/abhisek/skillissue/internal/store"
)

// Queue hands entries to a single background writer through a bounded
// buffer. Entries are written in the order they were recorded.
type Queue struct {
	next Sink
	log  *logger.Logger

	ch   chan *store.SchedulingLogEntry
	stop chan struct{}
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts the writer goroutine. size is the buffer capacity.
func NewQueue(next Sink, size int, log *logger.Logger) *Queue {
	if log == nil {
		log = logger.Nop()
	}
	q := &Queue{
		next: next,
		log:  log,
		ch:   make(chan *store.SchedulingLogEntry, max(size, 1)),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case <-q.stop:
			return
		default:
		}
		select {
		case <-q.stop:
			return
		case e, ok := <-q.ch:
			if !ok {
				return
			}
			q.next.Record(context.Background(), e)
		}
	}
}

// Record enqueues e, waiting for buffer space until ctx is done. An entry
// that cannot be enqueued is logged and dropped. After Drain, entries are
// written inline.
func (q *Queue) Record(ctx context.Context, e *store.SchedulingLogEntry) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.next.Record(ctx, e)
		return
	}
	select {
	case q.ch <- e:
	case <-ctx.Done():
		q.log.Warn("audit entry dropped", "tick_id", e.TickID, "user_id", e.UserID, "skill_id", e.SkillID, "error", ctx.Err())
	}
}

// Drain stops accepting queued entries and waits for the buffer to flush.
// If ctx ends first, whatever is still buffered is discarded and logged, and
// the returned error reports how many entries were lost.
func (q *Queue) Drain(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
	}

	close(q.stop)
	<-q.done

	var discarded int
	for e := range q.ch {
		discarded++
		q.log.Warn("audit entry discarded at shutdown",
			"tick_id", e.TickID,
			"user_id", e.UserID,
			"skill_id", e.SkillID,
			"decision", string(e.Decision),
			"reason", e.Reason,
		)
	}
	if discarded == 0 {
		return nil
	}
	return fmt.Errorf("audit drain: discarded %d entries: %w", discarded, ctx.Err())
}
