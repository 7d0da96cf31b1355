// Package analysis implements the asynchronous content-analysis pipeline:
// the in-process work queue, the feature extractor, the worker loop that
// drains the queue, and the backfill scanner that re-enqueues missed work.
package analysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/mrodrigues22/thumbs-up/internal/platform/observability"
)

// Queue is an in-process FIFO queue of submission ids with at-least-once
// delivery. It is not persistent: a restart drops unconsumed items, which is
// what the backfill scanner compensates for. Items carry no payload; all
// submission state is fetched fresh on dequeue.
type Queue struct {
	mu     sync.Mutex
	items  []string
	signal chan struct{}
}

// NewQueue creates an empty analysis queue.
func NewQueue() *Queue {
	return &Queue{
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a submission id. It never blocks; duplicate enqueues are
// allowed and absorbed by the idempotent consumer.
func (q *Queue) Enqueue(submissionID string) {
	q.mu.Lock()
	q.items = append(q.items, submissionID)
	depth := len(q.items)
	q.mu.Unlock()

	observability.QueueDepth.Set(float64(depth))

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Dequeue blocks until an item is available or the context is canceled,
// returning items in FIFO order.
func (q *Queue) Dequeue(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			id := q.items[0]
			q.items = q.items[1:]
			depth := len(q.items)
			q.mu.Unlock()

			observability.QueueDepth.Set(float64(depth))

			// Keep the signal primed so another waiter sees remaining items.
			if depth > 0 {
				select {
				case q.signal <- struct{}{}:
				default:
				}
			}

			return id, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("dequeue: %w", ctx.Err())
		case <-q.signal:
		}
	}
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}
