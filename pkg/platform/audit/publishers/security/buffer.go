// Package security provides a best-effort audit publisher for rejected
// identifier lookups and other events worth monitoring.
package security

import (
	"sync"

	audit "prms/pkg/platform/audit"
)

const defaultBufferSize = 10000

// pending holds events waiting for the next flush. At capacity the oldest
// event is discarded, so a burst of rejections never blocks the caller.
type pending struct {
	mu       sync.Mutex
	events   []audit.Event
	capacity int
	dropped  int64
}

func newPending(capacity int) *pending {
	if capacity <= 0 {
		capacity = defaultBufferSize
	}
	return &pending{capacity: capacity}
}

func (q *pending) push(event audit.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == q.capacity {
		q.events[0] = audit.Event{}
		q.events = q.events[1:]
		q.dropped++
	}
	q.events = append(q.events, event)
}

// take removes and returns up to n of the oldest events.
func (q *pending) take(n int) []audit.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	n = min(n, len(q.events))
	batch := make([]audit.Event, n)
	copy(batch, q.events[:n])
	q.events = q.events[n:]
	if len(q.events) == 0 {
		q.events = nil
	}
	return batch
}

func (q *pending) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func (q *pending) droppedTotal() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
