// Package queue holds the bounded FIFO between the display event producers
// (message ingestion, clock) and the render loop.
package queue

import (
	"sync/atomic"
	"time"

	"github.com/jypelle/homeboard/internal/srv/event"
)

const DefaultCapacity = 5

// DisplayQueue is safe for several producers and one consumer.
// A full queue never evicts: the event being offered is the one dropped.
type DisplayQueue struct {
	events  chan event.DisplayEvent
	dropped atomic.Int64
}

func NewDisplayQueue(capacity int) *DisplayQueue {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &DisplayQueue{
		events: make(chan event.DisplayEvent, capacity),
	}
}

// Offer enqueues ev without blocking and reports whether it was accepted.
func (q *DisplayQueue) Offer(ev event.DisplayEvent) bool {
	select {
	case q.events <- ev:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// OfferTimeout waits up to timeout for a free slot.
func (q *DisplayQueue) OfferTimeout(ev event.DisplayEvent, timeout time.Duration) bool {
	select {
	case q.events <- ev:
		return true
	default:
	}
	if timeout <= 0 {
		q.dropped.Add(1)
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case q.events <- ev:
		return true
	case <-timer.C:
		q.dropped.Add(1)
		return false
	}
}

// PollTimeout waits up to timeout for the oldest event.
func (q *DisplayQueue) PollTimeout(timeout time.Duration) (event.DisplayEvent, bool) {
	select {
	case ev := <-q.events:
		return ev, true
	default:
	}
	if timeout <= 0 {
		return event.DisplayEvent{}, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev := <-q.events:
		return ev, true
	case <-timer.C:
		return event.DisplayEvent{}, false
	}
}

func (q *DisplayQueue) Len() int {
	return len(q.events)
}

func (q *DisplayQueue) Cap() int {
	return cap(q.events)
}

// Dropped returns how many events were refused since creation.
func (q *DisplayQueue) Dropped() int64 {
	return q.dropped.Load()
}
