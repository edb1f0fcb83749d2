package timelord

import (
	"time"

	"github.com/ef-ds/deque"

	"github.com/eigerco/timelord/internal/block"
)

// BlueboxBatchWindow is how long a compact proof request stays part of the
// current batch. Older requests belong to a batch that was already abandoned.
const BlueboxBatchWindow = 5 * time.Second

type BlueboxEntry struct {
	Arrived time.Time
	Request block.CompactProofRequest
}

// BlueboxQueue is a FIFO of compact proof requests. It is not safe for
// concurrent use; the timelord lock guards it.
type BlueboxQueue struct {
	entries deque.Deque
	window  time.Duration
}

func NewBlueboxQueue(window time.Duration) *BlueboxQueue {
	return &BlueboxQueue{window: window}
}

// Enqueue drops requests at the front that arrived more than the batch window
// before now, then appends req. It returns how many requests were dropped.
func (q *BlueboxQueue) Enqueue(now time.Time, req block.CompactProofRequest) int {
	evicted := 0
	for {
		front, ok := q.entries.Front()
		if !ok || now.Sub(front.(BlueboxEntry).Arrived) <= q.window {
			break
		}
		q.entries.PopFront()
		evicted++
	}
	q.entries.PushBack(BlueboxEntry{Arrived: now, Request: req})
	return evicted
}

func (q *BlueboxQueue) Len() int {
	return q.entries.Len()
}

// Entries returns the queued requests in arrival order without removing them.
func (q *BlueboxQueue) Entries() []BlueboxEntry {
	n := q.entries.Len()
	out := make([]BlueboxEntry, 0, n)
	for i := 0; i < n; i++ {
		v, _ := q.entries.PopFront()
		out = append(out, v.(BlueboxEntry))
		q.entries.PushBack(v)
	}
	return out
}

// Drain removes and returns every queued request in arrival order.
func (q *BlueboxQueue) Drain() []BlueboxEntry {
	out := make([]BlueboxEntry, 0, q.entries.Len())
	for {
		v, ok := q.entries.PopFront()
		if !ok {
			return out
		}
		out = append(out, v.(BlueboxEntry))
	}
}
