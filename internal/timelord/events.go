package timelord

import (
	"sync/atomic"
	"time"

	"github.com/eigerco/timelord/internal/crypto"
)

type EventKind string

const (
	EventNewPeak             EventKind = "new_peak"
	EventSkippingPeak        EventKind = "skipping_peak"
	EventOrphanRisk          EventKind = "orphan_risk"
	EventOverflowBlock       EventKind = "overflow_block"
	EventUnfinishedBlock     EventKind = "unfinished_block"
	EventCompactProofRequest EventKind = "compact_proof_request"
)

// Event describes a state change. Height is the height of the peak or
// request the event is about; Iterations is set for admitted blocks.
type Event struct {
	Kind       EventKind
	Outcome    string
	Height     uint32
	Iterations uint64
	Hash       crypto.Hash
	Time       time.Time
}

// EventSink receives events while the timelord lock is held. Publish must
// not block.
type EventSink interface {
	Publish(Event)
}

type nopSink struct{}

func (nopSink) Publish(Event) {}

// NopSink discards events.
var NopSink EventSink = nopSink{}

// ChannelSink buffers events in a channel and drops them when the buffer is
// full.
type ChannelSink struct {
	ch      chan Event
	dropped atomic.Uint64
}

func NewChannelSink(size int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, size)}
}

func (s *ChannelSink) Publish(e Event) {
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
}

// Events is the receive side consumed by the drain goroutine.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Dropped counts events lost to a full buffer.
func (s *ChannelSink) Dropped() uint64 {
	return s.dropped.Load()
}

// FanOut publishes every event to each sink in order.
type FanOut []EventSink

func (f FanOut) Publish(e Event) {
	for _, s := range f {
		s.Publish(e)
	}
}
