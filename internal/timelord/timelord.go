package timelord

import (
	"sync"
	"time"

	"github.com/eigerco/timelord/internal/block"
	"github.com/eigerco/timelord/internal/constants"
	"github.com/eigerco/timelord/pkg/log"
)

// Timelord serializes peak, unfinished block and compact proof request
// events over one State. Every exported method is atomic with respect to the
// others.
type Timelord struct {
	mu    sync.Mutex
	state *State

	constants   constants.Constants
	blueboxMode bool
	classifier  IterationClassifier
	capacity    CapacityChecker
	sink        EventSink
	metrics     *Metrics
	now         func() time.Time
}

type Option func(*Timelord)

// WithBlueboxMode makes the timelord only queue compact proof requests.
func WithBlueboxMode(enabled bool) Option {
	return func(t *Timelord) { t.blueboxMode = enabled }
}

func WithCapacityChecker(c CapacityChecker) Option {
	return func(t *Timelord) { t.capacity = c }
}

func WithEventSink(s EventSink) Option {
	return func(t *Timelord) { t.sink = s }
}

func WithMetrics(m *Metrics) Option {
	return func(t *Timelord) { t.metrics = m }
}

// WithClock sets the source of event timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Timelord) { t.now = now }
}

// New creates a timelord with no peak. Unless WithCapacityChecker is given,
// capacity is checked by an InfusionChecker over the same classifier.
func New(c constants.Constants, classifier IterationClassifier, opts ...Option) *Timelord {
	t := &Timelord{
		constants:  c,
		classifier: classifier,
		sink:       NopSink,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.capacity == nil {
		t.capacity = NewInfusionChecker(c, classifier)
	}
	if t.metrics == nil {
		t.metrics, _ = NewMetrics(nil)
	}
	t.state = newState(c, t.blueboxMode)
	return t
}

func (t *Timelord) BlueboxMode() bool {
	return t.blueboxMode
}

func (t *Timelord) Constants() constants.Constants {
	return t.constants
}

// HandleNewPeak offers a peak from the full node.
func (t *Timelord) HandleNewPeak(p block.NewPeak) Decision {
	if t.blueboxMode {
		return PeakIgnored
	}
	rcb := p.RewardChainBlock
	candidate := peakCandidate{
		peak:           p,
		hash:           rcb.Hash(),
		unfinishedHash: rcb.Unfinished().Hash(),
	}
	// The peak's own position only feeds the chain state; a peak that does
	// not classify is still a valid peak.
	_, ipIters, ipErr := t.classifier.Iterations(t.constants, rcb.Unfinished(),
		p.SubSlotIters, p.Difficulty, rcb.Height, rcb.Height)
	candidate.ipIters = ipIters

	t.mu.Lock()
	decision, orphan := t.state.selectPeak(candidate)
	t.metrics.observePeak(decision)
	kind := EventSkippingPeak
	switch {
	case decision.Adopted():
		kind = EventNewPeak
	case decision == SkippedOrphanRisk:
		kind = EventOrphanRisk
	}
	t.sink.Publish(Event{
		Kind:    kind,
		Outcome: decision.String(),
		Height:  rcb.Height,
		Hash:    candidate.hash,
		Time:    t.now(),
	})
	t.mu.Unlock()

	ev := log.Timelord.Info()
	if !decision.Adopted() {
		ev = log.Timelord.Debug()
	}
	ev.Uint32("height", rcb.Height).
		Uint64("weight", rcb.Weight).
		Uint64("total_iters", rcb.TotalIters).
		Str("hash", candidate.hash.Short()).
		Stringer("decision", decision).
		Msg("new peak")
	if orphan != nil {
		log.Timelord.Info().
			Str("block", orphan.Hash.Short()).
			Uint64("total_iters", orphan.Block.RewardChainBlock.TotalIters).
			Msg("not skipping to peak, it would orphan an unfinished block")
	}
	if ipErr != nil && decision.Adopted() {
		log.Timelord.Warn().Err(ipErr).Uint32("height", rcb.Height).Msg("peak infusion point unknown, racing from sub-slot start")
	}
	return decision
}

// HandleNewUnfinishedBlock offers an unfinished block from the full node.
func (t *Timelord) HandleNewUnfinishedBlock(b block.UnfinishedBlock) AdmissionResult {
	if t.blueboxMode {
		return BlockIgnored
	}
	hash := b.RewardChainBlock.Hash()

	t.mu.Lock()
	a := t.state.admitUnfinished(b, hash, t.classifier, t.capacity)
	t.metrics.observeAdmission(a.result)
	if a.result == Overflow || a.result == Admitted {
		kind := EventUnfinishedBlock
		if a.result == Overflow {
			kind = EventOverflowBlock
		}
		t.sink.Publish(Event{
			Kind:       kind,
			Outcome:    a.result.String(),
			Height:     t.state.last.NextHeight(),
			Iterations: a.iters,
			Hash:       hash,
			Time:       t.now(),
		})
	}
	t.mu.Unlock()

	switch a.result {
	case Admitted:
		log.Timelord.Debug().
			Str("hash", hash.Short()).
			Uint64("iters", a.iters).
			Msg("unfinished block admitted")
	case Overflow:
		log.Timelord.Debug().Str("hash", hash.Short()).Msg("overflow unfinished block admitted")
	case RejectedByCapacity:
		log.Timelord.Warn().Err(a.err).Str("hash", hash.Short()).Msg("will not infuse unfinished block")
	case Stale:
		log.Timelord.Debug().Err(a.err).Str("hash", hash.Short()).Msg("stale unfinished block")
	case NoKnownPeak:
		log.Timelord.Debug().Str("hash", hash.Short()).Msg("unfinished block before first peak")
	}
	return a.result
}

// HandleCompactProofRequest queues a request on a bluebox timelord. It
// reports false, and does nothing, on a regular timelord.
func (t *Timelord) HandleCompactProofRequest(req block.CompactProofRequest, now time.Time) bool {
	if !t.blueboxMode {
		return false
	}

	t.mu.Lock()
	evicted := t.state.bluebox.Enqueue(now, req)
	queued := t.state.bluebox.Len()
	t.metrics.observeBluebox(evicted, queued)
	t.sink.Publish(Event{
		Kind:   EventCompactProofRequest,
		Height: req.Height,
		Hash:   req.HeaderHash,
		Time:   now,
	})
	t.mu.Unlock()

	log.Timelord.Debug().
		Uint32("height", req.Height).
		Stringer("field", req.FieldVDF).
		Int("evicted", evicted).
		Int("queued", queued).
		Msg("compact proof request")
	return true
}

// Snapshot copies the state for the VDF engine.
func (t *Timelord) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.snapshot()
}

// TakePendingPeak returns the most recently adopted peak, if it was not taken
// yet, and starts a new tracking context for it.
func (t *Timelord) TakePendingPeak() (block.NewPeak, bool) {
	t.mu.Lock()
	peak, infused, ok := t.state.takePendingPeak()
	if infused > 0 {
		t.metrics.observeInfused(infused)
	}
	t.mu.Unlock()

	if ok {
		log.Timelord.Debug().
			Uint32("height", peak.RewardChainBlock.Height).
			Int("infused", infused).
			Msg("peak handed to vdf engine")
	}
	return peak, ok
}

// TakeBlueboxBatch removes every queued compact proof request, oldest first.
func (t *Timelord) TakeBlueboxBatch() []BlueboxEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	batch := t.state.bluebox.Drain()
	t.metrics.blueboxQueueLength.Set(0)
	return batch
}
