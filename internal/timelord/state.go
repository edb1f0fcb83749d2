package timelord

import (
	"time"

	"github.com/eigerco/timelord/internal/block"
	"github.com/eigerco/timelord/internal/constants"
	"github.com/eigerco/timelord/internal/crypto"
)

// TrackedBlock is an admitted unfinished block with its reward chain hash and
// its position inside the sub-slot.
type TrackedBlock struct {
	Block   block.UnfinishedBlock
	Hash    crypto.Hash
	SpIters uint64
	IpIters uint64
}

func (b TrackedBlock) clone() TrackedBlock {
	b.Block = b.Block.Clone()
	return b
}

func cloneTracked(set []TrackedBlock) []TrackedBlock {
	if set == nil {
		return nil
	}
	out := make([]TrackedBlock, len(set))
	for i, b := range set {
		out[i] = b.clone()
	}
	return out
}

// State is everything the timelord decides on. It has no lock of its own:
// Timelord holds its mutex around every method call.
type State struct {
	constants constants.Constants
	last      *LastState

	pendingPeak *block.NewPeak
	// Blocks infused in the current sub-slot and blocks infused in the next
	// one are kept apart; they are admitted under different rules.
	unfinished []TrackedBlock
	overflow   []TrackedBlock

	itersToSubmit      map[Chain][]uint64
	iterationProofType map[uint64]IterationType

	bluebox              *BlueboxQueue
	blueboxMode          bool
	maxAllowedInactivity time.Duration

	totalUnfinished uint64
	totalInfused    uint64
}

func newState(c constants.Constants, blueboxMode bool) *State {
	s := &State{
		constants:   c,
		last:        NewLastState(c),
		bluebox:     NewBlueboxQueue(BlueboxBatchWindow),
		blueboxMode: blueboxMode,
	}
	s.resetSubmissions()
	return s
}

func (s *State) resetSubmissions() {
	s.itersToSubmit = make(map[Chain][]uint64, len(Chains))
	for _, c := range Chains {
		s.itersToSubmit[c] = nil
	}
	s.iterationProofType = make(map[uint64]IterationType)
}

// tracks reports whether a block with the given reward chain hash is already
// admitted, in either set.
func (s *State) tracks(hash crypto.Hash) bool {
	for _, set := range [][]TrackedBlock{s.unfinished, s.overflow} {
		for _, b := range set {
			if b.Hash == hash {
				return true
			}
		}
	}
	return false
}

// Snapshot is a copy of the state the VDF engine works from. It shares no
// slices or maps with the live state.
type Snapshot struct {
	Peak                 *block.NewPeak
	PendingPeak          *block.NewPeak
	Weight               uint64
	TotalIters           uint64
	Deficit              uint8
	SubSlotIters         uint64
	Difficulty           uint64
	LastHeight           uint32
	LastIPIters          uint64
	LastTxHeight         uint32
	RewardChallenges     []block.ChallengeIters
	Unfinished           []TrackedBlock
	Overflow             []TrackedBlock
	ItersToSubmit        map[Chain][]uint64
	IterationProofType   map[uint64]IterationType
	BlueboxPending       int
	BlueboxQueue         []BlueboxEntry
	MaxAllowedInactivity time.Duration
	TotalUnfinished      uint64
	TotalInfused         uint64
}

func (s *State) snapshot() Snapshot {
	last := s.last.clone()
	snap := Snapshot{
		Weight:               last.weight,
		TotalIters:           last.totalIters,
		Deficit:              last.deficit,
		SubSlotIters:         last.subSlotIters,
		Difficulty:           last.difficulty,
		LastHeight:           last.lastHeight,
		LastIPIters:          last.lastIPIters,
		LastTxHeight:         last.lastTxHeight,
		RewardChallenges:     last.rewardChallengeCache,
		Unfinished:           cloneTracked(s.unfinished),
		Overflow:             cloneTracked(s.overflow),
		ItersToSubmit:        make(map[Chain][]uint64, len(s.itersToSubmit)),
		IterationProofType:   make(map[uint64]IterationType, len(s.iterationProofType)),
		BlueboxPending:       s.bluebox.Len(),
		BlueboxQueue:         s.bluebox.Entries(),
		MaxAllowedInactivity: s.maxAllowedInactivity,
		TotalUnfinished:      s.totalUnfinished,
		TotalInfused:         s.totalInfused,
	}
	// last is already a deep copy
	snap.Peak = last.peak
	if s.pendingPeak != nil {
		p := s.pendingPeak.Clone()
		snap.PendingPeak = &p
	}
	for c, iters := range s.itersToSubmit {
		snap.ItersToSubmit[c] = append([]uint64(nil), iters...)
	}
	for it, typ := range s.iterationProofType {
		snap.IterationProofType[it] = typ
	}
	return snap
}
