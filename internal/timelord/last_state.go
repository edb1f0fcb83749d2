package timelord

import (
	"github.com/eigerco/timelord/internal/block"
	"github.com/eigerco/timelord/internal/constants"
	"github.com/eigerco/timelord/internal/crypto"
)

// LastState is the chain state of the tracked peak. Before the first peak it
// carries the network's starting parameters.
type LastState struct {
	peak *block.NewPeak

	weight                           uint64
	totalIters                       uint64
	deficit                          uint8
	subSlotIters                     uint64
	difficulty                       uint64
	lastHeight                       uint32
	lastIPIters                      uint64
	lastTxHeight                     uint32
	rewardChallengeCache             []block.ChallengeIters
	lastChallengeSbOrEosTotalIters   uint64
	subEpochSummary                  *block.SubEpochSummary
	passesSesHeightButNotYetIncluded bool
}

func NewLastState(c constants.Constants) *LastState {
	return &LastState{
		deficit:              c.MinBlocksPerChallengeBlock,
		subSlotIters:         c.SubSlotItersStarting,
		difficulty:           c.DifficultyStarting,
		rewardChallengeCache: []block.ChallengeIters{{}},
	}
}

// setPeak makes p the tracked peak. ipIters is the infusion point of the
// peak inside its sub-slot.
func (s *LastState) setPeak(p block.NewPeak, ipIters uint64) {
	rcb := p.RewardChainBlock
	s.peak = &p
	s.weight = rcb.Weight
	s.totalIters = rcb.TotalIters
	s.deficit = p.Deficit
	s.subSlotIters = p.SubSlotIters
	s.difficulty = p.Difficulty
	s.lastHeight = rcb.Height
	s.lastIPIters = ipIters
	if rcb.IsTransactionBlock {
		s.lastTxHeight = rcb.Height
	}
	s.rewardChallengeCache = append([]block.ChallengeIters(nil), p.PreviousRewardChallenges...)
	head := block.ChallengeIters{Challenge: rcb.Hash(), TotalIters: rcb.TotalIters}
	if n := len(s.rewardChallengeCache); n == 0 || s.rewardChallengeCache[n-1] != head {
		s.rewardChallengeCache = append(s.rewardChallengeCache, head)
	}
	s.lastChallengeSbOrEosTotalIters = p.LastChallengeSbOrEosTotalIters
	s.subEpochSummary = p.SubEpochSummary
	s.passesSesHeightButNotYetIncluded = p.PassesSesHeightButNotYetIncluded
}

// HasPeak reports whether a peak was ever tracked.
func (s *LastState) HasPeak() bool { return s.peak != nil }

// Peak returns the tracked peak, or nil.
func (s *LastState) Peak() *block.NewPeak { return s.peak }

func (s *LastState) Weight() uint64       { return s.weight }
func (s *LastState) TotalIters() uint64   { return s.totalIters }
func (s *LastState) Deficit() uint8       { return s.deficit }
func (s *LastState) SubSlotIters() uint64 { return s.subSlotIters }
func (s *LastState) Difficulty() uint64   { return s.difficulty }
func (s *LastState) LastHeight() uint32   { return s.lastHeight }
func (s *LastState) LastIPIters() uint64  { return s.lastIPIters }
func (s *LastState) LastTxHeight() uint32 { return s.lastTxHeight }

// NextHeight is the height of a block infused on top of the tracked peak.
func (s *LastState) NextHeight() uint32 {
	if s.peak == nil {
		return 0
	}
	return s.lastHeight + 1
}

// PeakHash is the reward chain hash of the tracked peak.
func (s *LastState) PeakHash() crypto.Hash {
	if s.peak == nil {
		return crypto.Hash{}
	}
	return s.peak.RewardChainBlock.Hash()
}

// RewardChallengeCache lists recent reward chain challenges with the total
// iterations they appeared at, oldest first.
func (s *LastState) RewardChallengeCache() []block.ChallengeIters {
	return s.rewardChallengeCache
}

func (s *LastState) clone() *LastState {
	c := *s
	if s.peak != nil {
		p := s.peak.Clone()
		c.peak = &p
	}
	c.subEpochSummary = s.subEpochSummary.Clone()
	c.rewardChallengeCache = append([]block.ChallengeIters(nil), s.rewardChallengeCache...)
	return &c
}
