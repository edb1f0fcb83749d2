package timelord

import (
	"time"

	"github.com/eigerco/timelord/internal/block"
	"github.com/eigerco/timelord/internal/crypto"
)

// PeakInactivityWindow is the grace period the VDF engine gets after a new
// peak before it is considered stalled.
const PeakInactivityWindow = 60 * time.Second

// peakCandidate carries a peak with the values derived from it outside the
// lock.
type peakCandidate struct {
	peak           block.NewPeak
	hash           crypto.Hash
	unfinishedHash crypto.Hash
	ipIters        uint64
}

// selectPeak decides whether the candidate replaces the tracked peak. The
// rules are checked in order and the first match wins. When the candidate is
// skipped to protect an unfinished block, that block is returned too.
func (s *State) selectPeak(c peakCandidate) (Decision, *TrackedBlock) {
	if !s.last.HasPeak() {
		s.adoptPeak(c)
		return AdoptedFresh, nil
	}

	rcb := c.peak.RewardChainBlock
	if s.last.Weight() == rcb.Weight && s.last.TotalIters() > rcb.TotalIters {
		s.adoptPeak(c)
		return AdoptedPreferred, nil
	}

	if s.last.Weight() < rcb.Weight {
		if rcb.Height == s.last.LastHeight()+1 {
			if orphan, ok := s.wouldOrphan(c); ok {
				return SkippedOrphanRisk, &orphan
			}
		}
		s.adoptPeak(c)
		return AdoptedFresh, nil
	}

	return SkippedDuplicateOrLower, nil
}

// wouldOrphan finds an admitted block, normal or overflow, that reaches its
// infusion no later than the candidate and is not the candidate itself.
func (s *State) wouldOrphan(c peakCandidate) (TrackedBlock, bool) {
	total := c.peak.RewardChainBlock.TotalIters
	for _, set := range [][]TrackedBlock{s.unfinished, s.overflow} {
		for _, b := range set {
			if b.Block.RewardChainBlock.TotalIters > total || b.Hash == c.unfinishedHash {
				continue
			}
			return b, true
		}
	}
	return TrackedBlock{}, false
}

func (s *State) adoptPeak(c peakCandidate) {
	s.last.setPeak(c.peak.Clone(), c.ipIters)
	p := c.peak.Clone()
	s.pendingPeak = &p
	s.maxAllowedInactivity = PeakInactivityWindow
}

// takePendingPeak hands the pending peak to the VDF engine and resets the
// tracking context: admitted blocks that the peak infused are counted, then
// both block sets and every submission queue are cleared.
func (s *State) takePendingPeak() (block.NewPeak, int, bool) {
	if s.pendingPeak == nil {
		return block.NewPeak{}, 0, false
	}
	peak := *s.pendingPeak
	s.pendingPeak = nil

	own := peak.RewardChainBlock.Unfinished().Hash()
	infused := 0
	for _, b := range s.unfinished {
		if b.Hash == own {
			infused++
		}
	}
	for _, b := range s.overflow {
		if b.Hash == own {
			// overflow blocks are not counted on admission
			s.totalUnfinished++
			infused++
		}
	}
	s.totalInfused += uint64(infused)

	s.unfinished = nil
	s.overflow = nil
	s.resetSubmissions()
	return peak, infused, true
}
