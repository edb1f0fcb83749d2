package timelord

import (
	"github.com/eigerco/timelord/internal/block"
	"github.com/eigerco/timelord/internal/crypto"
)

// admission is what the lock holder learns from admitUnfinished; the error,
// if any, explains a Stale or RejectedByCapacity result and is only logged.
type admission struct {
	result AdmissionResult
	block  TrackedBlock
	iters  uint64
	err    error
}

// admitUnfinished classifies b against the tracked peak and files it as an
// overflow block, a block to race for, or nothing.
func (s *State) admitUnfinished(b block.UnfinishedBlock, hash crypto.Hash, classifier IterationClassifier, capacity CapacityChecker) admission {
	if !s.last.HasPeak() {
		return admission{result: NoKnownPeak}
	}
	if s.tracks(hash) {
		return admission{result: Stale, err: errAlreadyTracked}
	}

	spIters, ipIters, err := classifier.Iterations(s.constants, b.RewardChainBlock,
		s.last.SubSlotIters(), s.last.Difficulty(), s.last.NextHeight(), s.last.LastTxHeight())
	if err != nil {
		return admission{result: Stale, err: err}
	}
	tracked := TrackedBlock{Block: b.Clone(), Hash: hash, SpIters: spIters, IpIters: ipIters}

	if spIters > ipIters {
		s.overflow = append(s.overflow, tracked)
		return admission{result: Overflow, block: tracked}
	}

	if ipIters <= s.last.LastIPIters() {
		return admission{result: Stale, block: tracked}
	}

	iters, err := capacity.CanInfuse(s.last, b)
	if err != nil {
		return admission{result: RejectedByCapacity, block: tracked, err: err}
	}
	s.unfinished = append(s.unfinished, tracked)
	s.itersToSubmit[RewardChain] = append(s.itersToSubmit[RewardChain], iters)
	s.itersToSubmit[ChallengeChain] = append(s.itersToSubmit[ChallengeChain], iters)
	if s.last.Deficit() < s.constants.MinBlocksPerChallengeBlock {
		s.itersToSubmit[InfusedChallengeChain] = append(s.itersToSubmit[InfusedChallengeChain], iters)
	}
	s.iterationProofType[iters] = InfusionPoint
	s.totalUnfinished++
	return admission{result: Admitted, block: tracked, iters: iters}
}
