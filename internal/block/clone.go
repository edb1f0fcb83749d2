package block

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Clone returns a copy that shares no pointers or slices with p.
func (p ProofOfSpace) Clone() ProofOfSpace {
	c := p
	c.PoolPublicKey = clonePtr(p.PoolPublicKey)
	c.PoolContractPuzzleHash = clonePtr(p.PoolContractPuzzleHash)
	if p.Proof != nil {
		c.Proof = append([]byte{}, p.Proof...)
	}
	return c
}

func (u RewardChainBlockUnfinished) Clone() RewardChainBlockUnfinished {
	c := u
	c.ProofOfSpace = u.ProofOfSpace.Clone()
	c.ChallengeChainSpVDF = clonePtr(u.ChallengeChainSpVDF)
	c.RewardChainSpVDF = clonePtr(u.RewardChainSpVDF)
	return c
}

func (b RewardChainBlock) Clone() RewardChainBlock {
	c := b
	c.ProofOfSpace = b.ProofOfSpace.Clone()
	c.ChallengeChainSpVDF = clonePtr(b.ChallengeChainSpVDF)
	c.RewardChainSpVDF = clonePtr(b.RewardChainSpVDF)
	c.InfusedChallengeChainIpVDF = clonePtr(b.InfusedChallengeChainIpVDF)
	return c
}

func (s *SubEpochSummary) Clone() *SubEpochSummary {
	if s == nil {
		return nil
	}
	c := *s
	c.NewDifficulty = clonePtr(s.NewDifficulty)
	c.NewSubSlotIters = clonePtr(s.NewSubSlotIters)
	return &c
}

func (p NewPeak) Clone() NewPeak {
	c := p
	c.RewardChainBlock = p.RewardChainBlock.Clone()
	c.SubEpochSummary = p.SubEpochSummary.Clone()
	if p.PreviousRewardChallenges != nil {
		c.PreviousRewardChallenges = append([]ChallengeIters{}, p.PreviousRewardChallenges...)
	}
	return c
}

func (b UnfinishedBlock) Clone() UnfinishedBlock {
	c := b
	c.RewardChainBlock = b.RewardChainBlock.Clone()
	c.SubEpochSummary = b.SubEpochSummary.Clone()
	return c
}
