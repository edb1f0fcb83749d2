package block

import "github.com/eigerco/timelord/internal/crypto"

// RewardChainBlockUnfinished is the reward chain part of a block before its
// infusion point VDFs exist.
type RewardChainBlockUnfinished struct {
	TotalIters                uint64
	SignagePointIndex         uint8
	PosSsCcChallengeHash      crypto.Hash
	ProofOfSpace              ProofOfSpace
	ChallengeChainSpVDF       *VDFInfo // nil at the first signage point of a sub-slot
	ChallengeChainSpSignature G2Element
	RewardChainSpVDF          *VDFInfo
	RewardChainSpSignature    G2Element
}

// Hash is the content hash used to tell unfinished blocks apart.
func (u RewardChainBlockUnfinished) Hash() crypto.Hash {
	return mustHash(u)
}

// RewardChainBlock is a finished reward chain block as announced with a peak.
// Weight is a uint128 on the network; values beyond 64 bits are not expected
// within the lifetime of a chain and are rejected by the decoder.
type RewardChainBlock struct {
	Weight                     uint64
	Height                     uint32
	TotalIters                 uint64
	SignagePointIndex          uint8
	PosSsCcChallengeHash       crypto.Hash
	ProofOfSpace               ProofOfSpace
	ChallengeChainSpVDF        *VDFInfo
	ChallengeChainSpSignature  G2Element
	ChallengeChainIpVDF        VDFInfo
	RewardChainSpVDF           *VDFInfo
	RewardChainSpSignature     G2Element
	RewardChainIpVDF           VDFInfo
	InfusedChallengeChainIpVDF *VDFInfo
	IsTransactionBlock         bool
}

func (b RewardChainBlock) Hash() crypto.Hash {
	return mustHash(b)
}

// Unfinished drops the infusion point fields. The result hashes equal to the
// unfinished block this block was made from.
func (b RewardChainBlock) Unfinished() RewardChainBlockUnfinished {
	return RewardChainBlockUnfinished{
		TotalIters:                b.TotalIters,
		SignagePointIndex:         b.SignagePointIndex,
		PosSsCcChallengeHash:      b.PosSsCcChallengeHash,
		ProofOfSpace:              b.ProofOfSpace,
		ChallengeChainSpVDF:       b.ChallengeChainSpVDF,
		ChallengeChainSpSignature: b.ChallengeChainSpSignature,
		RewardChainSpVDF:          b.RewardChainSpVDF,
		RewardChainSpSignature:    b.RewardChainSpSignature,
	}
}
