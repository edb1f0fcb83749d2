package block

import (
	"fmt"

	"github.com/eigerco/timelord/internal/crypto"
)

// ChallengeIters pairs a reward chain challenge with the total iterations at
// which it appeared.
type ChallengeIters struct {
	Challenge  crypto.Hash
	TotalIters uint64
}

type SubEpochSummary struct {
	PrevSubepochSummaryHash crypto.Hash
	RewardChainHash         crypto.Hash
	NumBlocksOverflow       uint8
	NewDifficulty           *uint64
	NewSubSlotIters         *uint64
}

// NewPeak is sent by a full node whenever its peak changes.
type NewPeak struct {
	RewardChainBlock                 RewardChainBlock
	Difficulty                       uint64
	Deficit                          uint8
	SubSlotIters                     uint64
	SubEpochSummary                  *SubEpochSummary
	PreviousRewardChallenges         []ChallengeIters
	LastChallengeSbOrEosTotalIters   uint64
	PassesSesHeightButNotYetIncluded bool
}

// UnfinishedBlock is a block candidate waiting for its infusion point.
type UnfinishedBlock struct {
	RewardChainBlock RewardChainBlockUnfinished
	Difficulty       uint64
	SubSlotIters     uint64
	FoliageHash      crypto.Hash
	SubEpochSummary  *SubEpochSummary
	// RcPrev is the reward chain challenge the block builds on.
	RcPrev crypto.Hash
}

// FieldVDF names which VDF of a finished block a compact proof replaces.
type FieldVDF uint8

const (
	CCEOSVDF FieldVDF = iota + 1
	ICCEOSVDF
	CCSPVDF
	CCIPVDF
)

func (f FieldVDF) String() string {
	switch f {
	case CCEOSVDF:
		return "cc_eos_vdf"
	case ICCEOSVDF:
		return "icc_eos_vdf"
	case CCSPVDF:
		return "cc_sp_vdf"
	case CCIPVDF:
		return "cc_ip_vdf"
	default:
		return fmt.Sprintf("field_vdf(%d)", uint8(f))
	}
}

// CompactProofRequest asks a bluebox timelord to recompute a VDF of an
// already finalized block with a compact proof.
type CompactProofRequest struct {
	NewProofOfTime VDFInfo
	HeaderHash     crypto.Hash
	Height         uint32
	FieldVDF       FieldVDF
}
