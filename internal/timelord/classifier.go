package timelord

import (
	"github.com/eigerco/timelord/internal/block"
	"github.com/eigerco/timelord/internal/constants"
)

// IterationClassifier returns the signage point and infusion point
// iterations of a block relative to the start of its sub-slot. An error means
// the block does not fit the given chain state.
type IterationClassifier interface {
	Iterations(c constants.Constants, rcb block.RewardChainBlockUnfinished, subSlotIters, difficulty uint64, height, lastTxHeight uint32) (spIters, ipIters uint64, err error)
}

// ClassifierFunc adapts a function to IterationClassifier.
type ClassifierFunc func(c constants.Constants, rcb block.RewardChainBlockUnfinished, subSlotIters, difficulty uint64, height, lastTxHeight uint32) (uint64, uint64, error)

func (f ClassifierFunc) Iterations(c constants.Constants, rcb block.RewardChainBlockUnfinished, subSlotIters, difficulty uint64, height, lastTxHeight uint32) (uint64, uint64, error) {
	return f(c, rcb, subSlotIters, difficulty, height, lastTxHeight)
}
