package timelord

import (
	"errors"
	"fmt"

	"github.com/eigerco/timelord/internal/block"
	"github.com/eigerco/timelord/internal/constants"
	"github.com/eigerco/timelord/internal/pot"
	"github.com/eigerco/timelord/internal/safemath"
)

var (
	ErrUnclassifiable    = errors.New("block iterations could not be derived")
	ErrSPUnderflow       = errors.New("signage point precedes the tracked chain")
	ErrUnknownChallenge  = errors.New("reward chain challenge is not in the chain")
	ErrTooLate           = errors.New("infusion point already passed")
	ErrInfusedBeforeSP   = errors.New("another block was infused before its signage point")
	ErrSPBeforeChallenge = errors.New("signage point precedes its reward chain challenge")

	errAlreadyTracked = errors.New("block already tracked")
)

// CapacityChecker decides whether the VDF chains can still reach the block's
// infusion point from the tracked peak. On success it returns the number of
// iterations from the peak's infusion point to the block's.
type CapacityChecker interface {
	CanInfuse(last *LastState, b block.UnfinishedBlock) (uint64, error)
}

// CapacityFunc adapts a function to CapacityChecker.
type CapacityFunc func(last *LastState, b block.UnfinishedBlock) (uint64, error)

func (f CapacityFunc) CanInfuse(last *LastState, b block.UnfinishedBlock) (uint64, error) {
	return f(last, b)
}

// InfusionChecker places the block's signage point on the tracked chain and
// checks it against the recent reward chain challenges.
type InfusionChecker struct {
	constants  constants.Constants
	classifier IterationClassifier
}

func NewInfusionChecker(c constants.Constants, classifier IterationClassifier) *InfusionChecker {
	return &InfusionChecker{constants: c, classifier: classifier}
}

func (ic *InfusionChecker) CanInfuse(last *LastState, b block.UnfinishedBlock) (uint64, error) {
	lastIP := last.LastIPIters()
	spIters, ipIters, err := ic.classifier.Iterations(ic.constants, b.RewardChainBlock,
		last.SubSlotIters(), last.Difficulty(), last.NextHeight(), last.LastTxHeight())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnclassifiable, err)
	}

	overflow, err := pot.IsOverflowBlock(ic.constants, b.RewardChainBlock.SignagePointIndex)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnclassifiable, err)
	}
	spTotal, ok := safemath.Sub64(last.TotalIters(), lastIP)
	if ok {
		spTotal, ok = safemath.Add64(spTotal, spIters)
	}
	if ok && overflow {
		spTotal, ok = safemath.Sub64(spTotal, last.SubSlotIters())
	}
	if !ok {
		return 0, ErrSPUnderflow
	}

	cache := last.RewardChallengeCache()
	found := -1
	for i, rc := range cache {
		if rc.Challenge == b.RcPrev {
			found = i
			break
		}
	}
	if found == -1 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownChallenge, b.RcPrev.Short())
	}
	if lastIP > ipIters {
		return 0, fmt.Errorf("%w: ip %d, chain at %d", ErrTooLate, ipIters, lastIP)
	}
	iters := ipIters - lastIP

	if found+1 < len(cache) && cache[found+1].TotalIters < spTotal {
		return 0, fmt.Errorf("%w: sp at %d, next challenge at %d", ErrInfusedBeforeSP, spTotal, cache[found+1].TotalIters)
	}
	if cache[found].TotalIters > spTotal && !overflow {
		return 0, fmt.Errorf("%w: sp at %d, challenge at %d", ErrSPBeforeChallenge, spTotal, cache[found].TotalIters)
	}
	return iters, nil
}
