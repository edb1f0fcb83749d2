package pot

import (
	"errors"
	"fmt"

	"github.com/eigerco/timelord/internal/block"
	"github.com/eigerco/timelord/internal/constants"
	"github.com/eigerco/timelord/internal/crypto"
)

var (
	ErrMissingSpVDF = errors.New("challenge chain signage point vdf missing")
	ErrInvalidProof = errors.New("proof of space has no valid quality")
)

// QualityFunc returns the quality string of a proof of space for the given
// challenge and challenge chain signage point, or false if the proof does not
// verify. Height and prevTxHeight select the plot filter in effect.
type QualityFunc func(pos block.ProofOfSpace, c constants.Constants, challenge, ccSp crypto.Hash, height, prevTxHeight uint32) (crypto.Hash, bool)

// HashQuality checks the shape of a proof (plot size range and a proof of
// 64 k-bit values) and derives its quality by hashing challenge and proof.
// It does not look the proof up in a plot.
func HashQuality(pos block.ProofOfSpace, c constants.Constants, challenge, ccSp crypto.Hash, _, _ uint32) (crypto.Hash, bool) {
	if pos.Size < c.MinPlotSize || pos.Size > c.MaxPlotSize {
		return crypto.Hash{}, false
	}
	if len(pos.Proof) != 8*int(pos.Size) {
		return crypto.Hash{}, false
	}
	buf := make([]byte, 0, crypto.HashSize+len(pos.Proof))
	buf = append(buf, challenge[:]...)
	buf = append(buf, pos.Proof...)
	return crypto.HashData(buf), true
}

// Classifier places an unfinished block's signage point and infusion point
// inside the current sub-slot.
type Classifier struct {
	quality QualityFunc
}

func NewClassifier(quality QualityFunc) *Classifier {
	if quality == nil {
		quality = HashQuality
	}
	return &Classifier{quality: quality}
}

// Iterations returns the signage point and infusion point offsets of rcb. It
// fails when the block does not fit the given sub-slot iterations and
// difficulty, which is routine for blocks built on a stale peak.
func (cl *Classifier) Iterations(c constants.Constants, rcb block.RewardChainBlockUnfinished, subSlotIters, difficulty uint64, height, lastTxHeight uint32) (uint64, uint64, error) {
	var ccSp crypto.Hash
	if rcb.ChallengeChainSpVDF == nil {
		if rcb.SignagePointIndex != 0 {
			return 0, 0, fmt.Errorf("%w at signage point %d", ErrMissingSpVDF, rcb.SignagePointIndex)
		}
		ccSp = rcb.PosSsCcChallengeHash
	} else {
		ccSp = crypto.HashData(rcb.ChallengeChainSpVDF.Output[:])
	}

	quality, ok := cl.quality(rcb.ProofOfSpace, c, rcb.PosSsCcChallengeHash, ccSp, height, lastTxHeight)
	if !ok {
		return 0, 0, ErrInvalidProof
	}
	required, err := IterationsQuality(c, quality, rcb.ProofOfSpace.Size, difficulty, ccSp)
	if err != nil {
		return 0, 0, fmt.Errorf("required iterations: %w", err)
	}

	spIters, err := SpIters(c, subSlotIters, rcb.SignagePointIndex)
	if err != nil {
		return 0, 0, err
	}
	ipIters, err := IpIters(c, subSlotIters, rcb.SignagePointIndex, required)
	if err != nil {
		return 0, 0, err
	}
	return spIters, ipIters, nil
}
