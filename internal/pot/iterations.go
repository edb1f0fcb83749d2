// Package pot holds the proof of time iteration arithmetic: where signage
// points and infusion points fall inside a sub-slot, and how many iterations a
// proof of space requires.
package pot

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/eigerco/timelord/internal/constants"
	"github.com/eigerco/timelord/internal/crypto"
	"github.com/eigerco/timelord/internal/safemath"
)

var (
	ErrInvalidSubSlotIters  = errors.New("sub-slot iterations do not split into signage point intervals")
	ErrInvalidSignagePoint  = errors.New("signage point index out of range")
	ErrInvalidRequiredIters = errors.New("required iterations out of range")
	ErrInvalidPlotSize      = errors.New("plot size out of range")
)

// SpIntervalIters is the number of iterations between two signage points.
func SpIntervalIters(c constants.Constants, subSlotIters uint64) (uint64, error) {
	if c.NumSpsSubSlot == 0 || subSlotIters == 0 || subSlotIters%uint64(c.NumSpsSubSlot) != 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSubSlotIters, subSlotIters)
	}
	return subSlotIters / uint64(c.NumSpsSubSlot), nil
}

// SpIters is the offset of a signage point from the start of its sub-slot.
func SpIters(c constants.Constants, subSlotIters uint64, spIndex uint8) (uint64, error) {
	if spIndex >= c.NumSpsSubSlot {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSignagePoint, spIndex)
	}
	interval, err := SpIntervalIters(c, subSlotIters)
	if err != nil {
		return 0, err
	}
	return uint64(spIndex) * interval, nil
}

// IpIters is the offset of an infusion point from the start of its sub-slot.
// An infusion point wraps into the next sub-slot when its signage point is
// close to the end, which makes it smaller than the signage point offset.
func IpIters(c constants.Constants, subSlotIters uint64, spIndex uint8, requiredIters uint64) (uint64, error) {
	sp, err := SpIters(c, subSlotIters, spIndex)
	if err != nil {
		return 0, err
	}
	interval, err := SpIntervalIters(c, subSlotIters)
	if err != nil {
		return 0, err
	}
	if requiredIters == 0 || requiredIters >= interval {
		return 0, fmt.Errorf("%w: %d not in (0, %d)", ErrInvalidRequiredIters, requiredIters, interval)
	}

	extra := uint64(c.NumSpIntervalsExtra) * interval
	sum, ok := safemath.Add64(sp, extra)
	if ok {
		sum, ok = safemath.Add64(sum, requiredIters)
	}
	if !ok {
		return 0, safemath.ErrOverflow
	}
	return sum % subSlotIters, nil
}

// IsOverflowBlock reports whether blocks at spIndex are infused in the
// following sub-slot.
func IsOverflowBlock(c constants.Constants, spIndex uint8) (bool, error) {
	if spIndex >= c.NumSpsSubSlot {
		return false, fmt.Errorf("%w: %d", ErrInvalidSignagePoint, spIndex)
	}
	return spIndex >= c.NumSpsSubSlot-c.NumSpIntervalsExtra, nil
}

// ExpectedPlotSize is the expected number of entries in a plot of size k,
// (2k+1) * 2^(k-1).
func ExpectedPlotSize(k uint8) *big.Int {
	size := big.NewInt(int64(2*uint64(k) + 1))
	if k == 0 {
		return size
	}
	return size.Lsh(size, uint(k-1))
}

var two256 = new(big.Int).Lsh(big.NewInt(1), 256)

// IterationsQuality converts a proof of space quality into the number of
// iterations after its signage point at which the block is infused:
//
//	difficulty * factor * H(quality || ccSp) / (2^256 * ExpectedPlotSize(size))
//
// The result is at least one.
func IterationsQuality(c constants.Constants, quality crypto.Hash, size uint8, difficulty uint64, ccSpOutputHash crypto.Hash) (uint64, error) {
	if size == 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPlotSize, size)
	}
	var buf [2 * crypto.HashSize]byte
	copy(buf[:crypto.HashSize], quality[:])
	copy(buf[crypto.HashSize:], ccSpOutputHash[:])
	spQuality := crypto.HashData(buf[:])

	num := new(big.Int).SetUint64(difficulty)
	num.Lsh(num, c.DifficultyConstantFactorLog2)
	num.Mul(num, new(big.Int).SetBytes(spQuality[:]))

	den := new(big.Int).Mul(two256, ExpectedPlotSize(size))
	iters := num.Quo(num, den)

	if !iters.IsUint64() {
		return math.MaxUint64, safemath.ErrOverflow
	}
	if v := iters.Uint64(); v > 0 {
		return v, nil
	}
	return 1, nil
}
