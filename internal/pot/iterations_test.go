package pot

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/timelord/internal/block"
	"github.com/eigerco/timelord/internal/constants"
	"github.com/eigerco/timelord/internal/crypto"
	"github.com/eigerco/timelord/internal/safemath"
	"github.com/eigerco/timelord/internal/testutils"
)

// Testnet: 16 signage points, 3 extra intervals.
var c = constants.Testnet

func TestSpIntervalIters(t *testing.T) {
	v, err := SpIntervalIters(c, 1024)
	require.NoError(t, err)
	assert.Equal(t, uint64(64), v)

	_, err = SpIntervalIters(c, 1000)
	assert.ErrorIs(t, err, ErrInvalidSubSlotIters)

	_, err = SpIntervalIters(c, 0)
	assert.ErrorIs(t, err, ErrInvalidSubSlotIters)
}

func TestSpIters(t *testing.T) {
	v, err := SpIters(c, 1024, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(320), v)

	_, err = SpIters(c, 1024, 16)
	assert.ErrorIs(t, err, ErrInvalidSignagePoint)
}

func TestIpIters(t *testing.T) {
	tests := []struct {
		name     string
		spIndex  uint8
		required uint64
		want     uint64
		wantErr  error
	}{
		{name: "within sub-slot", spIndex: 5, required: 10, want: 522},
		{name: "wraps into next sub-slot", spIndex: 15, required: 10, want: 138},
		{name: "zero required", spIndex: 5, required: 0, wantErr: ErrInvalidRequiredIters},
		{name: "required reaches interval", spIndex: 5, required: 64, wantErr: ErrInvalidRequiredIters},
		{name: "bad signage point", spIndex: 20, required: 1, wantErr: ErrInvalidSignagePoint},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := IpIters(c, 1024, tc.spIndex, tc.required)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsOverflowBlock(t *testing.T) {
	for spIndex := uint8(0); spIndex < c.NumSpsSubSlot; spIndex++ {
		overflow, err := IsOverflowBlock(c, spIndex)
		require.NoError(t, err)
		assert.Equal(t, spIndex >= 13, overflow, "signage point %d", spIndex)
	}
	_, err := IsOverflowBlock(c, c.NumSpsSubSlot)
	assert.ErrorIs(t, err, ErrInvalidSignagePoint)
}

func TestOverflowBlocksInfuseBeforeTheirSignagePoint(t *testing.T) {
	for spIndex := uint8(0); spIndex < c.NumSpsSubSlot; spIndex++ {
		sp, err := SpIters(c, 1024, spIndex)
		require.NoError(t, err)
		ip, err := IpIters(c, 1024, spIndex, 1)
		require.NoError(t, err)
		overflow, err := IsOverflowBlock(c, spIndex)
		require.NoError(t, err)
		assert.Equal(t, overflow, sp > ip, "signage point %d", spIndex)
	}
}

func TestExpectedPlotSize(t *testing.T) {
	assert.Zero(t, big.NewInt(3).Cmp(ExpectedPlotSize(1)))
	assert.Zero(t, big.NewInt(65*(1<<31)).Cmp(ExpectedPlotSize(32)))
}

func TestIterationsQuality(t *testing.T) {
	quality := testutils.RandomHash(t)
	ccSp := testutils.RandomHash(t)

	iters, err := IterationsQuality(c, quality, 18, 0, ccSp)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), iters, "result is clamped to one")

	// 2^33 / (37 * 2^17) bounds the result for difficulty one
	iters, err = IterationsQuality(c, quality, 18, 1, ccSp)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, iters, uint64(1))
	assert.LessOrEqual(t, iters, uint64(1771))

	again, err := IterationsQuality(c, quality, 18, 1, ccSp)
	require.NoError(t, err)
	assert.Equal(t, iters, again)

	doubled, err := IterationsQuality(c, quality, 18, 2, ccSp)
	require.NoError(t, err)
	assert.InDelta(t, 2*iters, doubled, 1)

	_, err = IterationsQuality(c, quality, 0, 1, ccSp)
	assert.ErrorIs(t, err, ErrInvalidPlotSize)

	_, err = IterationsQuality(constants.Mainnet, quality, 1, math.MaxUint64, ccSp)
	assert.ErrorIs(t, err, safemath.ErrOverflow)
}

func testProof(size uint8) block.ProofOfSpace {
	proof := make([]byte, 8*int(size))
	for i := range proof {
		proof[i] = byte(i)
	}
	return block.ProofOfSpace{Size: size, Proof: proof}
}

func TestClassifierIterations(t *testing.T) {
	const ssi = 16 * 2048 // interval 2048 exceeds any required iterations at difficulty one
	cl := NewClassifier(nil)

	t.Run("normal block", func(t *testing.T) {
		rcb := block.RewardChainBlockUnfinished{
			SignagePointIndex:   4,
			ProofOfSpace:        testProof(18),
			ChallengeChainSpVDF: &block.VDFInfo{Challenge: testutils.RandomHash(t)},
		}
		sp, ip, err := cl.Iterations(c, rcb, ssi, 1, 10, 9)
		require.NoError(t, err)
		assert.Equal(t, uint64(4*2048), sp)
		assert.Greater(t, ip, sp+3*2048)
		assert.LessOrEqual(t, ip, sp+3*2048+1771)
	})

	t.Run("overflow block", func(t *testing.T) {
		rcb := block.RewardChainBlockUnfinished{
			SignagePointIndex:   14,
			ProofOfSpace:        testProof(18),
			ChallengeChainSpVDF: &block.VDFInfo{Challenge: testutils.RandomHash(t)},
		}
		sp, ip, err := cl.Iterations(c, rcb, ssi, 1, 10, 9)
		require.NoError(t, err)
		assert.Greater(t, sp, ip)
	})

	t.Run("first signage point uses the challenge", func(t *testing.T) {
		rcb := block.RewardChainBlockUnfinished{
			SignagePointIndex:    0,
			PosSsCcChallengeHash: testutils.RandomHash(t),
			ProofOfSpace:         testProof(18),
		}
		sp, _, err := cl.Iterations(c, rcb, ssi, 1, 10, 9)
		require.NoError(t, err)
		assert.Zero(t, sp)
	})

	t.Run("missing signage point vdf", func(t *testing.T) {
		rcb := block.RewardChainBlockUnfinished{SignagePointIndex: 3, ProofOfSpace: testProof(18)}
		_, _, err := cl.Iterations(c, rcb, ssi, 1, 10, 9)
		assert.ErrorIs(t, err, ErrMissingSpVDF)
	})

	t.Run("malformed proof", func(t *testing.T) {
		pos := testProof(18)
		pos.Proof = pos.Proof[:10]
		rcb := block.RewardChainBlockUnfinished{ProofOfSpace: pos}
		_, _, err := cl.Iterations(c, rcb, ssi, 1, 10, 9)
		assert.ErrorIs(t, err, ErrInvalidProof)
	})

	t.Run("sub-slot iterations from another epoch", func(t *testing.T) {
		rcb := block.RewardChainBlockUnfinished{ProofOfSpace: testProof(18)}
		_, _, err := cl.Iterations(c, rcb, 1000, 1, 10, 9)
		assert.ErrorIs(t, err, ErrInvalidSubSlotIters)
	})
}

func TestClassifierCustomQuality(t *testing.T) {
	var gotHeight, gotTx uint32
	cl := NewClassifier(func(_ block.ProofOfSpace, _ constants.Constants, _, _ crypto.Hash, height, prevTx uint32) (crypto.Hash, bool) {
		gotHeight, gotTx = height, prevTx
		return crypto.Hash{}, true
	})
	rcb := block.RewardChainBlockUnfinished{ProofOfSpace: block.ProofOfSpace{Size: 18}}
	_, _, err := cl.Iterations(c, rcb, 16*2048, 1, 42, 40)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), gotHeight)
	assert.Equal(t, uint32(40), gotTx)
}
