package timelord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/timelord/internal/block"
)

func TestHandleNewPeak_Bootstrap(t *testing.T) {
	f := newFixture(t)
	p := newPeak(t, 5, 10, 1000)
	f.cls.classifyPeak(p, 200)

	require.Equal(t, AdoptedFresh, f.tl.HandleNewPeak(p))

	snap := f.tl.Snapshot()
	require.NotNil(t, snap.Peak)
	assert.Equal(t, p.RewardChainBlock.Hash(), snap.Peak.RewardChainBlock.Hash())
	require.NotNil(t, snap.PendingPeak)
	assert.Equal(t, uint64(10), snap.Weight)
	assert.Equal(t, uint64(1000), snap.TotalIters)
	assert.Equal(t, uint32(5), snap.LastHeight)
	assert.Equal(t, uint64(200), snap.LastIPIters)
	assert.Equal(t, PeakInactivityWindow, snap.MaxAllowedInactivity)

	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, EventNewPeak, events[0].Kind)
	assert.Equal(t, "adopted_fresh", events[0].Outcome)
	assert.Equal(t, uint32(5), events[0].Height)
}

func TestHandleNewPeak_UnclassifiedPeakStillAdopted(t *testing.T) {
	f := newFixture(t)
	p := newPeak(t, 1, 1, 10)

	require.Equal(t, AdoptedFresh, f.tl.HandleNewPeak(p))
	assert.Zero(t, f.tl.Snapshot().LastIPIters)
}

func TestHandleNewPeak_EqualWeight(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, AdoptedFresh, f.tl.HandleNewPeak(newPeak(t, 5, 10, 1000)))

	faster := newPeak(t, 5, 10, 900)
	require.Equal(t, AdoptedPreferred, f.tl.HandleNewPeak(faster))
	assert.Equal(t, uint64(900), f.tl.Snapshot().TotalIters)

	slower := newPeak(t, 5, 10, 950)
	require.Equal(t, SkippedDuplicateOrLower, f.tl.HandleNewPeak(slower))
	snap := f.tl.Snapshot()
	assert.Equal(t, uint64(900), snap.TotalIters)
	assert.Equal(t, faster.RewardChainBlock.Hash(), snap.Peak.RewardChainBlock.Hash())

	events := f.events(t)
	require.Len(t, events, 3)
	assert.Equal(t, EventNewPeak, events[1].Kind)
	assert.Equal(t, "adopted_preferred", events[1].Outcome)
	assert.Equal(t, EventSkippingPeak, events[2].Kind)
	assert.Equal(t, "skipped_duplicate_or_lower", events[2].Outcome)
}

func TestHandleNewPeak_LowerWeight(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, AdoptedFresh, f.tl.HandleNewPeak(newPeak(t, 5, 10, 1000)))
	require.Equal(t, SkippedDuplicateOrLower, f.tl.HandleNewPeak(newPeak(t, 4, 9, 500)))
	assert.Equal(t, uint64(10), f.tl.Snapshot().Weight)
}

func TestHandleNewPeak_Duplicate(t *testing.T) {
	f := newFixture(t)
	p := newPeak(t, 5, 10, 1000)
	f.cls.classifyPeak(p, 200)

	require.Equal(t, AdoptedFresh, f.tl.HandleNewPeak(p))
	before := f.tl.Snapshot()

	require.Equal(t, SkippedDuplicateOrLower, f.tl.HandleNewPeak(p))
	assert.Equal(t, before, f.tl.Snapshot())
}

func TestHandleNewPeak_OrphanProtection(t *testing.T) {
	setup := func(t *testing.T) (*fixture, TrackedBlock) {
		f := newFixture(t)
		p := newPeak(t, 5, 10, 1000)
		f.cls.classifyPeak(p, 200)
		require.Equal(t, AdoptedFresh, f.tl.HandleNewPeak(p))

		u := newUnfinished(t, 1100)
		f.cls.classify(u, 100, 300)
		require.Equal(t, Admitted, f.tl.HandleNewUnfinishedBlock(u))
		f.events(t)
		return f, f.tl.Snapshot().Unfinished[0]
	}

	t.Run("competing peak at next height is skipped", func(t *testing.T) {
		f, _ := setup(t)
		before := f.tl.Snapshot()

		require.Equal(t, SkippedOrphanRisk, f.tl.HandleNewPeak(newPeak(t, 6, 11, 1200)))
		assert.Equal(t, before, f.tl.Snapshot())

		events := f.events(t)
		require.Len(t, events, 1)
		assert.Equal(t, EventOrphanRisk, events[0].Kind)
		assert.Equal(t, uint32(6), events[0].Height)
	})

	t.Run("peak infusing the tracked block is adopted", func(t *testing.T) {
		f, tracked := setup(t)
		own := peakOf(finish(tracked.Block.RewardChainBlock, 6, 11))
		require.Equal(t, AdoptedFresh, f.tl.HandleNewPeak(own))
	})

	t.Run("peak before the tracked block is adopted", func(t *testing.T) {
		f, _ := setup(t)
		require.Equal(t, AdoptedFresh, f.tl.HandleNewPeak(newPeak(t, 6, 11, 1050)))
	})

	t.Run("peak further ahead is adopted", func(t *testing.T) {
		f, _ := setup(t)
		require.Equal(t, AdoptedFresh, f.tl.HandleNewPeak(newPeak(t, 7, 12, 1200)))
	})

	t.Run("overflow blocks are protected too", func(t *testing.T) {
		f := newFixture(t)
		require.Equal(t, AdoptedFresh, f.tl.HandleNewPeak(newPeak(t, 5, 10, 1000)))
		u := newUnfinished(t, 1100)
		f.cls.classify(u, 900, 100)
		require.Equal(t, Overflow, f.tl.HandleNewUnfinishedBlock(u))

		require.Equal(t, SkippedOrphanRisk, f.tl.HandleNewPeak(newPeak(t, 6, 11, 1200)))
	})
}

func TestTakePendingPeak(t *testing.T) {
	f := newFixture(t)
	_, ok := f.tl.TakePendingPeak()
	require.False(t, ok)

	p := newPeak(t, 5, 10, 1000)
	f.cls.classifyPeak(p, 200)
	require.Equal(t, AdoptedFresh, f.tl.HandleNewPeak(p))

	taken, ok := f.tl.TakePendingPeak()
	require.True(t, ok)
	assert.Equal(t, p.RewardChainBlock.Hash(), taken.RewardChainBlock.Hash())
	_, ok = f.tl.TakePendingPeak()
	require.False(t, ok)

	u := newUnfinished(t, 1100)
	f.cls.classify(u, 100, 300)
	require.Equal(t, Admitted, f.tl.HandleNewUnfinishedBlock(u))
	o := newUnfinished(t, 1500)
	f.cls.classify(o, 900, 100)
	require.Equal(t, Overflow, f.tl.HandleNewUnfinishedBlock(o))

	next := peakOf(finish(u.RewardChainBlock, 6, 11))
	require.Equal(t, AdoptedFresh, f.tl.HandleNewPeak(next))
	_, ok = f.tl.TakePendingPeak()
	require.True(t, ok)

	snap := f.tl.Snapshot()
	assert.Nil(t, snap.PendingPeak)
	assert.Empty(t, snap.Unfinished)
	assert.Empty(t, snap.Overflow)
	assert.Empty(t, snap.IterationProofType)
	for _, c := range Chains {
		assert.Empty(t, snap.ItersToSubmit[c], c.String())
	}
	assert.Equal(t, uint64(1), snap.TotalInfused)
	assert.Equal(t, uint64(1), snap.TotalUnfinished)
}

func TestSnapshotIsDetached(t *testing.T) {
	f := newFixture(t)
	p := newPeak(t, 5, 10, 1000)
	p.PreviousRewardChallenges = []block.ChallengeIters{{TotalIters: 1}}
	newDifficulty := uint64(3)
	p.SubEpochSummary = &block.SubEpochSummary{NewDifficulty: &newDifficulty}
	f.cls.classifyPeak(p, 200)
	require.Equal(t, AdoptedFresh, f.tl.HandleNewPeak(p))

	u := newUnfinished(t, 1100)
	u.RewardChainBlock.ChallengeChainSpVDF = &block.VDFInfo{NumberOfIterations: 64}
	f.cls.classify(u, 100, 300)
	require.Equal(t, Admitted, f.tl.HandleNewUnfinishedBlock(u))

	// the caller's values are copied on the way in
	p.PreviousRewardChallenges[0].TotalIters = 7
	u.RewardChainBlock.ProofOfSpace.Proof[0] ^= 0xff

	snap := f.tl.Snapshot()
	snap.Peak.PreviousRewardChallenges[0].TotalIters = 999
	*snap.Peak.SubEpochSummary.NewDifficulty = 999
	snap.PendingPeak.PreviousRewardChallenges[0].TotalIters = 999
	snap.Peak.RewardChainBlock.ProofOfSpace.Proof[0] ^= 0xff
	snap.Unfinished[0].Block.RewardChainBlock.ChallengeChainSpVDF.NumberOfIterations = 999
	snap.Unfinished[0].Block.RewardChainBlock.ProofOfSpace.Proof[0] ^= 0xff
	snap.RewardChallenges[0].TotalIters = 999

	fresh := f.tl.Snapshot()
	assert.Equal(t, uint64(1), fresh.Peak.PreviousRewardChallenges[0].TotalIters)
	assert.Equal(t, uint64(3), *fresh.Peak.SubEpochSummary.NewDifficulty)
	assert.Equal(t, uint64(1), fresh.PendingPeak.PreviousRewardChallenges[0].TotalIters)
	assert.Equal(t, uint64(1), fresh.RewardChallenges[0].TotalIters)
	assert.Equal(t, uint64(64), fresh.Unfinished[0].Block.RewardChainBlock.ChallengeChainSpVDF.NumberOfIterations)
	assert.Equal(t, p.RewardChainBlock.Hash(), fresh.Peak.RewardChainBlock.Hash())
	assert.Equal(t, fresh.Unfinished[0].Hash, fresh.Unfinished[0].Block.RewardChainBlock.Hash())

	taken, ok := f.tl.TakePendingPeak()
	require.True(t, ok)
	taken.PreviousRewardChallenges[0].TotalIters = 999
	assert.Equal(t, uint64(1), f.tl.Snapshot().Peak.PreviousRewardChallenges[0].TotalIters)
}
