package timelord

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eigerco/timelord/internal/block"
	"github.com/eigerco/timelord/internal/constants"
	"github.com/eigerco/timelord/internal/crypto"
	"github.com/eigerco/timelord/internal/testutils"
)

var errUnknownBlock = errors.New("unknown block")

type iters struct {
	sp, ip uint64
	err    error
}

// stubClassifier returns fixed iterations per unfinished reward chain hash.
type stubClassifier map[crypto.Hash]iters

func (s stubClassifier) Iterations(_ constants.Constants, rcb block.RewardChainBlockUnfinished, _, _ uint64, _, _ uint32) (uint64, uint64, error) {
	it, ok := s[rcb.Hash()]
	if !ok {
		return 0, 0, errUnknownBlock
	}
	return it.sp, it.ip, it.err
}

// acceptAll infuses every block at its classified infusion point.
func acceptAll(cls stubClassifier) CapacityFunc {
	return func(last *LastState, b block.UnfinishedBlock) (uint64, error) {
		return cls[b.RewardChainBlock.Hash()].ip - last.LastIPIters(), nil
	}
}

func rejectAll(last *LastState, b block.UnfinishedBlock) (uint64, error) {
	return 0, ErrTooLate
}

func newUnfinished(t *testing.T, totalIters uint64) block.UnfinishedBlock {
	t.Helper()
	return block.UnfinishedBlock{
		RewardChainBlock: block.RewardChainBlockUnfinished{
			TotalIters:           totalIters,
			PosSsCcChallengeHash: testutils.RandomHash(t),
			ProofOfSpace: block.ProofOfSpace{
				Challenge: testutils.RandomHash(t),
				Size:      18,
				Proof:     testutils.RandomBytes(t, 8*18),
			},
		},
		Difficulty:   1,
		SubSlotIters: constants.Testnet.SubSlotItersStarting,
		FoliageHash:  testutils.RandomHash(t),
	}
}

// finish turns an unfinished reward chain block into the block a peak would
// carry once it is infused.
func finish(u block.RewardChainBlockUnfinished, height uint32, weight uint64) block.RewardChainBlock {
	return block.RewardChainBlock{
		Weight:                    weight,
		Height:                    height,
		TotalIters:                u.TotalIters,
		SignagePointIndex:         u.SignagePointIndex,
		PosSsCcChallengeHash:      u.PosSsCcChallengeHash,
		ProofOfSpace:              u.ProofOfSpace,
		ChallengeChainSpVDF:       u.ChallengeChainSpVDF,
		ChallengeChainSpSignature: u.ChallengeChainSpSignature,
		RewardChainSpVDF:          u.RewardChainSpVDF,
		RewardChainSpSignature:    u.RewardChainSpSignature,
	}
}

func newPeak(t *testing.T, height uint32, weight, totalIters uint64) block.NewPeak {
	t.Helper()
	u := newUnfinished(t, totalIters).RewardChainBlock
	return peakOf(finish(u, height, weight))
}

func peakOf(rcb block.RewardChainBlock) block.NewPeak {
	return block.NewPeak{
		RewardChainBlock: rcb,
		Difficulty:       constants.Testnet.DifficultyStarting,
		Deficit:          constants.Testnet.MinBlocksPerChallengeBlock,
		SubSlotIters:     constants.Testnet.SubSlotItersStarting,
	}
}

// classifyPeak registers the infusion point of a peak's own block.
func (s stubClassifier) classifyPeak(p block.NewPeak, ip uint64) {
	s[p.RewardChainBlock.Unfinished().Hash()] = iters{sp: 0, ip: ip}
}

func (s stubClassifier) classify(b block.UnfinishedBlock, sp, ip uint64) {
	s[b.RewardChainBlock.Hash()] = iters{sp: sp, ip: ip}
}

type fixture struct {
	tl   *Timelord
	cls  stubClassifier
	sink *ChannelSink
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	cls := stubClassifier{}
	sink := NewChannelSink(64)
	opts = append([]Option{WithCapacityChecker(acceptAll(cls)), WithEventSink(sink)}, opts...)
	f := &fixture{
		tl:   New(constants.Testnet, cls, opts...),
		cls:  cls,
		sink: sink,
	}
	return f
}

func (f *fixture) events(t *testing.T) []Event {
	t.Helper()
	var out []Event
	for {
		select {
		case e := <-f.sink.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func requireNoEvents(t *testing.T, f *fixture) {
	t.Helper()
	require.Empty(t, f.events(t))
}
