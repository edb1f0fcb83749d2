package constants

import "fmt"

// Constants holds the consensus parameters the timelord needs to place
// blocks on the VDF chains.
type Constants struct {
	Name string

	// SlotBlocksTarget is the target number of blocks per sub-slot.
	SlotBlocksTarget uint32
	// MinBlocksPerChallengeBlock is the deficit reset value. While the deficit
	// of the peak is below it, infused blocks also need an infused challenge
	// chain proof.
	MinBlocksPerChallengeBlock uint8
	// MaxSubSlotBlocks caps the number of blocks in a sub-slot.
	MaxSubSlotBlocks uint32
	// NumSpsSubSlot is the number of signage points per sub-slot.
	NumSpsSubSlot uint8
	// NumSpIntervalsExtra is how many signage point intervals an infusion
	// point trails its signage point by, at minimum.
	NumSpIntervalsExtra  uint8
	SubSlotItersStarting uint64
	DifficultyStarting   uint64
	// DifficultyConstantFactorLog2 is log2 of the difficulty constant factor,
	// which does not fit in 64 bits on mainnet.
	DifficultyConstantFactorLog2 uint
	SubEpochBlocks               uint32
	MinPlotSize                  uint8
	MaxPlotSize                  uint8
	HardForkHeight               uint32
}

var Mainnet = Constants{
	Name:                         "mainnet",
	SlotBlocksTarget:             32,
	MinBlocksPerChallengeBlock:   16,
	MaxSubSlotBlocks:             128,
	NumSpsSubSlot:                64,
	NumSpIntervalsExtra:          3,
	SubSlotItersStarting:         1 << 27,
	DifficultyStarting:           7,
	DifficultyConstantFactorLog2: 67,
	SubEpochBlocks:               384,
	MinPlotSize:                  32,
	MaxPlotSize:                  50,
	HardForkHeight:               5_496_000,
}

// Testnet uses small sub-slots so tests can reason about iteration counts
// by hand.
var Testnet = Constants{
	Name:                         "testnet",
	SlotBlocksTarget:             16,
	MinBlocksPerChallengeBlock:   2,
	MaxSubSlotBlocks:             50,
	NumSpsSubSlot:                16,
	NumSpIntervalsExtra:          3,
	SubSlotItersStarting:         1 << 10,
	DifficultyStarting:           1,
	DifficultyConstantFactorLog2: 33,
	SubEpochBlocks:               170,
	MinPlotSize:                  18,
	MaxPlotSize:                  50,
	HardForkHeight:               0,
}

// ByName returns the preset for a network name.
func ByName(name string) (Constants, error) {
	switch name {
	case Mainnet.Name:
		return Mainnet, nil
	case Testnet.Name:
		return Testnet, nil
	default:
		return Constants{}, fmt.Errorf("unknown network %q", name)
	}
}
