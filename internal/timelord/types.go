package timelord

import "fmt"

// Chain identifies one of the VDF chains a timelord advances.
type Chain uint8

const (
	RewardChain Chain = iota + 1
	ChallengeChain
	InfusedChallengeChain
)

// Chains lists every chain in submission order.
var Chains = []Chain{RewardChain, ChallengeChain, InfusedChallengeChain}

func (c Chain) String() string {
	switch c {
	case RewardChain:
		return "reward_chain"
	case ChallengeChain:
		return "challenge_chain"
	case InfusedChallengeChain:
		return "infused_challenge_chain"
	default:
		return fmt.Sprintf("chain(%d)", uint8(c))
	}
}

// IterationType is the kind of proof expected at an iteration count.
type IterationType uint8

const (
	SignagePoint IterationType = iota + 1
	InfusionPoint
	EndOfSubSlot
)

func (t IterationType) String() string {
	switch t {
	case SignagePoint:
		return "signage_point"
	case InfusionPoint:
		return "infusion_point"
	case EndOfSubSlot:
		return "end_of_sub_slot"
	default:
		return fmt.Sprintf("iteration_type(%d)", uint8(t))
	}
}

// Decision is the outcome of offering a peak to the timelord.
type Decision uint8

const (
	// PeakIgnored is returned by bluebox timelords, which track no peak.
	PeakIgnored Decision = iota
	AdoptedFresh
	// AdoptedPreferred replaces a peak of equal weight reached with more
	// iterations.
	AdoptedPreferred
	// SkippedOrphanRisk keeps the current peak because the candidate would
	// orphan an unfinished block still being raced for.
	SkippedOrphanRisk
	SkippedDuplicateOrLower
)

// Adopted reports whether the peak replaced the tracked one.
func (d Decision) Adopted() bool {
	return d == AdoptedFresh || d == AdoptedPreferred
}

func (d Decision) String() string {
	switch d {
	case PeakIgnored:
		return "ignored"
	case AdoptedFresh:
		return "adopted_fresh"
	case AdoptedPreferred:
		return "adopted_preferred"
	case SkippedOrphanRisk:
		return "skipped_orphan_risk"
	case SkippedDuplicateOrLower:
		return "skipped_duplicate_or_lower"
	default:
		return fmt.Sprintf("decision(%d)", uint8(d))
	}
}

// AdmissionResult is the outcome of offering an unfinished block.
type AdmissionResult uint8

const (
	// BlockIgnored is returned by bluebox timelords.
	BlockIgnored AdmissionResult = iota
	NoKnownPeak
	Overflow
	Admitted
	RejectedByCapacity
	Stale
)

func (r AdmissionResult) String() string {
	switch r {
	case BlockIgnored:
		return "ignored"
	case NoKnownPeak:
		return "no_known_peak"
	case Overflow:
		return "overflow"
	case Admitted:
		return "admitted"
	case RejectedByCapacity:
		return "rejected_by_capacity"
	case Stale:
		return "stale"
	default:
		return fmt.Sprintf("admission(%d)", uint8(r))
	}
}
