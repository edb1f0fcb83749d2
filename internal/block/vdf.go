package block

import "github.com/eigerco/timelord/internal/crypto"

const (
	ClassgroupElementSize = 100
	G1ElementSize         = 48
	G2ElementSize         = 96
)

// ClassgroupElement is a serialized class group element, the output of a VDF.
type ClassgroupElement [ClassgroupElementSize]byte

// G1Element is a BLS public key.
type G1Element [G1ElementSize]byte

// G2Element is a BLS signature.
type G2Element [G2ElementSize]byte

// VDFInfo identifies a VDF run: its challenge, length and claimed output.
type VDFInfo struct {
	Challenge          crypto.Hash
	NumberOfIterations uint64
	Output             ClassgroupElement
}

func (v VDFInfo) Hash() crypto.Hash {
	return mustHash(v)
}

// ProofOfSpace is carried opaquely; only its challenge, size and proof bytes
// feed the iteration calculation.
type ProofOfSpace struct {
	Challenge              crypto.Hash
	PoolPublicKey          *G1Element
	PoolContractPuzzleHash *crypto.Hash
	PlotPublicKey          G1Element
	Size                   uint8
	Proof                  []byte
}
