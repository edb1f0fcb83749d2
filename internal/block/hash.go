package block

import "github.com/eigerco/timelord/internal/crypto"

// mustHash hashes the deterministic CBOR encoding of v. The block types only
// hold integers, byte arrays, byte slices and pointers to those, so encoding
// them cannot fail.
func mustHash(v interface{}) crypto.Hash {
	h, err := crypto.HashValue(v)
	if err != nil {
		panic(err)
	}
	return h
}
