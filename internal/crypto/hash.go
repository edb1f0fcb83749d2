package crypto

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/eigerco/timelord/pkg/serialization/codec"
)

type Hash [HashSize]byte

func HashData(data []byte) Hash {
	return blake2b.Sum256(data)
}

// HashValue hashes the deterministic CBOR encoding of v.
func HashValue(v interface{}) (Hash, error) {
	b, err := codec.CBOR.Marshal(v)
	if err != nil {
		return Hash{}, fmt.Errorf("encode for hashing: %w", err)
	}
	return HashData(b), nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first five bytes in hex, for log lines.
func (h Hash) Short() string {
	return hex.EncodeToString(h[:5])
}
