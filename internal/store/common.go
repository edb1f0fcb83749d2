package store

import "encoding/binary"

const (
	ErrFailedBatchCommit = "failed to commit batch: %w"
)

// Prefix constants for all store types
const (
	prefixEvent byte = iota + 1
	prefixLatestPeak
)

// PrefixToString converts a prefix byte to a string
func PrefixToString(p byte) string {
	switch p {
	case prefixEvent:
		return "event"
	case prefixLatestPeak:
		return "latestPeak"
	default:
		return "unknown"
	}
}

// makeKey creates a key from a prefix and a suffix
func makeKey(prefix byte, suffix []byte) []byte {
	key := make([]byte, 1+len(suffix))
	key[0] = prefix
	copy(key[1:], suffix)
	return key
}

// seqKey keys an entry by sequence number. Big endian keeps iteration order
// equal to sequence order.
func seqKey(prefix byte, seq uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return makeKey(prefix, b[:])
}
