package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBORCodec encodes with the core deterministic CBOR rules, so equal values
// always produce equal bytes and content hashes are stable across nodes.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR is the shared deterministic codec.
var CBOR = mustCBORCodec()

func NewCBORCodec() (*CBORCodec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoding mode: %w", err)
	}
	dec, err := cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: 1 << 16,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor decoding mode: %w", err)
	}
	return &CBORCodec{enc: enc, dec: dec}, nil
}

func mustCBORCodec() *CBORCodec {
	c, err := NewCBORCodec()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *CBORCodec) Marshal(v interface{}) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c *CBORCodec) Unmarshal(data []byte, v interface{}) error {
	return c.dec.Unmarshal(data, v)
}
