package protocol

import (
	"errors"
	"fmt"

	"github.com/eigerco/timelord/internal/block"
	"github.com/eigerco/timelord/pkg/serialization/codec"
)

// Code identifies the payload of a message.
type Code uint8

const (
	CodeNewPeak Code = iota + 1
	CodeNewUnfinishedBlock
	CodeRequestCompactProofOfTime
)

func (c Code) String() string {
	switch c {
	case CodeNewPeak:
		return "new_peak_timelord"
	case CodeNewUnfinishedBlock:
		return "new_unfinished_block_timelord"
	case CodeRequestCompactProofOfTime:
		return "request_compact_proof_of_time"
	default:
		return fmt.Sprintf("code(%d)", uint8(c))
	}
}

var (
	ErrEmptyMessage   = errors.New("empty message")
	ErrUnknownCode    = errors.New("unknown message code")
	ErrUnsupportedMsg = errors.New("unsupported message type")
)

// Encode prefixes the CBOR encoding of msg with its code. msg must be one of
// the timelord protocol messages, by value or pointer.
func Encode(msg interface{}) ([]byte, error) {
	var code Code
	switch msg.(type) {
	case block.NewPeak, *block.NewPeak:
		code = CodeNewPeak
	case block.UnfinishedBlock, *block.UnfinishedBlock:
		code = CodeNewUnfinishedBlock
	case block.CompactProofRequest, *block.CompactProofRequest:
		code = CodeRequestCompactProofOfTime
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedMsg, msg)
	}

	payload, err := codec.CBOR.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", code, err)
	}
	return append([]byte{byte(code)}, payload...), nil
}

// Decode reverses Encode. The returned value is a block.NewPeak,
// block.UnfinishedBlock or block.CompactProofRequest.
func Decode(data []byte) (Code, interface{}, error) {
	if len(data) == 0 {
		return 0, nil, ErrEmptyMessage
	}
	code := Code(data[0])
	payload := data[1:]

	var (
		msg interface{}
		err error
	)
	switch code {
	case CodeNewPeak:
		var p block.NewPeak
		err = codec.CBOR.Unmarshal(payload, &p)
		msg = p
	case CodeNewUnfinishedBlock:
		var b block.UnfinishedBlock
		err = codec.CBOR.Unmarshal(payload, &b)
		msg = b
	case CodeRequestCompactProofOfTime:
		var r block.CompactProofRequest
		err = codec.CBOR.Unmarshal(payload, &r)
		msg = r
	default:
		return code, nil, fmt.Errorf("%w: %d", ErrUnknownCode, uint8(code))
	}
	if err != nil {
		return code, nil, fmt.Errorf("unmarshal %s: %w", code, err)
	}
	return code, msg, nil
}
