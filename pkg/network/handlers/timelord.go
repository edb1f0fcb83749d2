package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/timelord/internal/block"
	"github.com/eigerco/timelord/internal/timelord"
	"github.com/eigerco/timelord/pkg/log"
	"github.com/eigerco/timelord/pkg/network/protocol"
	"github.com/eigerco/timelord/pkg/network/transport"
)

// streamErrDecode is the stream error code sent to a peer whose message
// could not be decoded.
const streamErrDecode quic.StreamErrorCode = 1

// Timelord is the part of the coordinator the handler drives.
type Timelord interface {
	HandleNewPeak(p block.NewPeak) timelord.Decision
	HandleNewUnfinishedBlock(b block.UnfinishedBlock) timelord.AdmissionResult
	HandleCompactProofRequest(req block.CompactProofRequest, now time.Time) bool
}

// TimelordHandler serves streams opened by a full node. Each stream carries
// any number of framed protocol messages.
type TimelordHandler struct {
	timelord Timelord
	now      func() time.Time
}

// NewTimelordHandler creates a handler. now stamps compact proof requests on
// arrival; nil means time.Now.
func NewTimelordHandler(tl Timelord, now func() time.Time) *TimelordHandler {
	if now == nil {
		now = time.Now
	}
	return &TimelordHandler{timelord: tl, now: now}
}

// HandleStream reads messages until the peer closes the stream. A message
// that does not decode ends the stream.
func (h *TimelordHandler) HandleStream(ctx context.Context, stream quic.Stream) error {
	defer stream.Close()

	for {
		msg, err := ReadMessageWithContext(ctx, stream)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		if err := h.Dispatch(msg.Content); err != nil {
			log.Network.Warn().Err(err).Int64("stream", int64(stream.StreamID())).Msg("dropping stream")
			stream.CancelRead(streamErrDecode)
			return err
		}
	}
}

// Dispatch decodes one message and hands it to the timelord.
func (h *TimelordHandler) Dispatch(content []byte) error {
	code, msg, err := protocol.Decode(content)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	switch m := msg.(type) {
	case block.NewPeak:
		decision := h.timelord.HandleNewPeak(m)
		log.Network.Debug().Stringer("code", code).Uint32("height", m.RewardChainBlock.Height).Stringer("decision", decision).Msg("handled")
	case block.UnfinishedBlock:
		result := h.timelord.HandleNewUnfinishedBlock(m)
		log.Network.Debug().Stringer("code", code).Stringer("result", result).Msg("handled")
	case block.CompactProofRequest:
		queued := h.timelord.HandleCompactProofRequest(m, h.now())
		log.Network.Debug().Stringer("code", code).Uint32("height", m.Height).Bool("queued", queued).Msg("handled")
	}
	return nil
}

// SendMessage encodes msg and writes it as one frame. Without a deadline on
// ctx the write is bounded by transport.StreamTimeout.
func SendMessage(ctx context.Context, w io.Writer, msg interface{}) error {
	content, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, transport.StreamTimeout)
		defer cancel()
	}
	return WriteMessageWithContext(ctx, w, content)
}
