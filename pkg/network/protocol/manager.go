package protocol

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/timelord/pkg/log"
	"github.com/eigerco/timelord/pkg/network/transport"
)

// Config represents the configuration for a protocol Manager
type Config struct {
	// Network is the consensus constants preset name, e.g. "mainnet"
	Network string
	// Bluebox indicates this timelord only serves compact proof requests
	Bluebox bool
	// Handler receives every stream opened by a peer
	Handler transport.StreamHandler
}

// Manager implements transport.ConnectionHandler. It checks the negotiated
// protocol and hands every stream a peer opens to the stream handler.
type Manager struct {
	config Config
}

// NewManager creates a new protocol Manager with the given configuration.
func NewManager(config Config) (*Manager, error) {
	if config.Handler == nil {
		return nil, fmt.Errorf("stream handler required")
	}
	if err := ValidateALPNProtocol(NewProtocolID(config.Network, config.Bluebox).String()); err != nil {
		return nil, fmt.Errorf("invalid network: %w", err)
	}
	return &Manager{config: config}, nil
}

// OnConnection starts accepting streams on a new connection.
func (m *Manager) OnConnection(conn *transport.Conn) error {
	go m.handleStreams(conn)
	return nil
}

// handleStreams accepts streams until the connection goes away. Each stream
// is served on its own goroutine.
func (m *Manager) handleStreams(conn *transport.Conn) {
	defer conn.Close()

	for {
		stream, err := conn.AcceptStream()
		if err != nil {
			if conn.Context().Err() != nil {
				log.Network.Debug().Msg("connection closed: context done")
				return
			}
			var idle *quic.IdleTimeoutError
			if errors.As(err, &idle) {
				log.Network.Debug().Msg("connection timed out due to inactivity")
				return
			}
			var appErr *quic.ApplicationError
			if errors.As(err, &appErr) {
				log.Network.Debug().Err(err).Msg("connection closed by peer")
				return
			}
			log.Network.Warn().Err(err).Msg("stream accept error")
			return
		}

		go func(s quic.Stream) {
			if err := m.config.Handler.HandleStream(conn.Context(), s); err != nil && !errors.Is(err, context.Canceled) {
				log.Network.Warn().Err(err).Msg("stream handler failed")
			}
		}(stream)
	}
}

// GetProtocols returns the list of supported ALPN protocol strings.
// Implements the transport.ConnectionHandler interface.
func (m *Manager) GetProtocols() []string {
	return AcceptableProtocols(m.config.Network, m.config.Bluebox)
}

// ValidateConnection validates a new TLS connection's protocol negotiation.
// Implements the transport.ConnectionHandler interface.
func (m *Manager) ValidateConnection(tlsState tls.ConnectionState) error {
	if tlsState.NegotiatedProtocol == "" {
		return fmt.Errorf("no protocol negotiated")
	}

	protocolID, err := ParseProtocolID(tlsState.NegotiatedProtocol)
	if err != nil {
		return fmt.Errorf("invalid protocol: %w", err)
	}
	if protocolID.Network != m.config.Network {
		return fmt.Errorf("network mismatch: got %s, want %s", protocolID.Network, m.config.Network)
	}
	if protocolID.Bluebox != m.config.Bluebox {
		return fmt.Errorf("bluebox mode mismatch: got %t, want %t", protocolID.Bluebox, m.config.Bluebox)
	}
	return nil
}
