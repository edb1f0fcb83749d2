package protocol

import (
	"fmt"
	"strings"
)

const (
	// Protocol prefix for timelord connections
	protocolPrefix = "timelord"

	// Current protocol version
	currentVersion = "0"

	// Suffix for connections to a bluebox timelord
	blueboxSuffix = "bluebox"
)

// ProtocolID represents a complete ALPN protocol identifier.
// Format: timelord/<version>/<network>[/bluebox]
type ProtocolID struct {
	// Version is the protocol version (currently only "0")
	Version string
	// Network is the consensus constants preset the peer runs
	Network string
	// Bluebox indicates the peer talks to a bluebox timelord
	Bluebox bool
}

// NewProtocolID creates a new ProtocolID for the network and mode.
// The version is automatically set to the current supported version.
func NewProtocolID(network string, bluebox bool) *ProtocolID {
	return &ProtocolID{
		Version: currentVersion,
		Network: network,
		Bluebox: bluebox,
	}
}

// String converts the ProtocolID to its string representation.
// Format examples:
//   - Regular: "timelord/0/mainnet"
//   - Bluebox: "timelord/0/mainnet/bluebox"
func (p *ProtocolID) String() string {
	parts := []string{protocolPrefix, p.Version, p.Network}
	if p.Bluebox {
		parts = append(parts, blueboxSuffix)
	}
	return strings.Join(parts, "/")
}

// ParseProtocolID parses an ALPN protocol string into a ProtocolID.
func ParseProtocolID(protocol string) (*ProtocolID, error) {
	parts := strings.Split(protocol, "/")

	if len(parts) < 3 || len(parts) > 4 {
		return nil, fmt.Errorf("invalid protocol format: %s", protocol)
	}
	if parts[0] != protocolPrefix {
		return nil, fmt.Errorf("invalid protocol prefix: %s", parts[0])
	}
	if parts[1] != currentVersion {
		return nil, fmt.Errorf("unsupported protocol version: %s", parts[1])
	}

	network := parts[2]
	if network == "" {
		return nil, fmt.Errorf("empty network name")
	}
	for _, c := range network {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return nil, fmt.Errorf("invalid network name character: %c", c)
		}
	}

	bluebox := false
	if len(parts) == 4 {
		if strings.ToLower(parts[3]) != blueboxSuffix {
			return nil, fmt.Errorf("invalid protocol suffix: %s", parts[3])
		}
		bluebox = true
	}

	return &ProtocolID{
		Version: parts[1],
		Network: network,
		Bluebox: bluebox,
	}, nil
}

// ValidateALPNProtocol is a convenience wrapper around ParseProtocolID that
// only returns the error status.
func ValidateALPNProtocol(protocol string) error {
	_, err := ParseProtocolID(protocol)
	return err
}

// AcceptableProtocols returns the protocol string a timelord in the given
// mode accepts. A regular timelord and a bluebox never talk to each other's
// peers.
func AcceptableProtocols(network string, bluebox bool) []string {
	return []string{NewProtocolID(network, bluebox).String()}
}
