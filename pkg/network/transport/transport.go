package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/timelord/pkg/log"
)

// MaxIdleTimeout defines the maximum duration a connection can be idle before timing out
const MaxIdleTimeout = 30 * time.Minute

// StreamHandler processes individual QUIC streams within a connection
type StreamHandler interface {
	HandleStream(ctx context.Context, stream quic.Stream) error
}

// CertValidator performs TLS certificate validation and public key extraction
type CertValidator interface {
	// ValidateCertificate checks if a certificate meets required criteria
	ValidateCertificate(cert *x509.Certificate) error
	// ExtractPublicKey retrieves the Ed25519 public key from a certificate
	ExtractPublicKey(cert *x509.Certificate) (ed25519.PublicKey, error)
}

// ConnectionHandler processes new connections and validates their protocols
type ConnectionHandler interface {
	// OnConnection is called when a new connection is established
	OnConnection(conn *Conn) error
	// GetProtocols returns supported ALPN protocol strings
	GetProtocols() []string
	// ValidateConnection verifies TLS connection parameters
	ValidateConnection(tlsState tls.ConnectionState) error
}

// Config contains all configuration parameters for a Transport
type Config struct {
	TLSCert       *tls.Certificate  // TLS certificate
	ListenAddr    string            // Address to listen on
	CertValidator CertValidator     // Certificate validator
	Handler       ConnectionHandler // Connection handler
}

// Transport manages QUIC connections and their lifecycles
type Transport struct {
	config   Config
	listener *quic.Listener
	mu       sync.RWMutex
	conns    map[string]*Conn // Active connections mapped by peer key
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{} // For clean shutdown of accept loop
}

// NewTransport creates and configures a new transport instance.
// Returns an error if any required configuration is missing or invalid.
func NewTransport(config Config) (*Transport, error) {
	if config.TLSCert == nil {
		return nil, fmt.Errorf("TLS certificate required")
	}
	if config.CertValidator == nil {
		return nil, fmt.Errorf("certificate validator required")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("connection handler required")
	}

	if err := config.CertValidator.ValidateCertificate(config.TLSCert.Leaf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		config: config,
		conns:  make(map[string]*Conn),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (t *Transport) tlsConfig() *tls.Config {
	return &tls.Config{
		Certificates:       []tls.Certificate{*t.config.TLSCert},
		NextProtos:         t.config.Handler.GetProtocols(),
		ClientAuth:         tls.RequireAnyClientCert,
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: true,
		VerifyConnection: func(cs tls.ConnectionState) error {
			if len(cs.PeerCertificates) == 0 {
				return fmt.Errorf("%w: no peer certificate provided", ErrInvalidCertificate)
			}
			if err := t.config.CertValidator.ValidateCertificate(cs.PeerCertificates[0]); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
			}
			if err := t.config.Handler.ValidateConnection(cs); err != nil {
				return fmt.Errorf("connection validation failed: %w", err)
			}
			return nil
		},
	}
}

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  MaxIdleTimeout,
		KeepAlivePeriod: MaxIdleTimeout / 3,
	}
}

// Start initializes the transport listener and begins accepting connections.
// Returns an error if starting the listener fails.
func (t *Transport) Start() error {
	listener, err := quic.ListenAddr(t.config.ListenAddr, t.tlsConfig(), quicConfig())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrListenerFailed, err)
	}

	t.listener = listener
	t.done = make(chan struct{})
	go func() {
		t.acceptLoop()
		close(t.done)
	}()
	log.Network.Info().Str("addr", listener.Addr().String()).Msg("listening")
	return nil
}

// Addr returns the address the listener is bound to, or nil before Start.
func (t *Transport) Addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Stop gracefully shuts down the transport and all active connections.
// Waits for the accept loop to finish before returning.
func (t *Transport) Stop() error {
	t.cancel()

	for _, conn := range t.ListConnections() {
		if err := conn.Close(); err != nil {
			log.Network.Warn().Err(err).Msg("failed to close connection")
		}
	}

	if t.listener == nil {
		return nil
	}
	if err := t.listener.Close(); err != nil {
		return fmt.Errorf("failed to close listener: %w", err)
	}
	<-t.done
	return nil
}

// Connect initiates a connection to a remote peer.
// Returns the new connection or an error if connection fails.
func (t *Transport) Connect(ctx context.Context, addr string) (*Conn, error) {
	quicConn, err := quic.DialAddr(ctx, addr, t.tlsConfig(), quicConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDialFailed, err)
	}

	conn := t.handleConnection(quicConn)
	if conn == nil {
		return nil, ErrConnFailed
	}
	return conn, nil
}

// GetConnection retrieves an active connection by peer key.
// Returns the connection and whether it was found.
func (t *Transport) GetConnection(peerKey ed25519.PublicKey) (*Conn, bool) {
	t.mu.RLock()
	conn, ok := t.conns[string(peerKey)]
	t.mu.RUnlock()
	return conn, ok
}

// ListConnections returns a slice of all active connections.
func (t *Transport) ListConnections() []*Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	conns := make([]*Conn, 0, len(t.conns))
	for _, conn := range t.conns {
		conns = append(conns, conn)
	}
	return conns
}

// acceptLoop continuously accepts incoming connections
func (t *Transport) acceptLoop() {
	for {
		conn, err := t.listener.Accept(t.ctx)
		if err != nil {
			if t.ctx.Err() != nil {
				return
			}
			log.Network.Warn().Err(err).Msg("failed to accept connection")
			continue
		}
		go t.handleConnection(conn)
	}
}

// handleConnection processes a new QUIC connection
func (t *Transport) handleConnection(qConn quic.Connection) *Conn {
	peerKey, err := t.config.CertValidator.ExtractPublicKey(qConn.ConnectionState().TLS.PeerCertificates[0])
	if err != nil {
		log.Network.Warn().Err(err).Msg("failed to extract peer key")
		if cerr := qConn.CloseWithError(0, fmt.Sprintf("%s: %v", ErrInvalidCertificate.Error(), err)); cerr != nil {
			log.Network.Warn().Err(cerr).Msg("failed to close connection")
		}
		return nil
	}

	conn := t.manageConnection(peerKey, qConn)

	if err := t.config.Handler.OnConnection(conn); err != nil {
		t.cleanup(peerKey)
		if cerr := qConn.CloseWithError(0, err.Error()); cerr != nil {
			log.Network.Warn().Err(cerr).Msg("failed to close connection")
		}
		return nil
	}

	log.Network.Debug().
		Str("remote", qConn.RemoteAddr().String()).
		Hex("peer", peerKey).
		Msg("connection established")
	return conn
}

// manageConnection stores a new connection, closing any previous one with
// the same peer.
func (t *Transport) manageConnection(peerKey ed25519.PublicKey, qConn quic.Connection) *Conn {
	conn := newConn(qConn, t)
	conn.peerKey = peerKey

	t.mu.Lock()
	existing, exists := t.conns[string(peerKey)]
	t.conns[string(peerKey)] = conn
	t.mu.Unlock()

	if exists {
		log.Network.Debug().Hex("peer", peerKey).Msg("replacing existing connection")
		if err := existing.Close(); err != nil {
			log.Network.Warn().Err(err).Msg("failed to close existing connection")
		}
	}
	return conn
}

// cleanup removes a connection from the map
func (t *Transport) cleanup(peerKey ed25519.PublicKey) {
	t.mu.Lock()
	delete(t.conns, string(peerKey))
	t.mu.Unlock()
}

// release forgets conn if it is still the connection tracked for its peer.
func (t *Transport) release(conn *Conn) {
	t.mu.Lock()
	if current, ok := t.conns[string(conn.peerKey)]; ok && current == conn {
		delete(t.conns, string(conn.peerKey))
	}
	t.mu.Unlock()
}
