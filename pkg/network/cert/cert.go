package cert

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base32"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DNSNamePrefix is prepended to the encoded public key in the certificate
	// DNS name.
	DNSNamePrefix = "t"

	dnsNameLength = 53
	pemKeyType    = "PRIVATE KEY"
)

var (
	ErrNotEd25519    = errors.New("certificate is not Ed25519")
	ErrInvalidDNS    = errors.New("invalid certificate DNS name")
	ErrKeyMismatch   = errors.New("DNS name does not match public key")
	ErrNotYetValid   = errors.New("certificate is not yet valid")
	ErrExpired       = errors.New("certificate has expired")
	ErrInvalidKeyPEM = errors.New("invalid private key file")
)

// base32Encoding defines the custom base32 alphabet used for encoding public keys
var base32Encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// Config contains the parameters needed for certificate generation.
type Config struct {
	PrivateKey ed25519.PrivateKey
	// CertValidityPeriod defines how long the certificate remains valid
	CertValidityPeriod time.Duration
}

// Generator creates self-signed TLS certificates whose DNS name encodes the
// node's Ed25519 key.
type Generator struct {
	config Config
}

func NewGenerator(config Config) *Generator {
	return &Generator{config: config}
}

// GenerateCertificate creates a new self-signed certificate usable for both
// server and client authentication.
func (g *Generator) GenerateCertificate() (*tls.Certificate, error) {
	pub := g.config.PrivateKey.Public().(ed25519.PublicKey)
	dnsName := EncodePubKeyToDNS(pub)

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject:      pkix.Name{CommonName: dnsName},
		DNSNames:     []string{dnsName},
		NotBefore:    now.Add(-time.Minute),
		NotAfter:     now.Add(g.config.CertValidityPeriod),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
			x509.ExtKeyUsageClientAuth,
		},
		SignatureAlgorithm:    x509.PureEd25519,
		PublicKeyAlgorithm:    x509.Ed25519,
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, pub, g.config.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  g.config.PrivateKey,
		Leaf:        leaf,
	}, nil
}

// Validator implements transport.CertValidator for certificates made by
// Generator.
type Validator struct {
	now func() time.Time
}

func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// ValidateCertificate checks the signature algorithm, that the only DNS name
// encodes the certificate key and that the certificate is current.
func (v *Validator) ValidateCertificate(cert *x509.Certificate) error {
	if cert == nil {
		return fmt.Errorf("%w: no certificate", ErrNotEd25519)
	}
	if cert.SignatureAlgorithm != x509.PureEd25519 {
		return fmt.Errorf("%w: signature algorithm %s", ErrNotEd25519, cert.SignatureAlgorithm)
	}
	pubKey, ok := cert.PublicKey.(ed25519.PublicKey)
	if !ok {
		return fmt.Errorf("%w: public key %T", ErrNotEd25519, cert.PublicKey)
	}

	if len(cert.DNSNames) != 1 {
		return fmt.Errorf("%w: %d names", ErrInvalidDNS, len(cert.DNSNames))
	}
	dnsName := cert.DNSNames[0]
	if len(dnsName) != dnsNameLength || !strings.HasPrefix(dnsName, DNSNamePrefix) {
		return fmt.Errorf("%w: %s", ErrInvalidDNS, dnsName)
	}
	if dnsName != EncodePubKeyToDNS(pubKey) {
		return ErrKeyMismatch
	}

	now := v.now()
	if now.Before(cert.NotBefore) {
		return ErrNotYetValid
	}
	if now.After(cert.NotAfter) {
		return ErrExpired
	}
	return nil
}

// ExtractPublicKey retrieves the Ed25519 public key from a certificate.
func (v *Validator) ExtractPublicKey(cert *x509.Certificate) (ed25519.PublicKey, error) {
	pubKey, ok := cert.PublicKey.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key %T", ErrNotEd25519, cert.PublicKey)
	}
	return pubKey, nil
}

// EncodePubKeyToDNS encodes an Ed25519 public key into a DNS name:
// DNSNamePrefix followed by the key in lowercase unpadded base32.
func EncodePubKeyToDNS(pubKey ed25519.PublicKey) string {
	return DNSNamePrefix + base32Encoding.EncodeToString(pubKey)
}

// LoadOrCreateKey reads a PEM encoded PKCS#8 Ed25519 key from path, creating
// one when the file does not exist. An empty path yields a fresh key that is
// not persisted.
func LoadOrCreateKey(path string) (ed25519.PrivateKey, error) {
	if path == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		return priv, err
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return parseKey(data)
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read key: %w", err)
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: pemKeyType, Bytes: der}), 0o600); err != nil {
		return nil, fmt.Errorf("write key: %w", err)
	}
	return priv, nil
}

func parseKey(data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemKeyType {
		return nil, ErrInvalidKeyPEM
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyPEM, err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrInvalidKeyPEM, key)
	}
	return priv, nil
}
