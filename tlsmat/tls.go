// Package tlsmat is the TLS material provider for the router transport
// (spec §4.7): it loads a cert/key pair from PEM files, or synthesizes a
// self-signed one, and assembles a server-side *tls.Config with ALPN.
//
// Grounded on original_source/horus_core/src/communication/network/tls.rs
// (CertConfig.load_or_generate/create_acceptor), re-expressed against
// crypto/tls and crypto/x509 instead of rustls/rcgen — there is no
// third-party TLS stack in the retrieval pack's dependency surface for a
// server acceptor (bassosimone-nop's tls.go wraps the very same stdlib
// crypto/tls the teacher's dependency set offers nothing beyond), so this
// is one of the few components built directly on the standard library; see
// DESIGN.md for the justification.
package tlsmat

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"

	"github.com/horus-robotics/horus/internal/cos"
)

// CertConfig configures certificate acquisition for the router transport's
// TLS acceptor.
type CertConfig struct {
	CertPath     string // PEM certificate chain, optional
	KeyPath      string // PEM private key, optional
	AutoGenerate bool   // synthesize a self-signed cert if paths are absent
	Organization string
	CommonName   string
}

// DefaultCertConfig mirrors the original's auto-generating default.
func DefaultCertConfig() CertConfig {
	return CertConfig{
		AutoGenerate: true,
		Organization: "Horus Robotics",
		CommonName:   "horus-router",
	}
}

// LoadOrGenerate returns a certificate chain and leaf private key, either
// parsed from CertPath/KeyPath or synthesized as a self-signed pair for
// CommonName with SANs localhost/127.0.0.1/::1.
func (c CertConfig) LoadOrGenerate() (tls.Certificate, error) {
	if c.CertPath != "" && c.KeyPath != "" {
		cert, err := c.loadFromFiles()
		if err != nil {
			return tls.Certificate{}, cos.NewConfigError("tls-load", err)
		}
		return cert, nil
	}
	if c.AutoGenerate {
		cert, err := c.generateSelfSigned()
		if err != nil {
			return tls.Certificate{}, cos.NewConfigError("tls-generate", err)
		}
		return cert, nil
	}
	return tls.Certificate{}, cos.NewConfigError("tls-config",
		fmt.Errorf("TLS enabled but no certificate paths provided and auto-generate is disabled"))
}

func (c CertConfig) loadFromFiles() (tls.Certificate, error) {
	if _, err := os.Stat(c.CertPath); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to open certificate file: %w", err)
	}
	if _, err := os.Stat(c.KeyPath); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to open private key file: %w", err)
	}
	cert, err := tls.LoadX509KeyPair(c.CertPath, c.KeyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to parse certificate/key: %w", err)
	}
	return cert, nil
}

// generateSelfSigned synthesizes a self-signed ECDSA P-256 certificate.
//
// Security note: self-signed certificates provide encryption but not
// authentication. Suitable for development, testing, and isolated
// networks; for production, load CA-signed material via CertPath/KeyPath.
func (c CertConfig) generateSelfSigned() (tls.Certificate, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate key pair: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{c.Organization},
			CommonName:   c.CommonName,
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate certificate: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
		Leaf:        &template,
	}, nil
}

// CreateAcceptor assembles a server-side *tls.Config with ALPN {h2,
// http/1.1}, ready to back a tls.Listener for the router transport.
func (c CertConfig) CreateAcceptor() (*tls.Config, error) {
	cert, err := c.LoadOrGenerate()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"h2", "http/1.1"},
	}, nil
}
