package tlsmat_test

import (
	"crypto/ecdsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/horus-robotics/horus/tlsmat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeToPEM(t *testing.T, cert tls.Certificate) (certPEM, keyPEM []byte) {
	t.Helper()
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Certificate[0]})
	priv, ok := cert.PrivateKey.(*ecdsa.PrivateKey)
	require.True(t, ok)
	der, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	return certPEM, keyPEM
}

func TestGenerateSelfSigned(t *testing.T) {
	cfg := tlsmat.DefaultCertConfig()
	cert, err := cfg.LoadOrGenerate()
	require.NoError(t, err)
	require.NotEmpty(t, cert.Certificate)
	assert.NotNil(t, cert.Leaf)
	assert.Equal(t, "horus-router", cert.Leaf.Subject.CommonName)

	var sans []string
	sans = append(sans, cert.Leaf.DNSNames...)
	assert.Contains(t, sans, "localhost")
	require.Len(t, cert.Leaf.IPAddresses, 2)
}

func TestCreateAcceptor(t *testing.T) {
	cfg := tlsmat.DefaultCertConfig()
	acceptor, err := cfg.CreateAcceptor()
	require.NoError(t, err)
	assert.Equal(t, []string{"h2", "http/1.1"}, acceptor.NextProtos)
	assert.Equal(t, uint16(tls.VersionTLS12), acceptor.MinVersion)
	require.Len(t, acceptor.Certificates, 1)
}

func TestCustomConfig(t *testing.T) {
	cfg := tlsmat.CertConfig{AutoGenerate: true, Organization: "Acme", CommonName: "acme-router"}
	cert, err := cfg.LoadOrGenerate()
	require.NoError(t, err)
	assert.Equal(t, "acme-router", cert.Leaf.Subject.CommonName)
	assert.Equal(t, []string{"Acme"}, cert.Leaf.Subject.Organization)
}

func TestLoadOrGenerateNoPathsNoAutoGenerate(t *testing.T) {
	cfg := tlsmat.CertConfig{AutoGenerate: false}
	_, err := cfg.LoadOrGenerate()
	assert.Error(t, err)
}

func TestLoadFromFilesMissing(t *testing.T) {
	dir := t.TempDir()
	cfg := tlsmat.CertConfig{
		CertPath: filepath.Join(dir, "missing-cert.pem"),
		KeyPath:  filepath.Join(dir, "missing-key.pem"),
	}
	_, err := cfg.LoadOrGenerate()
	assert.Error(t, err)
}

func TestLoadFromFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	gen := tlsmat.DefaultCertConfig()
	cert, err := gen.LoadOrGenerate()
	require.NoError(t, err)

	certPEM, keyPEM := encodeToPEM(t, cert)
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyPath, keyPEM, 0o600))

	cfg := tlsmat.CertConfig{CertPath: certPath, KeyPath: keyPath}
	loaded, err := cfg.LoadOrGenerate()
	require.NoError(t, err)
	assert.NotEmpty(t, loaded.Certificate)
}
