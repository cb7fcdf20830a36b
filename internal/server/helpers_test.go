package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jjshanks/http-server/internal/config"
	"github.com/jjshanks/http-server/internal/tlsconfig"
)

// testConfigFile returns a configuration listening on a free loopback port
// and serving rootDir.
func testConfigFile(rootDir string) *config.ConfigFile {
	return &config.ConfigFile{
		Host:    netip.MustParseAddr("127.0.0.1"),
		Port:    0,
		Verbose: false,
		RootDir: &rootDir,
	}
}

func testOptions() *config.Options {
	opts := config.NewOptions()
	opts.LogLevel = "debug"
	opts.GracefulTimeout = 5 * time.Second
	return opts
}

// setupTestServer creates a server with its own registry and a discarded
// logger. A nil clock keeps the system clock.
func setupTestServer(t *testing.T, file *config.ConfigFile, clock Clock) *Server {
	t.Helper()

	if file == nil {
		file = testConfigFile(t.TempDir())
	}

	srv, err := newServer(file, testOptions(), prometheus.NewRegistry())
	require.NoError(t, err)
	require.NotNil(t, srv)

	srv.logger = zerolog.Nop()
	if clock != nil {
		srv.health = newHealthState(clock)
	}
	return srv
}

// generateSelfSignedCert writes a self-signed certificate for localhost
// along with its PKCS#8 key and returns the matching [tls] table.
func generateSelfSignedCert(t *testing.T) *tlsconfig.File {
	t.Helper()

	dir := t.TempDir()
	certFile := filepath.Join(dir, "tls.crt")
	keyFile := filepath.Join(dir, "tls.key")

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName: "localhost",
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err, "failed to create certificate")

	keyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	require.NoError(t, err, "failed to marshal private key")

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyBytes})
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o644))

	return &tlsconfig.File{
		Cert:         certFile,
		Key:          keyFile,
		KeyAlgorithm: tlsconfig.PKCS8,
	}
}

// waitForServer polls until the server listens and reports ready.
func waitForServer(t *testing.T, srv *Server) string {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		addr, err := srv.GetAddr()
		if err == nil && srv.health.isReady() {
			return addr
		}
		time.Sleep(50 * time.Millisecond)
	}

	addr, err := srv.GetAddr()
	require.FailNow(t, fmt.Sprintf("timeout waiting for server: addr=%q err=%v ready=%v", addr, err, srv.health.isReady()))
	return ""
}
