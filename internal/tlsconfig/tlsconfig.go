// Package tlsconfig describes the [tls] section of the server configuration
// file and turns it into the settings used by the HTTPS listener.
package tlsconfig

import (
	"crypto/tls"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// PrivateKeyAlgorithm identifies the encoding of the private key file.
type PrivateKeyAlgorithm int

const (
	// Unknown is the zero value, used when key_algorithm was not provided.
	Unknown PrivateKeyAlgorithm = iota
	// RSA is a PKCS#1 RSA private key.
	RSA
	// PKCS8 is a PKCS#8 encoded private key.
	PKCS8
)

// String returns the configuration file spelling of the algorithm.
func (a PrivateKeyAlgorithm) String() string {
	switch a {
	case RSA:
		return "rsa"
	case PKCS8:
		return "pkcs8"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a PrivateKeyAlgorithm) MarshalText() ([]byte, error) {
	if a == Unknown {
		return nil, fmt.Errorf("unknown private key algorithm")
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *PrivateKeyAlgorithm) UnmarshalText(text []byte) error {
	switch string(text) {
	case "rsa":
		*a = RSA
	case "pkcs8":
		*a = PKCS8
	default:
		return fmt.Errorf("unknown variant `%s`, expected `rsa` or `pkcs8`", text)
	}
	return nil
}

// File is the [tls] table of the server configuration file.
type File struct {
	Cert         string              `toml:"cert"`
	Key          string              `toml:"key"`
	KeyAlgorithm PrivateKeyAlgorithm `toml:"key_algorithm"`
}

// Validate checks that every field of the table was provided.
func (f File) Validate() error {
	if f.Cert == "" {
		return fmt.Errorf("missing field `cert` for key `tls`")
	}
	if f.Key == "" {
		return fmt.Errorf("missing field `key` for key `tls`")
	}
	if f.KeyAlgorithm == Unknown {
		return fmt.Errorf("missing field `key_algorithm` for key `tls`")
	}
	return nil
}

// ValidatePaths verifies the certificate and key files
func (f File) ValidatePaths() error {
	certInfo, err := os.Stat(f.Cert)
	if err != nil {
		return fmt.Errorf("certificate file error: %v", err)
	}
	if !certInfo.Mode().IsRegular() {
		return fmt.Errorf("certificate path is not a regular file")
	}

	keyInfo, err := os.Stat(f.Key)
	if err != nil {
		return fmt.Errorf("key file error: %v", err)
	}
	if !keyInfo.Mode().IsRegular() {
		return fmt.Errorf("key path is not a regular file")
	}

	keyMode := keyInfo.Mode().Perm()
	if keyMode&0o077 != 0 {
		return fmt.Errorf("key file %s has excessive permissions %v", f.Key, keyMode)
	}
	if keyMode > 0o600 {
		log.Warn().Str("key_file", f.Key).Msgf("key file has permissive mode %v", keyMode)
	}
	return nil
}

// ServerConfig returns the TLS settings for the HTTPS listener. Certificates
// are loaded by the listener itself from Cert and Key.
func ServerConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		CipherSuites: []uint16{
			tls.TLS_AES_128_GCM_SHA256,
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_CHACHA20_POLY1305_SHA256,
		},
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP384,
		},
		SessionTicketsDisabled: true,
		Renegotiation:          tls.RenegotiateNever,
	}
}
