package config

import (
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjshanks/http-server/internal/cors"
	"github.com/jjshanks/http-server/internal/tlsconfig"
)

func TestParseTOML(t *testing.T) {
	content := `
		host = "192.168.0.1"
		port = 7878
		verbose = true
		root_dir = "~/Desktop"
	`
	cfg, err := ParseTOML(content)
	require.NoError(t, err)

	assert.Equal(t, netip.MustParseAddr("192.168.0.1"), cfg.Host)
	assert.Equal(t, uint16(7878), cfg.Port)
	assert.True(t, cfg.Verbose)
	require.NotNil(t, cfg.RootDir)
	assert.Equal(t, "~/Desktop", *cfg.RootDir)
	assert.Nil(t, cfg.TLS)
	assert.Nil(t, cfg.Cors)
	assert.Equal(t, "192.168.0.1:7878", cfg.Address())
}

func TestParseTOML_Minimal(t *testing.T) {
	cfg, err := ParseTOML(`
		host = "::1"
		port = 0
		verbose = false
	`)
	require.NoError(t, err)

	assert.Equal(t, netip.IPv6Loopback(), cfg.Host)
	assert.Zero(t, cfg.Port)
	assert.False(t, cfg.Verbose)
	assert.Nil(t, cfg.RootDir)
	assert.Nil(t, cfg.TLS)
	assert.Equal(t, "[::1]:0", cfg.Address())
}

func TestParseTOML_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "missing host",
			content: `port = 7878`,
			errMsg:  "config parse failed: missing field `host` at line 1 column 1",
		},
		{
			name: "missing port",
			content: `
				host = "127.0.0.1"
				verbose = true
			`,
			errMsg: "missing field `port`",
		},
		{
			name: "missing verbose",
			content: `
				host = "127.0.0.1"
				port = 80
			`,
			errMsg: "missing field `verbose`",
		},
		{
			name:    "port is not an integer",
			content: "host = \"127.0.0.1\"\nport = \"7878\"\nverbose = true\n",
			errMsg:  "invalid type: string, expected an integer for key `port` at line 2 column 8",
		},
		{
			name:    "port out of range",
			content: "host = \"127.0.0.1\"\nport = 70000\nverbose = true\n",
			errMsg:  "invalid value: 70000, expected an integer between 0 and 65535 for key `port` at line 2 column 8",
		},
		{
			name:    "negative port",
			content: "host = \"127.0.0.1\"\nport = -1\nverbose = true\n",
			errMsg:  "invalid value: -1, expected an integer between 0 and 65535 for key `port` at line 2 column 8",
		},
		{
			name:    "host is not an ip address",
			content: "host = \"localhost\"\nport = 80\nverbose = true\n",
			errMsg:  "invalid value: \"localhost\", expected an IP address for key `host` at line 1 column 8",
		},
		{
			name:    "host with zone",
			content: "host = \"fe80::1%eth0\"\nport = 80\nverbose = true\n",
			errMsg:  "expected an IP address without a zone for key `host` at line 1 column 8",
		},
		{
			name:    "host is not a string",
			content: "host = 127\nport = 80\nverbose = true\n",
			errMsg:  "invalid type: integer, expected a string for key `host` at line 1 column 8",
		},
		{
			name:    "verbose is not a boolean",
			content: "host = \"127.0.0.1\"\nport = 80\nverbose = \"yes\"\n",
			errMsg:  "invalid type: string, expected a boolean for key `verbose` at line 3 column 11",
		},
		{
			name:    "tls is not a table",
			content: "host = \"127.0.0.1\"\nport = 80\nverbose = true\ntls = 5\n",
			errMsg:  "invalid type: integer, expected a table for key `tls` at line 4 column 7",
		},
		{
			name:    "cors max_age is not a number",
			content: "host = \"127.0.0.1\"\nport = 80\nverbose = true\n\n[cors]\nmax_age = \"x\"\n",
			errMsg:  "invalid type: string, expected a number of seconds for key `cors.max_age` at line 6 column 11",
		},
		{
			name:    "cors max_age in inline table",
			content: "host = \"127.0.0.1\"\nport = 80\nverbose = true\ncors = { max_age = \"x\" }\n",
			errMsg:  "for key `cors.max_age` at line 4 column 20",
		},
		{
			name:    "cors list with a non-string element",
			content: "host = \"127.0.0.1\"\nport = 80\nverbose = true\n\n[cors]\nallow_methods = [\"GET\", 1]\n",
			errMsg:  "invalid type: array containing integer, expected an array of strings for key `cors.allow_methods` at line 6",
		},
		{
			name:    "cors origin is not a string",
			content: "host = \"127.0.0.1\"\nport = 80\nverbose = true\n\n[cors]\nallow_origin = true\n",
			errMsg:  "invalid type: boolean, expected a string for key `cors.allow_origin` at line 6 column 16",
		},
		{
			name:    "malformed document",
			content: `host = `,
			errMsg:  "at line 1",
		},
		{
			name: "unknown key algorithm",
			content: `
				host = "127.0.0.1"
				port = 80
				verbose = true

				[tls]
				cert = "cert.pem"
				key = "key.pem"
				key_algorithm = "ecdsa"
			`,
			errMsg: "unknown variant `ecdsa`",
		},
		{
			name: "tls table without key",
			content: `
				host = "127.0.0.1"
				port = 80
				verbose = true

				[tls]
				cert = "cert.pem"
				key_algorithm = "rsa"
			`,
			errMsg: "missing field `key` for key `tls`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseTOML(tt.content)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.ErrorIs(t, err, ErrParse)
			assert.NotErrorIs(t, err, ErrIO)

			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, KindParse, cfgErr.Kind)
		})
	}
}

func TestParseTOML_UnknownKeysIgnored(t *testing.T) {
	cfg, err := ParseTOML("host = \"127.0.0.1\"\nport = 65535\nverbose = true\nextra = [1, \"a\"]\n\n[cors]\nunknown = 5\n")
	require.NoError(t, err)

	assert.Equal(t, uint16(65535), cfg.Port)
	require.NotNil(t, cfg.Cors)
	assert.Equal(t, CorsConfigFile{}, *cfg.Cors)
}

func TestParseTOML_TLS(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		want      tlsconfig.PrivateKeyAlgorithm
	}{
		{name: "rsa", algorithm: "rsa", want: tlsconfig.RSA},
		{name: "pkcs8", algorithm: "pkcs8", want: tlsconfig.PKCS8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := `
				host = "192.168.0.1"
				port = 7878
				verbose = true
				root_dir = "~/Desktop"

				[tls]
				cert = "cert_123.pem"
				key = "key_123.pem"
				key_algorithm = "` + tt.algorithm + `"
			`
			cfg, err := ParseTOML(content)
			require.NoError(t, err)

			assert.Equal(t, netip.MustParseAddr("192.168.0.1"), cfg.Host)
			assert.Equal(t, uint16(7878), cfg.Port)
			assert.True(t, cfg.Verbose)
			require.NotNil(t, cfg.RootDir)
			assert.Equal(t, "~/Desktop", *cfg.RootDir)
			require.NotNil(t, cfg.TLS)
			assert.Equal(t, tlsconfig.File{
				Cert:         "cert_123.pem",
				Key:          "key_123.pem",
				KeyAlgorithm: tt.want,
			}, *cfg.TLS)
		})
	}
}

func TestParseTOML_Cors(t *testing.T) {
	cfg, err := ParseTOML(`
		host = "0.0.0.0"
		port = 8080
		verbose = false

		[cors]
		allow_credentials = true
		allow_origin = "https://example.com"
		allow_methods = ["GET", "POST"]
		allow_headers = ["Content-Type", "Origin"]
		expose_headers = ["Request-Id"]
		max_age = 1.5
	`)
	require.NoError(t, err)
	require.NotNil(t, cfg.Cors)

	corsCfg, err := cfg.CorsConfig()
	require.NoError(t, err)
	require.NotNil(t, corsCfg)

	want := cors.NewBuilder().
		AllowCredentials().
		AllowOrigin("https://example.com").
		AllowMethods([]string{"GET", "POST"}).
		AllowHeaders([]string{"Content-Type", "Origin"}).
		ExposeHeaders([]string{"Request-Id"}).
		MaxAge(1500 * time.Millisecond).
		Build()
	assert.True(t, want.Equal(*corsCfg))
}

func TestConfigFile_CorsConfigAbsent(t *testing.T) {
	cfg, err := ParseTOML(`
		host = "0.0.0.0"
		port = 8080
		verbose = false
	`)
	require.NoError(t, err)

	corsCfg, err := cfg.CorsConfig()
	assert.NoError(t, err)
	assert.Nil(t, corsCfg)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.toml")
	err := os.WriteFile(path, []byte("host = \"127.0.0.1\"\nport = 4000\nverbose = true\n"), 0o644)
	require.NoError(t, err)

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4000", cfg.Address())
	assert.True(t, cfg.Verbose)
}

func TestFromFile_DefaultPath(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, DefaultConfigPath), []byte("host = \"10.0.0.1\"\nport = 80\nverbose = false\n"), 0o644)
	require.NoError(t, err)

	t.Chdir(dir)

	cfg, err := FromFile("")
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("10.0.0.1"), cfg.Host)
	assert.Equal(t, uint16(80), cfg.Port)
}

func TestFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	invalidUTF8 := filepath.Join(dir, "binary.toml")
	require.NoError(t, os.WriteFile(invalidUTF8, []byte{0xff, 0xfe, 0xfd}, 0o644))

	malformed := filepath.Join(dir, "malformed.toml")
	require.NoError(t, os.WriteFile(malformed, []byte("port = 7878\n"), 0o644))

	tests := []struct {
		name     string
		path     string
		wantKind error
		errMsg   string
	}{
		{
			name:     "missing file",
			path:     filepath.Join(dir, "nope.toml"),
			wantKind: ErrIO,
			errMsg:   "config read failed for",
		},
		{
			name:     "directory instead of file",
			path:     dir,
			wantKind: ErrIO,
			errMsg:   "config read failed for",
		},
		{
			name:     "invalid utf-8",
			path:     invalidUTF8,
			wantKind: ErrIO,
			errMsg:   "valid UTF-8",
		},
		{
			name:     "parse failure is not an io failure",
			path:     malformed,
			wantKind: ErrParse,
			errMsg:   "missing field `host`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromFile(tt.path)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("missing file keeps os error", func(t *testing.T) {
		_, err := FromFile(filepath.Join(dir, "nope.toml"))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}
