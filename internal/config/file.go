package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"

	"github.com/jjshanks/http-server/internal/cors"
	"github.com/jjshanks/http-server/internal/tlsconfig"
)

// DefaultConfigPath is read when no configuration file is given.
const DefaultConfigPath = "server.toml"

// ConfigFile is the server configuration read from a TOML file.
// It is built once at startup and must not be modified afterwards.
type ConfigFile struct {
	Host    netip.Addr
	Port    uint16
	Verbose bool
	RootDir *string
	TLS     *tlsconfig.File
	Cors    *CorsConfigFile
}

// configDocument mirrors the file layout. Pointer fields tell a missing key
// apart from its zero value. host and port are range checked after decoding
// so that their errors name the key.
type configDocument struct {
	Host    *string         `toml:"host"`
	Port    *int64          `toml:"port"`
	Verbose *bool           `toml:"verbose"`
	RootDir *string         `toml:"root_dir"`
	TLS     *tlsconfig.File `toml:"tls"`
	Cors    *CorsConfigFile `toml:"cors"`
}

// FromFile reads and parses the configuration file at path. An empty path
// reads DefaultConfigPath from the current working directory.
func FromFile(path string) (*ConfigFile, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, newIOError(err, path)
	}
	if !utf8.Valid(content) {
		return nil, newIOError(errors.New("stream did not contain valid UTF-8"), path)
	}

	return ParseTOML(string(content))
}

// ParseTOML parses the configuration from TOML text. host, port and verbose
// are required; every other key is optional and unknown keys are ignored.
func ParseTOML(content string) (*ConfigFile, error) {
	data := []byte(content)

	// A syntax error leaves ix nil; the decoder below reports it.
	ix, _ := indexDocument(data)
	if ix != nil {
		if err := ix.checkTypes(); err != nil {
			return nil, newParseError(err)
		}
	}

	var doc configDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, newParseError(describeDecodeError(err, ix))
	}

	switch {
	case doc.Host == nil:
		return nil, newParseError(missingField("host"))
	case doc.Port == nil:
		return nil, newParseError(missingField("port"))
	case doc.Verbose == nil:
		return nil, newParseError(missingField("verbose"))
	}

	host, err := netip.ParseAddr(*doc.Host)
	if err != nil {
		return nil, newParseError(ix.invalidValue("host", strconv.Quote(*doc.Host), "an IP address"))
	}
	if host.Zone() != "" {
		return nil, newParseError(ix.invalidValue("host", strconv.Quote(*doc.Host), "an IP address without a zone"))
	}

	if *doc.Port < 0 || *doc.Port > math.MaxUint16 {
		return nil, newParseError(ix.invalidValue("port", strconv.FormatInt(*doc.Port, 10), "an integer between 0 and 65535"))
	}

	if doc.TLS != nil {
		if err := doc.TLS.Validate(); err != nil {
			return nil, newParseError(err)
		}
	}

	return &ConfigFile{
		Host:    host,
		Port:    uint16(*doc.Port),
		Verbose: *doc.Verbose,
		RootDir: doc.RootDir,
		TLS:     doc.TLS,
		Cors:    doc.Cors,
	}, nil
}

// Address returns the host:port pair the server listens on.
func (c *ConfigFile) Address() string {
	return net.JoinHostPort(c.Host.String(), strconv.Itoa(int(c.Port)))
}

// CorsConfig converts the [cors] table. It returns nil when the table is
// absent.
func (c *ConfigFile) CorsConfig(validators ...CorsValidator) (*cors.Config, error) {
	if c.Cors == nil {
		return nil, nil
	}
	cfg, err := c.Cors.ToCorsConfig(validators...)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// missingField reports a required key absent from the document root.
func missingField(name string) error {
	return fmt.Errorf("missing field `%s` at line 1 column 1", name)
}

// describeDecodeError appends the offending key and position when the
// decoder knows them. Value errors carry no key, so it is looked up in ix
// by position.
func describeDecodeError(err error, ix *documentIndex) error {
	var derr *toml.DecodeError
	if !errors.As(err, &derr) {
		return err
	}

	msg := strings.TrimPrefix(derr.Error(), "toml: ")
	row, col := derr.Position()
	if key := derr.Key(); len(key) > 0 {
		msg += fmt.Sprintf(" for key `%s`", strings.Join(key, "."))
	} else if key, ok := ix.keyAt(row, col); ok {
		msg += fmt.Sprintf(" for key `%s`", key)
	}
	return fmt.Errorf("%s at line %d column %d", msg, row, col)
}
