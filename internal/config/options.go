package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables read by LoadOptions.
const EnvPrefix = "HTTP_SERVER"

// Options are the process settings that do not belong in the server
// configuration file.
type Options struct {
	// Logging configuration
	LogLevel string
	Console  bool

	// Shutdown configuration
	GracefulTimeout time.Duration

	// Tracing configuration, disabled when TracingEndpoint is empty
	TracingEndpoint string
	TracingInsecure bool
}

// NewOptions creates Options with default values
func NewOptions() *Options {
	return &Options{
		LogLevel:        "info",
		Console:         false,
		GracefulTimeout: 30 * time.Second,
	}
}

// Validate checks if the options are valid
func (o *Options) Validate() error {
	if _, err := zerolog.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %v", o.LogLevel, err)
	}

	if o.GracefulTimeout <= 0 {
		return fmt.Errorf("graceful timeout must be positive, got %v", o.GracefulTimeout)
	}

	return nil
}

// InitializeLogging sets up the global logging configuration
func (o *Options) InitializeLogging() {
	level, _ := zerolog.ParseLevel(o.LogLevel)
	zerolog.SetGlobalLevel(level)

	if o.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "2006-01-02T15:04:05.000Z",
		})
	}
}

// LoadOptions reads options from v, which may carry bound flags, falling
// back to HTTP_SERVER_* environment variables and then to defaults.
func LoadOptions(v *viper.Viper) (*Options, error) {
	opts := NewOptions()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	keys := []string{
		"log-level",
		"console",
		"graceful-timeout",
		"tracing-endpoint",
		"tracing-insecure",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Error().Err(err).Msgf("Failed to bind environment variable for key: %s", key)
		}
	}

	if v.IsSet("log-level") {
		opts.LogLevel = v.GetString("log-level")
	}
	if v.IsSet("console") {
		console, err := strconv.ParseBool(v.GetString("console"))
		if err != nil {
			return nil, fmt.Errorf("console must be a boolean: %v", err)
		}
		opts.Console = console
	}
	if v.IsSet("graceful-timeout") {
		rawValue := v.GetString("graceful-timeout")
		if duration, err := time.ParseDuration(rawValue); err == nil {
			opts.GracefulTimeout = duration
		} else if seconds, err := strconv.ParseInt(rawValue, 10, 64); err == nil && seconds > 0 {
			opts.GracefulTimeout = time.Duration(seconds) * time.Second
		} else {
			return nil, fmt.Errorf("invalid graceful timeout value: %s (must be duration string or positive integer)", rawValue)
		}
	}
	if v.IsSet("tracing-endpoint") {
		opts.TracingEndpoint = v.GetString("tracing-endpoint")
	}
	if v.IsSet("tracing-insecure") {
		insecure, err := strconv.ParseBool(v.GetString("tracing-insecure"))
		if err != nil {
			return nil, fmt.Errorf("tracing-insecure must be a boolean: %v", err)
		}
		opts.TracingInsecure = insecure
	}

	return opts, nil
}
