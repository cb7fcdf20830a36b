package config

import (
	"fmt"
	"math"
	"time"

	"github.com/jjshanks/http-server/internal/cors"
)

// CorsConfigFile is the [cors] table of the server configuration file.
// It is only used as the source of a cors.Config.
type CorsConfigFile struct {
	AllowCredentials bool     `toml:"allow_credentials"`
	AllowHeaders     []string `toml:"allow_headers"`
	AllowMethods     []string `toml:"allow_methods"`
	AllowOrigin      *string  `toml:"allow_origin"`
	ExposeHeaders    []string `toml:"expose_headers"`
	MaxAge           *float64 `toml:"max_age"` // seconds
	RequestHeaders   []string `toml:"request_headers"`
	RequestMethod    *string  `toml:"request_method"`
}

// CorsValidator inspects a converted configuration and rejects it by
// returning an error.
type CorsValidator func(cors.Config) error

// ToCorsConfig converts the table into a cors.Config, then runs the given
// validators in order. No validation is applied when none are given.
func (f CorsConfigFile) ToCorsConfig(validators ...CorsValidator) (cors.Config, error) {
	b := cors.NewBuilder()

	if f.AllowCredentials {
		b = b.AllowCredentials()
	}
	if f.AllowHeaders != nil {
		b = b.AllowHeaders(f.AllowHeaders)
	}
	if f.AllowMethods != nil {
		b = b.AllowMethods(f.AllowMethods)
	}
	if f.AllowOrigin != nil {
		b = b.AllowOrigin(*f.AllowOrigin)
	}
	if f.ExposeHeaders != nil {
		b = b.ExposeHeaders(f.ExposeHeaders)
	}
	if f.MaxAge != nil {
		d, err := secondsToDuration(*f.MaxAge)
		if err != nil {
			return cors.Config{}, newConvertError(fmt.Errorf("max_age: %w", err))
		}
		b = b.MaxAge(d)
	}
	if f.RequestHeaders != nil {
		b = b.RequestHeaders(f.RequestHeaders)
	}
	if f.RequestMethod != nil {
		b = b.RequestMethod(*f.RequestMethod)
	}

	cfg := b.Build()
	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			return cors.Config{}, newConvertError(err)
		}
	}
	return cfg, nil
}

// secondsToDuration keeps sub-second precision down to the nanosecond.
func secondsToDuration(secs float64) (time.Duration, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("%v is not a finite number of seconds", secs)
	}
	ns := math.Round(secs * float64(time.Second))
	if ns >= math.MaxInt64 || ns < math.MinInt64 {
		return 0, fmt.Errorf("%v seconds overflows a duration", secs)
	}
	return time.Duration(ns), nil
}
