// Package cors holds the CORS (Cross Origin Resource Sharing) configuration
// of the HTTP/S server.
//
// A Config describes the Access-Control-* headers a server instance emits.
// Values are immutable once built and are safe to share between goroutines.
// Refer to CORS here: https://www.w3.org/wiki/CORS
package cors

import (
	"slices"
	"time"
)

// Wildcard is the Access-Control-Allow-Origin value that matches any origin.
const Wildcard = "*"

// Config is the CORS configuration for a HTTP/S server.
//
// Optional fields that are absent mean the header is omitted entirely. A
// present but empty sequence still emits the header with no values.
type Config struct {
	allowCredentials bool
	allowHeaders     []string
	allowMethods     []string
	allowOrigin      *string
	exposeHeaders    []string
	maxAge           *time.Duration
	requestHeaders   []string
	requestMethod    *string
}

// AllowAll returns a permissive configuration accepting any origin with the
// common methods and headers. Preflight results are cached for 12 hours.
func AllowAll() Config {
	return NewBuilder().
		AllowOrigin(Wildcard).
		AllowMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"}).
		AllowHeaders([]string{"Origin", "Content-Length", "Content-Type"}).
		MaxAge(43200 * time.Second).
		Build()
}

// AllowCredentials reports whether Access-Control-Allow-Credentials is set.
// The only valid value for that header is true; when false it is omitted.
func (c Config) AllowCredentials() bool {
	return c.allowCredentials
}

// AllowHeaders returns the headers permitted in the actual request.
func (c Config) AllowHeaders() ([]string, bool) {
	return slices.Clone(c.allowHeaders), c.allowHeaders != nil
}

// AllowMethods returns the methods permitted in response to a preflight request.
func (c Config) AllowMethods() ([]string, bool) {
	return slices.Clone(c.allowMethods), c.allowMethods != nil
}

// AllowOrigin returns the origin the response can be shared with.
func (c Config) AllowOrigin() (string, bool) {
	if c.allowOrigin == nil {
		return "", false
	}
	return *c.allowOrigin, true
}

// ExposeHeaders returns the response headers made available to scripts.
func (c Config) ExposeHeaders() ([]string, bool) {
	return slices.Clone(c.exposeHeaders), c.exposeHeaders != nil
}

// MaxAge returns how long the results of a preflight request can be cached.
func (c Config) MaxAge() (time.Duration, bool) {
	if c.maxAge == nil {
		return 0, false
	}
	return *c.maxAge, true
}

// RequestHeaders mirrors the Access-Control-Request-Headers a browser sends
// in a preflight request.
func (c Config) RequestHeaders() ([]string, bool) {
	return slices.Clone(c.requestHeaders), c.requestHeaders != nil
}

// RequestMethod mirrors the Access-Control-Request-Method a browser sends in
// a preflight request.
func (c Config) RequestMethod() (string, bool) {
	if c.requestMethod == nil {
		return "", false
	}
	return *c.requestMethod, true
}

// Equal reports whether both configurations hold the same values. Sequences
// are compared in order and an absent sequence differs from an empty one.
func (c Config) Equal(other Config) bool {
	return c.allowCredentials == other.allowCredentials &&
		equalList(c.allowHeaders, other.allowHeaders) &&
		equalList(c.allowMethods, other.allowMethods) &&
		equalPtr(c.allowOrigin, other.allowOrigin) &&
		equalList(c.exposeHeaders, other.exposeHeaders) &&
		equalPtr(c.maxAge, other.maxAge) &&
		equalList(c.requestHeaders, other.requestHeaders) &&
		equalPtr(c.requestMethod, other.requestMethod)
}

func equalList(a, b []string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return slices.Equal(a, b)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
