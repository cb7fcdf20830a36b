package cors

import "time"

// Builder assembles a Config. Every setter returns a new Builder and leaves
// the receiver untouched; calling a setter twice keeps the last value.
type Builder struct {
	config Config
}

// NewBuilder returns a builder with every field at its default: credentials
// disabled and all optional headers absent.
func NewBuilder() Builder {
	return Builder{}
}

// AllowOrigin sets Access-Control-Allow-Origin.
func (b Builder) AllowOrigin(origin string) Builder {
	b.config.allowOrigin = &origin
	return b
}

// AllowMethods sets Access-Control-Allow-Methods.
func (b Builder) AllowMethods(methods []string) Builder {
	b.config.allowMethods = copyList(methods)
	return b
}

// AllowHeaders sets Access-Control-Allow-Headers.
func (b Builder) AllowHeaders(headers []string) Builder {
	b.config.allowHeaders = copyList(headers)
	return b
}

// AllowCredentials enables Access-Control-Allow-Credentials. There is no
// setter to disable it again; leave it uncalled instead.
func (b Builder) AllowCredentials() Builder {
	b.config.allowCredentials = true
	return b
}

// MaxAge sets Access-Control-Max-Age.
func (b Builder) MaxAge(d time.Duration) Builder {
	b.config.maxAge = &d
	return b
}

// ExposeHeaders sets Access-Control-Expose-Headers.
func (b Builder) ExposeHeaders(headers []string) Builder {
	b.config.exposeHeaders = copyList(headers)
	return b
}

// RequestHeaders sets Access-Control-Request-Headers.
func (b Builder) RequestHeaders(headers []string) Builder {
	b.config.requestHeaders = copyList(headers)
	return b
}

// RequestMethod sets Access-Control-Request-Method.
func (b Builder) RequestMethod(method string) Builder {
	b.config.requestMethod = &method
	return b
}

// Build returns the finished configuration.
func (b Builder) Build() Config {
	return b.config
}

// copyList always returns a non-nil slice so that setting an empty list is
// distinguishable from never setting it.
func copyList(values []string) []string {
	return append(make([]string, 0, len(values)), values...)
}
