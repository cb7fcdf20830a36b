package cors

import (
	"net/http"
	"strconv"
	"strings"
)

// Header names rendered by Config.Headers.
const (
	HeaderAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderExposeHeaders    = "Access-Control-Expose-Headers"
	HeaderMaxAge           = "Access-Control-Max-Age"
	HeaderRequestHeaders   = "Access-Control-Request-Headers"
	HeaderRequestMethod    = "Access-Control-Request-Method"
)

// Headers renders the configuration as the header set a server would emit.
// Absent fields are left out, list values are joined with ", " and max age is
// truncated to whole seconds.
func (c Config) Headers() http.Header {
	h := http.Header{}

	if c.allowCredentials {
		h.Set(HeaderAllowCredentials, "true")
	}
	setList(h, HeaderAllowHeaders, c.allowHeaders)
	setList(h, HeaderAllowMethods, c.allowMethods)
	if c.allowOrigin != nil {
		h.Set(HeaderAllowOrigin, *c.allowOrigin)
	}
	setList(h, HeaderExposeHeaders, c.exposeHeaders)
	if c.maxAge != nil {
		h.Set(HeaderMaxAge, strconv.FormatInt(int64(c.maxAge.Seconds()), 10))
	}
	setList(h, HeaderRequestHeaders, c.requestHeaders)
	if c.requestMethod != nil {
		h.Set(HeaderRequestMethod, *c.requestMethod)
	}

	return h
}

func setList(h http.Header, name string, values []string) {
	if values == nil {
		return
	}
	h.Set(name, strings.Join(values, ", "))
}
