package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// RequestIDHeader carries the request id in requests and responses.
const RequestIDHeader = "X-Request-ID"

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDFromContext returns the id assigned by requestMiddleware, or an
// empty string when there is none.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// requestMiddleware assigns a request id, reusing the client's X-Request-ID
// when present, and echoes it in the response. With verbose enabled every
// request is logged once it completes.
func (s *Server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, reqID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, reqID))

		if !s.verbose {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := newStatusRecorder(w)
		next.ServeHTTP(wrapped, r)

		s.logger.Info().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapped.status).
			Int64("bytes", wrapped.bytes).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}

// tracingMiddleware extracts the incoming trace context and wraps the
// request in an http_request span carrying method, path and status.
func (s *Server) tracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.tracer.enabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := propagation.TraceContext{}.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span, err := s.tracer.startSpan(ctx, "http_request",
			"http.method", r.Method,
			"http.url", r.URL.String(),
			"http.path", r.URL.Path,
		)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Invalid span attributes")
		}
		defer span.End()

		reqID := RequestIDFromContext(r.Context())
		if reqID == "" {
			reqID = r.Header.Get(RequestIDHeader)
		}
		if reqID != "" {
			span.SetAttributes(attribute.String("request.id", reqID))
		}

		wrapped := newStatusRecorder(w)
		next.ServeHTTP(wrapped, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", wrapped.status))
	})
}
