package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jjshanks/http-server/internal/config"
	"github.com/jjshanks/http-server/internal/cors"
	"github.com/jjshanks/http-server/internal/tlsconfig"
)

const serviceName = "http-server"

// Version is reported to the tracing backend. It is set at build time.
var Version = "dev"

// Server serves static files from the configured root directory along with
// health and metrics endpoints.
type Server struct {
	logger          zerolog.Logger
	file            *config.ConfigFile
	opts            *config.Options
	cors            *cors.Config
	rootDir         string
	verbose         bool
	health          *healthState
	metrics         *metrics
	tracer          *tracer
	server          *http.Server
	listener        net.Listener
	gracefulTimeout time.Duration
	serverMu        sync.RWMutex // Protects server and listener
}

// NewServer builds a server for the given configuration file and options.
// The [cors] table, when present, is converted here so that an invalid
// table stops startup.
func NewServer(file *config.ConfigFile, opts *config.Options) (*Server, error) {
	return newServer(file, opts, prometheus.NewRegistry())
}

func newServer(file *config.ConfigFile, opts *config.Options, reg prometheus.Registerer) (*Server, error) {
	if opts == nil {
		opts = config.NewOptions()
	}

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	level, err := zerolog.ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger = logger.Level(level)

	if opts.Console {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "2006-01-02T15:04:05.000Z",
		})
	}

	corsCfg, err := file.CorsConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid cors configuration: %w", err)
	}

	m, err := initMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	rootDir := "."
	if file.RootDir != nil {
		rootDir = *file.RootDir
	}

	s := &Server{
		logger:          logger,
		file:            file,
		opts:            opts,
		cors:            corsCfg,
		rootDir:         rootDir,
		verbose:         file.Verbose,
		health:          newHealthState(realClock{}),
		metrics:         m,
		tracer:          &tracer{enabled: false},
		gracefulTimeout: opts.GracefulTimeout,
	}

	s.server = &http.Server{
		Addr:              file.Address(),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if file.TLS != nil {
		s.server.TLSConfig = tlsconfig.ServerConfig()
	}

	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/healthz", s.metrics.metricsMiddleware("/healthz", http.HandlerFunc(s.handleLiveness)))
	mux.Handle("/readyz", s.metrics.metricsMiddleware("/readyz", http.HandlerFunc(s.handleReadiness)))
	mux.Handle("/metrics", s.metrics.handler())
	mux.Handle("/", s.metrics.metricsMiddleware("/", s.fileHandler()))

	return s.requestMiddleware(s.tracingMiddleware(mux))
}

// CORS returns the CORS configuration read from the [cors] table. The
// server hands it to whatever layer applies CORS; it does not apply it.
func (s *Server) CORS() (cors.Config, bool) {
	if s.cors == nil {
		return cors.Config{}, false
	}
	return *s.cors, true
}

// Run opens the listener and serves until ctx is done or the process
// receives SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, err := initTracer(ctx, serviceName, Version, s.opts.TracingEndpoint, s.opts.TracingInsecure)
	if err != nil {
		return err
	}
	s.tracer = tr

	if s.file.TLS != nil {
		if err := s.file.TLS.ValidatePaths(); err != nil {
			s.shutdownTracer()
			return newTLSError(err, s.file.TLS.Cert)
		}
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.shutdownTracer()
		return newListenError(err, s.server.Addr)
	}

	s.serverMu.Lock()
	s.listener = ln
	s.serverMu.Unlock()

	event := s.logger.Info().
		Str("address", ln.Addr().String()).
		Str("root_dir", s.rootDir).
		Bool("tls", s.file.TLS != nil).
		Bool("verbose", s.verbose).
		Bool("cors", s.cors != nil)
	if s.file.TLS != nil {
		event = event.
			Str("cert_file", s.file.TLS.Cert).
			Str("key_file", s.file.TLS.Key).
			Stringer("key_algorithm", s.file.TLS.KeyAlgorithm)
	}
	event.Msg("Starting server")

	s.health.markReady()
	s.metrics.updateHealthMetrics(true, true)

	serverError := make(chan error, 1)
	go func() {
		var err error
		if s.file.TLS != nil {
			err = s.server.ServeTLS(ln, s.file.TLS.Cert, s.file.TLS.Key)
		} else {
			err = s.server.Serve(ln)
		}
		if !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case err := <-serverError:
		s.health.markNotReady()
		s.shutdownTracer()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info().Msg("Received shutdown signal")
		return s.shutdown()
	}
}

// GetAddr returns the address the server is listening on.
func (s *Server) GetAddr() (string, error) {
	s.serverMu.RLock()
	defer s.serverMu.RUnlock()
	if s.listener == nil {
		return "", fmt.Errorf("server is not listening")
	}
	return s.listener.Addr().String(), nil
}

func (s *Server) shutdown() error {
	s.health.markNotReady()
	s.metrics.updateHealthMetrics(false, true)

	s.logger.Info().
		Dur("timeout", s.gracefulTimeout).
		Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), s.gracefulTimeout)
	defer cancel()

	s.serverMu.RLock()
	err := s.server.Shutdown(ctx)
	s.serverMu.RUnlock()
	s.shutdownTracer()
	if err != nil {
		return newShutdownError(err)
	}

	s.logger.Info().Msg("Server shutdown completed")
	return nil
}

// shutdownTracer flushes the provider installed by Run.
func (s *Server) shutdownTracer() {
	if err := s.tracer.shutdown(context.Background()); err != nil {
		s.logger.Warn().Err(err).Msg("Tracer shutdown failed")
	}
}
