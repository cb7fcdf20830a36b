package server

import (
	"net/http"
	"sync/atomic"
	"time"
)

// livenessTimeout is how long the server may go without a successful
// liveness check before /healthz starts failing.
const livenessTimeout = 60 * time.Second

// healthState tracks readiness and the time of the last liveness check.
// All fields are safe for concurrent use.
type healthState struct {
	ready       atomic.Bool
	lastChecked atomic.Int64 // unix seconds
	clock       Clock
}

// newHealthState returns a state that is not ready yet. A nil clock uses
// the system time.
func newHealthState(clock Clock) *healthState {
	if clock == nil {
		clock = realClock{}
	}
	hs := &healthState{
		clock: clock,
	}
	hs.lastChecked.Store(clock.Now().Unix())
	return hs
}

func (h *healthState) markReady() {
	h.ready.Store(true)
}

func (h *healthState) markNotReady() {
	h.ready.Store(false)
}

func (h *healthState) isReady() bool {
	return h.ready.Load()
}

func (h *healthState) updateLastChecked() {
	h.lastChecked.Store(h.clock.Now().Unix())
}

func (h *healthState) timeSinceLastCheck() time.Duration {
	lastCheck := h.lastChecked.Load()
	return h.clock.Now().Sub(time.Unix(lastCheck, 0))
}

// handleLiveness serves /healthz. It answers 503 once the last successful
// check is older than livenessTimeout.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	timeSinceLastCheck := s.health.timeSinceLastCheck()
	isAlive := timeSinceLastCheck <= livenessTimeout

	s.metrics.updateHealthMetrics(s.health.isReady(), isAlive)

	if !isAlive {
		s.logger.Error().
			Dur("time_since_last_check", timeSinceLastCheck).
			Dur("timeout", livenessTimeout).
			Msg("Liveness check failed: server unresponsive")
		http.Error(w, "Server unresponsive", http.StatusServiceUnavailable)
		return
	}

	s.health.updateLastChecked()
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReadiness serves /readyz. It answers 503 until the listener is open
// and again once shutdown has begun.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	isReady := s.health.isReady()
	isAlive := s.health.timeSinceLastCheck() <= livenessTimeout

	s.metrics.updateHealthMetrics(isReady, isAlive)

	if !isReady {
		s.logger.Warn().Msg("Readiness check failed: server not ready")
		http.Error(w, "Server not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
