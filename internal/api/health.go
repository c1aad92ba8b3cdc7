package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

const (
	probeTimeout = 2 * time.Second
	// busyRuns is the number of tracked runs above which the service
	// reports itself degraded.
	busyRuns = 1000
)

var errDegraded = errors.New("degraded")

// HealthCheckResponse is the body of GET /health.
type HealthCheckResponse struct {
	Status        HealthStatus           `json:"status"`
	Timestamp     string                 `json:"timestamp"`
	EngineVersion string                 `json:"engine_version"`
	Uptime        string                 `json:"uptime"`
	Checks        map[string]HealthCheck `json:"checks"`
	System        SystemInfo             `json:"system"`
	RequestID     string                 `json:"request_id,omitempty"`
}

// HealthCheck is the result of one probe.
type HealthCheck struct {
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked string       `json:"last_checked"`
	Duration    string       `json:"duration,omitempty"`
}

// SystemInfo contains system information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemoryAlloc   uint64 `json:"memory_alloc_bytes"`
}

// probe runs fn under a deadline. fn returns a status message, or an error
// wrapping errDegraded for a soft failure.
func probe(ctx context.Context, fn func(context.Context) (string, error)) HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	msg, err := fn(ctx)
	hc := HealthCheck{
		Status:      HealthStatusHealthy,
		Message:     msg,
		LastChecked: start.UTC().Format(time.RFC3339),
		Duration:    time.Since(start).String(),
	}
	switch {
	case errors.Is(err, errDegraded):
		hc.Status, hc.Message = HealthStatusDegraded, err.Error()
	case err != nil:
		hc.Status, hc.Message = HealthStatusUnhealthy, err.Error()
	}
	return hc
}

// GET /health
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]HealthCheck{
		"database": probe(r.Context(), s.probeDatabase),
		"sessions": probe(r.Context(), s.probeSessions),
	}

	overall := HealthStatusHealthy
	for _, c := range checks {
		switch {
		case c.Status == HealthStatusUnhealthy:
			overall = HealthStatusUnhealthy
		case c.Status == HealthStatusDegraded && overall == HealthStatusHealthy:
			overall = HealthStatusDegraded
		}
	}

	status := http.StatusOK
	if overall == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	s.writeJSON(w, status, HealthCheckResponse{
		Status:        overall,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EngineVersion: EngineVersion,
		Uptime:        time.Since(s.startTime).Round(time.Second).String(),
		Checks:        checks,
		System: SystemInfo{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			MemoryAlloc:   m.Alloc,
		},
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// probeDatabase loads the player profile as a round trip.
func (s *Server) probeDatabase(ctx context.Context) (string, error) {
	if s.progress == nil {
		return "", errors.New("progress store not configured")
	}
	p, err := s.progress.Profile(ctx)
	if err != nil {
		return "", fmt.Errorf("profile query failed: %w", err)
	}
	return fmt.Sprintf("profile %s at level %d", p.PlayerID, p.Level), nil
}

func (s *Server) probeSessions(context.Context) (string, error) {
	if s.sessions == nil {
		return "", errors.New("session manager not configured")
	}
	n := s.sessions.Len()
	if n > busyRuns {
		return "", fmt.Errorf("%d runs tracked: %w", n, errDegraded)
	}
	return fmt.Sprintf("%d runs tracked", n), nil
}
