// Package healthprobe serves liveness and readiness checks for the agent.
// Readiness is component-based: feeds, catalog, and loops each report in.
package healthprobe

import (
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// HealthChecker provides health and readiness checks.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool

	mu         sync.RWMutex
	components map[string]bool
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime:  time.Now(),
		components: make(map[string]bool),
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetComponent records a component's readiness. The app is only reported
// ready when SetReady(true) was called and every component is up.
func (h *HealthChecker) SetComponent(name string, up bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = up
}

// down returns the names of components currently reporting not-up.
func (h *HealthChecker) down() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var names []string
	for name, up := range h.components {
		if !up {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string   `json:"status"`
	Uptime  string   `json:"uptime"`
	Message string   `json:"message,omitempty"`
	Down    []string `json:"down,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK while the process is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK if ready, 503 Service Unavailable if not.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if !h.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(HealthResponse{
				Status:  "not_ready",
				Message: "application is starting",
			})
			return
		}

		if down := h.down(); len(down) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(HealthResponse{
				Status:  "degraded",
				Uptime:  time.Since(h.startTime).String(),
				Message: "components down",
				Down:    down,
			})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "ready",
			Uptime: time.Since(h.startTime).String(),
		})
	}
}
