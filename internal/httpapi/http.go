// Package httpapi exposes a Simulator over HTTP: reset, step, and a
// health check. Grounded on fleet-service/internal/handlers/http.go and
// job-service/internal/handlers/http.go's mux.Router + JSON-body
// handler idiom, and their cmd/main.go PathPrefix/CORS wiring.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/simulator"
)

// telemetryStreamer is the subset of telemetry.Streamer this package
// calls; *telemetry.Streamer satisfies it.
type telemetryStreamer interface {
	StreamInfo(ctx context.Context, stepCount int, info simulator.Info)
}

// Handler serves a single Simulator instance. The simulator is not
// safe for concurrent Step/Reset calls, so Handler serializes requests
// with a mutex the way fleet-service's in-memory storage does.
type Handler struct {
	mu        sync.Mutex
	sim       *simulator.Simulator
	telemetry telemetryStreamer
	steps     int
}

// NewHandler wraps an existing Simulator.
func NewHandler(sim *simulator.Simulator) *Handler {
	return &Handler{sim: sim}
}

// WithTelemetry attaches a telemetry streamer; every Step call
// thereafter also publishes its Info to it. A nil streamer disables
// publishing.
func (h *Handler) WithTelemetry(s telemetryStreamer) *Handler {
	h.telemetry = s
	return h
}

// RegisterRoutes attaches this handler's endpoints to router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.Health).Methods("GET")
	router.HandleFunc("/reset", h.Reset).Methods("POST")
	router.HandleFunc("/step", h.Step).Methods("POST")
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// resetRequest is the JSON body of POST /reset.
type resetRequest struct {
	Seed int64 `json:"seed"`
}

// resetResponse mirrors Simulator.Reset's return values.
type resetResponse struct {
	Observation simulator.Observation `json:"observation"`
	Info        simulator.Info        `json:"info"`
}

// Reset seeds and resets the wrapped simulator.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("httpapi: failed to decode reset request", "error", err)
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	obs, info, err := h.sim.Reset(req.Seed)
	h.mu.Unlock()
	if err != nil {
		slog.Error("httpapi: reset failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resetResponse{Observation: obs, Info: info})
}

// stepRequest is the JSON body of POST /step: one (charge_flag, rate)
// pair per vehicle, in vehicle-index order.
type stepRequest struct {
	Actions []simulator.Action `json:"actions"`
}

// stepResponse mirrors Simulator.Step's return values.
type stepResponse struct {
	Observation simulator.Observation `json:"observation"`
	Reward      float64               `json:"reward"`
	Terminated  bool                  `json:"terminated"`
	Truncated   bool                  `json:"truncated"`
	Info        simulator.Info        `json:"info"`
}

// Step advances the wrapped simulator by one tick.
func (h *Handler) Step(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("httpapi: failed to decode step request", "error", err)
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	obs, reward, terminated, truncated, info := h.sim.Step(req.Actions)
	h.steps++
	step := h.steps
	streamer := h.telemetry
	h.mu.Unlock()

	if streamer != nil {
		streamer.StreamInfo(r.Context(), step, info)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stepResponse{
		Observation: obs,
		Reward:      reward,
		Terminated:  terminated,
		Truncated:   truncated,
		Info:        info,
	})
}

// CORSMiddleware permits cross-origin access for dashboard clients,
// matching fleet-service/job-service's corsMiddleware.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
