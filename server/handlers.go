package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/lheald/raidwatch/track"
)

// Handlers holds the dependencies for the HTTP endpoints.
type Handlers struct {
	gw      Gateway
	sched   *track.Scheduler
	started time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(gw Gateway, sched *track.Scheduler) *Handlers {
	return &Handlers{gw: gw, sched: sched, started: time.Now()}
}

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz reports readiness: the gateway session must be connected.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.gw == nil || !h.gw.Connected() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":       "not_ready",
			"failed_check": "gateway",
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HandleStatus returns uptime and the currently tracked reports.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var tracked []track.TrackedInfo
	if h.sched != nil {
		tracked = h.sched.Snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"uptime_seconds":  int(time.Since(h.started).Seconds()),
		"gateway_up":      h.gw != nil && h.gw.Connected(),
		"tracked_origins": len(tracked),
		"tracked":         tracked,
	})
}
