package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// QueuePinger reports dispatch queue reachability. *nsq.Producer satisfies
// it directly.
type QueuePinger interface {
	Ping() error
}

// StorePinger reports object store reachability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	queue   QueuePinger
	staging StorePinger
	results StorePinger
}

func NewHandler(queue QueuePinger, staging, results StorePinger) *Handler {
	return &Handler{queue: queue, staging: staging, results: results}
}

// Check probes each dependency independently. Status is degraded, with 503,
// when any dependency is unreachable; a worker backlog is invisible here and
// deliberately not probed.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]bool{
		"queue":         h.queue.Ping() == nil,
		"staging_store": h.staging.Ping(ctx) == nil,
		"result_store":  h.results.Ping(ctx) == nil,
	}

	status := "ok"
	code := http.StatusOK
	for _, ok := range checks {
		if !ok {
			status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	}); err != nil {
		slog.Error("failed to encode health response", "error", err)
	}
}
