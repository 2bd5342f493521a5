package httpx

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

// OutputHealthChecker reports whether the output buffer backend is reachable.
type OutputHealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandlers serves liveness checks over the broker's two backends.
type HealthHandlers struct {
	DB     *sql.DB
	Output OutputHealthChecker
}

const healthCheckTimeout = 2 * time.Second

// Health handles GET/HEAD /healthz.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "database_unavailable", Err: err})
			return
		}
	}
	if h.Output != nil {
		if err := h.Output.Health(ctx); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "output_buffer_unavailable", Err: err})
			return
		}
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
