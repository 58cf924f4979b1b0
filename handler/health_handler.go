package handler

import (
	"context"
	"net/http"
	"time"

	"go-employee-api/common"
	"go-employee-api/logger"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

// NewHealthHandler accepts a nil db, in which case only liveness is reported.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthCheck godoc
// @Summary      Show the status of server
// @Description  Reports liveness and database reachability
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /health [get]
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.db == nil {
		common.WriteJSON(w, http.StatusOK, map[string]string{"status": "API is healthy and running"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		logger.Log.WithError(err).Error("Health check failed to reach the database")
		common.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "API is running but degraded",
			"database": "unreachable",
		})
		return
	}

	common.WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "API is healthy and running",
		"database": "ok",
	})
}
