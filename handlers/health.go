package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/akinalp/voxgate/pkg"
)

// Pinger, health check'in yoklayabildiği bağımlılık (*sql.DB, redis client adaptörü).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ConnectionCounter, açık WebSocket bağlantı sayısını verir (*ws.Hub).
type ConnectionCounter interface {
	ConnectionCount() int
}

// HealthHandler, GET /api/health.
type HealthHandler struct {
	checks map[string]Pinger
	conns  ConnectionCounter
}

// NewHealthHandler, constructor. checks: isim → bağımlılık.
func NewHealthHandler(checks map[string]Pinger, conns ConnectionCounter) *HealthHandler {
	return &HealthHandler{checks: checks, conns: conns}
}

type healthResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Connections  int               `json:"connections"`
	Dependencies map[string]string `json:"dependencies"`
}

// Check, bağımlılıkları yoklar; biri bile erişilemezse 503 döner.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:       "ok",
		Service:      "voxgate",
		Dependencies: make(map[string]string, len(h.checks)),
	}
	if h.conns != nil {
		resp.Connections = h.conns.ConnectionCount()
	}

	status := http.StatusOK
	for name, p := range h.checks {
		if err := p.PingContext(ctx); err != nil {
			resp.Dependencies[name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[name] = "ok"
	}

	pkg.JSON(w, status, resp)
}
