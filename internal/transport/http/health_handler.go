package http

import (
	"net/http"
	"time"

	"github.com/IgorGrieder/linkquota/pkg/httputils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string `json:"status" example:"ok"`
	Timestamp  string `json:"timestamp" example:"2024-01-15T10:30:00Z"`
	Links      int    `json:"links"`
	Identities int    `json:"identities"`
}

// HealthHandler handles health and metrics endpoints
type HealthHandler struct {
	links      LinkService
	identities IdentityService
}

func NewHealthHandler(linkSvc LinkService, identities IdentityService) *HealthHandler {
	return &HealthHandler{links: linkSvc, identities: identities}
}

// Health reports liveness together with the registry sizes.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	httputils.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Links:      h.links.Len(),
		Identities: h.identities.Count(),
	})
}

// Metrics returns Prometheus metrics
func (h *HealthHandler) Metrics() http.Handler {
	return promhttp.Handler()
}
