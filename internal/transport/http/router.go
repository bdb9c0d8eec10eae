// Package httptransport exposes the formatter and the resolution cascade over
// HTTP. Handlers only translate between query strings and domain calls.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"devicelink/pkg/platform/httputil"
	"devicelink/pkg/platform/middleware/metadata"
	"devicelink/pkg/platform/middleware/requestid"
	"devicelink/pkg/platform/middleware/requesttime"
)

// NewRouter mounts the API, health and metrics endpoints. gatherer is the
// registry the metrics were registered on.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) *chi.Mux {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	h.Register(r)
	return r
}
