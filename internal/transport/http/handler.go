package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"devicelink/internal/batch"
	"devicelink/internal/catalogue"
	"devicelink/internal/resolution"
	"devicelink/pkg/platform/httputil"
	"devicelink/pkg/platform/middleware/metadata"
	"devicelink/pkg/requestcontext"
)

// Resolver is satisfied by *resolution.Cascade.
type Resolver interface {
	Resolve(ctx context.Context, formatted, raw string) resolution.Outcome
}

type Handler struct {
	resolver Resolver
	logger   *slog.Logger
}

func New(resolver Resolver, logger *slog.Logger) *Handler {
	return &Handler{resolver: resolver, logger: logger}
}

// Register mounts the v1 endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/format", h.HandleFormat)
	r.Get("/v1/resolve", h.HandleResolve)
}

type FormatResponse struct {
	CatNumCleaned    string `json:"cat_num_cleaned"`
	Manufacturer     string `json:"manufacturer"`
	DeviceIdentifier string `json:"device_identifier"`
}

// RowResponse mirrors one row of a resolve output file.
type RowResponse struct {
	DeviceIdentifier string `json:"device_identifier"`
	CJRRCatNum       string `json:"cjrr_cat_num"`
	Manufacturer     string `json:"manufacturer"`
	DeviceName       string `json:"device_name"`
	LicenceNumber    string `json:"licence_number"`
	MDALLState       string `json:"mdall_state"`
	Outcome          string `json:"outcome"`
}

func fromResult(r batch.Result) RowResponse {
	return RowResponse{
		DeviceIdentifier: r.DeviceIdentifier,
		CJRRCatNum:       r.CJRRCatNum,
		Manufacturer:     r.Manufacturer,
		DeviceName:       r.Outcome.DeviceName(),
		LicenceNumber:    r.Outcome.Licence(),
		MDALLState:       r.Outcome.State(),
		Outcome:          string(r.Outcome.Kind),
	}
}

// HandleFormat handles GET /v1/format?cat_num=&manufacturer=.
func (h *Handler) HandleFormat(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	catNum := strings.TrimSpace(q.Get("cat_num"))
	manufacturer := strings.TrimSpace(q.Get("manufacturer"))
	if catNum == "" || manufacturer == "" {
		httputil.WriteError(w, httputil.BadRequest("cat_num and manufacturer are required"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FormatResponse{
		CatNumCleaned:    catNum,
		Manufacturer:     manufacturer,
		DeviceIdentifier: catalogue.Format(catNum, manufacturer),
	})
}

// HandleResolve handles GET /v1/resolve. device_identifier is computed from
// cat_num when it is missing and a manufacturer is given.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	q := r.URL.Query()
	identifier := strings.TrimSpace(q.Get("device_identifier"))
	catNum := strings.TrimSpace(q.Get("cat_num"))
	manufacturer := strings.TrimSpace(q.Get("manufacturer"))

	if identifier == "" && catNum != "" && manufacturer != "" {
		identifier = catalogue.Format(catNum, manufacturer)
	}
	if identifier == "" && catNum == "" {
		httputil.WriteError(w, httputil.BadRequest("device_identifier or cat_num is required"))
		return
	}

	out := h.resolver.Resolve(ctx, identifier, catNum)
	result := batch.NewResult(1, identifier, catNum, manufacturer, out)

	h.logger.InfoContext(ctx, "device resolved",
		"request_id", requestcontext.RequestID(ctx),
		"client_ip", metadata.ClientIP(ctx),
		"device_identifier", identifier,
		"cat_num_cleaned", catNum,
		"outcome", string(out.Kind),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, fromResult(result))
}
