package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/partcast/partcast/pkg/chart"
	"github.com/partcast/partcast/pkg/reliability"
	"github.com/partcast/partcast/pkg/types"
	"github.com/partcast/partcast/server/internal/alerts"
	"github.com/partcast/partcast/server/internal/config"
	"github.com/partcast/partcast/server/internal/metrics"
	"github.com/partcast/partcast/server/internal/store"
)

// maxBodyBytes caps the size of a projection request body.
const maxBodyBytes = 1 << 20

// Options wires a Handler to its collaborators. Alerts and Metrics may be nil.
type Options struct {
	Store   *store.Store
	Alerts  *alerts.Engine
	Metrics *metrics.Registry
	Charts  config.ChartsConfig
	Limits  config.ProjectionConfig
}

// Handler is the HTTP handler for all /api/v1/* endpoints and for the
// generated chart files.
type Handler struct {
	store   *store.Store
	alerts  *alerts.Engine
	metrics *metrics.Registry
	charts  config.ChartsConfig
	limits  atomic.Pointer[config.ProjectionConfig]
	mux     *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(opts Options) *Handler {
	h := &Handler{
		store:   opts.Store,
		alerts:  opts.Alerts,
		metrics: opts.Metrics,
		charts:  opts.Charts,
		mux:     http.NewServeMux(),
	}
	h.SetLimits(opts.Limits)

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/parts", h.parts)
	h.mux.HandleFunc("/api/v1/failures/projection", h.project)
	h.mux.HandleFunc("/api/v1/projections", h.listProjections)
	h.mux.HandleFunc("/api/v1/projections/", h.getProjection) // subtree, extracts {id}
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)

	if h.charts.Enabled {
		prefix := strings.TrimSuffix(h.charts.URLPrefix, "/") + "/"
		h.mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(h.charts.Dir))))
		h.store.OnEvict(h.removeChart)
	}
	return h
}

// SetLimits replaces the accepted point range. Safe to call while serving.
func (h *Handler) SetLimits(lim config.ProjectionConfig) {
	h.limits.Store(&lim)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	resp := types.HealthResponse{
		Status:          "ok",
		PartCount:       len(reliability.Parts()),
		ProjectionCount: h.store.Count(),
	}
	if h.alerts != nil {
		resp.AlertCount = h.alerts.FiringCount()
	}
	jsonResp(w, http.StatusOK, resp)
}

// parts returns GET /api/v1/parts, the supported parts and climate tags.
func (h *Handler) parts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, types.PartsResponse{
		Parts:    reliability.Parts(),
		Climates: reliability.Climates(),
	})
}

// project handles POST /api/v1/failures/projection.
func (h *Handler) project(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req types.ProjectionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.rejected("decode")
		jsonErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	in, err := toInput(req, *h.limits.Load())
	if err != nil {
		h.rejected("validation")
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	proj, err := reliability.Project(in)
	if err != nil {
		var unsupported *reliability.UnsupportedPartError
		if errors.As(err, &unsupported) {
			h.rejected("unsupported_part")
			jsonResp(w, http.StatusBadRequest, types.ErrorResponse{Error: err.Error(), Part: unsupported.Part})
			return
		}
		slog.Error("api: projection failed", "part", req.PartType, "err", err)
		jsonErr(w, http.StatusInternalServerError, "projection failed")
		return
	}

	resp := &types.ProjectionResponse{
		ID:          uuid.NewString(),
		PartType:    proj.Meta.Part,
		VehicleID:   req.VehicleID,
		XKm:         proj.OffsetsKm,
		RiskPct:     proj.RiskPct,
		Meta:        proj.Meta,
		Temporal:    proj.Temporal,
		Advice:      computeAdvice(proj, req.Climate),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	resp.ChartURL = h.renderChart(proj)

	h.store.Put(resp)
	if h.metrics != nil {
		h.metrics.ProjectionServed(resp.PartType)
	}
	h.evaluateAlerts(resp.ID, req.VehicleID, proj)

	jsonResp(w, http.StatusOK, resp)
}

// listProjections returns GET /api/v1/projections, newest first, without curves.
func (h *Handler) listProjections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, Summaries(h.store))
}

// getProjection returns GET /api/v1/projections/{id}, the full stored response.
func (h *Handler) getProjection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/projections/")
	if id == "" {
		h.listProjections(w, r)
		return
	}

	e, ok := h.store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "projection not found")
		return
	}
	jsonResp(w, http.StatusOK, e.Projection)
}

// listAlerts returns GET /api/v1/alerts, firing and recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	resp := AlertsResponse{Alerts: []alerts.Alert{}}
	if h.alerts != nil {
		resp.Alerts = h.alerts.Active()
		resp.FiringCount = h.alerts.FiringCount()
	}
	jsonResp(w, http.StatusOK, resp)
}

// --- helpers ----------------------------------------------------------------

// Summaries returns the curve-less view of every live projection, newest first.
func Summaries(st *store.Store) []types.ProjectionSummary {
	entries := st.List()
	out := make([]types.ProjectionSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Projection.Summary())
	}
	return out
}

// renderChart writes the PNG for proj and returns its public URL. Failures
// are logged and counted; the numeric response is returned without a chart.
func (h *Handler) renderChart(proj *reliability.Projection) string {
	if !h.charts.Enabled {
		return ""
	}
	name, err := chart.RenderFile(h.charts.Dir, proj.OffsetsKm, proj.RiskPct, proj.Meta)
	if err != nil {
		slog.Warn("api: chart render failed", "part", proj.Meta.Part, "err", err)
		if h.metrics != nil {
			h.metrics.ChartFailed()
		}
		return ""
	}
	return path.Join(h.charts.URLPrefix, name)
}

// removeChart deletes the PNG of a projection the store no longer holds.
func (h *Handler) removeChart(resp *types.ProjectionResponse) {
	if resp.ChartURL == "" {
		return
	}
	file := filepath.Join(h.charts.Dir, path.Base(resp.ChartURL))
	if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("api: chart cleanup failed", "file", file, "err", err)
	}
}

func (h *Handler) evaluateAlerts(id, vehicle string, proj *reliability.Projection) {
	if h.alerts == nil {
		return
	}
	snap := alerts.Snapshot{
		ProjectionID:    id,
		VehicleID:       vehicle,
		Part:            proj.Meta.Part,
		RiskHorizonPct:  proj.RiskAtHorizon(),
		RiskIntervalPct: proj.RiskBeforeDue(),
		KmSinceService:  proj.Meta.TNowKm,
		KmOverdue:       max(0, proj.Meta.TNowKm-proj.Meta.IntervalKm),
	}
	if t := proj.Temporal; t != nil {
		snap.Next1mPct, snap.Next3mPct, snap.Next6mPct = &t.Next1mPct, &t.Next3mPct, &t.Next6mPct
	}
	for _, a := range h.alerts.Evaluate(snap) {
		if h.metrics != nil {
			h.metrics.AlertFired(a.Severity)
		}
	}
}

func (h *Handler) rejected(reason string) {
	if h.metrics != nil {
		h.metrics.ProjectionRejected(reason)
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, types.ErrorResponse{Error: msg})
}
