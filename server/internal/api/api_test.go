package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/partcast/partcast/pkg/types"
	"github.com/partcast/partcast/server/internal/alerts"
	"github.com/partcast/partcast/server/internal/api"
	"github.com/partcast/partcast/server/internal/config"
	"github.com/partcast/partcast/server/internal/metrics"
	"github.com/partcast/partcast/server/internal/store"
)

// --- test helpers -----------------------------------------------------------

func defaultLimits() config.ProjectionConfig {
	return config.ProjectionConfig{MinPoints: 51, MaxPoints: 1001, DefaultPoints: 201}
}

func newHandler(t *testing.T, rules ...config.AlertRule) (*api.Handler, *metrics.Registry) {
	t.Helper()
	reg := metrics.New()
	h := api.New(api.Options{
		Store:   store.New(time.Minute, 10),
		Alerts:  alerts.New(config.AlertsConfig{Rules: rules}),
		Metrics: reg,
		Charts:  config.ChartsConfig{Enabled: false},
		Limits:  defaultLimits(),
	})
	return h, reg
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func post(t *testing.T, h http.Handler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/failures/projection", &buf))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

func batteryCold() types.ProjectionRequest {
	return types.ProjectionRequest{
		PartType:          "battery",
		CurrentKm:         45000,
		LastServiceKm:     25000,
		ServiceIntervalKm: 20000,
		Climate:           "cold",
		Points:            intp(51),
		VehicleID:         "van-7",
	}
}

// --- POST /api/v1/failures/projection ---------------------------------------

func TestProject_BatteryCold(t *testing.T) {
	h, _ := newHandler(t)
	rr := post(t, h, batteryCold())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}

	var resp types.ProjectionResponse
	decode(t, rr, &resp)

	if resp.ID == "" {
		t.Error("id: missing")
	}
	if resp.PartType != "battery" || resp.VehicleID != "van-7" {
		t.Errorf("identity: %q / %q", resp.PartType, resp.VehicleID)
	}
	if len(resp.XKm) != 51 || len(resp.RiskPct) != 51 {
		t.Fatalf("curve length: x=%d risk=%d, want 51", len(resp.XKm), len(resp.RiskPct))
	}
	if resp.XKm[0] != 0 || resp.XKm[1] != 600 || resp.XKm[50] != 30000 {
		t.Errorf("offsets: got %v, %v ... %v", resp.XKm[0], resp.XKm[1], resp.XKm[50])
	}
	if resp.Meta.TNowKm != 20000 || resp.Meta.IntervalKm != 20000 {
		t.Errorf("meta: %+v", resp.Meta)
	}
	if resp.Temporal != nil {
		t.Error("temporal: expected absent without month inputs")
	}
	if resp.ChartURL != "" {
		t.Errorf("chart_url: got %q with charts disabled", resp.ChartURL)
	}
	if len(resp.Advice) == 0 {
		t.Error("advice: expected at least one entry")
	}
	if _, err := time.Parse(time.RFC3339, resp.GeneratedAt); err != nil {
		t.Errorf("generated_at: %v", err)
	}
}

func TestProject_DefaultPointsAndAlias(t *testing.T) {
	h, _ := newHandler(t)
	req := batteryCold()
	req.PartType = "  Bateria "
	req.Points = nil

	rr := post(t, h, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body: %s)", rr.Code, rr.Body.String())
	}
	var resp types.ProjectionResponse
	decode(t, rr, &resp)
	if resp.PartType != "battery" {
		t.Errorf("part_type: got %q, want battery", resp.PartType)
	}
	if len(resp.XKm) != 201 {
		t.Errorf("points: got %d, want 201", len(resp.XKm))
	}
}

func TestProject_Temporal(t *testing.T) {
	h, _ := newHandler(t)
	req := batteryCold()
	req.MonthsSinceService = f64(24)
	req.ServiceIntervalMonths = f64(48)

	rr := post(t, h, req)
	var resp types.ProjectionResponse
	decode(t, rr, &resp)
	if resp.Temporal == nil {
		t.Fatal("temporal: expected present")
	}
	tm := resp.Temporal
	if !(tm.Next1mPct <= tm.Next3mPct && tm.Next3mPct <= tm.Next6mPct) {
		t.Errorf("temporal not monotone: %+v", tm)
	}
	if resp.Meta.IntervalMonths == nil || *resp.Meta.IntervalMonths != 48 {
		t.Errorf("meta.interval_months: %v", resp.Meta.IntervalMonths)
	}
}

func TestProject_UnsupportedPart(t *testing.T) {
	h, reg := newHandler(t)
	req := batteryCold()
	req.PartType = "flux-capacitor"

	rr := post(t, h, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	var resp types.ErrorResponse
	decode(t, rr, &resp)
	if resp.Part != "flux-capacitor" {
		t.Errorf("part: got %q", resp.Part)
	}
	if !strings.Contains(resp.Error, "unsupported part") {
		t.Errorf("error: got %q", resp.Error)
	}

	var out bytes.Buffer
	if err := reg.WriteText(&out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `partcast_projection_errors_total{reason="unsupported_part"} 1`) {
		t.Errorf("metrics missing rejection:\n%s", out.String())
	}
}

func TestProject_Validation(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*types.ProjectionRequest)
		field string
	}{
		{"missing part", func(r *types.ProjectionRequest) { r.PartType = "" }, "part_type"},
		{"negative current", func(r *types.ProjectionRequest) { r.CurrentKm = -1 }, "current_km"},
		{"negative last service", func(r *types.ProjectionRequest) { r.LastServiceKm = -5 }, "last_service_km"},
		{"zero interval", func(r *types.ProjectionRequest) { r.ServiceIntervalKm = 0 }, "service_interval_km"},
		{"negative months", func(r *types.ProjectionRequest) { r.MonthsSinceService = f64(-1) }, "months_since_service"},
		{"zero month interval", func(r *types.ProjectionRequest) { r.ServiceIntervalMonths = f64(0) }, "service_interval_months"},
		{"zero horizon", func(r *types.ProjectionRequest) { r.HorizonKm = f64(0) }, "horizon_km"},
		{"too few points", func(r *types.ProjectionRequest) { r.Points = intp(10) }, "points"},
		{"too many points", func(r *types.ProjectionRequest) { r.Points = intp(5000) }, "points"},
	}

	h, _ := newHandler(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := batteryCold()
			tc.mut(&req)
			rr := post(t, h, req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400", rr.Code)
			}
			var resp types.ErrorResponse
			decode(t, rr, &resp)
			if !strings.HasPrefix(resp.Error, tc.field+" ") {
				t.Errorf("error: got %q, want prefix %q", resp.Error, tc.field)
			}
		})
	}
}

func TestProject_InvalidJSON(t *testing.T) {
	h, _ := newHandler(t)
	rr := post(t, h, "{not json")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestProject_MethodNotAllowed(t *testing.T) {
	h, _ := newHandler(t)
	rr := get(t, h, "/api/v1/failures/projection")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

func TestSetLimits(t *testing.T) {
	h, _ := newHandler(t)
	req := batteryCold()
	req.Points = intp(10)

	if rr := post(t, h, req); rr.Code != http.StatusBadRequest {
		t.Fatalf("before: got %d, want 400", rr.Code)
	}
	h.SetLimits(config.ProjectionConfig{MinPoints: 2, MaxPoints: 100, DefaultPoints: 50})
	rr := post(t, h, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("after: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp types.ProjectionResponse
	decode(t, rr, &resp)
	if len(resp.XKm) != 10 {
		t.Errorf("points: got %d, want 10", len(resp.XKm))
	}
}

func TestProject_Chart(t *testing.T) {
	dir := t.TempDir()
	h := api.New(api.Options{
		Store:  store.New(time.Minute, 10),
		Charts: config.ChartsConfig{Enabled: true, Dir: dir, URLPrefix: "/assets/generated"},
		Limits: defaultLimits(),
	})

	rr := post(t, h, batteryCold())
	var resp types.ProjectionResponse
	decode(t, rr, &resp)
	if !strings.HasPrefix(resp.ChartURL, "/assets/generated/projection_battery_") {
		t.Fatalf("chart_url: got %q", resp.ChartURL)
	}

	img := get(t, h, resp.ChartURL)
	if img.Code != http.StatusOK {
		t.Fatalf("chart fetch: got %d", img.Code)
	}
	if ct := img.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("chart content-type: got %q", ct)
	}
}

func TestProject_ChartRemovedWithProjection(t *testing.T) {
	dir := t.TempDir()
	h := api.New(api.Options{
		Store:  store.New(time.Minute, 1),
		Charts: config.ChartsConfig{Enabled: true, Dir: dir, URLPrefix: "/assets/generated"},
		Limits: defaultLimits(),
	})

	var first, second types.ProjectionResponse
	decode(t, post(t, h, batteryCold()), &first)
	decode(t, post(t, h, batteryCold()), &second) // capacity 1: first is dropped

	if _, err := os.Stat(filepath.Join(dir, path.Base(first.ChartURL))); !os.IsNotExist(err) {
		t.Errorf("chart of dropped projection still on disk (stat err: %v)", err)
	}
	if _, err := os.Stat(filepath.Join(dir, path.Base(second.ChartURL))); err != nil {
		t.Errorf("chart of live projection missing: %v", err)
	}
}

// --- GET /api/v1/projections ------------------------------------------------

func TestProjections_ListAndGet(t *testing.T) {
	h, _ := newHandler(t)

	var first, second types.ProjectionResponse
	decode(t, post(t, h, batteryCold()), &first)
	overdue := types.ProjectionRequest{PartType: "brakes", CurrentKm: 30000, ServiceIntervalKm: 20000}
	decode(t, post(t, h, overdue), &second)

	rr := get(t, h, "/api/v1/projections")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var list []types.ProjectionSummary
	decode(t, rr, &list)
	if len(list) != 2 {
		t.Fatalf("list: got %d, want 2", len(list))
	}
	ids := map[string]types.ProjectionSummary{list[0].ID: list[0], list[1].ID: list[1]}
	brakes, ok := ids[second.ID]
	if !ok {
		t.Fatalf("brakes projection missing from list")
	}
	if brakes.RiskIntervalPct != 0 {
		t.Errorf("risk_interval_pct for overdue service: got %v, want 0", brakes.RiskIntervalPct)
	}
	if brakes.RiskHorizonPct != second.RiskPct[len(second.RiskPct)-1] {
		t.Errorf("risk_horizon_pct: got %v", brakes.RiskHorizonPct)
	}

	rr = get(t, h, "/api/v1/projections/"+first.ID)
	if rr.Code != http.StatusOK {
		t.Fatalf("get: status %d", rr.Code)
	}
	var got types.ProjectionResponse
	decode(t, rr, &got)
	if got.ID != first.ID || len(got.XKm) != len(first.XKm) {
		t.Errorf("get: got id %q with %d points", got.ID, len(got.XKm))
	}
}

func TestProjections_NotFound(t *testing.T) {
	h, _ := newHandler(t)
	rr := get(t, h, "/api/v1/projections/does-not-exist")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

// --- GET /api/v1/parts, /health, /alerts -------------------------------------

func TestParts(t *testing.T) {
	h, _ := newHandler(t)
	rr := get(t, h, "/api/v1/parts")
	var resp types.PartsResponse
	decode(t, rr, &resp)
	if len(resp.Parts) != 7 {
		t.Errorf("parts: got %d, want 7", len(resp.Parts))
	}
	if len(resp.Climates) == 0 {
		t.Error("climates: empty")
	}
}

func TestHealth(t *testing.T) {
	h, _ := newHandler(t, config.AlertRule{Name: "any-risk", Condition: "risk_horizon_pct > 0"})
	post(t, h, batteryCold())

	rr := get(t, h, "/api/v1/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var resp types.HealthResponse
	decode(t, rr, &resp)
	if resp.Status != "ok" || resp.PartCount != 7 || resp.ProjectionCount != 1 || resp.AlertCount != 1 {
		t.Errorf("health: %+v", resp)
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	h, _ := newHandler(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/health", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

func TestAlerts(t *testing.T) {
	h, reg := newHandler(t, config.AlertRule{Name: "overdue", Condition: "km_overdue > 0", Severity: "critical"})

	rr := get(t, h, "/api/v1/alerts")
	var empty api.AlertsResponse
	decode(t, rr, &empty)
	if empty.Alerts == nil || len(empty.Alerts) != 0 {
		t.Fatalf("alerts before: %+v", empty)
	}

	post(t, h, types.ProjectionRequest{PartType: "brakes", CurrentKm: 30000, ServiceIntervalKm: 20000, VehicleID: "truck-1"})

	var resp api.AlertsResponse
	decode(t, get(t, h, "/api/v1/alerts"), &resp)
	if resp.FiringCount != 1 || len(resp.Alerts) != 1 {
		t.Fatalf("alerts: %+v", resp)
	}
	a := resp.Alerts[0]
	if a.RuleName != "overdue" || a.VehicleID != "truck-1" || a.Value != 10000 {
		t.Errorf("alert: %+v", a)
	}

	var out bytes.Buffer
	if err := reg.WriteText(&out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `partcast_alerts_fired_total{severity="critical"} 1`) {
		t.Errorf("metrics missing alert:\n%s", out.String())
	}
}
