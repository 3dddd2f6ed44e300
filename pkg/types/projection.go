package types

import "github.com/partcast/partcast/pkg/reliability"

// ProjectionRequest is the body of POST /api/v1/failures/projection.
type ProjectionRequest struct {
	PartType              string   `json:"part_type"`
	CurrentKm             float64  `json:"current_km"`
	LastServiceKm         float64  `json:"last_service_km"`
	ServiceIntervalKm     float64  `json:"service_interval_km"`
	MonthsSinceService    *float64 `json:"months_since_service,omitempty"`
	ServiceIntervalMonths *float64 `json:"service_interval_months,omitempty"`
	Climate               string   `json:"climate,omitempty"`
	HorizonKm             *float64 `json:"horizon_km,omitempty"`
	Points                *int     `json:"points,omitempty"`

	// VehicleID optionally identifies the vehicle; used to key alerts.
	VehicleID string `json:"vehicle_id,omitempty"`
}

// ProjectionResponse is the body returned for a successful projection.
type ProjectionResponse struct {
	ID          string                `json:"id"`
	PartType    string                `json:"part_type"`
	VehicleID   string                `json:"vehicle_id,omitempty"`
	XKm         []float64             `json:"x_km"`
	RiskPct     []float64             `json:"risk_pct"`
	ChartURL    string                `json:"chart_url,omitempty"`
	Meta        reliability.Meta      `json:"meta"`
	Temporal    *reliability.Temporal `json:"temporal,omitempty"`
	Advice      []Advice              `json:"advice"`
	GeneratedAt string                `json:"generated_at"` // RFC3339
}

// ProjectionSummary is one entry of GET /api/v1/projections and of the
// WebSocket feed. Curves are omitted.
type ProjectionSummary struct {
	ID              string                `json:"id"`
	PartType        string                `json:"part_type"`
	VehicleID       string                `json:"vehicle_id,omitempty"`
	TNowKm          float64               `json:"t_now_km"`
	IntervalKm      float64               `json:"interval_km"`
	RiskHorizonPct  float64               `json:"risk_horizon_pct"`
	RiskIntervalPct float64               `json:"risk_interval_pct"`
	Temporal        *reliability.Temporal `json:"temporal,omitempty"`
	ChartURL        string                `json:"chart_url,omitempty"`
	GeneratedAt     string                `json:"generated_at"` // RFC3339
}

// Advice is one human-readable maintenance hint attached to a projection.
type Advice struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical".
	Level  string   `json:"level"`
	Title  string   `json:"title"`
	Detail string   `json:"detail"`
	Value  *float64 `json:"value,omitempty"`
}

// PartsResponse is the body of GET /api/v1/parts.
type PartsResponse struct {
	Parts    []reliability.PartInfo `json:"parts"`
	Climates []string               `json:"climates"`
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status          string `json:"status"`
	PartCount       int    `json:"part_count"`
	ProjectionCount int    `json:"projection_count"`
	AlertCount      int    `json:"alert_count"`
}

// ErrorResponse is the JSON error body returned for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	// Part is set when the error is an unsupported part identifier.
	Part string `json:"part,omitempty"`
}

// Curve rebuilds the engine view of a stored response so callers can sample
// it without re-running the projection.
func (r *ProjectionResponse) Curve() *reliability.Projection {
	return &reliability.Projection{
		OffsetsKm: r.XKm,
		RiskPct:   r.RiskPct,
		Meta:      r.Meta,
		Temporal:  r.Temporal,
	}
}

// Summary returns the curve-less view used by listings and the live feed.
func (r *ProjectionResponse) Summary() ProjectionSummary {
	c := r.Curve()
	return ProjectionSummary{
		ID:              r.ID,
		PartType:        r.PartType,
		VehicleID:       r.VehicleID,
		TNowKm:          r.Meta.TNowKm,
		IntervalKm:      r.Meta.IntervalKm,
		RiskHorizonPct:  c.RiskAtHorizon(),
		RiskIntervalPct: c.RiskBeforeDue(),
		Temporal:        r.Temporal,
		ChartURL:        r.ChartURL,
		GeneratedAt:     r.GeneratedAt,
	}
}
