package types

import (
	"strings"

	"github.com/partcast/partcast/pkg/reliability"
)

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Msg
}

// Validate checks the field rules shared by the HTTP API and the CLI.
// The point count is checked by callers, which own their own limits.
func (r *ProjectionRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.PartType) == "":
		return &ValidationError{"part_type", "is required"}
	case r.CurrentKm < 0:
		return &ValidationError{"current_km", "must be >= 0"}
	case r.LastServiceKm < 0:
		return &ValidationError{"last_service_km", "must be >= 0"}
	case r.ServiceIntervalKm <= 0:
		return &ValidationError{"service_interval_km", "must be > 0"}
	case r.MonthsSinceService != nil && *r.MonthsSinceService < 0:
		return &ValidationError{"months_since_service", "must be >= 0"}
	case r.ServiceIntervalMonths != nil && *r.ServiceIntervalMonths <= 0:
		return &ValidationError{"service_interval_months", "must be > 0"}
	case r.HorizonKm != nil && *r.HorizonKm <= 0:
		return &ValidationError{"horizon_km", "must be > 0"}
	}
	return nil
}

// Input converts a validated request into an engine input with the given
// point count.
func (r *ProjectionRequest) Input(points int) reliability.Input {
	return reliability.Input{
		Part:               r.PartType,
		CurrentKm:          r.CurrentKm,
		LastServiceKm:      r.LastServiceKm,
		IntervalKm:         r.ServiceIntervalKm,
		MonthsSinceService: r.MonthsSinceService,
		IntervalMonths:     r.ServiceIntervalMonths,
		Climate:            r.Climate,
		HorizonKm:          r.HorizonKm,
		Points:             points,
	}
}
