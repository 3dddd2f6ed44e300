package api

import "github.com/partcast/partcast/server/internal/alerts"

// AlertsResponse is the payload for GET /api/v1/alerts.
type AlertsResponse struct {
	FiringCount int            `json:"firing_count"`
	Alerts      []alerts.Alert `json:"alerts"`
}
