package api

import (
	"fmt"

	"github.com/partcast/partcast/pkg/reliability"
	"github.com/partcast/partcast/pkg/types"
	"github.com/partcast/partcast/server/internal/config"
)

// toInput validates req against the field rules and the configured point
// limits and converts it to an engine input. The engine performs no input
// checks, so every guarantee it relies on is enforced here.
func toInput(req types.ProjectionRequest, lim config.ProjectionConfig) (reliability.Input, error) {
	if err := req.Validate(); err != nil {
		return reliability.Input{}, err
	}

	points := lim.DefaultPoints
	if req.Points != nil {
		points = *req.Points
		if points < lim.MinPoints || points > lim.MaxPoints {
			return reliability.Input{}, &types.ValidationError{
				Field: "points",
				Msg:   fmt.Sprintf("must be between %d and %d", lim.MinPoints, lim.MaxPoints),
			}
		}
	}
	return req.Input(points), nil
}
