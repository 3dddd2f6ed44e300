package reliability

import "math"

// Numeric guards.
const (
	minTargetProb = 1e-6
	maxTargetProb = 0.95
	minLambda     = 1e-3
	minSurvival   = 1e-9
)

// Calibrate returns the Weibull scale λ such that F(interval) = target for the
// given shape k.
//
// A non-positive interval is replaced by 1.0 and target is clamped to
// [1e-6, 0.95] so λ is always finite. The result is floored at 1e-3.
func Calibrate(interval, shape, target float64) float64 {
	if interval <= 0 {
		interval = 1.0
	}
	p := math.Max(minTargetProb, math.Min(maxTargetProb, target))
	lambda := interval / math.Pow(-math.Log(1-p), 1/shape)
	return math.Max(lambda, minLambda)
}

// CDF is the Weibull cumulative failure probability at elapsed life t.
// It is 0 for t <= 0.
func CDF(t, lambda, shape float64) float64 {
	if t <= 0 {
		return 0
	}
	return 1 - math.Exp(-math.Pow(t/lambda, shape))
}

// ConditionalFailure returns P(tNow < T <= tNow+delta | T > tNow): the risk of
// failing within the next delta units given survival up to tNow.
//
// The survival mass is floored at 1e-9 and the result clamped to [0, 1], so
// it never fails for finite non-negative inputs.
func ConditionalFailure(tNow, delta, lambda, shape float64) float64 {
	fNow := CDF(tNow, lambda, shape)
	fFuture := CDF(tNow+delta, lambda, shape)
	survival := math.Max(minSurvival, 1-fNow)
	return clamp01((fFuture - fNow) / survival)
}

// clamp01 restricts v to the range [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
