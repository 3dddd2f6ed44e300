package reliability

import (
	"math"
	"sort"
)

// Curve sampling defaults.
const (
	DefaultPoints = 201
	minPoints     = 2

	// defaultHorizonFactor sets the default horizon to 150% of the interval.
	defaultHorizonFactor = 1.5
	minStepKm            = 1.0
)

// temporalWindows are the look-ahead windows (months) of the temporal summary.
var temporalWindows = [3]float64{1, 3, 6}

// Input is the usage state of one part. Callers validate it before calling
// Project; the engine only clamps.
type Input struct {
	Part string

	CurrentKm     float64
	LastServiceKm float64
	IntervalKm    float64

	// MonthsSinceService and IntervalMonths enable the time dimension. Both
	// must be set (and IntervalMonths > 0) for a temporal summary.
	MonthsSinceService *float64
	IntervalMonths     *float64

	// Climate is an optional tag; unrecognised values are neutral.
	Climate string

	// HorizonKm overrides the default forward horizon (1.5 × interval).
	HorizonKm *float64

	// Points is the number of curve samples. Zero means DefaultPoints.
	Points int
}

// Meta describes the calibrated model behind a projection. Month fields are
// nil unless the time dimension was computed.
type Meta struct {
	Part       string  `json:"part_type"`
	TNowKm     float64 `json:"t_now_km"`
	IntervalKm float64 `json:"interval_km"`
	LambdaKm   float64 `json:"lambda_km"`
	ShapeKm    float64 `json:"k_km"`

	IntervalMonths *float64 `json:"interval_months,omitempty"`
	LambdaMonths   *float64 `json:"lambda_months,omitempty"`
	ShapeMonth     *float64 `json:"k_month,omitempty"`
}

// Temporal is the risk of failure within the next 1, 3 and 6 months, in
// percent.
type Temporal struct {
	Next1mPct float64 `json:"risk_next_1m_pct"`
	Next3mPct float64 `json:"risk_next_3m_pct"`
	Next6mPct float64 `json:"risk_next_6m_pct"`
}

// Projection is the output of Project. OffsetsKm and RiskPct are parallel and
// have the same length.
type Projection struct {
	OffsetsKm []float64
	RiskPct   []float64
	Meta      Meta
	Temporal  *Temporal
}

// model is the calibrated, climate-adjusted Weibull model of one request.
// It is built per call and never shared.
type model struct {
	lambdaKm    float64
	shapeKm     float64
	lambdaMonth float64
	shapeMonth  float64
	hasMonths   bool
}

// Project computes the conditional failure-risk curve for in.
//
// The only error is *UnsupportedPartError, returned before any numeric work.
func Project(in Input) (*Projection, error) {
	spec, part, err := Lookup(in.Part)
	if err != nil {
		return nil, err
	}

	m := calibrate(spec, part, in)

	tNowKm := math.Max(0, in.CurrentKm-in.LastServiceKm)
	offsets, risk := sampleCurve(tNowKm, in.IntervalKm, in.HorizonKm, in.Points, m)

	p := &Projection{
		OffsetsKm: offsets,
		RiskPct:   risk,
		Meta: Meta{
			Part:       part,
			TNowKm:     tNowKm,
			IntervalKm: in.IntervalKm,
			LambdaKm:   m.lambdaKm,
			ShapeKm:    m.shapeKm,
		},
	}

	if m.hasMonths {
		interval := *in.IntervalMonths
		lambda := m.lambdaMonth
		shape := m.shapeMonth
		p.Meta.IntervalMonths = &interval
		p.Meta.LambdaMonths = &lambda
		p.Meta.ShapeMonth = &shape
		p.Temporal = temporalSummary(*in.MonthsSinceService, m)
	}
	return p, nil
}

// calibrate derives λ for each requested dimension and applies the climate
// factor to both.
func calibrate(spec PartSpec, part string, in Input) model {
	m := model{
		lambdaKm: Calibrate(in.IntervalKm, spec.ShapeKm, spec.TargetProbKm),
		shapeKm:  spec.ShapeKm,
	}
	if in.MonthsSinceService != nil && in.IntervalMonths != nil && *in.IntervalMonths > 0 {
		m.hasMonths = true
		m.shapeMonth = spec.monthShape()
		m.lambdaMonth = Calibrate(*in.IntervalMonths, m.shapeMonth, spec.monthTarget())
	}

	factor := ClimateFactor(part, in.Climate)
	m.lambdaKm *= factor
	if m.hasMonths {
		m.lambdaMonth *= factor
	}
	return m
}

// sampleCurve produces n forward offsets starting at 0 and the conditional
// risk (percent) at each. Rounding is applied to the outputs only.
func sampleCurve(tNowKm, intervalKm float64, horizonKm *float64, points int, m model) ([]float64, []float64) {
	n := points
	if n == 0 {
		n = DefaultPoints
	}
	if n < minPoints {
		n = minPoints
	}

	horizon := math.Max(intervalKm, 1) * defaultHorizonFactor
	if horizonKm != nil {
		horizon = *horizonKm
	}
	step := math.Max(minStepKm, horizon/float64(n-1))

	offsets := make([]float64, n)
	risk := make([]float64, n)
	for i := 0; i < n; i++ {
		dx := float64(i) * step
		offsets[i] = Round2(dx)
		risk[i] = Round2(100 * ConditionalFailure(tNowKm, dx, m.lambdaKm, m.shapeKm))
	}
	return offsets, risk
}

// temporalSummary reports the risk within each temporal window from the
// current elapsed-months point.
func temporalSummary(monthsSinceService float64, m model) *Temporal {
	tNow := math.Max(0, monthsSinceService)
	var pct [len(temporalWindows)]float64
	for i, w := range temporalWindows {
		pct[i] = Round2(100 * ConditionalFailure(tNow, w, m.lambdaMonth, m.shapeMonth))
	}
	return &Temporal{
		Next1mPct: pct[0],
		Next3mPct: pct[1],
		Next6mPct: pct[2],
	}
}

// RiskAt returns the sampled risk (percent) at the curve point nearest to
// offsetKm. Offsets outside the sampled range snap to the nearest end.
func (p *Projection) RiskAt(offsetKm float64) float64 {
	n := len(p.OffsetsKm)
	if n == 0 {
		return 0
	}
	i := sort.SearchFloat64s(p.OffsetsKm, offsetKm)
	switch {
	case i == 0:
		return p.RiskPct[0]
	case i >= n:
		return p.RiskPct[n-1]
	case offsetKm-p.OffsetsKm[i-1] <= p.OffsetsKm[i]-offsetKm:
		return p.RiskPct[i-1]
	default:
		return p.RiskPct[i]
	}
}

// RiskBeforeDue is the risk of failing before the odometer reaches the
// recommended interval. It is 0 once the service is overdue.
func (p *Projection) RiskBeforeDue() float64 {
	remaining := p.Meta.IntervalKm - p.Meta.TNowKm
	if remaining <= 0 {
		return 0
	}
	return p.RiskAt(remaining)
}

// RiskAtHorizon is the risk at the last sampled offset.
func (p *Projection) RiskAtHorizon() float64 {
	if len(p.RiskPct) == 0 {
		return 0
	}
	return p.RiskPct[len(p.RiskPct)-1]
}
