package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metric names.
const (
	NameProjections   = "partcast_projections_total"
	NameErrors        = "partcast_projection_errors_total"
	NameChartFailures = "partcast_chart_failures_total"
	NameAlertsFired   = "partcast_alerts_fired_total"
)

// gauge is a value sampled at scrape time.
type gauge struct {
	help string
	fn   func() float64
}

// Registry holds the server counters. The zero value is not usable; call New.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu            sync.Mutex
	projections   map[string]float64 // by part
	errors        map[string]float64 // by reason
	alertsFired   map[string]float64 // by severity
	chartFailures float64
	gauges        map[string]gauge
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		projections: make(map[string]float64),
		errors:      make(map[string]float64),
		alertsFired: make(map[string]float64),
		gauges:      make(map[string]gauge),
	}
}

// ProjectionServed counts one successful projection for part.
func (r *Registry) ProjectionServed(part string) {
	r.mu.Lock()
	r.projections[part]++
	r.mu.Unlock()
}

// ProjectionRejected counts one rejected projection request.
// reason is a short label such as "validation" or "unsupported_part".
func (r *Registry) ProjectionRejected(reason string) {
	r.mu.Lock()
	r.errors[reason]++
	r.mu.Unlock()
}

// ChartFailed counts one chart that could not be rendered.
func (r *Registry) ChartFailed() {
	r.mu.Lock()
	r.chartFailures++
	r.mu.Unlock()
}

// AlertFired counts one fired maintenance alert.
func (r *Registry) AlertFired(severity string) {
	r.mu.Lock()
	r.alertsFired[severity]++
	r.mu.Unlock()
}

// RegisterGauge adds a gauge whose value is read from fn at scrape time.
// Registering the same name again replaces the previous function.
func (r *Registry) RegisterGauge(name, help string, fn func() float64) {
	r.mu.Lock()
	r.gauges[name] = gauge{help: help, fn: fn}
	r.mu.Unlock()
}

// Gather returns the current metric families sorted by name.
func (r *Registry) Gather() []*dto.MetricFamily {
	r.mu.Lock()
	out := []*dto.MetricFamily{
		counter(NameChartFailures, "Charts that failed to render.", r.chartFailures),
	}
	for _, mf := range []*dto.MetricFamily{
		counterVec(NameProjections, "Projections served, by part.", "part", r.projections),
		counterVec(NameErrors, "Projection requests rejected, by reason.", "reason", r.errors),
		counterVec(NameAlertsFired, "Maintenance alerts fired, by severity.", "severity", r.alertsFired),
	} {
		// expfmt refuses families without samples.
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	gauges := make(map[string]gauge, len(r.gauges))
	for name, g := range r.gauges {
		gauges[name] = g
	}
	r.mu.Unlock()

	// Gauge functions may take their own locks; call them outside ours.
	for name, g := range gauges {
		out = append(out, &dto.MetricFamily{
			Name:   ptr(name),
			Help:   ptr(g.help),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: ptr(g.fn())}}},
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// WriteText writes every metric family to w in the text exposition format.
func (r *Registry) WriteText(w io.Writer) error {
	for _, mf := range r.Gather() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// ServeHTTP serves GET /metrics.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	r.WriteText(w) //nolint:errcheck
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: ptr(v)}}},
	}
}

// counterVec builds a labelled counter family. Label values are sorted so the
// output is stable between scrapes.
func counterVec(name, help, label string, values map[string]float64) *dto.MetricFamily {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mf := &dto.MetricFamily{
		Name: ptr(name),
		Help: ptr(help),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, k := range keys {
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: ptr(label), Value: ptr(k)}},
			Counter: &dto.Counter{Value: ptr(values[k])},
		})
	}
	return mf
}

func ptr[T any](v T) *T { return &v }
