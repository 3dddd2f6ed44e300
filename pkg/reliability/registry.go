package reliability

import (
	"sort"
	"strings"
)

// PartSpec holds the Weibull parameters and calibration anchors for one part.
// Month fields are nil for parts without a dedicated time-based model.
type PartSpec struct {
	// ShapeKm is the shape exponent k for the distance dimension.
	ShapeKm float64

	// TargetProbKm is the cumulative failure probability expected at the
	// recommended service interval (in km). Used to calibrate λ.
	TargetProbKm float64

	// ShapeMonth and TargetProbMonth are the time-dimension counterparts.
	ShapeMonth      *float64
	TargetProbMonth *float64
}

// monthShape returns the time-dimension shape, falling back to ShapeKm.
func (s PartSpec) monthShape() float64 {
	if s.ShapeMonth != nil {
		return *s.ShapeMonth
	}
	return s.ShapeKm
}

// monthTarget returns the time-dimension anchor, falling back to TargetProbKm.
func (s PartSpec) monthTarget() float64 {
	if s.TargetProbMonth != nil {
		return *s.TargetProbMonth
	}
	return s.TargetProbKm
}

// Canonical part identifiers.
const (
	PartEngineOil    = "engine-oil"
	PartBrakes       = "brakes"
	PartTimingBelt   = "timing-belt"
	PartBattery      = "battery"
	PartTires        = "tires"
	PartAirFilter    = "air-filter"
	PartCoolantHoses = "coolant-hoses"
)

// registry is populated once at package init and never written afterwards.
var registry = map[string]PartSpec{
	PartEngineOil:    withMonths(2.0, 0.12, 1.8, 0.12),
	PartBrakes:       withMonths(1.8, 0.20, 1.6, 0.18),
	PartTimingBelt:   withMonths(3.0, 0.05, 2.8, 0.05),
	PartBattery:      withMonths(1.2, 0.08, 2.2, 0.20),
	PartTires:        withMonths(1.6, 0.20, 1.4, 0.18),
	PartAirFilter:    withMonths(1.3, 0.30, 1.1, 0.25),
	PartCoolantHoses: withMonths(1.4, 0.10, 1.8, 0.10),
}

// aliases maps the identifiers used by the first version of the tool to
// their canonical names. Requests and stored URLs still carry them.
var aliases = map[string]string{
	"aceite":                 PartEngineOil,
	"frenos":                 PartBrakes,
	"correa":                 PartTimingBelt,
	"bateria":                PartBattery,
	"neumaticos":             PartTires,
	"filtro_aire":            PartAirFilter,
	"refrigerante_mangueras": PartCoolantHoses,
}

func withMonths(kKm, pKm, kMonth, pMonth float64) PartSpec {
	return PartSpec{
		ShapeKm:         kKm,
		TargetProbKm:    pKm,
		ShapeMonth:      &kMonth,
		TargetProbMonth: &pMonth,
	}
}

// Lookup resolves part (case-insensitive, surrounding whitespace ignored) to
// its spec and canonical identifier. Unknown identifiers return an
// *UnsupportedPartError carrying part as given.
func Lookup(part string) (PartSpec, string, error) {
	key := strings.ToLower(strings.TrimSpace(part))
	if canon, ok := aliases[key]; ok {
		key = canon
	}
	spec, ok := registry[key]
	if !ok {
		return PartSpec{}, "", &UnsupportedPartError{Part: part}
	}
	return spec, key, nil
}

// PartInfo is one registry entry as listed to callers.
type PartInfo struct {
	Part            string   `json:"part"`
	ShapeKm         float64  `json:"shape_km"`
	TargetProbKm    float64  `json:"target_prob_km"`
	ShapeMonth      *float64 `json:"shape_month,omitempty"`
	TargetProbMonth *float64 `json:"target_prob_month,omitempty"`
}

// Parts returns every registered part sorted by identifier. The returned
// values are copies; modifying them does not affect the registry.
func Parts() []PartInfo {
	out := make([]PartInfo, 0, len(registry))
	for name, s := range registry {
		info := PartInfo{
			Part:         name,
			ShapeKm:      s.ShapeKm,
			TargetProbKm: s.TargetProbKm,
		}
		if s.ShapeMonth != nil {
			v := *s.ShapeMonth
			info.ShapeMonth = &v
		}
		if s.TargetProbMonth != nil {
			v := *s.TargetProbMonth
			info.TargetProbMonth = &v
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Part < out[j].Part })
	return out
}
