package reliability

import (
	"math"
	"reflect"
	"testing"
)

func f64(v float64) *float64 { return &v }

func TestProject_BatteryColdExample(t *testing.T) {
	p, err := Project(Input{
		Part:          "battery",
		CurrentKm:     40000,
		LastServiceKm: 30000,
		IntervalKm:    20000,
		Climate:       "cold",
		Points:        51,
	})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	if len(p.OffsetsKm) != 51 || len(p.RiskPct) != 51 {
		t.Fatalf("lengths = %d/%d, want 51/51", len(p.OffsetsKm), len(p.RiskPct))
	}
	if p.OffsetsKm[0] != 0 {
		t.Errorf("first offset = %v, want 0", p.OffsetsKm[0])
	}
	if p.OffsetsKm[50] != 30000 {
		t.Errorf("last offset = %v, want 30000", p.OffsetsKm[50])
	}
	if p.OffsetsKm[1] != 600 {
		t.Errorf("step = %v, want 600", p.OffsetsKm[1])
	}
	for i, v := range p.RiskPct {
		if v < 0 || v > 100 {
			t.Errorf("risk[%d] = %v out of [0,100]", i, v)
		}
		if i > 0 && v < p.RiskPct[i-1] {
			t.Errorf("risk[%d] = %v decreased from %v", i, v, p.RiskPct[i-1])
		}
	}
	if p.RiskPct[50] <= p.RiskPct[0] {
		t.Errorf("curve is flat: first %v, last %v", p.RiskPct[0], p.RiskPct[50])
	}

	// Expected values recomputed from the closed form.
	lambda := Calibrate(20000, 1.2, 0.08) * 0.85
	if !almostEqual(p.Meta.LambdaKm, lambda, 1e-6) {
		t.Errorf("LambdaKm = %v, want %v", p.Meta.LambdaKm, lambda)
	}
	want := Round2(100 * ConditionalFailure(10000, 30000, lambda, 1.2))
	if p.RiskPct[50] != want {
		t.Errorf("risk at horizon = %v, want %v", p.RiskPct[50], want)
	}

	if p.Meta.Part != "battery" || p.Meta.TNowKm != 10000 || p.Meta.IntervalKm != 20000 || p.Meta.ShapeKm != 1.2 {
		t.Errorf("unexpected meta: %+v", p.Meta)
	}
	if p.Meta.LambdaMonths != nil || p.Temporal != nil {
		t.Error("month dimension present without month inputs")
	}
}

func TestProject_AnchorAtInterval(t *testing.T) {
	// Horizon equal to the interval puts the last sample at Δ = interval.
	for _, info := range Parts() {
		p, err := Project(Input{
			Part:          info.Part,
			CurrentKm:     5000,
			LastServiceKm: 5000,
			IntervalKm:    10000,
			HorizonKm:     f64(10000),
			Points:        101,
		})
		if err != nil {
			t.Fatalf("%s: %v", info.Part, err)
		}
		last := p.RiskPct[len(p.RiskPct)-1]
		if !almostEqual(last, info.TargetProbKm*100, 0.01) {
			t.Errorf("%s: risk at interval = %v, want ≈ %v", info.Part, last, info.TargetProbKm*100)
		}
	}
}

func TestProject_DefaultsAndClamps(t *testing.T) {
	tests := []struct {
		name     string
		in       Input
		wantN    int
		wantLast float64
		wantTNow float64
	}{
		{
			name:     "default points and horizon",
			in:       Input{Part: "brakes", CurrentKm: 20000, LastServiceKm: 0, IntervalKm: 40000},
			wantN:    DefaultPoints,
			wantLast: 60000,
			wantTNow: 20000,
		},
		{
			name:     "last service ahead of odometer clamps elapsed to 0",
			in:       Input{Part: "brakes", CurrentKm: 1000, LastServiceKm: 5000, IntervalKm: 40000, Points: 51},
			wantN:    51,
			wantLast: 60000,
			wantTNow: 0,
		},
		{
			name:     "step floored at 1 km",
			in:       Input{Part: "tires", CurrentKm: 10, IntervalKm: 10, Points: 101},
			wantN:    101,
			wantLast: 100,
			wantTNow: 10,
		},
		{
			name:     "non-positive interval still projects",
			in:       Input{Part: "air-filter", CurrentKm: 100, IntervalKm: 0, Points: 51},
			wantN:    51,
			wantLast: 50,
			wantTNow: 100,
		},
		{
			name:     "points below two raised to two",
			in:       Input{Part: "engine-oil", IntervalKm: 10000, Points: 1},
			wantN:    2,
			wantLast: 15000,
			wantTNow: 0,
		},
		{
			name:     "horizon override",
			in:       Input{Part: "engine-oil", IntervalKm: 10000, HorizonKm: f64(5000), Points: 51},
			wantN:    51,
			wantLast: 5000,
			wantTNow: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Project(tc.in)
			if err != nil {
				t.Fatalf("Project: %v", err)
			}
			if len(p.OffsetsKm) != tc.wantN || len(p.RiskPct) != tc.wantN {
				t.Fatalf("lengths = %d/%d, want %d", len(p.OffsetsKm), len(p.RiskPct), tc.wantN)
			}
			if p.OffsetsKm[0] != 0 {
				t.Errorf("first offset = %v, want 0", p.OffsetsKm[0])
			}
			if got := p.OffsetsKm[tc.wantN-1]; got != tc.wantLast {
				t.Errorf("last offset = %v, want %v", got, tc.wantLast)
			}
			if p.Meta.TNowKm != tc.wantTNow {
				t.Errorf("TNowKm = %v, want %v", p.Meta.TNowKm, tc.wantTNow)
			}
			for i := 1; i < len(p.OffsetsKm); i++ {
				if p.OffsetsKm[i] < p.OffsetsKm[i-1] {
					t.Fatalf("offsets decrease at %d", i)
				}
			}
			for i, v := range p.RiskPct {
				if math.IsNaN(v) || v < 0 || v > 100 {
					t.Fatalf("risk[%d] = %v out of [0,100]", i, v)
				}
			}
		})
	}
}

func TestProject_Temporal(t *testing.T) {
	p, err := Project(Input{
		Part:               "battery",
		CurrentKm:          40000,
		LastServiceKm:      30000,
		IntervalKm:         20000,
		MonthsSinceService: f64(24),
		IntervalMonths:     f64(36),
		Climate:            "hot",
		Points:             51,
	})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if p.Temporal == nil {
		t.Fatal("Temporal = nil, want summary")
	}
	tm := p.Temporal
	if !(tm.Next1mPct <= tm.Next3mPct && tm.Next3mPct <= tm.Next6mPct) {
		t.Errorf("temporal risk not non-decreasing: %+v", tm)
	}
	if tm.Next1mPct <= 0 || tm.Next6mPct > 100 {
		t.Errorf("temporal risk out of range: %+v", tm)
	}

	lambda := Calibrate(36, 2.2, 0.20) * 0.85
	if p.Meta.LambdaMonths == nil || !almostEqual(*p.Meta.LambdaMonths, lambda, 1e-9) {
		t.Errorf("LambdaMonths = %v, want %v", p.Meta.LambdaMonths, lambda)
	}
	if p.Meta.ShapeMonth == nil || *p.Meta.ShapeMonth != 2.2 {
		t.Errorf("ShapeMonth = %v, want 2.2", p.Meta.ShapeMonth)
	}
	if p.Meta.IntervalMonths == nil || *p.Meta.IntervalMonths != 36 {
		t.Errorf("IntervalMonths = %v, want 36", p.Meta.IntervalMonths)
	}
	want := Round2(100 * ConditionalFailure(24, 6, lambda, 2.2))
	if tm.Next6mPct != want {
		t.Errorf("Next6mPct = %v, want %v", tm.Next6mPct, want)
	}
}

func TestProject_TemporalAbsent(t *testing.T) {
	tests := []struct {
		name     string
		months   *float64
		interval *float64
	}{
		{"no months", nil, f64(12)},
		{"no interval", f64(6), nil},
		{"zero interval", f64(6), f64(0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Project(Input{
				Part: "engine-oil", CurrentKm: 5000, IntervalKm: 10000,
				MonthsSinceService: tc.months, IntervalMonths: tc.interval, Points: 51,
			})
			if err != nil {
				t.Fatal(err)
			}
			if p.Temporal != nil {
				t.Errorf("Temporal = %+v, want nil", p.Temporal)
			}
			if p.Meta.LambdaMonths != nil {
				t.Errorf("LambdaMonths = %v, want nil", *p.Meta.LambdaMonths)
			}
		})
	}
}

func TestProject_ZeroTemporalRiskIsPresent(t *testing.T) {
	// Month dimension requested: summary present even when every risk rounds to 0.
	p, err := Project(Input{
		Part: "timing-belt", IntervalKm: 100000,
		MonthsSinceService: f64(0), IntervalMonths: f64(1e6), Points: 51,
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Temporal == nil {
		t.Fatal("Temporal = nil, want zero-valued summary")
	}
	if p.Temporal.Next1mPct != 0 {
		t.Errorf("Next1mPct = %v, want 0", p.Temporal.Next1mPct)
	}
}

func TestProject_UnsupportedPart(t *testing.T) {
	p, err := Project(Input{Part: "turbocharger", CurrentKm: 1, IntervalKm: 1})
	if p != nil {
		t.Errorf("projection = %+v, want nil", p)
	}
	if !IsUnsupportedPart(err) {
		t.Fatalf("err = %v, want *UnsupportedPartError", err)
	}
}

func TestProject_Deterministic(t *testing.T) {
	in := Input{
		Part: "coolant-hoses", CurrentKm: 75000, LastServiceKm: 20000, IntervalKm: 60000,
		MonthsSinceService: f64(30), IntervalMonths: f64(48), Climate: "very-hot", Points: 201,
	}
	a, err := Project(in)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Project(in)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs produced different projections")
	}
}

func TestProjection_RiskAt(t *testing.T) {
	p := &Projection{
		OffsetsKm: []float64{0, 100, 200, 300},
		RiskPct:   []float64{0, 1, 4, 9},
		Meta:      Meta{IntervalKm: 500, TNowKm: 250},
	}
	tests := []struct {
		offset, want float64
	}{
		{-10, 0}, {0, 0}, {40, 0}, {60, 1}, {150, 1}, {151, 4}, {300, 9}, {1000, 9},
	}
	for _, tc := range tests {
		if got := p.RiskAt(tc.offset); got != tc.want {
			t.Errorf("RiskAt(%v) = %v, want %v", tc.offset, got, tc.want)
		}
	}
	// 250 km remaining sits between 200 and 300; ties snap to the lower sample.
	if got := p.RiskBeforeDue(); got != 4 {
		t.Errorf("RiskBeforeDue = %v, want 4", got)
	}
	if got := p.RiskAtHorizon(); got != 9 {
		t.Errorf("RiskAtHorizon = %v, want 9", got)
	}

	p.Meta.TNowKm = 600
	if got := p.RiskBeforeDue(); got != 0 {
		t.Errorf("overdue RiskBeforeDue = %v, want 0", got)
	}
}

func TestProject_OffsetRoundingMatchesBinaryValue(t *testing.T) {
	h := 101.5
	p, err := Project(Input{Part: "brakes", IntervalKm: 100, HorizonKm: &h, Points: 101})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 1.01, 2.03, 3.04, 4.06}
	if got := p.OffsetsKm[:5]; !reflect.DeepEqual(got, want) {
		t.Errorf("OffsetsKm[:5] = %v, want %v", got, want)
	}
}

func TestCalibrate_MonthFallsBackToKmParameters(t *testing.T) {
	spec := PartSpec{ShapeKm: 1.5, TargetProbKm: 0.1}
	in := Input{
		IntervalKm:         10000,
		MonthsSinceService: f64(4),
		IntervalMonths:     f64(12),
	}

	m := calibrate(spec, "x", in)
	if !m.hasMonths {
		t.Fatal("month dimension not computed")
	}
	if m.shapeMonth != 1.5 {
		t.Errorf("shapeMonth = %v, want km shape 1.5", m.shapeMonth)
	}
	if got := CDF(12, m.lambdaMonth, 1.5); !almostEqual(got, 0.1, 1e-9) {
		t.Errorf("CDF at month interval = %v, want km target 0.1", got)
	}
	if got := CDF(10000, m.lambdaKm, 1.5); !almostEqual(got, 0.1, 1e-9) {
		t.Errorf("CDF at km interval = %v, want 0.1", got)
	}
}

func TestCalibrate_MonthNeedsBothFields(t *testing.T) {
	spec := PartSpec{ShapeKm: 1.5, TargetProbKm: 0.1}
	tests := []struct {
		name           string
		since, monthly *float64
	}{
		{"neither", nil, nil},
		{"only since", f64(4), nil},
		{"only interval", nil, f64(12)},
		{"zero interval", f64(4), f64(0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := calibrate(spec, "x", Input{IntervalKm: 1000, MonthsSinceService: tc.since, IntervalMonths: tc.monthly})
			if m.hasMonths {
				t.Error("month dimension computed without both month inputs")
			}
		})
	}
}
