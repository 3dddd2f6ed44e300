package alerts

import (
	"fmt"
	"strconv"
	"strings"
)

// Snapshot is the view of one projection that rule conditions are evaluated
// against. Temporal fields are nil when the projection had no month dimension;
// conditions on them never fire in that case.
type Snapshot struct {
	ProjectionID string
	VehicleID    string
	Part         string

	RiskHorizonPct  float64
	RiskIntervalPct float64
	Next1mPct       *float64
	Next3mPct       *float64
	Next6mPct       *float64

	KmSinceService float64
	KmOverdue      float64
}

// condition is a parsed "field op value" rule expression.
type condition struct {
	field     string
	op        string
	threshold float64
	text      string // right-hand side for string fields
}

// parseCondition parses a rule condition.
//
// Supported expressions (field operator value):
//
//	risk_horizon_pct >= 50
//	risk_interval_pct > 20
//	risk_next_1m_pct > 5
//	risk_next_3m_pct > 15
//	risk_next_6m_pct > 30
//	km_since_service > 12000
//	km_overdue > 0
//	part == battery
//	part != tires
func parseCondition(expr string) (condition, error) {
	fields := strings.Fields(expr)
	if len(fields) != 3 {
		return condition{}, fmt.Errorf("alerts: condition %q: want \"field op value\"", expr)
	}
	c := condition{field: fields[0], op: fields[1]}

	if c.field == "part" {
		if c.op != "==" && c.op != "!=" {
			return condition{}, fmt.Errorf("alerts: condition %q: part supports only == and !=", expr)
		}
		c.text = strings.ToLower(fields[2])
		return c, nil
	}

	if !knownFields[c.field] {
		return condition{}, fmt.Errorf("alerts: condition %q: unknown field %q", expr, c.field)
	}
	switch c.op {
	case ">", ">=", "<", "<=", "==":
	default:
		return condition{}, fmt.Errorf("alerts: condition %q: unknown operator %q", expr, c.op)
	}
	v, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return condition{}, fmt.Errorf("alerts: condition %q: %w", expr, err)
	}
	c.threshold = v
	return c, nil
}

// eval returns whether the condition holds for snap and the triggering value.
func (c condition) eval(snap Snapshot) (bool, float64) {
	if c.field == "part" {
		eq := snap.Part == c.text
		if c.op == "!=" {
			return !eq, 0
		}
		return eq, 0
	}
	v, ok := numericField(c.field, snap)
	if !ok {
		return false, 0
	}
	return compareFloat(v, c.op, c.threshold), v
}

// numericField maps a field name to its value in the snapshot. The second
// result is false for unknown fields and for temporal fields that are absent.
func numericField(field string, snap Snapshot) (float64, bool) {
	switch field {
	case "risk_horizon_pct":
		return snap.RiskHorizonPct, true
	case "risk_interval_pct":
		return snap.RiskIntervalPct, true
	case "km_since_service":
		return snap.KmSinceService, true
	case "km_overdue":
		return snap.KmOverdue, true
	case "risk_next_1m_pct":
		return deref(snap.Next1mPct)
	case "risk_next_3m_pct":
		return deref(snap.Next3mPct)
	case "risk_next_6m_pct":
		return deref(snap.Next6mPct)
	default:
		return 0, false
	}
}

var knownFields = map[string]bool{
	"risk_horizon_pct":  true,
	"risk_interval_pct": true,
	"risk_next_1m_pct":  true,
	"risk_next_3m_pct":  true,
	"risk_next_6m_pct":  true,
	"km_since_service":  true,
	"km_overdue":        true,
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
