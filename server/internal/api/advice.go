package api

import (
	"fmt"
	"sort"

	"github.com/partcast/partcast/pkg/reliability"
	"github.com/partcast/partcast/pkg/types"
)

// computeAdvice derives maintenance hints from a projection.
// Advice is ordered: critical first, then warnings, then info, then ok.
func computeAdvice(p *reliability.Projection, climate string) []types.Advice {
	var out []types.Advice
	m := p.Meta
	remaining := m.IntervalKm - m.TNowKm

	// ── Service schedule ─────────────────────────────────────────────────────
	switch {
	case remaining < 0:
		over := -remaining
		out = append(out, types.Advice{
			Key:   "service_overdue",
			Level: "critical",
			Title: "Service overdue",
			Detail: fmt.Sprintf(
				"This part is %.0f km past its recommended service interval of %.0f km. "+
					"Every additional kilometre now carries more risk than the last, so book "+
					"the service as soon as you can.",
				over, m.IntervalKm,
			),
			Value: &over,
		})
	case remaining <= 0.1*m.IntervalKm:
		left := remaining
		out = append(out, types.Advice{
			Key:   "service_due_soon",
			Level: "warning",
			Title: "Service due soon",
			Detail: fmt.Sprintf(
				"Only %.0f km remain before the recommended service. "+
					"Plan the visit now so it does not slip past the interval.",
				left,
			),
			Value: &left,
		})
	}

	// ── Risk before the interval ─────────────────────────────────────────────
	if due := p.RiskBeforeDue(); due >= 30 {
		v := due
		out = append(out, types.Advice{
			Key:   "risk_before_due",
			Level: "warning",
			Title: fmt.Sprintf("%.0f%% risk before service", due),
			Detail: fmt.Sprintf(
				"There is a %.1f%% chance this part fails before it reaches the "+
					"recommended interval. Consider servicing early.",
				due,
			),
			Value: &v,
		})
	}

	// ── Risk at the horizon ──────────────────────────────────────────────────
	horizon := p.RiskAtHorizon()
	var horizonKm float64
	if n := len(p.OffsetsKm); n > 0 {
		horizonKm = p.OffsetsKm[n-1]
	}
	switch {
	case horizon >= 50:
		v := horizon
		out = append(out, types.Advice{
			Key:   "horizon_risk_high",
			Level: "critical",
			Title: fmt.Sprintf("%.0f%% risk ahead", horizon),
			Detail: fmt.Sprintf(
				"Over the next %.0f km the failure probability climbs to %.1f%%. "+
					"Failure is more likely than not within this distance.",
				horizonKm, horizon,
			),
			Value: &v,
		})
	case horizon >= 20:
		v := horizon
		out = append(out, types.Advice{
			Key:   "horizon_risk_elevated",
			Level: "warning",
			Title: fmt.Sprintf("%.0f%% risk ahead", horizon),
			Detail: fmt.Sprintf(
				"Over the next %.0f km the failure probability reaches %.1f%%.",
				horizonKm, horizon,
			),
			Value: &v,
		})
	}

	// ── Calendar ageing ──────────────────────────────────────────────────────
	if t := p.Temporal; t != nil {
		switch {
		case t.Next1mPct >= 10:
			v := t.Next1mPct
			out = append(out, types.Advice{
				Key:   "near_term_risk",
				Level: "critical",
				Title: "High risk this month",
				Detail: fmt.Sprintf(
					"Age alone gives this part a %.1f%% chance of failing within a month, "+
						"regardless of how far the vehicle is driven.",
					t.Next1mPct,
				),
				Value: &v,
			})
		case t.Next3mPct >= 15:
			v := t.Next3mPct
			out = append(out, types.Advice{
				Key:   "near_term_risk",
				Level: "warning",
				Title: "Elevated 3-month risk",
				Detail: fmt.Sprintf(
					"Based on time since service there is a %.1f%% chance of failure "+
						"within three months.",
					t.Next3mPct,
				),
				Value: &v,
			})
		}
	}

	out = append(out, partTips(m.Part, climate, remaining)...)

	if !hasConcern(out) {
		out = append(out, types.Advice{
			Key:    "all_clear",
			Level:  "ok",
			Title:  "All clear",
			Detail: "The projected risk stays low over the horizon and the service interval is not close.",
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return levelRank(out[i].Level) < levelRank(out[j].Level)
	})
	return out
}

// partTips returns part-specific hints.
func partTips(part, climate string, remainingKm float64) []types.Advice {
	var out []types.Advice
	factor := reliability.ClimateFactor(part, climate)

	switch part {
	case reliability.PartTimingBelt:
		if remainingKm < 0 {
			out = append(out, types.Advice{
				Key:   "timing_belt_damage",
				Level: "critical",
				Title: "Belt failure damages engine",
				Detail: "On interference engines a snapped timing belt lets the valves hit the pistons. " +
					"Replacing the belt is far cheaper than the repair after a failure.",
			})
		}
	case reliability.PartBattery:
		if factor < 1 {
			out = append(out, types.Advice{
				Key:   "battery_climate",
				Level: "info",
				Title: "Climate shortens battery life",
				Detail: "Extreme heat or cold accelerates battery wear, and the projection already " +
					"accounts for it. A load test at the next service is worthwhile.",
			})
		}
	case reliability.PartTires:
		if factor < 1 {
			out = append(out, types.Advice{
				Key:   "tires_climate",
				Level: "info",
				Title: "Check tread and pressure",
				Detail: "Harsh climates age rubber faster. Check tread depth and pressure monthly.",
			})
		}
	case reliability.PartCoolantHoses:
		if factor < 1 {
			out = append(out, types.Advice{
				Key:    "coolant_heat",
				Level:  "info",
				Title:  "Inspect hoses for cracks",
				Detail: "Heat hardens coolant hoses. Squeeze them when the engine is cold; cracked or spongy hoses should be replaced.",
			})
		}
	}
	return out
}

func hasConcern(advice []types.Advice) bool {
	for _, a := range advice {
		if a.Level == "critical" || a.Level == "warning" {
			return true
		}
	}
	return false
}

func levelRank(level string) int {
	switch level {
	case "critical":
		return 0
	case "warning":
		return 1
	case "info":
		return 2
	default:
		return 3
	}
}
