// Package chart renders a projection curve as a PNG line chart.
//
// It is a consumer of reliability.Projection: given the forward offsets, the
// risk percentages and the metadata it draws the curve, a dashed "today" guide
// at x=0 and, when it falls inside the horizon, a dashed guide where the
// recommended service interval is reached. Output is deterministic for
// identical inputs.
//
// Callers treat rendering as best-effort: a failed render must never affect
// the numeric result it was drawn from.
package chart
