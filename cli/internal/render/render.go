package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/partcast/partcast/pkg/reliability"
	"github.com/partcast/partcast/pkg/types"
)

// maxTableRows caps the curve rows printed in table format. The full curve is
// always available with --format json.
const maxTableRows = 21

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)

	levelStyles = map[string]lipgloss.Style{
		"critical": lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true),
		"warning":  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")),
		"info":     lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")),
		"ok":       lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")),
	}
)

// JSON writes v as indented JSON.
func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("render: encode json: %w", err)
	}
	return nil
}

// Projection writes a human-readable summary of resp: the model parameters,
// the temporal summary, advice, and a thinned-out curve table.
func Projection(w io.Writer, resp *types.ProjectionResponse) error {
	m := resp.Meta
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Failure projection: %s", m.Part)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Since service: %s km   Interval: %s km   λ=%s km   k=%s\n",
		km(m.TNowKm), km(m.IntervalKm), km(m.LambdaKm), humanize.Ftoa(m.ShapeKm))
	if resp.Temporal != nil {
		t := resp.Temporal
		fmt.Fprintf(&b, "Risk within 1 / 3 / 6 months: %s%% / %s%% / %s%%\n",
			humanize.Ftoa(t.Next1mPct), humanize.Ftoa(t.Next3mPct), humanize.Ftoa(t.Next6mPct))
	}
	if resp.ChartURL != "" {
		b.WriteString(mutedStyle.Render("Chart: " + resp.ChartURL))
		b.WriteString("\n")
	}

	if len(resp.Advice) > 0 {
		b.WriteString("\n")
		for _, a := range resp.Advice {
			style, ok := levelStyles[a.Level]
			if !ok {
				style = cellStyle
			}
			fmt.Fprintf(&b, "%s %s\n", style.Render(fmt.Sprintf("[%s]", strings.ToUpper(a.Level))), a.Title)
		}
	}

	b.WriteString("\n")
	b.WriteString(curveTable(resp.XKm, resp.RiskPct))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Parts writes the part registry and recognized climate tags.
func Parts(w io.Writer, parts []reliability.PartInfo, climates []string) error {
	rows := make([][]string, 0, len(parts))
	for _, p := range parts {
		rows = append(rows, []string{
			p.Part,
			humanize.Ftoa(p.ShapeKm),
			pct(p.TargetProbKm * 100),
			optional(p.ShapeMonth, 1),
			optional(p.TargetProbMonth, 100),
		})
	}
	t := newTable("PART", "K (KM)", "TARGET (KM)", "K (MONTH)", "TARGET (MONTH)").Rows(rows...)
	_, err := fmt.Fprintf(w, "%s\n%s\n", t.Render(),
		mutedStyle.Render("Climates: "+strings.Join(climates, ", ")))
	return err
}

// Recent writes the server's recent projections list.
func Recent(w io.Writer, list []types.ProjectionSummary) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("No recent projections."))
		return err
	}
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		vehicle := s.VehicleID
		if vehicle == "" {
			vehicle = "-"
		}
		rows = append(rows, []string{
			s.ID,
			s.PartType,
			vehicle,
			km(s.TNowKm),
			pct(s.RiskIntervalPct),
			pct(s.RiskHorizonPct),
			s.GeneratedAt,
		})
	}
	t := newTable("ID", "PART", "VEHICLE", "SINCE SERVICE (KM)", "RISK TO DUE", "RISK AT HORIZON", "GENERATED").Rows(rows...)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// curveTable renders at most maxTableRows evenly spaced curve points, always
// including the first and last.
func curveTable(offsets, risk []float64) string {
	n := len(offsets)
	if n == 0 {
		return ""
	}
	idx := sampleIndexes(n, maxTableRows)
	rows := make([][]string, 0, len(idx))
	for _, i := range idx {
		rows = append(rows, []string{"+" + km(offsets[i]), pct(risk[i])})
	}
	return newTable("DISTANCE AHEAD (KM)", "FAILURE RISK").Rows(rows...).Render()
}

// sampleIndexes picks up to limit indexes in [0, n) spread evenly, with the
// first and last always included.
func sampleIndexes(n, limit int) []int {
	if n <= limit {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, 0, limit)
	for j := 0; j < limit; j++ {
		out = append(out, j*(n-1)/(limit-1))
	}
	return out
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func km(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

func pct(v float64) string {
	return humanize.FtoaWithDigits(v, 2) + "%"
}

func optional(p *float64, scale float64) string {
	if p == nil {
		return "-"
	}
	if scale == 100 {
		return pct(*p * 100)
	}
	return humanize.Ftoa(*p)
}
