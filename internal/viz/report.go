package viz

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/san-kum/blocksim/internal/diagram"
	"github.com/san-kum/blocksim/internal/dynamo"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(Subtle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			return CellStyle
		})
}

// Table renders rows under headers in the report style.
func Table(headers []string, rows [][]string) string {
	t := newTable(headers...)
	for _, r := range rows {
		t.Row(r...)
	}
	return t.String()
}

func itoa(i int) string { return strconv.Itoa(i) }

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }

// BlockTable lists every block with its shape and state slots.
func BlockTable(g *diagram.Graph) string {
	t := newTable("id", "name", "type", "kind", "in", "out", "x", "d", "clock")
	for i, b := range g.Blocks {
		s := g.Layout[i]
		clock := "-"
		if k := g.ClockOf[i]; k >= 0 {
			clock = g.Clocks[k].Name
		}
		t.Row(itoa(i), b.Name(), b.Type(), b.Kind().String(),
			itoa(b.NIn()), itoa(b.NOut()),
			slotRange(s.X, s.NX), slotRange(s.D, s.ND), clock)
	}
	return t.String()
}

func slotRange(start, n int) string {
	if n == 0 {
		return "-"
	}
	if n == 1 {
		return itoa(start)
	}
	return fmt.Sprintf("%d..%d", start, start+n-1)
}

// EdgeTable lists the port-level connections after bundle expansion.
func EdgeTable(g *diagram.Graph) string {
	t := newTable("wire", "from", "to")
	for _, e := range g.Edges {
		name := itoa(e.Wire)
		if w := g.Wires[e.Wire]; w.Name != "" {
			name = w.Name
		}
		t.Row(name,
			fmt.Sprintf("%s[%d]", g.Blocks[e.Src].Name(), e.SrcPort),
			fmt.Sprintf("%s[%d]", g.Blocks[e.Dst].Name(), e.DstPort))
	}
	return t.String()
}

// ClockTable lists every clock with the blocks it drives.
func ClockTable(g *diagram.Graph) string {
	t := newTable("clock", "period", "offset", "blocks")
	for k, c := range g.Clocks {
		var names []string
		for i, ck := range g.ClockOf {
			if ck == k {
				names = append(names, g.Blocks[i].Name())
			}
		}
		t.Row(c.Name, fmtFloat(c.Period), fmtFloat(c.Offset), strings.Join(names, ", "))
	}
	return t.String()
}

// MetricTable lists metrics sorted by name.
func MetricTable(metrics map[string]float64) string {
	names := make([]string, 0, len(metrics))
	for n := range metrics {
		names = append(names, n)
	}
	sort.Strings(names)

	t := newTable("metric", "value")
	for _, n := range names {
		t.Row(n, fmtFloat(metrics[n]))
	}
	return t.String()
}

// GraphReport renders the compiled structure of a diagram.
func GraphReport(g *diagram.Graph) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", Title.Render(g.Name))
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s\n",
		MetricLabel.Render("blocks"), MetricValue.Render(itoa(len(g.Blocks))),
		MetricLabel.Render("continuous"), MetricValue.Render(itoa(g.NX)),
		MetricLabel.Render("discrete"), MetricValue.Render(itoa(g.ND)))
	b.WriteString(BlockTable(g))
	b.WriteByte('\n')
	if len(g.Edges) > 0 {
		b.WriteString(EdgeTable(g))
		b.WriteByte('\n')
	}
	if len(g.Clocks) > 0 {
		b.WriteString(ClockTable(g))
		b.WriteByte('\n')
	}
	if len(g.Cycles) > 0 {
		for _, cyc := range g.Cycles {
			names := make([]string, len(cyc))
			for i, id := range cyc {
				names[i] = g.Blocks[id].Name()
			}
			fmt.Fprintf(&b, "%s %s\n", MetricLabel.Render("loop"), strings.Join(names, " -> "))
		}
	}
	return b.String()
}

// RunSummary renders the outcome of one run: status, step counts, metrics
// and a sparkline of each watched signal.
func RunSummary(r *dynamo.Result, width int) string {
	var b strings.Builder
	status := StatusStyle(r.Status).Render(r.Status.String())
	if r.StopReason != "" {
		status += " " + Subtle.Render("("+r.StopReason+")")
	}
	fmt.Fprintf(&b, "%s %s\n", MetricLabel.Render("status"), status)
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s  %s %s\n",
		MetricLabel.Render("steps"), MetricValue.Render(itoa(r.StepsTaken)),
		MetricLabel.Render("rejected"), MetricValue.Render(itoa(r.Rejected)),
		MetricLabel.Render("evaluations"), MetricValue.Render(itoa(r.Evaluations)),
		MetricLabel.Render("ticks"), MetricValue.Render(itoa(len(r.Ticks))))
	if n := len(r.Times); n > 0 {
		fmt.Fprintf(&b, "%s %s\n", MetricLabel.Render("t_end"), MetricValue.Render(fmtFloat(r.Times[n-1])))
	}
	if len(r.Violations) > 0 {
		fmt.Fprintf(&b, "%s %s\n", MetricLabel.Render("violations"),
			StatusStyle(dynamo.Failed).Render(itoa(len(r.Violations))))
	}

	for _, name := range r.WatchNames {
		series, _ := r.Series(name)
		fmt.Fprintf(&b, "%-16s %s\n", MetricLabel.Render(name), SparklineChart(series, width))
	}
	b.WriteString(Separator(width + 17))
	b.WriteByte('\n')
	if len(r.Metrics) > 0 {
		b.WriteString(MetricTable(r.Metrics))
		b.WriteByte('\n')
	}
	return b.String()
}
