package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/blocksim/internal/dynamo"
)

var (
	Title       lipgloss.Style
	Subtle      lipgloss.Style
	MetricLabel lipgloss.Style
	MetricValue lipgloss.Style
	HeaderStyle lipgloss.Style
	CellStyle   lipgloss.Style

	sparkHigh, sparkMid, sparkLow lipgloss.Style
)

func init() {
	applyTheme(CurrentTheme)
}

// applyTheme rebuilds the shared styles from a theme's palette.
func applyTheme(t Theme) {
	Title = lipgloss.NewStyle().Bold(true).Foreground(t.Secondary)
	Subtle = lipgloss.NewStyle().Foreground(t.Muted)
	MetricLabel = lipgloss.NewStyle().Foreground(t.Muted)
	MetricValue = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1)
	CellStyle = lipgloss.NewStyle().Foreground(t.Text).Padding(0, 1)

	sparkHigh = lipgloss.NewStyle().Foreground(t.Success)
	sparkMid = lipgloss.NewStyle().Foreground(t.Warning)
	sparkLow = lipgloss.NewStyle().Foreground(t.Error)
}

// StatusStyle colours a run status by outcome.
func StatusStyle(s dynamo.Status) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s {
	case dynamo.Completed:
		return base.Foreground(CurrentTheme.Success)
	case dynamo.Stopped:
		return base.Foreground(CurrentTheme.Warning)
	case dynamo.Failed:
		return base.Foreground(CurrentTheme.Error)
	}
	return base.Foreground(CurrentTheme.Muted)
}

// SparklineChart renders values as a one-line bar chart at most width
// runes long.
func SparklineChart(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := int(norm * float64(len(chars)-1))
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		if idx < 0 {
			idx = 0
		}

		c := string(chars[idx])
		switch {
		case norm > 0.7:
			result.WriteString(sparkHigh.Render(c))
		case norm > 0.3:
			result.WriteString(sparkMid.Render(c))
		default:
			result.WriteString(sparkLow.Render(c))
		}
	}
	return result.String()
}

func Separator(width int) string {
	if width < 7 {
		return Subtle.Render(strings.Repeat("─", width))
	}
	mid := width / 2
	left := strings.Repeat("─", mid-3)
	right := strings.Repeat("─", width-mid-3)
	return Subtle.Render(left + " ◆ " + right)
}
