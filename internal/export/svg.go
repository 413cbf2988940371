// Package export writes plots of recorded runs as standalone SVG files.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/analysis"
	"github.com/san-kum/blocksim/internal/viz"
)

// Trace is one named polyline in data coordinates.
type Trace struct {
	Name   string
	Points []analysis.Point
}

type frame struct {
	width, height          int
	minX, maxX, minY, maxY float64
}

func (f frame) project(p analysis.Point) (float64, float64) {
	x := (p.X - f.minX) / (f.maxX - f.minX) * float64(f.width)
	y := float64(f.height) - (p.Y-f.minY)/(f.maxY-f.minY)*float64(f.height)
	return x, y
}

func bounds(traces []Trace) (frame, bool) {
	f := frame{minX: math.Inf(1), maxX: math.Inf(-1), minY: math.Inf(1), maxY: math.Inf(-1)}
	n := 0
	for _, tr := range traces {
		for _, p := range tr.Points {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) {
				continue
			}
			f.minX = math.Min(f.minX, p.X)
			f.maxX = math.Max(f.maxX, p.X)
			f.minY = math.Min(f.minY, p.Y)
			f.maxY = math.Max(f.maxY, p.Y)
			n++
		}
	}
	if n < 2 {
		return f, false
	}
	rangeX, rangeY := f.maxX-f.minX, f.maxY-f.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	f.minX -= rangeX * 0.05
	f.maxX += rangeX * 0.05
	f.minY -= rangeY * 0.1
	f.maxY += rangeY * 0.1
	return f, true
}

func palette() []string {
	out := make([]string, len(viz.CurrentTheme.Traces))
	for i, c := range viz.CurrentTheme.Traces {
		out[i] = string(c)
	}
	if len(out) == 0 {
		out = append(out, string(viz.CurrentTheme.Secondary))
	}
	return out
}

// WriteSVG draws traces on shared axes with a legend in the top left.
func WriteSVG(w io.Writer, title string, traces []Trace, width, height int) error {
	f, ok := bounds(traces)
	if !ok {
		return errors.New("svg: need at least two finite points")
	}
	f.width, f.height = width, height
	colors := palette()
	bg := string(viz.CurrentTheme.Background)
	muted := string(viz.CurrentTheme.Muted)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, bg)

	// Zero lines where the range spans them.
	if f.minY < 0 && f.maxY > 0 {
		_, y := f.project(analysis.Point{})
		fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="4 4"/>
`, y, width, y, muted)
	}
	if f.minX < 0 && f.maxX > 0 {
		x, _ := f.project(analysis.Point{})
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="0" x2="%.1f" y2="%d" stroke="%s" stroke-dasharray="4 4"/>
`, x, x, height, muted)
	}

	for i, tr := range traces {
		color := colors[i%len(colors)]
		sb.WriteString(`<path fill="none" stroke-width="1.5" stroke="` + color + `" d="`)
		pen := "M"
		for _, p := range tr.Points {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) {
				pen = "M"
				continue
			}
			x, y := f.project(p)
			fmt.Fprintf(&sb, "%s%.1f,%.1f ", pen, x, y)
			pen = "L"
		}
		sb.WriteString("\"/>\n")
		fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 34+14*i, color, escape(tr.Name))
	}

	fmt.Fprintf(&sb, `<text x="8" y="16" fill="%s" font-family="monospace" font-size="14">%s</text>
`, string(viz.CurrentTheme.Text), escape(title))
	fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="10">x [%.3g, %.3g]  y [%.3g, %.3g]</text>
`, height-6, muted, f.minX, f.maxX, f.minY, f.maxY)
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// PortraitSVG writes a phase portrait as a single trace.
func PortraitSVG(w io.Writer, pt *analysis.Portrait, width, height int) error {
	title := pt.YName + " vs " + pt.XName
	return WriteSVG(w, title, []Trace{{Name: title, Points: pt.Points}}, width, height)
}

// SeriesTrace pairs sample times with values.
func SeriesTrace(name string, times, values []float64) (Trace, error) {
	if len(times) != len(values) {
		return Trace{}, errors.Errorf("svg: %s has %d times for %d values", name, len(times), len(values))
	}
	tr := Trace{Name: name, Points: make([]analysis.Point, len(times))}
	for i := range times {
		tr.Points[i] = analysis.Point{X: times[i], Y: values[i]}
	}
	return tr, nil
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
