package viz

import (
	"fmt"
	"strings"

	"github.com/san-kum/blocksim/internal/analysis"
)

// Braille patterns: 2x4 dots per cell
// 1 4
// 2 5
// 3 6
// 7 8
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set turns on the sub-pixel (x, y). The canvas is Width*2 by Height*4
// sub-pixels with the origin at the top left.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// IsSet reports whether sub-pixel (x, y) is on.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 {
		return false
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return false
	}
	return c.Grid[row][col]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// PlotPortrait draws a phase portrait as a connected braille trace inside
// a width x height cell canvas, followed by an axis legend.
func PlotPortrait(pt *analysis.Portrait, width, height int) string {
	c := NewCanvas(width, height)
	minX, maxX, minY, maxY := pt.Bounds()
	px := width*2 - 1
	py := height*4 - 1

	toPixel := func(p analysis.Point) (int, int) {
		x := int((p.X - minX) / (maxX - minX) * float64(px))
		y := py - int((p.Y-minY)/(maxY-minY)*float64(py))
		return x, y
	}

	// Zero axes, dotted so the trace stays readable.
	if minX < 0 && maxX > 0 {
		x, _ := toPixel(analysis.Point{})
		for y := 0; y <= py; y += 2 {
			c.Set(x, y)
		}
	}
	if minY < 0 && maxY > 0 {
		_, y := toPixel(analysis.Point{})
		for x := 0; x <= px; x += 2 {
			c.Set(x, y)
		}
	}

	for i, p := range pt.Points {
		x, y := toPixel(p)
		if i == 0 {
			c.Set(x, y)
			continue
		}
		x0, y0 := toPixel(pt.Points[i-1])
		c.DrawLine(x0, y0, x, y)
	}

	var b strings.Builder
	b.WriteString(c.String())
	fmt.Fprintf(&b, "%s: [%.3g, %.3g]  %s: [%.3g, %.3g]\n",
		pt.XName, minX, maxX, pt.YName, minY, maxY)
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
