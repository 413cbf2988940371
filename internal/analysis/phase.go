package analysis

import "github.com/pkg/errors"

type Point struct{ X, Y float64 }

// Portrait is a trajectory in the plane of two recorded series.
type Portrait struct {
	XName, YName string
	Points       []Point
}

func NewPortrait(xName string, xs []float64, yName string, ys []float64) (*Portrait, error) {
	if len(xs) != len(ys) {
		return nil, errors.Errorf("phase portrait: %d x samples for %d y samples", len(xs), len(ys))
	}
	p := &Portrait{XName: xName, YName: yName, Points: make([]Point, len(xs))}
	for i := range xs {
		p.Points[i] = Point{X: xs[i], Y: ys[i]}
	}
	return p, nil
}

// Crossings returns the points where the trajectory crosses x = level going
// upward, interpolated between samples. It is a Poincare section for
// periodic orbits.
func (pt *Portrait) Crossings(level float64) []Point {
	var out []Point
	for i := 1; i < len(pt.Points); i++ {
		a, b := pt.Points[i-1], pt.Points[i]
		if a.X < level && b.X >= level {
			frac := (level - a.X) / (b.X - a.X)
			out = append(out, Point{X: level, Y: a.Y + frac*(b.Y-a.Y)})
		}
	}
	return out
}

// Bounds returns the extent of the trajectory padded by 10% on each side.
// A flat axis is given a unit range.
func (pt *Portrait) Bounds() (minX, maxX, minY, maxY float64) {
	if len(pt.Points) == 0 {
		return 0, 1, 0, 1
	}
	minX, maxX = pt.Points[0].X, pt.Points[0].X
	minY, maxY = pt.Points[0].Y, pt.Points[0].Y

	for _, p := range pt.Points {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	return minX - rangeX*0.1, maxX + rangeX*0.1, minY - rangeY*0.1, maxY + rangeY*0.1
}
