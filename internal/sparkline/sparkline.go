// Package sparkline draws small inline trend lines.
package sparkline

import (
	"github.com/montanaflynn/stats"
)

// Surface is the drawing target for a sparkline. *gg.Context satisfies it.
type Surface interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Stroke()
}

type Options struct {
	Width     int
	Height    int
	Color     string
	LineWidth float64
}

var DefaultOptions = Options{
	Width:     100,
	Height:    30,
	Color:     "#0EA5E9",
	LineWidth: 1.5,
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultOptions.Width
	}
	if o.Height <= 0 {
		o.Height = DefaultOptions.Height
	}
	if o.Color == "" {
		o.Color = DefaultOptions.Color
	}
	if o.LineWidth <= 0 {
		o.LineWidth = DefaultOptions.LineWidth
	}
	return o
}

type Point struct {
	X, Y float64
}

// Points maps data onto a width x height box. The lowest value sits on the
// bottom edge and the highest on the top edge; a flat series sits at
// mid-height. Fewer than two values yield nil.
func Points(data []float64, width, height float64) []Point {
	if len(data) < 2 {
		return nil
	}
	lo, _ := stats.Min(data)
	hi, _ := stats.Max(data)
	span := hi - lo
	xStep := width / float64(len(data)-1)

	pts := make([]Point, len(data))
	for i, v := range data {
		y := height / 2
		if span != 0 {
			y = height - (v-lo)*height/span
		}
		pts[i] = Point{X: float64(i) * xStep, Y: y}
	}
	return pts
}

// Draw strokes data as one connected polyline on s. It reports whether
// anything was drawn.
func Draw(s Surface, data []float64, width, height float64) bool {
	pts := Points(data, width, height)
	if pts == nil {
		return false
	}
	s.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		s.LineTo(p.X, p.Y)
	}
	s.Stroke()
	return true
}

// Ints converts integer counts to the float series Draw expects.
func Ints(counts []int) []float64 {
	out := make([]float64, len(counts))
	for i, c := range counts {
		out[i] = float64(c)
	}
	return out
}
