package fd

import (
	"math"

	"github.com/vadiminshakov/pricebench/internal/process"
)

// grid uniform in log-spot, centred on the current spot.
type grid struct {
	xMin float64
	dx   float64
	n    int
}

func newGrid(p process.FlatParams, strike float64, points int) grid {
	center := math.Log(p.Spot)
	halfWidth := math.Max(gridStdDevs*p.StdDev(), minHalfWidth) + math.Abs(math.Log(strike)-center)
	return grid{
		xMin: center - halfWidth,
		dx:   2 * halfWidth / float64(points-1),
		n:    points,
	}
}

func (g grid) size() int          { return g.n }
func (g grid) x(j int) float64    { return g.xMin + float64(j)*g.dx }
func (g grid) spot(j int) float64 { return math.Exp(g.x(j)) }

// interpolate quadratic Lagrange interpolation at log-spot x.
func (g grid) interpolate(values []float64, x float64) float64 {
	j := int(math.Round((x - g.xMin) / g.dx))
	if j < 1 {
		j = 1
	}
	if j > g.n-2 {
		j = g.n - 2
	}
	x0, x1, x2 := g.x(j-1), g.x(j), g.x(j+1)
	l0 := (x - x1) * (x - x2) / ((x0 - x1) * (x0 - x2))
	l1 := (x - x0) * (x - x2) / ((x1 - x0) * (x1 - x2))
	l2 := (x - x0) * (x - x1) / ((x2 - x0) * (x2 - x1))
	return l0*values[j-1] + l1*values[j] + l2*values[j+1]
}
