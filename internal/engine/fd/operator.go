package fd

import (
	"math"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/process"
)

// operator constant-coefficient discretisation of
// L = σ²/2·∂xx + (r - q - σ²/2)·∂x - r on interior nodes.
type operator struct {
	lower, diag, upper float64
}

func newOperator(p process.FlatParams, dx float64) operator {
	a := 0.5 * p.Vol * p.Vol / (dx * dx)
	b := p.Drift() / (2 * dx)
	return operator{
		lower: a - b,
		diag:  -2*a - p.R,
		upper: a + b,
	}
}

// stepper advances one time step of (I - θ·dt·L)·V' = (I + (1-θ)·dt·L)·V.
// θ = 1 is fully implicit, θ = 0.5 is Crank-Nicolson.
type stepper struct {
	op    operator
	dt    float64
	theta float64

	rhs, c, d []float64
}

func newStepper(op operator, dt, theta float64) *stepper {
	return &stepper{op: op, dt: dt, theta: theta}
}

func (s *stepper) step(v []float64, lower, upper float64) error {
	n := len(v)
	if len(s.rhs) != n {
		s.rhs = make([]float64, n)
		s.c = make([]float64, n)
		s.d = make([]float64, n)
	}

	explicit := (1 - s.theta) * s.dt
	s.rhs[0], s.rhs[n-1] = lower, upper
	for j := 1; j < n-1; j++ {
		s.rhs[j] = v[j] + explicit*(s.op.lower*v[j-1]+s.op.diag*v[j]+s.op.upper*v[j+1])
	}

	// tridiagonal system with identity boundary rows
	implicit := s.theta * s.dt
	a := -implicit * s.op.lower
	b := 1 - implicit*s.op.diag
	c := -implicit * s.op.upper
	return s.solve(v, a, b, c)
}

// solve Thomas algorithm; boundary rows are [1] x = rhs.
func (s *stepper) solve(out []float64, a, b, c float64) error {
	n := len(out)
	s.c[0] = 0
	s.d[0] = s.rhs[0]
	for j := 1; j < n-1; j++ {
		den := b - a*s.c[j-1]
		if den == 0 || math.IsNaN(den) {
			return domain.NewNumericalError(name, "singular tridiagonal system at node %d", j)
		}
		s.c[j] = c / den
		s.d[j] = (s.rhs[j] - a*s.d[j-1]) / den
	}
	out[n-1] = s.rhs[n-1]
	for j := n - 2; j >= 1; j-- {
		out[j] = s.d[j] - s.c[j]*out[j+1]
	}
	out[0] = s.rhs[0]
	return nil
}
