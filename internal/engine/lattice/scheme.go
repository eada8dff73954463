package lattice

import (
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/pricebench/internal/domain"
)

// Scheme binomial tree construction.
type Scheme string

const (
	JarrowRudd   Scheme = "JR"
	CoxRossRubin Scheme = "CRR"
	AdditiveEQP  Scheme = "EQP"
	Trigeorgis   Scheme = "Trigeorgis"
	Tian         Scheme = "Tian"
	LeisenReimer Scheme = "LR"
	Joshi4       Scheme = "Joshi4"
)

var schemes = []Scheme{JarrowRudd, CoxRossRubin, AdditiveEQP, Trigeorgis, Tian, LeisenReimer, Joshi4}

// Schemes lists the supported identifiers.
func Schemes() []Scheme {
	return append([]Scheme(nil), schemes...)
}

// ParseScheme case-insensitive lookup of a scheme identifier.
func ParseScheme(s string) (Scheme, error) {
	for _, scheme := range schemes {
		if strings.EqualFold(strings.TrimSpace(s), string(scheme)) {
			return scheme, nil
		}
	}
	return "", errors.Wrapf(domain.ErrUnknownScheme, "binomial scheme %q", s)
}

// oddSteps reports whether the scheme rounds the step count up to an odd number.
func (s Scheme) oddSteps() bool {
	return s == LeisenReimer || s == Joshi4
}

// tree recombining binomial lattice: node (i, j) holds x0·exp(i·alpha + j·beta),
// j = 0..i, with constant up-branch probability pu.
type tree struct {
	steps int
	alpha float64
	beta  float64
	pu    float64
}

// treeInputs constant-coefficient data a tree is built from.
type treeInputs struct {
	spot     float64
	strike   float64
	drift    float64 // r - q - σ²/2
	variance float64 // σ²·T
	t        float64
}

func (s Scheme) build(in treeInputs, steps int) (tree, error) {
	if s.oddSteps() && steps%2 == 0 {
		steps++
	}
	n := float64(steps)
	dt := in.t / n
	drift := in.drift * dt
	variance := in.variance / n

	tr := tree{steps: steps}
	switch s {
	case JarrowRudd:
		up := math.Sqrt(variance)
		tr.alpha, tr.beta, tr.pu = drift-up, 2*up, 0.5
	case AdditiveEQP:
		up := -0.5*drift + 0.5*math.Sqrt(4*variance-3*drift*drift)
		tr.alpha, tr.beta, tr.pu = drift-up, 2*up, 0.5
	case CoxRossRubin, Trigeorgis:
		dx := math.Sqrt(variance)
		if s == Trigeorgis {
			dx = math.Sqrt(variance + drift*drift)
		}
		tr.alpha, tr.beta, tr.pu = -dx, 2*dx, 0.5+0.5*drift/dx
	case Tian:
		q := math.Exp(variance)
		r := math.Exp(drift) * math.Sqrt(q)
		root := math.Sqrt(q*q + 2*q - 3)
		up := 0.5 * r * q * (q + 1 + root)
		down := 0.5 * r * q * (q + 1 - root)
		tr.pu = (r - down) / (up - down)
		tr.alpha, tr.beta = math.Log(down), math.Log(up/down)
	case LeisenReimer, Joshi4:
		stdDev := math.Sqrt(in.variance)
		growth := math.Exp(drift + 0.5*variance)
		d2 := (math.Log(in.spot/in.strike) + drift*n) / stdDev

		var pu, pdash float64
		if s == LeisenReimer {
			pu, pdash = peizerPratt2(d2, steps), peizerPratt2(d2+stdDev, steps)
		} else {
			k := float64(steps-1) / 2
			pu, pdash = joshiUpProbability(k, d2), joshiUpProbability(k, d2+stdDev)
		}
		up := growth * pdash / pu
		down := (growth - pu*up) / (1 - pu)
		if !(down > 0) {
			return tree{}, domain.NewNumericalError(name, "%s tree has non-positive down move %v", s, down)
		}
		tr.pu = pu
		tr.alpha, tr.beta = math.Log(down), math.Log(up/down)
	default:
		return tree{}, errors.Wrapf(domain.ErrUnknownScheme, "binomial scheme %q", string(s))
	}

	if math.IsNaN(tr.pu) || tr.pu < 0 || tr.pu > 1 || !(tr.beta > 0) {
		return tree{}, domain.NewNumericalError(name, "%s tree has branch probability %v outside [0, 1]", s, tr.pu)
	}
	return tr, nil
}

// peizerPratt2 Peizer-Pratt method 2 inversion for an odd number of steps.
func peizerPratt2(z float64, n int) float64 {
	m := float64(n)
	r := z / (m + 1.0/3.0 + 0.1/(m+1))
	r = math.Exp(-r * r * (m + 1.0/6.0))
	return 0.5 + math.Copysign(1, z)*math.Sqrt(0.25*(1-r))
}

func joshiUpProbability(k, d float64) float64 {
	a := d / math.Sqrt(8)
	a2 := a * a
	a3 := a * a2
	a5 := a3 * a2
	a7 := a5 * a2
	beta := -0.375*a - a3
	gamma := (5.0/6.0)*a5 + (13.0/12.0)*a3 + (25.0/128.0)*a
	delta := -0.1025*a - 0.9285*a3 - 1.43*a5 - 0.5*a7

	rk := math.Sqrt(k)
	return 0.5 + a/rk + beta/(k*rk) + gamma/(k*k*rk) + delta/(k*k*k*rk)
}
