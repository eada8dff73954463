package heston

import (
	"math"
	"math/cmplx"

	"github.com/vadiminshakov/pricebench/internal/process"
)

// below this vol-of-vol the variance path is treated as deterministic
const sigmaFloor = 1e-10

// characteristic log of E[exp(iu·X)] for X = ln(S_T/F_T) under Heston,
// in Gatheral's formulation without the branch-cut discontinuity.
type characteristic struct {
	p process.HestonParams
	t float64
}

// integratedVariance E[∫v dt] over [0, t].
func (c characteristic) integratedVariance() float64 {
	p := c.p
	return p.Theta*c.t + (p.V0-p.Theta)*(1-math.Exp(-p.Kappa*c.t))/p.Kappa
}

func (c characteristic) logPhi(u complex128) complex128 {
	p := c.p
	a := u * (u + 1i)
	if p.Sigma < sigmaFloor {
		return -0.5 * a * complex(c.integratedVariance(), 0)
	}

	s2 := complex(p.Sigma*p.Sigma, 0)
	beta := complex(p.Kappa, 0) - complex(p.Rho*p.Sigma, 0)*1i*u
	d := cmplx.Sqrt(beta*beta + s2*a)
	if real(d) < 0 {
		d = -d
	}
	// β-d rewritten to avoid cancellation for small σ
	betaMinusD := -s2 * a / (beta + d)
	g := betaMinusD / (beta + d)
	e := cmplx.Exp(-d * complex(c.t, 0))

	dTerm := betaMinusD / s2 * (1 - e) / (1 - g*e)
	logRatio := log1p(-g*e) - log1p(-g)
	cTerm := complex(p.Kappa*p.Theta, 0) * (betaMinusD*complex(c.t, 0) - 2*logRatio) / s2
	return cTerm + dTerm*complex(p.V0, 0)
}

func (c characteristic) phi(u complex128) complex128 {
	return cmplx.Exp(c.logPhi(u))
}

// cumulants first two cumulants of X by central differences of logPhi at zero.
func (c characteristic) cumulants() (c1, c2 float64) {
	const h = 1e-3
	plus := c.logPhi(complex(h, 0))
	minus := c.logPhi(complex(-h, 0))
	c1 = imag(plus-minus) / (2 * h)
	c2 = -real(plus+minus) / (h * h)
	if !(c2 > 0) || math.IsInf(c2, 0) {
		c2 = c.integratedVariance()
	}
	return c1, c2
}

// upperLimit truncation of the Fourier integral where |phi| has decayed to
// roughly exp(-20), bounded by both the Gaussian and the exponential tail.
func (c characteristic) upperLimit() float64 {
	const (
		minLimit = 10.0
		maxLimit = 5000.0
	)
	limit := minLimit
	if w := c.integratedVariance(); w > 0 {
		limit = math.Max(limit, math.Sqrt(72/w))
	} else {
		limit = maxLimit
	}
	if c.p.Sigma >= sigmaFloor {
		decay := (c.p.V0 + c.p.Kappa*c.p.Theta*c.t) * math.Sqrt(1-c.p.Rho*c.p.Rho) / c.p.Sigma
		if decay > 0 {
			limit = math.Max(limit, 20/decay)
		} else {
			limit = maxLimit
		}
	}
	return math.Min(limit, maxLimit)
}

func log1p(z complex128) complex128 {
	if cmplx.Abs(z) < 1e-4 {
		z2 := z * z
		return z - z2/2 + z2*z/3 - z2*z2/4
	}
	return cmplx.Log(1 + z)
}
