package heston

import (
	"context"
	"math"
	"math/cmplx"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/engine"
	"github.com/vadiminshakov/pricebench/internal/process"
)

const cosName = "heston-cos"

// COSConfig Fourier-cosine expansion settings.
type COSConfig struct {
	// L truncation range in standard deviations of ln(S_T), default 16.
	L float64
	// N number of cosine terms, default 200.
	N int
}

// DefaultCOSConfig returns the default settings.
func DefaultCOSConfig() COSConfig {
	return COSConfig{L: 16, N: 200}
}

func (c COSConfig) withDefaults() COSConfig {
	if c.L == 0 {
		c.L = 16
	}
	if c.N == 0 {
		c.N = 200
	}
	return c
}

func (c COSConfig) validate() error {
	if !(c.L > 0) {
		return domain.InvalidConfigf("%s: truncation range must be positive, got %v", cosName, c.L)
	}
	if c.N < 1 {
		return domain.InvalidConfigf("%s: number of terms must be positive, got %d", cosName, c.N)
	}
	return nil
}

// COSEngine Heston engine based on the Fang-Oosterlee cosine expansion.
type COSEngine struct {
	engine.Binding
	process *process.Heston
	conf    COSConfig
}

// NewCOSEngine zero fields in conf take their defaults.
func NewCOSEngine(p *process.Heston, conf COSConfig) (*COSEngine, error) {
	if p == nil {
		return nil, domain.InvalidConfigf("%s: nil process", cosName)
	}
	conf = conf.withDefaults()
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return &COSEngine{process: p, conf: conf}, nil
}

func (e *COSEngine) Name() string      { return cosName }
func (e *COSEngine) Config() COSConfig { return e.conf }

func (e *COSEngine) Bind(args engine.Arguments) error {
	if err := bindable(cosName, args); err != nil {
		return err
	}
	e.Store(args)
	return nil
}

// Refined doubles the number of terms.
func (e *COSEngine) Refined() (engine.Engine, error) {
	conf := e.conf
	conf.N *= 2
	return NewCOSEngine(e.process, conf)
}

func (e *COSEngine) Calculate(ctx context.Context) (engine.Result, error) {
	args, err := e.Arguments()
	if err != nil {
		return engine.Result{}, err
	}
	if err := engine.CheckContext(ctx, cosName); err != nil {
		return engine.Result{}, err
	}
	in, err := loadInputs(e.process, args)
	if err != nil {
		return engine.Result{}, err
	}
	if in.t <= 0 {
		return engine.NewResult(in.intrinsic()), nil
	}

	cf := characteristic{p: e.process.Params(), t: in.t}
	c1, c2 := cf.cumulants()

	// y = ln(S_T/K) = x0 + X
	x0 := math.Log(in.forward / in.strike)
	a := x0 + c1 - e.conf.L*math.Sqrt(c2)
	b := x0 + c1 + e.conf.L*math.Sqrt(c2)
	width := b - a

	var sum float64
	for k := 0; k < e.conf.N; k++ {
		u := float64(k) * math.Pi / width
		var coeff float64
		if in.optionType == domain.Call {
			lo := math.Max(a, 0)
			if lo < b {
				coeff = chi(u, a, lo, b) - psi(k, u, a, lo, b)
			}
		} else {
			hi := math.Min(b, 0)
			if a < hi {
				coeff = psi(k, u, a, a, hi) - chi(u, a, a, hi)
			}
		}
		z := complex(u, 0)
		term := real(cmplx.Exp(cf.logPhi(z)+1i*z*complex(x0, 0)-1i*z*complex(a, 0))) * coeff
		if k == 0 {
			term *= 0.5
		}
		sum += term
	}
	value := in.discount * in.strike * 2 / width * sum

	if err := engine.CheckFinite(cosName, value); err != nil {
		return engine.Result{}, err
	}
	return engine.NewResult(value), nil
}

// chi cosine coefficients of e^y on [c, d] within the expansion range starting at a.
func chi(u, a, c, d float64) float64 {
	ed, ec := math.Exp(d), math.Exp(c)
	cd, cc := math.Cos(u*(d-a)), math.Cos(u*(c-a))
	sd, sc := math.Sin(u*(d-a)), math.Sin(u*(c-a))
	return (cd*ed - cc*ec + u*sd*ed - u*sc*ec) / (1 + u*u)
}

// psi cosine coefficients of 1 on [c, d].
func psi(k int, u, a, c, d float64) float64 {
	if k == 0 {
		return d - c
	}
	return (math.Sin(u*(d-a)) - math.Sin(u*(c-a))) / u
}
