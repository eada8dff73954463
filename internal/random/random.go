// Package random provides the Gaussian sequences Monte Carlo engines draw from.
package random

import (
	"gonum.org/v1/gonum/mathext/prng"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vadiminshakov/pricebench/internal/domain"
)

// Gaussian generates vectors of standard normal deviates.
type Gaussian interface {
	Dimension() int
	// Next fills dst, whose length must equal Dimension.
	Next(dst []float64)
}

// PseudoRandom independent normals from a Mersenne Twister.
type PseudoRandom struct {
	dim    int
	normal distuv.Normal
}

// NewGaussian returns a pseudorandom generator. Equal seeds give equal sequences.
func NewGaussian(seed uint64, dim int) (*PseudoRandom, error) {
	if dim < 1 {
		return nil, domain.InvalidConfigf("gaussian dimension must be positive, got %d", dim)
	}
	src := prng.NewMT19937()
	src.Seed(seed)
	return &PseudoRandom{
		dim:    dim,
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}, nil
}

func (g *PseudoRandom) Dimension() int { return g.dim }

func (g *PseudoRandom) Next(dst []float64) {
	for i := range dst {
		dst[i] = g.normal.Rand()
	}
}

// SobolGaussian low-discrepancy normals: Sobol points mapped through the
// inverse normal distribution.
type SobolGaussian struct {
	seq     *Sobol
	uniform []float64
}

// NewSobolGaussian returns a Sobol-based generator of the given dimension.
func NewSobolGaussian(dim int) (*SobolGaussian, error) {
	seq, err := NewSobol(dim)
	if err != nil {
		return nil, err
	}
	return &SobolGaussian{seq: seq, uniform: make([]float64, dim)}, nil
}

func (g *SobolGaussian) Dimension() int { return g.seq.Dimension() }

func (g *SobolGaussian) Next(dst []float64) {
	g.seq.Next(g.uniform)
	for i := range dst {
		dst[i] = distuv.UnitNormal.Quantile(g.uniform[i])
	}
}
