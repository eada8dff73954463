package random

import (
	"math/bits"

	"github.com/vadiminshakov/pricebench/internal/domain"
)

const (
	sobolBits = 32
	// MaxSobolDimension highest dimension with built-in direction numbers.
	MaxSobolDimension = 16
)

// Joe-Kuo direction numbers: degree s, coefficients a and initial m values
// for dimensions 2..16. The first dimension is the van der Corput sequence.
var directionNumbers = []struct {
	s int
	a uint32
	m []uint32
}{
	{1, 0, []uint32{1}},
	{2, 1, []uint32{1, 3}},
	{3, 1, []uint32{1, 3, 1}},
	{3, 2, []uint32{1, 1, 1}},
	{4, 1, []uint32{1, 1, 3, 3}},
	{4, 4, []uint32{1, 3, 5, 13}},
	{5, 2, []uint32{1, 1, 5, 5, 17}},
	{5, 4, []uint32{1, 1, 5, 5, 5}},
	{5, 7, []uint32{1, 1, 7, 11, 19}},
	{5, 11, []uint32{1, 1, 5, 1, 1}},
	{5, 13, []uint32{1, 1, 1, 3, 11}},
	{5, 14, []uint32{1, 3, 5, 5, 31}},
	{6, 1, []uint32{1, 3, 3, 9, 7, 49}},
	{6, 13, []uint32{1, 1, 1, 15, 21, 21}},
	{6, 16, []uint32{1, 3, 1, 13, 27, 49}},
}

// Sobol uniform low-discrepancy sequence in gray-code order. The origin is
// skipped, so every coordinate lies strictly inside (0, 1).
type Sobol struct {
	dim        int
	directions [][sobolBits]uint32
	state      []uint32
	index      uint32
}

// NewSobol returns a sequence of the given dimension, at most MaxSobolDimension.
func NewSobol(dim int) (*Sobol, error) {
	if dim < 1 || dim > MaxSobolDimension {
		return nil, domain.InvalidConfigf("sobol dimension must lie in [1, %d], got %d", MaxSobolDimension, dim)
	}

	directions := make([][sobolBits]uint32, dim)
	for k := 0; k < sobolBits; k++ {
		directions[0][k] = 1 << (sobolBits - 1 - k)
	}
	for d := 1; d < dim; d++ {
		dn := directionNumbers[d-1]
		v := &directions[d]
		for k := 0; k < dn.s && k < sobolBits; k++ {
			v[k] = dn.m[k] << (sobolBits - 1 - k)
		}
		for k := dn.s; k < sobolBits; k++ {
			v[k] = v[k-dn.s] ^ (v[k-dn.s] >> dn.s)
			for j := 1; j < dn.s; j++ {
				if (dn.a>>(dn.s-1-j))&1 == 1 {
					v[k] ^= v[k-j]
				}
			}
		}
	}
	return &Sobol{dim: dim, directions: directions, state: make([]uint32, dim)}, nil
}

func (s *Sobol) Dimension() int { return s.dim }

// Next fills dst with the next point.
func (s *Sobol) Next(dst []float64) {
	// bit that flips between gray codes of index and index+1
	c := bits.TrailingZeros32(^s.index)
	s.index++
	const scale = 1.0 / (1 << sobolBits)
	for d := range s.state {
		s.state[d] ^= s.directions[d][c]
		if d < len(dst) {
			dst[d] = float64(s.state[d]) * scale
		}
	}
}
