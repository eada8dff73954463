package random

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/pricebench/internal/domain"
)

func TestSobol_FirstPoints(t *testing.T) {
	s, err := NewSobol(2)
	require.NoError(t, err)

	expected := [][]float64{
		{0.5, 0.5},
		{0.75, 0.25},
		{0.25, 0.75},
		{0.375, 0.375},
	}
	point := make([]float64, 2)
	for i, want := range expected {
		s.Next(point)
		assert.Equal(t, want, point, "point %d", i+1)
	}
}

func TestSobol_Coverage(t *testing.T) {
	s, err := NewSobol(MaxSobolDimension)
	require.NoError(t, err)

	const n = 1 << 12
	sums := make([]float64, MaxSobolDimension)
	point := make([]float64, MaxSobolDimension)
	for i := 0; i < n; i++ {
		s.Next(point)
		for d, x := range point {
			require.Greater(t, x, 0.0)
			require.Less(t, x, 1.0)
			sums[d] += x
		}
	}
	for d, sum := range sums {
		assert.InDelta(t, 0.5, sum/n, 1e-3, "dimension %d", d+1)
	}
}

func TestNewSobol_Dimension(t *testing.T) {
	_, err := NewSobol(0)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	_, err = NewSobol(MaxSobolDimension + 1)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestGaussian_Reproducible(t *testing.T) {
	a, err := NewGaussian(42, 3)
	require.NoError(t, err)
	b, err := NewGaussian(42, 3)
	require.NoError(t, err)
	c, err := NewGaussian(43, 3)
	require.NoError(t, err)

	x, y, z := make([]float64, 3), make([]float64, 3), make([]float64, 3)
	a.Next(x)
	b.Next(y)
	c.Next(z)
	assert.Equal(t, x, y)
	assert.NotEqual(t, x, z)

	_, err = NewGaussian(1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestGaussian_Moments(t *testing.T) {
	generators := map[string]Gaussian{}
	pseudo, err := NewGaussian(7, 1)
	require.NoError(t, err)
	generators["pseudorandom"] = pseudo
	sobol, err := NewSobolGaussian(1)
	require.NoError(t, err)
	generators["sobol"] = sobol

	for name, g := range generators {
		t.Run(name, func(t *testing.T) {
			const n = 1 << 14
			var sum, sumSq float64
			x := make([]float64, 1)
			for i := 0; i < n; i++ {
				g.Next(x)
				require.False(t, math.IsInf(x[0], 0))
				sum += x[0]
				sumSq += x[0] * x[0]
			}
			mean := sum / n
			assert.InDelta(t, 0, mean, 0.05)
			assert.InDelta(t, 1, sumSq/n-mean*mean, 0.05)
		})
	}
}
