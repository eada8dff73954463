package montecarlo

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// statistics running mean and variance merged batch by batch.
type statistics struct {
	n    int
	mean float64
	m2   float64
}

// addBatch merges the sample moments of xs.
func (s *statistics) addBatch(xs []float64) {
	if len(xs) == 0 {
		return
	}
	mean, variance := stat.MeanVariance(xs, nil)
	m := len(xs)
	m2 := 0.0
	if m > 1 {
		m2 = variance * float64(m-1)
	}
	if s.n == 0 {
		s.n, s.mean, s.m2 = m, mean, m2
		return
	}
	total := s.n + m
	delta := mean - s.mean
	s.mean += delta * float64(m) / float64(total)
	s.m2 += m2 + delta*delta*float64(s.n)*float64(m)/float64(total)
	s.n = total
}

func (s *statistics) samples() int { return s.n }

// errorEstimate standard error of the mean.
func (s *statistics) errorEstimate() float64 {
	if s.n < 2 {
		return math.Inf(1)
	}
	return math.Sqrt(s.m2 / float64(s.n-1) / float64(s.n))
}
