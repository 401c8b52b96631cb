// Package stats accumulates per-level trial metrics and derives confidence intervals.
package stats

import "math"

// Average keeps a running count, mean and variance of a sample.
// The zero value is ready to use.
type Average struct {
	count int
	mean  float64
	m2    float64
	min   float64
	max   float64
}

// Update adds x to the sample.
func (a *Average) Update(x float64) {
	a.count++
	if a.count == 1 {
		a.min, a.max = x, x
	} else {
		a.min = math.Min(a.min, x)
		a.max = math.Max(a.max, x)
	}
	delta := x - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (x - a.mean)
}

// Count returns the number of samples.
func (a *Average) Count() int { return a.count }

// Mean returns the sample mean, 0 when empty.
func (a *Average) Mean() float64 { return a.mean }

// Var returns the unbiased sample variance. It is 0 with fewer than two samples.
func (a *Average) Var() float64 {
	if a.count < 2 {
		return 0
	}
	return a.m2 / float64(a.count-1)
}

// Min returns the smallest sample seen.
func (a *Average) Min() float64 { return a.min }

// Max returns the largest sample seen.
func (a *Average) Max() float64 { return a.max }

// Reset clears the accumulator.
func (a *Average) Reset() { *a = Average{} }

// ConfidenceHalfWidth returns t*sqrt(variance/n), the half-width of the
// confidence interval around a mean of n samples.
func ConfidenceHalfWidth(t, variance float64, n int) float64 {
	if n <= 0 || variance <= 0 {
		return 0
	}
	return t * math.Sqrt(variance/float64(n))
}
