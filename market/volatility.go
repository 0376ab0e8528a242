package market

import "math"

// VolatilityCalculator calculates realized volatility from a sliding
// window of mid prices.
type VolatilityCalculator struct {
	windowSize int
	prices     []float64
}

// NewVolatilityCalculator creates a new volatility calculator
func NewVolatilityCalculator(windowSize int) *VolatilityCalculator {
	if windowSize < 2 {
		windowSize = 2
	}
	return &VolatilityCalculator{
		windowSize: windowSize,
		prices:     make([]float64, 0, windowSize),
	}
}

// AddPrice adds a new mid price to the window
func (v *VolatilityCalculator) AddPrice(mid float64) {
	v.prices = append(v.prices, mid)
	if len(v.prices) > v.windowSize {
		v.prices = v.prices[1:]
	}
}

// RealizedVol returns the standard deviation of log returns over the
// current window. It is a per-window figure, not annualized; strategies
// scale it through their own gain parameter.
func (v *VolatilityCalculator) RealizedVol() float64 {
	if len(v.prices) < 2 {
		return 0
	}

	logReturns := make([]float64, 0, len(v.prices)-1)
	for i := 1; i < len(v.prices); i++ {
		if v.prices[i-1] > 0 {
			logReturns = append(logReturns, math.Log(v.prices[i]/v.prices[i-1]))
		}
	}
	if len(logReturns) < 1 {
		return 0
	}

	sum := 0.0
	for _, r := range logReturns {
		sum += r
	}
	mean := sum / float64(len(logReturns))

	sumSquaredDiff := 0.0
	for _, r := range logReturns {
		diff := r - mean
		sumSquaredDiff += diff * diff
	}

	return math.Sqrt(sumSquaredDiff / float64(len(logReturns)))
}

// IsReady checks if we have enough data to calculate volatility
func (v *VolatilityCalculator) IsReady() bool {
	return len(v.prices) >= 2
}
