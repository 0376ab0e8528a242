package market

// FairValue tracks an exponentially-weighted moving average of observed
// mids, used as the mispricing reference for arbitrage signals.
type FairValue struct {
	alpha  float64
	value  float64
	primed bool
}

// NewFairValue creates a fair value tracker. Alpha is the EMA weight of the
// newest observation; values outside (0, 1] fall back to 0.05.
func NewFairValue(alpha float64) *FairValue {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.05
	}
	return &FairValue{alpha: alpha}
}

// Observe folds a new mid into the average and returns the updated value.
// The first observation seeds the average directly.
func (f *FairValue) Observe(mid float64) float64 {
	if !f.primed {
		f.value = mid
		f.primed = true
		return f.value
	}
	f.value = f.alpha*mid + (1-f.alpha)*f.value
	return f.value
}

// Value returns the current fair value estimate.
func (f *FairValue) Value() float64 {
	return f.value
}

// Primed reports whether at least one observation has been folded in.
func (f *FairValue) Primed() bool {
	return f.primed
}
