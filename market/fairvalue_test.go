package market

import (
	"math"
	"testing"
)

func TestFairValueSeedsOnFirstObservation(t *testing.T) {
	fv := NewFairValue(0.1)

	if fv.Primed() {
		t.Fatal("expected unprimed tracker before first observation")
	}
	if got := fv.Observe(100.0); got != 100.0 {
		t.Errorf("first Observe = %f, want 100.0", got)
	}
	if !fv.Primed() {
		t.Error("expected primed tracker after first observation")
	}
}

func TestFairValueEMA(t *testing.T) {
	fv := NewFairValue(0.1)
	fv.Observe(100.0)
	got := fv.Observe(110.0)

	// 0.1*110 + 0.9*100 = 101
	if math.Abs(got-101.0) > 1e-9 {
		t.Errorf("Observe = %f, want 101.0", got)
	}
	if fv.Value() != got {
		t.Errorf("Value() = %f, want %f", fv.Value(), got)
	}
}

func TestFairValueAlphaFallback(t *testing.T) {
	fv := NewFairValue(-1)
	fv.Observe(100.0)
	got := fv.Observe(200.0)

	// fallback alpha 0.05: 0.05*200 + 0.95*100 = 105
	if math.Abs(got-105.0) > 1e-9 {
		t.Errorf("Observe with fallback alpha = %f, want 105.0", got)
	}
}
