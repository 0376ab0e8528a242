package market

import "testing"

func TestVolatilityCalculator_ConstantPrices(t *testing.T) {
	calculator := NewVolatilityCalculator(10)

	for i := 0; i < 5; i++ {
		calculator.AddPrice(100.0)
	}

	if vol := calculator.RealizedVol(); vol != 0.0 {
		t.Errorf("Expected zero volatility for constant prices, got %f", vol)
	}
}

func TestVolatilityCalculator_MovingPrices(t *testing.T) {
	calculator := NewVolatilityCalculator(10)

	prices := []float64{100, 102, 99, 103, 98}
	for _, p := range prices {
		calculator.AddPrice(p)
	}

	vol := calculator.RealizedVol()
	if vol <= 0 {
		t.Errorf("Expected positive volatility for moving prices, got %f", vol)
	}
}

func TestVolatilityCalculator_WindowSize(t *testing.T) {
	calculator := NewVolatilityCalculator(3)

	for i := 0; i < 5; i++ {
		calculator.AddPrice(100.0 + float64(i))
	}

	// Should only keep the last 3 prices
	if len(calculator.prices) != 3 {
		t.Errorf("Expected window size of 3, got %d", len(calculator.prices))
	}
	if calculator.prices[0] != 102.0 {
		t.Errorf("Expected oldest retained price to be 102.0, got %f", calculator.prices[0])
	}
}

func TestVolatilityCalculator_IsReady(t *testing.T) {
	calculator := NewVolatilityCalculator(5)

	if calculator.IsReady() {
		t.Error("Expected not ready with no prices")
	}
	calculator.AddPrice(100.0)
	if calculator.IsReady() {
		t.Error("Expected not ready with one price")
	}
	calculator.AddPrice(100.5)
	if !calculator.IsReady() {
		t.Error("Expected ready with two prices")
	}
}
