package strategy

import (
	"testing"

	"hft-pipeline-go/config"
)

func TestNew_MarketMaking(t *testing.T) {
	cfg := config.DefaultPipeline("XYZ")
	cfg.Strategy.Type = config.StrategyMarketMaking

	s, err := New(&cfg)
	if err != nil {
		t.Fatalf("failed to create market making strategy: %v", err)
	}
	if _, ok := s.(*MarketMaker); !ok {
		t.Fatalf("expected *MarketMaker, got %T", s)
	}
}

func TestNew_Arbitrage(t *testing.T) {
	cfg := config.DefaultPipeline("XYZ")
	cfg.Strategy.Type = config.StrategyArbitrage

	s, err := New(&cfg)
	if err != nil {
		t.Fatalf("failed to create arbitrage strategy: %v", err)
	}
	if _, ok := s.(*Arbitrage); !ok {
		t.Fatalf("expected *Arbitrage, got %T", s)
	}
}

func TestNew_UnknownType(t *testing.T) {
	cfg := config.DefaultPipeline("XYZ")
	cfg.Strategy.Type = "momentum"

	if _, err := New(&cfg); err == nil {
		t.Fatal("expected error for unknown strategy type")
	}
}
