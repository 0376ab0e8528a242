package inventory

import (
	"math"
	"testing"
)

func TestTrackerWeightedCost(t *testing.T) {
	var tr Tracker
	tr.Apply(1, 100)
	if tr.NetExposure() != 1 {
		t.Fatalf("expected net 1")
	}
	if tr.AvgCost() != 100 {
		t.Fatalf("expected cost 100 got %f", tr.AvgCost())
	}
	tr.Apply(1, 110) // cost should move to 105
	if math.Abs(tr.AvgCost()-105) > 1e-9 {
		t.Fatalf("unexpected avg cost %f", tr.AvgCost())
	}
}

func TestTrackerRealizedOnReduce(t *testing.T) {
	var tr Tracker
	tr.Apply(10, 100)

	realized := tr.Apply(-4, 110)
	if math.Abs(realized-40) > 1e-9 {
		t.Fatalf("expected realized 40 got %f", realized)
	}
	if tr.NetExposure() != 6 {
		t.Fatalf("expected net 6 got %f", tr.NetExposure())
	}
	// 减仓不改变剩余持仓成本
	if tr.AvgCost() != 100 {
		t.Fatalf("expected cost 100 got %f", tr.AvgCost())
	}
}

func TestTrackerShortSide(t *testing.T) {
	var tr Tracker
	tr.Apply(-10, 100)
	if tr.AvgCost() != 100 {
		t.Fatalf("expected short cost 100 got %f", tr.AvgCost())
	}

	// 空头 90 买回 4 手，每手赚 10
	realized := tr.Apply(4, 90)
	if math.Abs(realized-40) > 1e-9 {
		t.Fatalf("expected realized 40 got %f", realized)
	}
	if tr.NetExposure() != -6 {
		t.Fatalf("expected net -6 got %f", tr.NetExposure())
	}
}

func TestTrackerFlipThroughZero(t *testing.T) {
	var tr Tracker
	tr.Apply(10, 100)

	// 卖出 25：平 10 手（每手赚 5），反手开空 15 手 @105
	realized := tr.Apply(-25, 105)
	if math.Abs(realized-50) > 1e-9 {
		t.Fatalf("expected realized 50 got %f", realized)
	}
	if tr.NetExposure() != -15 {
		t.Fatalf("expected net -15 got %f", tr.NetExposure())
	}
	if tr.AvgCost() != 105 {
		t.Fatalf("expected cost 105 got %f", tr.AvgCost())
	}
}

func TestTrackerFlatResetsCost(t *testing.T) {
	var tr Tracker
	tr.Apply(10, 100)
	tr.Apply(-10, 105)

	if tr.NetExposure() != 0 {
		t.Fatalf("expected flat")
	}
	if tr.AvgCost() != 0 {
		t.Fatalf("expected cost reset got %f", tr.AvgCost())
	}
	if math.Abs(tr.Realized()-50) > 1e-9 {
		t.Fatalf("expected cumulative realized 50 got %f", tr.Realized())
	}
}

func TestTrackerValuation(t *testing.T) {
	var tr Tracker
	tr.Apply(10, 100)

	net, pnl := tr.Valuation(103)
	if net != 10 {
		t.Fatalf("expected net 10 got %f", net)
	}
	if math.Abs(pnl-30) > 1e-9 {
		t.Fatalf("expected unrealized 30 got %f", pnl)
	}
}
