package posttrade

import (
	"math"
	"testing"
	"time"

	"hft-pipeline-go/order"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func mkFill(side order.Side, price float64, at time.Time) order.Fill {
	return order.Fill{Symbol: "XYZUSD", Side: side, Quantity: 10, Price: price, Timestamp: at}
}

func almostEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestAnalyzer_MarksAtEventTimeHorizons(t *testing.T) {
	a := NewAnalyzer()
	a.OnFill(mkFill(order.Buy, 100, t0))

	// 窗口未到的报价不产生标记
	a.OnQuote(105, t0.Add(500*time.Millisecond))
	if s := a.Stats(); s.AnalyzedFills != 0 || s.TotalFills != 1 {
		t.Fatalf("premature mark: %+v", s)
	}

	a.OnQuote(102, t0.Add(1*time.Second)) // 短窗口打点
	a.OnQuote(103, t0.Add(5*time.Second)) // 长窗口打点，完成

	s := a.Stats()
	if s.AnalyzedFills != 1 {
		t.Fatalf("analyzed = %d, want 1", s.AnalyzedFills)
	}
	if !almostEq(s.AvgMarkout1s, 0.02) {
		t.Errorf("markout1s = %v, want 0.02", s.AvgMarkout1s)
	}
	if !almostEq(s.AvgMarkout5s, 0.03) {
		t.Errorf("markout5s = %v, want 0.03", s.AvgMarkout5s)
	}
	if s.AdverseSelectionRate != 0 {
		t.Errorf("favorable fill counted adverse: %v", s.AdverseSelectionRate)
	}
}

func TestAnalyzer_BuyIntoFallingMarketIsAdverse(t *testing.T) {
	a := NewAnalyzer()
	a.OnFill(mkFill(order.Buy, 100, t0))
	a.OnQuote(99, t0.Add(time.Second))
	a.OnQuote(98, t0.Add(5*time.Second))

	s := a.Stats()
	if s.AdverseSelectionRate != 1 {
		t.Errorf("adverse rate = %v, want 1", s.AdverseSelectionRate)
	}
	if !almostEq(s.AvgMarkout1s, -0.01) {
		t.Errorf("markout1s = %v, want -0.01", s.AvgMarkout1s)
	}
}

func TestAnalyzer_SellSideSignConvention(t *testing.T) {
	a := NewAnalyzer()
	a.OnFill(mkFill(order.Sell, 100, t0))
	// 卖出后价格下跌对卖方有利
	a.OnQuote(99, t0.Add(time.Second))
	a.OnQuote(99, t0.Add(5*time.Second))

	s := a.Stats()
	if !almostEq(s.AvgMarkout1s, 0.01) {
		t.Errorf("markout1s = %v, want 0.01", s.AvgMarkout1s)
	}
	if s.AdverseSelectionRate != 0 {
		t.Errorf("favorable sell counted adverse")
	}
}

func TestAnalyzer_SingleLateQuoteMarksBothWindows(t *testing.T) {
	a := NewAnalyzer()
	a.OnFill(mkFill(order.Buy, 100, t0))
	// 行情间隔超过长窗口：同一笔报价补齐两个标记
	a.OnQuote(101, t0.Add(6*time.Second))

	s := a.Stats()
	if s.AnalyzedFills != 1 {
		t.Fatalf("analyzed = %d, want 1", s.AnalyzedFills)
	}
	if !almostEq(s.AvgMarkout1s, 0.01) || !almostEq(s.AvgMarkout5s, 0.01) {
		t.Errorf("markouts = %v/%v, want 0.01/0.01", s.AvgMarkout1s, s.AvgMarkout5s)
	}
}

func TestAnalyzer_MixedFillsAggregate(t *testing.T) {
	a := NewAnalyzer()
	a.OnFill(mkFill(order.Buy, 100, t0))
	a.OnFill(mkFill(order.Sell, 100, t0))
	a.OnQuote(101, t0.Add(time.Second))
	a.OnQuote(102, t0.Add(5*time.Second))

	s := a.Stats()
	if s.TotalFills != 2 || s.AnalyzedFills != 2 {
		t.Fatalf("fills = %d/%d, want 2/2", s.TotalFills, s.AnalyzedFills)
	}
	// 买单 +1%，卖单 -1%：均值归零，逆向占比一半
	if !almostEq(s.AvgMarkout1s, 0) {
		t.Errorf("markout1s = %v, want 0", s.AvgMarkout1s)
	}
	if s.AdverseSelectionRate != 0.5 {
		t.Errorf("adverse rate = %v, want 0.5", s.AdverseSelectionRate)
	}
}

func TestAnalyzer_EmptyStats(t *testing.T) {
	a := NewAnalyzer()
	s := a.Stats()
	if s.TotalFills != 0 || s.AnalyzedFills != 0 || s.AdverseSelectionRate != 0 {
		t.Errorf("empty analyzer stats not zero: %+v", s)
	}
}
