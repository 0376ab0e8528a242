package inventory

import (
	"math"
	"sync"
)

// Tracker 维护净仓位与加权平均成本，并在减仓时结算已实现盈亏。
type Tracker struct {
	mu       sync.RWMutex
	net      float64
	cost     float64
	realized float64
}

// Apply 按成交调整仓位并返回本笔产生的已实现盈亏。
// 加仓按加权平均更新成本；减仓按平均成本结算，剩余仓位成本不变；
// 穿越零点时先平掉旧仓，余量以成交价开新仓。
func (t *Tracker) Apply(deltaQty float64, price float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if deltaQty == 0 {
		return 0
	}

	var realized float64
	switch {
	case t.net == 0 || sameSign(t.net, deltaQty):
		totalValue := t.cost*t.net + price*deltaQty
		t.net += deltaQty
		t.cost = totalValue / t.net

	case math.Abs(deltaQty) <= math.Abs(t.net):
		closed := math.Abs(deltaQty)
		realized = (price - t.cost) * closed * sign(t.net)
		t.net += deltaQty
		if t.net == 0 {
			t.cost = 0
		}

	default:
		// 反手：平掉全部旧仓，余量按成交价开新仓。
		closed := math.Abs(t.net)
		realized = (price - t.cost) * closed * sign(t.net)
		t.net += deltaQty
		t.cost = price
	}

	t.realized += realized
	return realized
}

// NetExposure 返回带符号净仓位（正为净多头）。
func (t *Tracker) NetExposure() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.net
}

// AvgCost 返回当前持仓的平均成本；空仓时为 0。
func (t *Tracker) AvgCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cost
}

// Realized 返回累计已实现盈亏。
func (t *Tracker) Realized() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.realized
}

// Valuation 基于当前 mid 价计算净仓位与未实现盈亏。
func (t *Tracker) Valuation(mid float64) (net float64, pnl float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	net = t.net
	pnl = (mid - t.cost) * t.net
	return
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
