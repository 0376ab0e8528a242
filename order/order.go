package order

import (
	"fmt"
	"time"
)

// Side 订单方向。
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Sign 返回方向符号：买 +1，卖 -1。
func (s Side) Sign() float64 {
	if s == Buy {
		return 1
	}
	return -1
}

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Order 策略产生的候选订单。订单恰好被风控准入检查消费一次：
// 拒绝则丢弃（不重试），接受则交由交易所持有直至产生成交回报。
type Order struct {
	Symbol   string
	Side     Side
	Quantity float64
	Price    float64
}

// SignedQty 返回带方向的数量（买正卖负）。
func (o Order) SignedQty() float64 {
	return o.Side.Sign() * o.Quantity
}

// Notional 返回订单名义价值 quantity × price。
func (o Order) Notional() float64 {
	return o.Quantity * o.Price
}

// Validate 校验订单字段：方向合法、数量与价格为正。
func (o Order) Validate() error {
	if !o.Side.Valid() {
		return fmt.Errorf("order %s: unknown side %q", o.Symbol, o.Side)
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("order %s: non-positive quantity %.4f", o.Symbol, o.Quantity)
	}
	if o.Price <= 0 {
		return fmt.Errorf("order %s: non-positive price %.4f", o.Symbol, o.Price)
	}
	return nil
}

// Fill 交易所返回的成交回报。一个已接受订单可能被拆分为多笔成交，
// 各笔数量之和等于订单数量；每笔独立驱动一次仓位更新。
type Fill struct {
	Symbol    string
	Side      Side
	Quantity  float64
	Price     float64
	Timestamp time.Time
}

// SignedQty 返回带方向的成交数量。
func (f Fill) SignedQty() float64 {
	return f.Side.Sign() * f.Quantity
}

// CashFlow 返回成交的现金流：买入为负（付出现金），卖出为正。
func (f Fill) CashFlow() float64 {
	return -f.Side.Sign() * f.Quantity * f.Price
}
