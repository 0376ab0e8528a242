package strategy

import (
	"math"
	"time"

	"hft-pipeline-go/config"
	"hft-pipeline-go/inventory"
	"hft-pipeline-go/market"
	"hft-pipeline-go/order"
)

// Arbitrage 用慢速 EMA 公允价跟踪趋势，中间价偏离超过最小利润阈值
// 时逆偏离方向主动吃单：低估买入、高估卖出。偏离越大下的越多，
// 行情间隔慢于目标时按比例缩量，仓位接近上限时无条件优先减仓。
type Arbitrage struct {
	cfg *config.PipelineConfig

	fair *market.FairValue
	book inventory.Tracker

	lastQuoteAt  time.Time
	gapEMAMicros float64
}

// NewArbitrage 构造套利策略。公允价 EMA 系数取自配置。
func NewArbitrage(cfg *config.PipelineConfig) *Arbitrage {
	return &Arbitrage{
		cfg:  cfg,
		fair: market.NewFairValue(cfg.Strategy.FairValueAlpha),
	}
}

// OnQuote 消费一条行情：先更新公允价与到达间隔估计，再决定是否吃单。
func (a *Arbitrage) OnQuote(q market.Quote) (order.Order, bool) {
	a.observeGap(q.Timestamp)

	mid := q.Mid()
	fair := a.fair.Observe(mid)

	s := a.cfg.Strategy
	net := a.book.NetExposure()

	// 仓位优先：逼近上限时不看信号，直接向平仓方向吃单。
	if math.Abs(net) >= s.ReduceRatio*a.cfg.MaxPosition {
		return a.reduceOrder(q, net)
	}

	dev := mid - fair
	if math.Abs(dev) <= s.MinProfit {
		return order.Order{}, false
	}

	side := order.Sell
	px := q.Bid
	if dev < 0 {
		// 低于公允价，买入等回归
		side = order.Buy
		px = q.Ask
	}

	qty := s.BaseSize * math.Min(math.Abs(dev)/s.MinProfit, s.MaxSizeMult)
	qty *= math.Max((a.cfg.MaxPosition-math.Abs(net))/a.cfg.MaxPosition, 0.1)
	qty *= a.latencyFactor()
	qty = clampToCapacity(a.cfg.MaxPosition, net, side, qty)
	if qty <= 0 {
		return order.Order{}, false
	}

	px = snapToTick(px, a.cfg.TickSize)
	if px <= 0 {
		return order.Order{}, false
	}

	return order.Order{Symbol: q.Symbol, Side: side, Quantity: qty, Price: px}, true
}

// OnFill 把成交计入库存。
func (a *Arbitrage) OnFill(f order.Fill) {
	a.book.Apply(f.SignedQty(), f.Price)
}

// Position 返回当前净仓位。
func (a *Arbitrage) Position() float64 { return a.book.NetExposure() }

// RealizedPnL 返回累计已实现盈亏。
func (a *Arbitrage) RealizedPnL() float64 { return a.book.Realized() }

// reduceOrder 以穿越价向平仓方向下单，规模不超过现有仓位。
func (a *Arbitrage) reduceOrder(q market.Quote, net float64) (order.Order, bool) {
	side := order.Sell
	px := q.Bid
	if net < 0 {
		side = order.Buy
		px = q.Ask
	}
	qty := math.Min(a.cfg.Strategy.BaseSize, math.Abs(net))
	if qty <= 0 {
		return order.Order{}, false
	}
	return order.Order{
		Symbol:   q.Symbol,
		Side:     side,
		Quantity: qty,
		Price:    snapToTick(px, a.cfg.TickSize),
	}, true
}

// observeGap 维护报价到达间隔的 EMA（微秒），乱序或重复时间戳不计入。
func (a *Arbitrage) observeGap(ts time.Time) {
	if !a.lastQuoteAt.IsZero() && ts.After(a.lastQuoteAt) {
		gap := float64(ts.Sub(a.lastQuoteAt).Microseconds())
		if a.gapEMAMicros == 0 {
			a.gapEMAMicros = gap
		} else {
			a.gapEMAMicros = a.gapEMAMicros*0.9 + gap*0.1
		}
	}
	a.lastQuoteAt = ts
}

// latencyFactor 在行情间隔慢于目标时缩量，最低保留四分之一规模；
// 快市或未配置目标间隔时保持全量。
func (a *Arbitrage) latencyFactor() float64 {
	target := a.cfg.Strategy.TargetGapMs * 1000
	if target <= 0 || a.gapEMAMicros <= 0 || a.gapEMAMicros <= target {
		return 1
	}
	f := target / a.gapEMAMicros
	if f < 0.25 {
		return 0.25
	}
	return f
}
