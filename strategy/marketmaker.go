package strategy

import (
	"math"

	"hft-pipeline-go/config"
	"hft-pipeline-go/inventory"
	"hft-pipeline-go/market"
	"hft-pipeline-go/order"
)

// MarketMaker 在中间价两侧被动报价：半价差随已实现波动放大，仓位
// 偏斜把报价中心推离库存方向，使后续成交倾向把仓位拉回零。
//
// 每个报价只发一侧：持仓非零时选减仓方向，空仓时买卖轮换。这样
// 任何时刻在途敞口最多只朝一个方向增长，门禁的预留额度不会被双边
// 报价同时占用。
type MarketMaker struct {
	cfg *config.PipelineConfig

	vol      *market.VolatilityCalculator
	book     inventory.Tracker
	lastSide order.Side
}

// NewMarketMaker 构造做市策略。波动窗口取自配置。
func NewMarketMaker(cfg *config.PipelineConfig) *MarketMaker {
	return &MarketMaker{
		cfg: cfg,
		vol: market.NewVolatilityCalculator(cfg.Strategy.VolWindow),
		// 空仓首单从买侧开始轮换
		lastSide: order.Sell,
	}
}

// OnQuote 消费一条行情：更新波动估计，产生至多一笔报价。
func (m *MarketMaker) OnQuote(q market.Quote) (order.Order, bool) {
	mid := q.Mid()
	m.vol.AddPrice(mid)

	s := m.cfg.Strategy
	halfSpread := mid * s.BaseSpread * (1 + s.VolGain*m.vol.RealizedVol())

	net := m.book.NetExposure()
	// 库存为多时整体下移报价中心，优先被动卖出；为空时反之。
	center := mid - (net/m.cfg.MaxPosition)*halfSpread*s.SkewGain

	side := m.pickSide(net)

	// 仓位越重报得越小，上限处缩到半量。
	qty := s.BaseSize * (1 - math.Min(math.Abs(net)/m.cfg.MaxPosition, 1)*0.5)
	qty = clampToCapacity(m.cfg.MaxPosition, net, side, qty)
	if qty <= 0 {
		return order.Order{}, false
	}

	px := center + halfSpread
	if side == order.Buy {
		px = center - halfSpread
	}
	px = snapToTick(px, m.cfg.TickSize)
	if px <= 0 {
		return order.Order{}, false
	}

	m.lastSide = side
	return order.Order{Symbol: q.Symbol, Side: side, Quantity: qty, Price: px}, true
}

// OnFill 把成交计入库存，成本与已实现盈亏由 Tracker 维护。
func (m *MarketMaker) OnFill(f order.Fill) {
	m.book.Apply(f.SignedQty(), f.Price)
}

// Position 返回当前净仓位。
func (m *MarketMaker) Position() float64 { return m.book.NetExposure() }

// RealizedPnL 返回累计已实现盈亏。
func (m *MarketMaker) RealizedPnL() float64 { return m.book.Realized() }

func (m *MarketMaker) pickSide(net float64) order.Side {
	switch {
	case net > 0:
		return order.Sell
	case net < 0:
		return order.Buy
	case m.lastSide == order.Buy:
		return order.Sell
	default:
		return order.Buy
	}
}
