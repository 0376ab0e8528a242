package strategy

import (
	"fmt"
	"math"

	"hft-pipeline-go/config"
	"hft-pipeline-go/market"
	"hft-pipeline-go/order"
)

// Strategy 是策略能力集：每个报价至多产生一笔候选订单，成交回报
// 驱动自身仓位与已实现盈亏更新。策略把自身库存视为敞口的唯一事实
// 来源；风控门禁是之后串行执行的独立第二层，可能拒绝任何订单。
type Strategy interface {
	OnQuote(q market.Quote) (order.Order, bool)
	OnFill(f order.Fill)
}

// New 按配置构造策略实例；未知类型是构造期致命错误。
func New(cfg *config.PipelineConfig) (Strategy, error) {
	switch cfg.Strategy.Type {
	case config.StrategyMarketMaking:
		return NewMarketMaker(cfg), nil
	case config.StrategyArbitrage:
		return NewArbitrage(cfg), nil
	default:
		return nil, fmt.Errorf("unknown strategy type %q", cfg.Strategy.Type)
	}
}

// snapToTick 把价格对齐到最小报价单位。
func snapToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	return math.Round(px/tick) * tick
}

// clampToCapacity 把下单量压缩到不会使 |净仓位| 越过上限的范围。
func clampToCapacity(maxPosition, net float64, side order.Side, qty float64) float64 {
	room := maxPosition - side.Sign()*net
	if room <= 0 {
		return 0
	}
	if qty > room {
		return room
	}
	return qty
}
