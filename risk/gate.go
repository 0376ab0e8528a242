package risk

import (
	"fmt"
	"math"
	"time"

	"hft-pipeline-go/config"
	"hft-pipeline-go/inventory"
	"hft-pipeline-go/market"
	"hft-pipeline-go/order"
)

// BreakerState 熔断器状态。
type BreakerState int

const (
	BreakerNormal BreakerState = iota
	BreakerTripped
)

func (s BreakerState) String() string {
	switch s {
	case BreakerNormal:
		return "normal"
	case BreakerTripped:
		return "tripped"
	default:
		return "unknown"
	}
}

// 熔断触发原因，用于日志与告警字段。
const (
	TripPriceShock = "price_shock"
	TripDrawdown   = "drawdown"
)

// Gate 是订单发往交易所前唯一的准入检查点。
// 规则按固定顺序评估：熔断 → 频率 → 仓位 → 名义价值；
// 首个失败即拒绝且不产生副作用，全部通过才预留仓位并递增窗口计数。
// Gate 由所属流水线的事件循环独占持有，不加锁。
type Gate struct {
	cfg   *config.PipelineConfig
	clock Clock

	// 乐观仓位：准入时按方向预留，先于成交，
	// 避免同一窗口内后续订单绕过仓位上限。
	reserved float64

	windowStart time.Time
	windowCount int

	book    inventory.Tracker // avg_cost 口径下的成交账本
	pnl     float64
	peakPnl float64

	state        BreakerState
	trippedUntil time.Time
	tripCause    string
	lastMid      float64
}

// NewGate 创建使用墙钟的准入门禁。配置必须已通过校验。
func NewGate(cfg *config.PipelineConfig) *Gate {
	return NewGateWithClock(cfg, WallClock)
}

// NewGateWithClock 注入时钟，供测试控制频率窗口与熔断过期。
func NewGateWithClock(cfg *config.PipelineConfig, clock Clock) *Gate {
	return &Gate{
		cfg:         cfg,
		clock:       clock,
		windowStart: clock.Now(),
	}
}

// Allow 对候选订单做准入判定；返回 nil 表示接受。
// 拒绝通过哨兵错误表达（ErrBreakerActive 等），调用方丢弃订单即可。
func (g *Gate) Allow(o order.Order) error {
	now := g.clock.Now()

	// 1. 熔断：到期惰性恢复，未到期一律拒绝。
	if g.state == BreakerTripped {
		if now.Before(g.trippedUntil) {
			return fmt.Errorf("%w(%s): resumes at %s",
				ErrBreakerActive, g.tripCause, g.trippedUntil.Format(time.RFC3339Nano))
		}
		g.clearBreaker()
	}

	// 2. 频率：1 秒窗口惰性重置。
	if now.Sub(g.windowStart) >= time.Second {
		g.windowStart = now
		g.windowCount = 0
	}
	if g.windowCount >= g.cfg.MaxOrdersPerSecond {
		return fmt.Errorf("%w: %d >= %d per second",
			ErrRateLimit, g.windowCount, g.cfg.MaxOrdersPerSecond)
	}

	// 3. 仓位：按订单方向预演后的绝对仓位不得越限。
	delta := o.SignedQty()
	if next := g.reserved + delta; math.Abs(next) > g.cfg.MaxPosition {
		return fmt.Errorf("%w: |%.2f| > max %.2f",
			ErrPositionLimit, next, g.cfg.MaxPosition)
	}

	// 4. 名义价值。
	if notional := o.Notional(); notional > g.cfg.MaxOrderValue {
		return fmt.Errorf("%w: %.2f > max %.2f",
			ErrOrderValue, notional, g.cfg.MaxOrderValue)
	}

	g.reserved += delta
	g.windowCount++
	return nil
}

// OnQuote 用相邻报价的相对涨跌幅驱动熔断检查。首个报价只做基准。
func (g *Gate) OnQuote(q market.Quote) {
	now := g.clock.Now()
	if g.state == BreakerTripped && !now.Before(g.trippedUntil) {
		g.clearBreaker()
	}

	mid := q.Mid()
	if g.lastMid > 0 {
		movePct := math.Abs(mid-g.lastMid) / g.lastMid * 100
		if movePct > g.cfg.CircuitBreakerPct {
			g.trip(now, TripPriceShock)
		}
	}
	g.lastMid = mid
}

// OnFill 按配置口径累计已实现盈亏并检查峰值回撤。
func (g *Gate) OnFill(f order.Fill) {
	switch g.cfg.PnLBasis() {
	case config.PnLCashFlow:
		g.pnl += f.CashFlow()
	default:
		g.pnl += g.book.Apply(f.SignedQty(), f.Price)
	}

	if g.pnl > g.peakPnl {
		g.peakPnl = g.pnl
	}
	if g.peakPnl-g.pnl > g.cfg.MaxDrawdown {
		g.trip(g.clock.Now(), TripDrawdown)
	}
}

func (g *Gate) trip(now time.Time, cause string) {
	g.state = BreakerTripped
	g.trippedUntil = now.Add(g.cfg.BreakerDuration())
	g.tripCause = cause
}

func (g *Gate) clearBreaker() {
	g.state = BreakerNormal
	g.tripCause = ""
}

// Tripped 报告熔断器当前是否生效（只读，不做惰性恢复）。
func (g *Gate) Tripped() bool {
	return g.state == BreakerTripped && g.clock.Now().Before(g.trippedUntil)
}

// TrippedUntil 返回最近一次熔断的恢复时刻。
func (g *Gate) TrippedUntil() time.Time {
	return g.trippedUntil
}

// TripCause 返回最近一次熔断的原因；正常状态为空串。
func (g *Gate) TripCause() string {
	return g.tripCause
}

// Position 返回含乐观预留的带符号仓位。
func (g *Gate) Position() float64 {
	return g.reserved
}

// PnL 返回按配置口径累计的已实现盈亏。
func (g *Gate) PnL() float64 {
	return g.pnl
}

// Drawdown 返回当前峰值回撤。
func (g *Gate) Drawdown() float64 {
	return g.peakPnl - g.pnl
}
