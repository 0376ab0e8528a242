// Package pipeline wires one instrument's event flow: quotes in,
// admission-checked orders out to the venue, fills back into strategy
// and risk state. The loop is the sole owner of strategy, gate and
// ledger state; everything it touches is lock-free by construction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hft-pipeline-go/config"
	"hft-pipeline-go/infrastructure/alert"
	"hft-pipeline-go/infrastructure/logger"
	"hft-pipeline-go/market"
	"hft-pipeline-go/monitor"
	"hft-pipeline-go/order"
	"hft-pipeline-go/posttrade"
	"hft-pipeline-go/risk"
	"hft-pipeline-go/strategy"
)

// Venue 接收已准入的订单。Submit 在内部队列满时阻塞（背压），
// Close 声明不再有新订单；交易所排空队列后自行关闭回报通道。
type Venue interface {
	Submit(ctx context.Context, o order.Order) error
	Close() error
}

// Components 流水线的依赖集合。Strategy/Gate/Venue/通道/Monitor/
// Logger 缺一不可；Alerts 与 Posttrade 可为 nil（不告警、不做盘后分析）。
type Components struct {
	Strategy strategy.Strategy
	Gate     *risk.Gate
	Venue    Venue
	Quotes   <-chan market.Quote
	Fills    <-chan order.Fill
	Monitor  *monitor.Monitor
	Logger   *logger.Logger

	Alerts    *alert.Manager
	Posttrade *posttrade.Analyzer

	// DrainTimeout 行情结束后等待在途成交的上限，<=0 取 5s。
	DrainTimeout time.Duration
}

// Pipeline 单标的事件循环。Run 只能调用一次。
type Pipeline struct {
	cfg   *config.PipelineConfig
	drain time.Duration

	strat  strategy.Strategy
	gate   *risk.Gate
	venue  Venue
	quotes <-chan market.Quote
	fills  <-chan order.Fill

	ledger  *order.Ledger
	mon     *monitor.Monitor
	log     *logger.Logger
	alerts  *alert.Manager
	markout *posttrade.Analyzer

	// 上次事件处理后的熔断状态，用于检测翻转并告警一次。
	wasTripped bool
}

// New 校验配置与组件后构造流水线；任何缺失都是致命错误，
// 不产出半成品。
func New(cfg *config.PipelineConfig, c Components) (*Pipeline, error) {
	if cfg == nil || cfg.Symbol == "" {
		return nil, errors.New("pipeline config with symbol is required")
	}
	if c.Strategy == nil {
		return nil, errors.New("strategy is required")
	}
	if c.Gate == nil {
		return nil, errors.New("gate is required")
	}
	if c.Venue == nil {
		return nil, errors.New("venue is required")
	}
	if c.Quotes == nil {
		return nil, errors.New("quote channel is required")
	}
	if c.Fills == nil {
		return nil, errors.New("fill channel is required")
	}
	if c.Monitor == nil {
		return nil, errors.New("monitor is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	drain := c.DrainTimeout
	if drain <= 0 {
		drain = 5 * time.Second
	}

	return &Pipeline{
		cfg:     cfg,
		drain:   drain,
		strat:   c.Strategy,
		gate:    c.Gate,
		venue:   c.Venue,
		quotes:  c.Quotes,
		fills:   c.Fills,
		ledger:  order.NewLedger(),
		mon:     c.Monitor,
		log:     c.Logger,
		alerts:  c.Alerts,
		markout: c.Posttrade,
	}, nil
}

// Run 驱动事件循环直到行情通道关闭（优雅收尾，返回 nil）或
// ctx 取消（硬停机，返回 ctx.Err()，不等待在途成交）。
func (p *Pipeline) Run(ctx context.Context) error {
	p.log.Event("pipeline_lifecycle", map[string]interface{}{
		"symbol": p.cfg.Symbol,
		"phase":  "started",
	})
	defer p.finalReport()

	for {
		select {
		case <-ctx.Done():
			p.log.Warning("pipeline_lifecycle", map[string]interface{}{
				"symbol": p.cfg.Symbol,
				"phase":  "aborted",
			})
			return ctx.Err()

		case q, ok := <-p.quotes:
			if !ok {
				return p.drainFills(ctx)
			}
			p.onQuote(ctx, q)

		case f, ok := <-p.fills:
			if !ok {
				// 交易所先于行情收场：置 nil 让 select 不再命中，
				// 继续消化剩余行情（不会再有成交）。
				p.fills = nil
				continue
			}
			p.onFill(f)
		}
	}
}

// onQuote 处理一条行情：风控观察 → 策略决策 → 准入 → 提交。
// 拒绝是常态路径，记录后丢弃，绝不重试。
func (p *Pipeline) onQuote(ctx context.Context, q market.Quote) {
	start := time.Now()
	p.mon.RecordQuote()
	if p.markout != nil {
		p.markout.OnQuote(q.Mid(), q.Timestamp)
	}

	p.gate.OnQuote(q)
	p.checkBreaker()

	o, ok := p.strat.OnQuote(q)
	if !ok {
		return
	}

	if err := o.Validate(); err != nil {
		p.mon.RecordReject()
		p.log.Warning("order_rejected", map[string]interface{}{
			"symbol": p.cfg.Symbol,
			"reason": "invalid",
			"error":  err.Error(),
		})
		return
	}

	if err := p.gate.Allow(o); err != nil {
		p.mon.RecordReject()
		p.log.Event("order_rejected", map[string]interface{}{
			"symbol": p.cfg.Symbol,
			"reason": risk.RejectReason(err),
			"error":  err.Error(),
		})
		return
	}

	if err := p.venue.Submit(ctx, o); err != nil {
		// 提交失败只发生在取消路径；订单已预留仓位但未登记在途，
		// 随流水线一起落幕。
		p.log.LogError(err, map[string]interface{}{
			"symbol": p.cfg.Symbol,
			"stage":  "submit",
		})
		return
	}

	p.ledger.Submitted(o, time.Now())
	p.mon.RecordOrder()
	p.mon.RecordDecisionLatency(time.Since(start))
	p.log.Event("order_submitted", map[string]interface{}{
		"symbol": p.cfg.Symbol,
		"side":   string(o.Side),
		"qty":    o.Quantity,
		"price":  o.Price,
	})
}

// onFill 回报依次驱动策略库存、风控盈亏与在途账本。
func (p *Pipeline) onFill(f order.Fill) {
	p.strat.OnFill(f)
	p.gate.OnFill(f)
	p.checkBreaker()

	if latency, matched := p.ledger.Filled(f); matched {
		p.mon.RecordFillLatency(latency)
	}
	p.mon.RecordFill(f.CashFlow())
	if p.markout != nil {
		p.markout.OnFill(f)
	}
}

// checkBreaker 对比上次事件后的熔断状态，翻转时记录并告警。
// 恢复由时间驱动（惰性），所以清除也在这里被观察到。
func (p *Pipeline) checkBreaker() {
	tripped := p.gate.Tripped()
	if tripped == p.wasTripped {
		return
	}
	p.wasTripped = tripped

	if tripped {
		p.mon.RecordTrip()
		cause := p.gate.TripCause()
		p.log.Warning("risk_event", map[string]interface{}{
			"symbol": p.cfg.Symbol,
			"state":  "tripped",
			"cause":  cause,
			"until":  p.gate.TrippedUntil().Format(time.RFC3339Nano),
		})
		if p.alerts != nil {
			_ = p.alerts.SendCritical(
				fmt.Sprintf("%s circuit breaker tripped: %s", p.cfg.Symbol, cause),
				map[string]interface{}{
					"symbol": p.cfg.Symbol,
					"until":  p.gate.TrippedUntil().Format(time.RFC3339Nano),
				})
		}
		return
	}

	p.log.Event("risk_event", map[string]interface{}{
		"symbol": p.cfg.Symbol,
		"state":  "normal",
		"cause":  "recovered",
	})
	if p.alerts != nil {
		_ = p.alerts.SendInfo(
			fmt.Sprintf("%s circuit breaker cleared", p.cfg.Symbol),
			map[string]interface{}{"symbol": p.cfg.Symbol})
	}
}

// drainFills 行情收场后的排空阶段：先告知交易所不再有新订单，
// 再继续消费回报，直到在途清零、回报通道关闭或超时。
func (p *Pipeline) drainFills(ctx context.Context) error {
	p.log.Event("pipeline_lifecycle", map[string]interface{}{
		"symbol":      p.cfg.Symbol,
		"phase":       "draining",
		"outstanding": p.ledger.Outstanding(),
	})

	if err := p.venue.Close(); err != nil {
		p.log.LogError(err, map[string]interface{}{
			"symbol": p.cfg.Symbol,
			"stage":  "venue_close",
		})
	}

	timer := time.NewTimer(p.drain)
	defer timer.Stop()

	for p.ledger.OpenCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case f, ok := <-p.fills:
			if !ok {
				// 交易所已排空退出，剩余在途不会再成交。
				return nil
			}
			p.onFill(f)

		case <-timer.C:
			p.log.Warning("pipeline_lifecycle", map[string]interface{}{
				"symbol":      p.cfg.Symbol,
				"phase":       "drain_timeout",
				"outstanding": p.ledger.Outstanding(),
			})
			return nil
		}
	}
	return nil
}

// finalReport 停机时输出盘后统计与最终快照。
func (p *Pipeline) finalReport() {
	if p.markout != nil {
		st := p.markout.Stats()
		p.log.Event("markout_report", map[string]interface{}{
			"symbol":        p.cfg.Symbol,
			"totalFills":    st.TotalFills,
			"analyzedFills": st.AnalyzedFills,
			"adverseRate":   st.AdverseSelectionRate,
			"avgMarkout1s":  st.AvgMarkout1s,
			"avgMarkout5s":  st.AvgMarkout5s,
		})
	}

	snap := p.mon.Snapshot()
	p.log.Event("pipeline_lifecycle", map[string]interface{}{
		"symbol":      p.cfg.Symbol,
		"phase":       "stopped",
		"quotes":      snap.Quotes,
		"orders":      snap.Orders,
		"rejects":     snap.Rejects,
		"fills":       snap.Fills,
		"pnl":         snap.PnL,
		"outstanding": p.ledger.Outstanding(),
	})
}

// Outstanding 返回在途（已提交未成交）数量，测试与收尾检查用。
func (p *Pipeline) Outstanding() float64 {
	return p.ledger.Outstanding()
}
