package monitor

import (
	"context"
	"math"
	"sync/atomic"
	"time"
)

// 盈亏与平均延迟用定点整数存储，便于原子更新。
const (
	pnlScale = 10_000 // 现金流盈亏 ×10⁴
	emaScale = 1_000  // 平均延迟（微秒）×10³
)

// Monitor 聚合单条流水线的运行计数、现金流口径盈亏与延迟统计。
// 写入方是流水线事件循环，读取方是快照刷写与指标导出，全部字段
// 原子维护，两侧不共享锁。这里的盈亏是观测口径，与风控门禁内部
// 的风险盈亏相互独立。
type Monitor struct {
	symbol string
	start  time.Time

	quotes  uint64
	orders  uint64
	rejects uint64
	fills   uint64
	trips   uint64

	pnlScaled int64 // 现金流盈亏 ×10⁴

	// 延迟分阶段累计：行情到决策、决策到成交；overall 吃进全部样本。
	decision latencyStat
	fill     latencyStat
	overall  latencyStat
}

// latencyStat 单阶段延迟统计：EMA 均值与最大值，原子维护。
type latencyStat struct {
	avgScaled int64 // EMA，微秒 ×10³
	maxMicros int64
}

// record 更新统计。均值为 EMA：avg = avg×0.99 + cur×0.01，
// 首个样本直接播种避免冷启动爬坡。
func (s *latencyStat) record(d time.Duration) {
	if d < 0 {
		d = 0
	}
	cur := d.Microseconds()

	for {
		old := atomic.LoadInt64(&s.avgScaled)
		next := cur * emaScale
		if old != 0 {
			next = (old*99 + cur*emaScale) / 100
		}
		if atomic.CompareAndSwapInt64(&s.avgScaled, old, next) {
			break
		}
	}
	for {
		old := atomic.LoadInt64(&s.maxMicros)
		if cur <= old {
			break
		}
		if atomic.CompareAndSwapInt64(&s.maxMicros, old, cur) {
			break
		}
	}
}

func (s *latencyStat) avg() time.Duration {
	return time.Duration(atomic.LoadInt64(&s.avgScaled)/emaScale) * time.Microsecond
}

func (s *latencyStat) max() time.Duration {
	return time.Duration(atomic.LoadInt64(&s.maxMicros)) * time.Microsecond
}

// New 构造监控器，运行时长从此刻起算。
func New(symbol string) *Monitor {
	return &Monitor{symbol: symbol, start: time.Now()}
}

// RecordQuote 计入一条已消费的行情。
func (m *Monitor) RecordQuote() { atomic.AddUint64(&m.quotes, 1) }

// RecordOrder 计入一笔通过风控准入的订单。
func (m *Monitor) RecordOrder() { atomic.AddUint64(&m.orders, 1) }

// RecordReject 计入一笔被风控拒绝的订单。
func (m *Monitor) RecordReject() { atomic.AddUint64(&m.rejects, 1) }

// RecordTrip 计入一次熔断触发。
func (m *Monitor) RecordTrip() { atomic.AddUint64(&m.trips, 1) }

// RecordFill 计入一笔成交及其现金流（买入为负）。
func (m *Monitor) RecordFill(cashFlow float64) {
	atomic.AddUint64(&m.fills, 1)
	atomic.AddInt64(&m.pnlScaled, int64(math.Round(cashFlow*pnlScale)))
}

// RecordDecisionLatency 更新行情到决策阶段的延迟统计。
func (m *Monitor) RecordDecisionLatency(d time.Duration) {
	m.decision.record(d)
	m.overall.record(d)
}

// RecordFillLatency 更新决策到成交阶段的延迟统计。
func (m *Monitor) RecordFillLatency(d time.Duration) {
	m.fill.record(d)
	m.overall.record(d)
}

// Snapshot 运行统计的只读副本。各字段独立原子读取，字段之间不保证
// 同一瞬间的一致性，观测用途足够。
type Snapshot struct {
	Symbol       string
	Uptime       time.Duration
	Quotes       uint64
	Orders       uint64
	Rejects      uint64
	Fills        uint64
	BreakerTrips uint64
	PnL          float64

	// Avg/MaxLatency 吃进两个阶段的全部样本；分阶段字段各自独立。
	AvgLatency         time.Duration
	MaxLatency         time.Duration
	AvgDecisionLatency time.Duration
	MaxDecisionLatency time.Duration
	AvgFillLatency     time.Duration
	MaxFillLatency     time.Duration
}

// Snapshot 采集当前统计。
func (m *Monitor) Snapshot() Snapshot {
	return Snapshot{
		Symbol:       m.symbol,
		Uptime:       time.Since(m.start),
		Quotes:       atomic.LoadUint64(&m.quotes),
		Orders:       atomic.LoadUint64(&m.orders),
		Rejects:      atomic.LoadUint64(&m.rejects),
		Fills:        atomic.LoadUint64(&m.fills),
		BreakerTrips: atomic.LoadUint64(&m.trips),
		PnL:          float64(atomic.LoadInt64(&m.pnlScaled)) / pnlScale,

		AvgLatency:         m.overall.avg(),
		MaxLatency:         m.overall.max(),
		AvgDecisionLatency: m.decision.avg(),
		MaxDecisionLatency: m.decision.max(),
		AvgFillLatency:     m.fill.avg(),
		MaxFillLatency:     m.fill.max(),
	}
}

// Run 按周期把快照推给全部 sink，ctx 取消时再推最后一次。
func (m *Monitor) Run(ctx context.Context, interval time.Duration, sinks ...Sink) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.flush(sinks)
			return
		case <-ticker.C:
			m.flush(sinks)
		}
	}
}

func (m *Monitor) flush(sinks []Sink) {
	s := m.Snapshot()
	for _, sink := range sinks {
		sink.Publish(s)
	}
}
