// Package posttrade measures fill quality after the fact: how the mid
// price drifts in the seconds following each fill (markout), and how
// often that drift runs against the position (adverse selection).
package posttrade

import (
	"sync"
	"time"

	"hft-pipeline-go/order"
)

// 标记时点。短窗口用于判定逆向选择，长窗口观察趋势延续。
const (
	horizonShort = 1 * time.Second
	horizonLong  = 5 * time.Second
)

// fillMark 跟踪单笔成交的标记进度。时间全部取自行情与成交回报
// 自带的时间戳，不依赖挂钟，回放同一份数据得到同样的统计。
type fillMark struct {
	price    float64
	side     order.Side
	at       time.Time
	short    float64
	hasShort bool
}

// Stats 汇总所有已完成标记的成交。
type Stats struct {
	TotalFills    int
	AnalyzedFills int
	// AdverseSelectionRate 是短窗口 markout 为负的成交占比。
	AdverseSelectionRate float64
	// 平均 markout，按成交价归一（相对收益）。正值代表成交后
	// 价格向持仓有利方向移动。
	AvgMarkout1s float64
	AvgMarkout5s float64
}

// Analyzer 在行情回调里推进标记：每笔成交等到第一个晚于其时间戳
// 加窗口的报价时取中间价打点，两个窗口都打完即聚合并释放记录。
type Analyzer struct {
	mu       sync.Mutex
	pending  []*fillMark
	total    int
	analyzed int
	adverse  int
	sumShort float64
	sumLong  float64
}

// NewAnalyzer 构造空的分析器。
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// OnFill 登记一笔待标记的成交。
func (a *Analyzer) OnFill(f order.Fill) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total++
	a.pending = append(a.pending, &fillMark{
		price: f.Price,
		side:  f.Side,
		at:    f.Timestamp,
	})
}

// OnQuote 用当前中间价给所有到期的记录打点。
func (a *Analyzer) OnQuote(mid float64, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	keep := a.pending[:0]
	for _, rec := range a.pending {
		age := at.Sub(rec.at)
		if age >= horizonShort && !rec.hasShort {
			rec.short = markout(rec.side, rec.price, mid)
			rec.hasShort = true
		}
		if age >= horizonLong {
			a.aggregate(rec.short, markout(rec.side, rec.price, mid))
			continue
		}
		keep = append(keep, rec)
	}
	a.pending = keep
}

// Stats 返回当前汇总。仍在窗口内的成交只计入 TotalFills。
func (a *Analyzer) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Stats{TotalFills: a.total, AnalyzedFills: a.analyzed}
	if a.analyzed > 0 {
		s.AdverseSelectionRate = float64(a.adverse) / float64(a.analyzed)
		s.AvgMarkout1s = a.sumShort / float64(a.analyzed)
		s.AvgMarkout5s = a.sumLong / float64(a.analyzed)
	}
	return s
}

func (a *Analyzer) aggregate(short, long float64) {
	a.analyzed++
	a.sumShort += short
	a.sumLong += long
	if short < 0 {
		a.adverse++
	}
}

// markout 返回按方向符号化的相对价格漂移：买单看涨、卖单看跌
// 均为正。负的短窗口值说明对手方信息更强（逆向选择）。
func markout(side order.Side, fill, mid float64) float64 {
	return side.Sign() * (mid - fill) / fill
}
