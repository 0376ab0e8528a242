package sim

import (
	"context"
	"math"
	"math/rand"
	"time"

	"hft-pipeline-go/config"
	"hft-pipeline-go/market"
)

// Feed 合成行情源。mid 价沿带趋势项与慢周期项的随机游走演化，
// 波动率自身也做均值回复游走；偶发跳价事件只扰动当条报价，不改变
// 游走状态。相同种子产生相同价格序列，回放与测试据此对账。
type Feed struct {
	cfg *config.PipelineConfig
	rng *rand.Rand

	mid   float64
	vol   float64
	trend float64
	cycle float64
}

// NewFeed 构造行情源；seed 为 0 时按时间取种（不可复现）。
func NewFeed(cfg *config.PipelineConfig) *Feed {
	seed := cfg.Feed.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Feed{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
		mid: cfg.Feed.StartMid,
		vol: 0.01,
	}
}

// Next 推进一步游走并产出一条报价。价差随波动放宽，始终 bid < ask。
func (f *Feed) Next(ts time.Time) market.Quote {
	f.vol += (f.rng.Float64() - 0.5) * 0.001
	f.vol = clamp(f.vol, 0.001, 0.1)

	f.trend += (f.rng.Float64() - 0.5) * 0.0001
	f.trend = clamp(f.trend, -0.01, 0.01)

	f.cycle += 0.1
	cycleEffect := math.Sin(f.cycle*0.01) * 0.001

	f.mid += f.mid * ((f.rng.Float64()-0.5)*f.vol + f.trend + cycleEffect)
	if f.mid < f.cfg.TickSize {
		f.mid = f.cfg.TickSize
	}

	// 跳价只影响发出的报价
	mid := f.mid
	if f.rng.Float64() < 0.001 {
		mid += mid * (f.rng.Float64() - 0.5) * 0.05
	}

	spread := f.cfg.TickSize * (1 + f.vol*100)
	if mid < spread {
		mid = spread
	}
	return market.Quote{
		Symbol:    f.cfg.Symbol,
		Bid:       mid - spread/2,
		Ask:       mid + spread/2,
		Timestamp: ts,
	}
}

// Run 以配置节拍产出报价直到 ctx 取消，退出前关闭通道通知下游停机。
// 通道满时阻塞等待（背压），不丢行情。
func (f *Feed) Run(ctx context.Context, out chan<- market.Quote) {
	defer close(out)
	ticker := time.NewTicker(f.cfg.TickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			select {
			case out <- f.Next(now):
			case <-ctx.Done():
				return
			}
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
