package config

import "time"

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env                string                    `yaml:"env"`
	Log                LogConfig                 `yaml:"log"`
	Metrics            MetricsConfig             `yaml:"metrics"`
	SnapshotIntervalMs int                       `yaml:"snapshotIntervalMs"` // 性能快照周期，0 取默认 1000
	ChannelBuffer      int                       `yaml:"channelBuffer"`      // 行情/回报通道容量，0 取默认 1024
	DrainTimeoutMs     int                       `yaml:"drainTimeoutMs"`     // 停机时等待在途成交的上限，0 取默认 5000
	Symbols            map[string]PipelineConfig `yaml:"symbols"`
}

// LogConfig 日志输出配置；由入口程序转交 infrastructure/logger。
type LogConfig struct {
	Level  string `yaml:"level"`  // debug/info/warn/error
	Format string `yaml:"format"` // console/json
	File   string `yaml:"file"`   // 追加输出文件，空则仅 stdout
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // Prometheus 监听地址，空则不启动
}

// PipelineConfig 单个标的流水线的全部参数。构造后不可变，
// 以只读引用共享给风控、策略与行情源。
type PipelineConfig struct {
	Symbol string `yaml:"-"` // 由 Symbols 的键填充

	MaxPosition              float64 `yaml:"maxPosition"`              // |仓位| 上限
	MaxOrdersPerSecond       int     `yaml:"maxOrdersPerSecond"`       // 每秒准入订单数上限
	MaxOrderValue            float64 `yaml:"maxOrderValue"`            // 单笔名义价值上限
	MaxDrawdown              float64 `yaml:"maxDrawdown"`              // 峰值回撤上限
	CircuitBreakerPct        float64 `yaml:"circuitBreakerPct"`        // 相邻报价涨跌幅（百分比）熔断阈值
	CircuitBreakerDurationMs int64   `yaml:"circuitBreakerDurationMs"` // 熔断持续时间
	TickIntervalMs           int     `yaml:"tickIntervalMs"`           // 行情节拍
	TickSize                 float64 `yaml:"tickSize"`                 // 最小报价单位
	PnLMode                  string  `yaml:"pnlMode"`                  // avg_cost | cash_flow，空取 avg_cost

	Strategy StrategyConfig `yaml:"strategy"`
	Feed     FeedConfig     `yaml:"feed"`
}

// PnL 口径：按持仓均价结算已实现盈亏，或按原始现金流记账。
const (
	PnLAvgCost  = "avg_cost"
	PnLCashFlow = "cash_flow"
)

// 策略类型标识。
const (
	StrategyMarketMaking = "market_making"
	StrategyArbitrage    = "arbitrage"
)

type StrategyConfig struct {
	Type string `yaml:"type"` // market_making | arbitrage

	// 做市参数
	BaseSpread float64 `yaml:"baseSpread"` // 半价差基准（相对 mid 的比例）
	VolGain    float64 `yaml:"volGain"`    // 波动对价差的放大增益
	SkewGain   float64 `yaml:"skewGain"`   // 仓位偏斜增益
	VolWindow  int     `yaml:"volWindow"`  // 波动率估计窗口

	// 套利参数
	MinProfit      float64 `yaml:"minProfit"`      // 触发信号的最小偏离（绝对价格）
	FairValueAlpha float64 `yaml:"fairValueAlpha"` // 公允价 EMA 权重
	MaxSizeMult    float64 `yaml:"maxSizeMult"`    // 偏离放大的规模倍数上限
	ReduceRatio    float64 `yaml:"reduceRatio"`    // 仓位优先减仓的触发比例
	TargetGapMs    float64 `yaml:"targetGapMs"`    // 报价间隔基准，市场慢于该值时缩量

	BaseSize float64 `yaml:"baseSize"` // 基础下单数量（两种策略共用）
}

// 行情源类型标识。
const (
	FeedSim = "sim"
	FeedWS  = "ws"
)

type FeedConfig struct {
	Source   string  `yaml:"source"`   // sim | ws，空取 sim
	Seed     int64   `yaml:"seed"`     // 合成行情随机种子，0 按时间取种
	StartMid float64 `yaml:"startMid"` // 初始 mid 价（仅 sim）
	Endpoint string  `yaml:"endpoint"` // websocket 入口，形如 wss://host（仅 ws）
}

// Kind 返回生效的行情源类型；未配置时取合成行情。
func (f FeedConfig) Kind() string {
	if f.Source == "" {
		return FeedSim
	}
	return f.Source
}

// 默认值与原型系统保持一致。
const (
	defaultSnapshotIntervalMs = 1000
	defaultChannelBuffer      = 1024
	defaultDrainTimeoutMs     = 5000
)

// DefaultPipeline 返回一套可直接运行的标的配置（回放与测试用）。
func DefaultPipeline(symbol string) PipelineConfig {
	return PipelineConfig{
		Symbol:                   symbol,
		MaxPosition:              10_000,
		MaxOrdersPerSecond:       50_000,
		MaxOrderValue:            100_000,
		MaxDrawdown:              1_000,
		CircuitBreakerPct:        5.0,
		CircuitBreakerDurationMs: 60_000,
		TickIntervalMs:           1,
		TickSize:                 0.01,
		PnLMode:                  PnLAvgCost,
		Strategy: StrategyConfig{
			Type:           StrategyMarketMaking,
			BaseSpread:     0.0005,
			VolGain:        50,
			SkewGain:       2.0,
			VolWindow:      100,
			MinProfit:      0.01,
			FairValueAlpha: 0.05,
			MaxSizeMult:    5.0,
			ReduceRatio:    0.9,
			TargetGapMs:    10,
			BaseSize:       100,
		},
		Feed: FeedConfig{Seed: 42, StartMid: 100.0},
	}
}

// BreakerDuration 返回熔断持续时间。
func (p *PipelineConfig) BreakerDuration() time.Duration {
	return time.Duration(p.CircuitBreakerDurationMs) * time.Millisecond
}

// TickInterval 返回行情节拍。
func (p *PipelineConfig) TickInterval() time.Duration {
	return time.Duration(p.TickIntervalMs) * time.Millisecond
}

// PnLBasis 返回生效的盈亏口径；未配置时取 avg_cost。
func (p *PipelineConfig) PnLBasis() string {
	if p.PnLMode == "" {
		return PnLAvgCost
	}
	return p.PnLMode
}

// SnapshotInterval 返回性能快照周期。
func (a *AppConfig) SnapshotInterval() time.Duration {
	if a.SnapshotIntervalMs <= 0 {
		return defaultSnapshotIntervalMs * time.Millisecond
	}
	return time.Duration(a.SnapshotIntervalMs) * time.Millisecond
}

// Buffer 返回事件通道容量。
func (a *AppConfig) Buffer() int {
	if a.ChannelBuffer <= 0 {
		return defaultChannelBuffer
	}
	return a.ChannelBuffer
}

// DrainTimeout 返回停机排空在途成交的等待上限。
func (a *AppConfig) DrainTimeout() time.Duration {
	if a.DrainTimeoutMs <= 0 {
		return defaultDrainTimeoutMs * time.Millisecond
	}
	return time.Duration(a.DrainTimeoutMs) * time.Millisecond
}
