package monitor

import "hft-pipeline-go/infrastructure/logger"

// Sink 消费性能快照。实现方不得阻塞：快照推送与交易路径共享调度。
type Sink interface {
	Publish(s Snapshot)
}

// LogSink 把快照写成结构化 perf_snapshot 日志。
type LogSink struct {
	Log *logger.Logger
}

// Publish 实现 Sink。
func (s LogSink) Publish(snap Snapshot) {
	s.Log.Event("perf_snapshot", map[string]interface{}{
		"symbol":        snap.Symbol,
		"uptimeSec":     snap.Uptime.Seconds(),
		"quotes":        snap.Quotes,
		"orders":        snap.Orders,
		"rejects":       snap.Rejects,
		"fills":         snap.Fills,
		"breakerTrips":  snap.BreakerTrips,
		"pnl":           snap.PnL,
		"avgLatencyUs":  snap.AvgLatency.Microseconds(),
		"maxLatencyUs":  snap.MaxLatency.Microseconds(),
		"avgDecisionUs": snap.AvgDecisionLatency.Microseconds(),
		"maxDecisionUs": snap.MaxDecisionLatency.Microseconds(),
		"avgFillUs":     snap.AvgFillLatency.Microseconds(),
		"maxFillUs":     snap.MaxFillLatency.Microseconds(),
	})
}

// SinkFunc 便于用函数直接充当 Sink。
type SinkFunc func(s Snapshot)

// Publish 实现 Sink。
func (f SinkFunc) Publish(s Snapshot) { f(s) }
