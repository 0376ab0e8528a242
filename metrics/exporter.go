// Package metrics exposes pipeline performance snapshots as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hft-pipeline-go/monitor"
)

// Exporter 把各流水线的性能快照导出为按标的打标签的 Prometheus 指标。
// 它是唯一的跨流水线汇聚点，只消费只读快照，自身并发安全。
type Exporter struct {
	registry *prometheus.Registry

	quotes      *prometheus.GaugeVec
	orders      *prometheus.GaugeVec
	rejects     *prometheus.GaugeVec
	fills       *prometheus.GaugeVec
	trips       *prometheus.GaugeVec
	pnl         *prometheus.GaugeVec
	avgLat      *prometheus.GaugeVec
	maxLat      *prometheus.GaugeVec
	avgDecision *prometheus.GaugeVec
	maxDecision *prometheus.GaugeVec
	avgFill     *prometheus.GaugeVec
	maxFill     *prometheus.GaugeVec
	uptime      *prometheus.GaugeVec
}

// Config 导出配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "hft",
		Subsystem: "pipeline",
	}
}

// New 创建Exporter实例并注册全部指标
func New(cfg Config) *Exporter {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	gauge := func(name, help string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		}, []string{"symbol"})
	}

	return &Exporter{
		registry:    reg,
		quotes:      gauge("quotes_processed", "已处理行情总数"),
		orders:      gauge("orders_sent", "已准入订单总数"),
		rejects:     gauge("orders_rejected", "风控拒单总数"),
		fills:       gauge("fills_received", "成交回报总数"),
		trips:       gauge("breaker_trips", "熔断触发总数"),
		pnl:         gauge("cumulative_pnl", "现金流口径累计盈亏"),
		avgLat:      gauge("avg_latency_us", "全阶段延迟EMA（微秒）"),
		maxLat:      gauge("max_latency_us", "全阶段最大延迟（微秒）"),
		avgDecision: gauge("avg_decision_latency_us", "行情到决策延迟EMA（微秒）"),
		maxDecision: gauge("max_decision_latency_us", "行情到决策最大延迟（微秒）"),
		avgFill:     gauge("avg_fill_latency_us", "决策到成交延迟EMA（微秒）"),
		maxFill:     gauge("max_fill_latency_us", "决策到成交最大延迟（微秒）"),
		uptime:      gauge("uptime_seconds", "流水线运行时长（秒）"),
	}
}

// Publish 实现 monitor.Sink，把快照写入对应标的的指标。
func (e *Exporter) Publish(s monitor.Snapshot) {
	e.quotes.WithLabelValues(s.Symbol).Set(float64(s.Quotes))
	e.orders.WithLabelValues(s.Symbol).Set(float64(s.Orders))
	e.rejects.WithLabelValues(s.Symbol).Set(float64(s.Rejects))
	e.fills.WithLabelValues(s.Symbol).Set(float64(s.Fills))
	e.trips.WithLabelValues(s.Symbol).Set(float64(s.BreakerTrips))
	e.pnl.WithLabelValues(s.Symbol).Set(s.PnL)
	e.avgLat.WithLabelValues(s.Symbol).Set(float64(s.AvgLatency.Microseconds()))
	e.maxLat.WithLabelValues(s.Symbol).Set(float64(s.MaxLatency.Microseconds()))
	e.avgDecision.WithLabelValues(s.Symbol).Set(float64(s.AvgDecisionLatency.Microseconds()))
	e.maxDecision.WithLabelValues(s.Symbol).Set(float64(s.MaxDecisionLatency.Microseconds()))
	e.avgFill.WithLabelValues(s.Symbol).Set(float64(s.AvgFillLatency.Microseconds()))
	e.maxFill.WithLabelValues(s.Symbol).Set(float64(s.MaxFillLatency.Microseconds()))
	e.uptime.WithLabelValues(s.Symbol).Set(s.Uptime.Seconds())
}

// Handler 返回HTTP handler用于暴露指标
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry 返回prometheus registry
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Serve 在 addr 上暴露 /metrics，ctx 取消时优雅关停。
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
