package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"hft-pipeline-go/config"
	"hft-pipeline-go/gateway"
	"hft-pipeline-go/infrastructure/alert"
	"hft-pipeline-go/infrastructure/logger"
	"hft-pipeline-go/market"
	"hft-pipeline-go/metrics"
	"hft-pipeline-go/monitor"
	"hft-pipeline-go/pipeline"
	"hft-pipeline-go/posttrade"
	"hft-pipeline-go/risk"
	"hft-pipeline-go/sim"
	"hft-pipeline-go/strategy"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	metricsAddr := flag.String("metrics", "", "Prometheus 监听地址，覆盖配置文件")
	duration := flag.Duration("duration", 0, "运行时长，0 表示运行到收到信号")
	watch := flag.Bool("watch", false, "监听配置文件变更（仅记录，运行中的流水线不热切换）")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	appLog, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer appLog.Close()

	// root 管交易所、监控与辅助任务的生命周期；feedCtx 先于 root
	// 取消：行情收口 → 流水线排空 → 再整体收场。
	root, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	feedCtx, cancelFeed := context.WithCancel(root)
	defer cancelFeed()

	var aux sync.WaitGroup // metrics / watcher / watchdog / 行情与交易所

	exporter := metrics.New(metrics.DefaultConfig())
	addr := cfg.Metrics.Addr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if addr != "" {
		aux.Add(1)
		go func() {
			defer aux.Done()
			if err := exporter.Serve(root, addr); err != nil {
				appLog.LogError(err, map[string]interface{}{"stage": "metrics_server"})
			}
		}()
	}

	alerts := alert.NewManager(time.Minute, alert.NewZapChannel("log", appLog))

	if *watch {
		aux.Add(1)
		go func() {
			defer aux.Done()
			w := config.Watcher{Path: *cfgPath}
			err := w.Start(root, func(next config.AppConfig) {
				appLog.Event("config_reload", map[string]interface{}{
					"path":    *cfgPath,
					"symbols": len(next.Symbols),
					"note":    "applies to pipelines started after this point",
				})
			}, func(err error) {
				appLog.LogError(err, map[string]interface{}{"stage": "config_watch"})
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				appLog.LogError(err, map[string]interface{}{"stage": "config_watch"})
			}
		}()
	}

	var pipes sync.WaitGroup
	for sym := range cfg.Symbols {
		pc := cfg.Symbols[sym]
		if err := launch(root, feedCtx, &pc, &cfg, deps{
			log:      appLog,
			alerts:   alerts,
			exporter: exporter,
			pipes:    &pipes,
			aux:      &aux,
		}); err != nil {
			log.Fatalf("构建 %s 流水线失败: %v", sym, err)
		}
	}
	appLog.Event("runner_started", map[string]interface{}{
		"env":     cfg.Env,
		"symbols": len(cfg.Symbols),
		"metrics": addr,
	})

	// systemd 集成：就绪通知 + 看门狗保活。非 systemd 环境下两者
	// 都是安静的空操作。
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		aux.Add(1)
		go func() {
			defer aux.Done()
			tick := time.NewTicker(interval / 2)
			defer tick.Stop()
			for {
				select {
				case <-root.Done():
					return
				case <-tick.C:
					_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
				}
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var deadline <-chan time.Time
	if *duration > 0 {
		timer := time.NewTimer(*duration)
		defer timer.Stop()
		deadline = timer.C
	}
	select {
	case sig := <-quit:
		appLog.Event("runner_shutdown", map[string]interface{}{"trigger": sig.String()})
	case <-deadline:
		appLog.Event("runner_shutdown", map[string]interface{}{"trigger": "duration"})
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	// 两段式停机：先收行情，等流水线排空在途成交；
	// 超出排空预算后再硬取消 root。
	cancelFeed()
	drained := make(chan struct{})
	go func() {
		pipes.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(cfg.DrainTimeout() + 2*time.Second):
		appLog.Warning("runner_shutdown", map[string]interface{}{
			"trigger": "drain_overrun",
		})
	}
	cancelRoot()
	aux.Wait()
	appLog.Event("runner_stopped", map[string]interface{}{"env": cfg.Env})
}

type deps struct {
	log      *logger.Logger
	alerts   *alert.Manager
	exporter *metrics.Exporter
	pipes    *sync.WaitGroup
	aux      *sync.WaitGroup
}

// quoteFeed 是行情源契约：阻塞式产出报价，退出前关闭通道。
// 合成行情与 websocket 行情都满足它。
type quoteFeed interface {
	Run(ctx context.Context, out chan<- market.Quote)
}

// launch 组装并启动单个标的的全部组件：行情源（合成或 websocket）、
// 模拟交易所、策略、门禁、监控与事件循环。任何一环构建失败都直接
// 返回错误，不产出半启动状态。
func launch(root, feedCtx context.Context, pc *config.PipelineConfig, app *config.AppConfig, d deps) error {
	strat, err := strategy.New(pc)
	if err != nil {
		return err
	}
	gate := risk.NewGate(pc)

	var feed quoteFeed
	switch pc.Feed.Kind() {
	case config.FeedWS:
		feed = gateway.NewWSFeed(pc.Feed.Endpoint, pc.Symbol, d.log)
	default:
		feed = sim.NewFeed(pc)
	}

	ex := sim.NewExchange(pc.Feed.Seed, app.Buffer())
	mon := monitor.New(pc.Symbol)
	quotes := make(chan market.Quote, app.Buffer())

	p, err := pipeline.New(pc, pipeline.Components{
		Strategy:     strat,
		Gate:         gate,
		Venue:        ex,
		Quotes:       quotes,
		Fills:        ex.Fills(),
		Monitor:      mon,
		Logger:       d.log,
		Alerts:       d.alerts,
		Posttrade:    posttrade.NewAnalyzer(),
		DrainTimeout: app.DrainTimeout(),
	})
	if err != nil {
		return err
	}

	d.aux.Add(3)
	go func() {
		defer d.aux.Done()
		feed.Run(feedCtx, quotes)
	}()
	go func() {
		defer d.aux.Done()
		ex.Run(root)
	}()
	go func() {
		defer d.aux.Done()
		mon.Run(root, app.SnapshotInterval(), monitor.LogSink{Log: d.log}, d.exporter)
	}()

	d.pipes.Add(1)
	go func() {
		defer d.pipes.Done()
		if err := p.Run(root); err != nil && !errors.Is(err, context.Canceled) {
			d.log.LogError(err, map[string]interface{}{"symbol": pc.Symbol, "stage": "pipeline"})
		}
	}()
	return nil
}
