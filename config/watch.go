package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 监听配置文件变更；新内容通过校验后回调。
// 运行中的流水线配置不可变，调用方通常只记录日志并将新配置
// 用于之后启动的流水线。
type Watcher struct {
	Path     string
	Cooldown time.Duration // 两次重载的最小间隔，防抖
}

// Start blocks until ctx is done, invoking onValid for each config
// change that loads and validates successfully and onError otherwise.
func (w Watcher) Start(ctx context.Context, onValid func(AppConfig), onError func(error)) error {
	if w.Cooldown <= 0 {
		w.Cooldown = 2 * time.Second
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.Path); err != nil {
		return fmt.Errorf("watch config file: %w", err)
	}

	var lastReload time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if time.Since(lastReload) < w.Cooldown {
				continue
			}
			lastReload = time.Now()

			cfg, err := LoadWithEnvOverrides(w.Path)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onValid != nil {
				onValid(cfg)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
