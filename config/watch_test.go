package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatcherTriggersOnRewrite(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)

	w := Watcher{Path: path, Cooldown: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	valid := make(chan AppConfig, 1)
	go func() {
		_ = w.Start(ctx, func(cfg AppConfig) {
			select {
			case valid <- cfg:
			default:
			}
		}, nil)
	}()

	// 等 watcher 完成注册后再改写文件
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-valid:
		if cfg.Env != "dev" {
			t.Fatalf("unexpected config from watcher: %+v", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected valid-config callback")
	}
}

func TestWatcherReportsInvalidConfig(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)

	w := Watcher{Path: path, Cooldown: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 1)
	go func() {
		_ = w.Start(ctx, nil, func(err error) {
			select {
			case errs <- err:
			default:
			}
		})
	}()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("env: ''\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-errs:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected error callback for invalid config")
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)

	w := Watcher{Path: path, Cooldown: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.Start(ctx, nil, nil); err == nil {
		t.Fatalf("expected context cancellation error")
	}
}
