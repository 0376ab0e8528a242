package config

import (
	"errors"
	"fmt"
)

// ErrInvalid 用于参数验证错误。
type ErrInvalid string

func (e ErrInvalid) Error() string { return string(e) }

// Validate ensures required fields are present and bounds hold.
// 任何违规都是构造期致命错误：不会启动半初始化的流水线。
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.SnapshotIntervalMs < 0 {
		return ErrInvalid("snapshotIntervalMs must be >= 0")
	}
	if cfg.ChannelBuffer < 0 {
		return ErrInvalid("channelBuffer must be >= 0")
	}
	if cfg.DrainTimeoutMs < 0 {
		return ErrInvalid("drainTimeoutMs must be >= 0")
	}
	if len(cfg.Symbols) == 0 {
		return errors.New("symbols config is required")
	}
	for sym, pc := range cfg.Symbols {
		if err := ValidatePipeline(pc); err != nil {
			return fmt.Errorf("symbol %s: %w", sym, err)
		}
	}
	return nil
}

// ValidatePipeline 校验单个标的配置。
func ValidatePipeline(p PipelineConfig) error {
	if p.MaxPosition <= 0 {
		return ErrInvalid("maxPosition must be > 0")
	}
	if p.MaxOrdersPerSecond < 1 {
		return ErrInvalid("maxOrdersPerSecond must be >= 1")
	}
	if p.MaxOrderValue <= 0 {
		return ErrInvalid("maxOrderValue must be > 0")
	}
	if p.MaxDrawdown <= 0 {
		return ErrInvalid("maxDrawdown must be > 0")
	}
	if p.CircuitBreakerPct <= 0 {
		return ErrInvalid("circuitBreakerPct must be > 0")
	}
	if p.CircuitBreakerDurationMs < 0 {
		return ErrInvalid("circuitBreakerDurationMs must be >= 0")
	}
	if p.TickIntervalMs < 1 {
		return ErrInvalid("tickIntervalMs must be >= 1")
	}
	if p.TickSize <= 0 {
		return ErrInvalid("tickSize must be > 0")
	}
	switch p.PnLMode {
	case "", PnLAvgCost, PnLCashFlow:
	default:
		return ErrInvalid(fmt.Sprintf("unknown pnlMode %q", p.PnLMode))
	}
	if err := validateStrategy(p.Strategy); err != nil {
		return err
	}
	switch p.Feed.Kind() {
	case FeedSim:
		if p.Feed.StartMid <= 0 {
			return ErrInvalid("feed.startMid must be > 0")
		}
	case FeedWS:
		if p.Feed.Endpoint == "" {
			return ErrInvalid("feed.endpoint is required for ws feed")
		}
	default:
		return ErrInvalid(fmt.Sprintf("unknown feed source %q", p.Feed.Source))
	}
	return nil
}

func validateStrategy(s StrategyConfig) error {
	if s.BaseSize <= 0 {
		return ErrInvalid("strategy.baseSize must be > 0")
	}
	switch s.Type {
	case StrategyMarketMaking:
		if s.BaseSpread <= 0 {
			return ErrInvalid("strategy.baseSpread must be > 0")
		}
		if s.VolGain < 0 {
			return ErrInvalid("strategy.volGain must be >= 0")
		}
		if s.SkewGain < 0 {
			return ErrInvalid("strategy.skewGain must be >= 0")
		}
		if s.VolWindow < 2 {
			return ErrInvalid("strategy.volWindow must be >= 2")
		}
	case StrategyArbitrage:
		if s.MinProfit <= 0 {
			return ErrInvalid("strategy.minProfit must be > 0")
		}
		if s.FairValueAlpha <= 0 || s.FairValueAlpha > 1 {
			return ErrInvalid("strategy.fairValueAlpha must be in (0, 1]")
		}
		if s.MaxSizeMult < 1 {
			return ErrInvalid("strategy.maxSizeMult must be >= 1")
		}
		if s.ReduceRatio <= 0 || s.ReduceRatio > 1 {
			return ErrInvalid("strategy.reduceRatio must be in (0, 1]")
		}
		if s.TargetGapMs < 0 {
			return ErrInvalid("strategy.targetGapMs must be >= 0")
		}
	default:
		return ErrInvalid(fmt.Sprintf("unknown strategy type %q", s.Type))
	}
	return nil
}
