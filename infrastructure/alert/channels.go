package alert

import (
	"fmt"
	"sync"

	"hft-pipeline-go/infrastructure/logger"
)

// ZapChannel 把告警写入结构化日志，CRITICAL/WARNING 走 warn 级。
type ZapChannel struct {
	log  *logger.Logger
	name string
}

// NewZapChannel 创建日志告警通道
func NewZapChannel(name string, log *logger.Logger) *ZapChannel {
	return &ZapChannel{log: log, name: name}
}

// Send 发送告警到结构化日志
func (c *ZapChannel) Send(a Alert) error {
	fields := map[string]interface{}{
		"level":   string(a.Level),
		"message": a.Message,
		"at":      a.Timestamp.UTC(),
	}
	for k, v := range a.Fields {
		fields[k] = v
	}
	if a.Level == LevelInfo {
		c.log.Event("alert", fields)
		return nil
	}
	c.log.Warning("alert", fields)
	return nil
}

// Name 返回通道名称
func (c *ZapChannel) Name() string { return c.name }

// ConsoleChannel 控制台告警通道（彩色输出）
type ConsoleChannel struct {
	name string
}

// NewConsoleChannel 创建控制台告警通道
func NewConsoleChannel(name string) *ConsoleChannel {
	return &ConsoleChannel{name: name}
}

// Send 发送告警到控制台（带颜色）
func (c *ConsoleChannel) Send(a Alert) error {
	const colorReset = "\033[0m"
	var colorCode string
	switch a.Level {
	case LevelInfo:
		colorCode = "\033[32m" // 绿色
	case LevelWarning:
		colorCode = "\033[33m" // 黄色
	case LevelCritical:
		colorCode = "\033[35m" // 紫色
	default:
		colorCode = colorReset
	}

	msg := fmt.Sprintf("%s[%s]%s %s - %s",
		colorCode,
		a.Level,
		colorReset,
		a.Timestamp.Format("2006-01-02 15:04:05"),
		a.Message,
	)
	if len(a.Fields) > 0 {
		msg += " |"
		for k, v := range a.Fields {
			msg += fmt.Sprintf(" %s=%v", k, v)
		}
	}

	fmt.Println(msg)
	return nil
}

// Name 返回通道名称
func (c *ConsoleChannel) Name() string { return c.name }

// MockChannel 模拟告警通道（用于测试），并发安全。
type MockChannel struct {
	name      string
	mu        sync.Mutex
	alerts    []Alert
	shouldErr bool
}

// NewMockChannel 创建模拟告警通道
func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

// Send 记录告警（用于测试验证）
func (c *MockChannel) Send(a Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shouldErr {
		return fmt.Errorf("mock error")
	}
	c.alerts = append(c.alerts, a)
	return nil
}

// Name 返回通道名称
func (c *MockChannel) Name() string { return c.name }

// GetAlerts 获取所有接收到的告警
func (c *MockChannel) GetAlerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

// SetShouldError 设置是否返回错误
func (c *MockChannel) SetShouldError(shouldErr bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldErr = shouldErr
}

// Clear 清空告警记录
func (c *MockChannel) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = nil
}

// Count 返回接收到的告警数量
func (c *MockChannel) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}
