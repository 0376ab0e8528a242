package risk

import "time"

// Clock 抽象时间便于测试；频率窗口与熔断过期都依赖它。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// WallClock 默认时钟。
var WallClock Clock = realClock{}
