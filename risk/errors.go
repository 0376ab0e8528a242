package risk

import "errors"

// 准入拒绝原因。拒绝是常态而非异常：调用方用 errors.Is 归类后
// 丢弃订单即可，门禁本身不重试。
var (
	ErrBreakerActive = errors.New("circuit breaker active")
	ErrRateLimit     = errors.New("order rate limit")
	ErrPositionLimit = errors.New("position limit exceed")
	ErrOrderValue    = errors.New("order value exceed")
)

// RejectReason 将拒绝错误映射为指标/日志用的短标签。
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrBreakerActive):
		return "breaker"
	case errors.Is(err, ErrRateLimit):
		return "rate"
	case errors.Is(err, ErrPositionLimit):
		return "position"
	case errors.Is(err, ErrOrderValue):
		return "value"
	default:
		return "other"
	}
}
