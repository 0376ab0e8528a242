package market

import (
	"fmt"
	"time"
)

// Quote is a single top-of-book observation. Values are immutable once
// emitted; consumers must not hold references past the event they handle.
type Quote struct {
	Symbol    string
	Bid       float64
	Ask       float64
	Timestamp time.Time
}

// Mid returns the quote midpoint.
func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// Spread returns the quoted spread (ask - bid).
func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// Validate 校验报价有效性：bid/ask 必须为正数且 bid < ask。
func (q Quote) Validate() error {
	if q.Bid <= 0 || q.Ask <= 0 {
		return fmt.Errorf("quote %s: non-positive side bid=%.4f ask=%.4f", q.Symbol, q.Bid, q.Ask)
	}
	if q.Bid >= q.Ask {
		return fmt.Errorf("quote %s: crossed book bid=%.4f ask=%.4f", q.Symbol, q.Bid, q.Ask)
	}
	return nil
}
