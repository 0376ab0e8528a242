package order

import "time"

// 成交数量与登记数量的匹配容差。
const qtyEpsilon = 1e-9

type openEntry struct {
	qty         float64
	submittedAt time.Time
}

// Ledger 跟踪已提交但尚未完全成交的数量。回报不携带订单号，
// 按 FIFO 以数量轧差匹配；时延以队首订单的提交时刻为基准。
// 由单个 pipeline goroutine 独占持有，不加锁。
type Ledger struct {
	open        []openEntry
	outstanding float64
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Submitted 登记一笔已准入并发往交易所的订单。
func (l *Ledger) Submitted(o Order, at time.Time) {
	l.open = append(l.open, openEntry{qty: o.Quantity, submittedAt: at})
	l.outstanding += o.Quantity
}

// Filled 以成交回报冲减在途数量，返回提交→成交时延。
// 回报数量可跨越多笔登记；时延按本次冲减触达的队首订单计算。
// 没有在途数量时返回 matched=false（外部成交，忽略）。
func (l *Ledger) Filled(f Fill) (latency time.Duration, matched bool) {
	if len(l.open) == 0 {
		return 0, false
	}

	latency = f.Timestamp.Sub(l.open[0].submittedAt)
	if latency < 0 {
		latency = 0
	}

	remaining := f.Quantity
	for remaining > qtyEpsilon && len(l.open) > 0 {
		head := &l.open[0]
		take := remaining
		if take > head.qty {
			take = head.qty
		}
		head.qty -= take
		l.outstanding -= take
		remaining -= take
		if head.qty <= qtyEpsilon {
			l.open = l.open[1:]
		}
	}
	if l.outstanding < 0 {
		l.outstanding = 0
	}
	return latency, true
}

// Outstanding 返回在途（已提交未成交）数量合计。
func (l *Ledger) Outstanding() float64 {
	return l.outstanding
}

// OpenCount 返回在途订单笔数。
func (l *Ledger) OpenCount() int {
	return len(l.open)
}
