package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLedgerFIFOMatching(t *testing.T) {
	l := NewLedger()
	t0 := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)

	l.Submitted(Order{Side: Buy, Quantity: 10, Price: 100}, t0)
	l.Submitted(Order{Side: Sell, Quantity: 5, Price: 101}, t0.Add(time.Millisecond))

	assert.Equal(t, 15.0, l.Outstanding())
	assert.Equal(t, 2, l.OpenCount())

	lat, ok := l.Filled(Fill{Side: Buy, Quantity: 10, Price: 100, Timestamp: t0.Add(3 * time.Millisecond)})
	assert.True(t, ok)
	assert.Equal(t, 3*time.Millisecond, lat)
	assert.Equal(t, 5.0, l.Outstanding())
	assert.Equal(t, 1, l.OpenCount())
}

func TestLedgerSplitFills(t *testing.T) {
	l := NewLedger()
	t0 := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)

	l.Submitted(Order{Side: Buy, Quantity: 100, Price: 50}, t0)

	// 一笔订单拆成两笔回报，合计数量与订单一致
	_, ok := l.Filled(Fill{Side: Buy, Quantity: 40, Price: 50, Timestamp: t0.Add(time.Millisecond)})
	assert.True(t, ok)
	assert.Equal(t, 60.0, l.Outstanding())
	assert.Equal(t, 1, l.OpenCount())

	_, ok = l.Filled(Fill{Side: Buy, Quantity: 60, Price: 50, Timestamp: t0.Add(2 * time.Millisecond)})
	assert.True(t, ok)
	assert.Equal(t, 0.0, l.Outstanding())
	assert.Equal(t, 0, l.OpenCount())
}

func TestLedgerFillSpanningEntries(t *testing.T) {
	l := NewLedger()
	t0 := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)

	l.Submitted(Order{Side: Buy, Quantity: 10, Price: 100}, t0)
	l.Submitted(Order{Side: Buy, Quantity: 10, Price: 100}, t0.Add(time.Millisecond))

	lat, ok := l.Filled(Fill{Side: Buy, Quantity: 15, Price: 100, Timestamp: t0.Add(5 * time.Millisecond)})
	assert.True(t, ok)
	// 时延按队首订单计
	assert.Equal(t, 5*time.Millisecond, lat)
	assert.Equal(t, 5.0, l.Outstanding())
	assert.Equal(t, 1, l.OpenCount())
}

func TestLedgerUnmatchedFill(t *testing.T) {
	l := NewLedger()

	_, ok := l.Filled(Fill{Side: Sell, Quantity: 5, Price: 100, Timestamp: time.Now()})
	assert.False(t, ok)
	assert.Equal(t, 0.0, l.Outstanding())
}

func TestLedgerNegativeLatencyClamped(t *testing.T) {
	l := NewLedger()
	t0 := time.Now()

	l.Submitted(Order{Side: Buy, Quantity: 1, Price: 1}, t0)
	lat, ok := l.Filled(Fill{Side: Buy, Quantity: 1, Price: 1, Timestamp: t0.Add(-time.Second)})
	assert.True(t, ok)
	assert.Equal(t, time.Duration(0), lat)
}
