package monitor

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"
)

func TestMonitorSnapshotCounts(t *testing.T) {
	m := New("SIM-1")
	m.RecordQuote()
	m.RecordQuote()
	m.RecordOrder()
	m.RecordReject()
	m.RecordTrip()
	m.RecordFill(-1000.5)
	m.RecordFill(1200.25)

	s := m.Snapshot()
	if s.Symbol != "SIM-1" {
		t.Fatalf("unexpected symbol %q", s.Symbol)
	}
	if s.Quotes != 2 || s.Orders != 1 || s.Rejects != 1 || s.Fills != 2 || s.BreakerTrips != 1 {
		t.Fatalf("unexpected counters: %+v", s)
	}
	if math.Abs(s.PnL-199.75) > 1e-9 {
		t.Fatalf("expected pnl 199.75, got %v", s.PnL)
	}
}

func TestMonitorLatencyEMAAndMax(t *testing.T) {
	m := New("SIM-1")

	// 首个样本直接播种
	m.RecordDecisionLatency(500 * time.Microsecond)
	if got := m.Snapshot().AvgDecisionLatency; got != 500*time.Microsecond {
		t.Fatalf("expected seeded avg 500µs, got %v", got)
	}

	// avg = 500×0.99 + 1000×0.01 = 505µs
	m.RecordDecisionLatency(1000 * time.Microsecond)
	s := m.Snapshot()
	if s.AvgDecisionLatency != 505*time.Microsecond {
		t.Fatalf("expected ema avg 505µs, got %v", s.AvgDecisionLatency)
	}
	if s.MaxDecisionLatency != 1000*time.Microsecond {
		t.Fatalf("expected max 1000µs, got %v", s.MaxDecisionLatency)
	}

	m.RecordDecisionLatency(100 * time.Microsecond)
	if got := m.Snapshot().MaxDecisionLatency; got != 1000*time.Microsecond {
		t.Fatalf("max latency must not decrease, got %v", got)
	}
}

// 两个阶段各自独立累计；全阶段统计吃进全部样本。
func TestMonitorPerStageLatencyIsolation(t *testing.T) {
	m := New("SIM-1")

	m.RecordDecisionLatency(500 * time.Microsecond)
	m.RecordFillLatency(2000 * time.Microsecond)

	s := m.Snapshot()
	if s.AvgDecisionLatency != 500*time.Microsecond || s.MaxDecisionLatency != 500*time.Microsecond {
		t.Fatalf("decision stage polluted: avg=%v max=%v", s.AvgDecisionLatency, s.MaxDecisionLatency)
	}
	if s.AvgFillLatency != 2000*time.Microsecond || s.MaxFillLatency != 2000*time.Microsecond {
		t.Fatalf("fill stage polluted: avg=%v max=%v", s.AvgFillLatency, s.MaxFillLatency)
	}
	// overall: 播种 500，再 500×0.99+2000×0.01 = 515
	if s.AvgLatency != 515*time.Microsecond {
		t.Fatalf("expected overall avg 515µs, got %v", s.AvgLatency)
	}
	if s.MaxLatency != 2000*time.Microsecond {
		t.Fatalf("expected overall max 2000µs, got %v", s.MaxLatency)
	}
}

func TestMonitorNegativeLatencyClamped(t *testing.T) {
	m := New("SIM-1")
	m.RecordFillLatency(-5 * time.Millisecond)
	if got := m.Snapshot().MaxFillLatency; got != 0 {
		t.Fatalf("negative latency should clamp to zero, got %v", got)
	}
	if got := m.Snapshot().MaxLatency; got != 0 {
		t.Fatalf("negative latency should clamp to zero overall, got %v", got)
	}
}

func TestMonitorConcurrentWritersAndReaders(t *testing.T) {
	m := New("SIM-1")

	const writers = 4
	const perWriter = 10_000

	var wg sync.WaitGroup
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				_ = m.Snapshot()
			}
		}
	}()

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				m.RecordQuote()
				m.RecordFill(1.0)
				m.RecordDecisionLatency(time.Duration(j%100) * time.Microsecond)
				m.RecordFillLatency(time.Duration(j%100) * time.Microsecond)
			}
		}()
	}
	wg.Wait()
	close(stop)

	s := m.Snapshot()
	if s.Quotes != writers*perWriter || s.Fills != writers*perWriter {
		t.Fatalf("lost updates under concurrency: %+v", s)
	}
	if math.Abs(s.PnL-writers*perWriter) > 1e-6 {
		t.Fatalf("expected pnl %v, got %v", writers*perWriter, s.PnL)
	}
}

type captureSink struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (c *captureSink) Publish(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps = append(c.snaps, s)
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snaps)
}

func (c *captureSink) last() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snaps[len(c.snaps)-1]
}

func TestMonitorRunFlushesPeriodicallyAndAtShutdown(t *testing.T) {
	m := New("SIM-1")
	sink := &captureSink{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 10*time.Millisecond, sink)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	m.RecordQuote()
	cancel()
	<-done

	if sink.count() < 2 {
		t.Fatalf("expected periodic flushes, got %d", sink.count())
	}
	if last := sink.last(); last.Quotes != 1 {
		t.Fatalf("final flush must capture shutdown state, got %+v", last)
	}
}

func TestSinkFunc(t *testing.T) {
	var got Snapshot
	SinkFunc(func(s Snapshot) { got = s }).Publish(Snapshot{Symbol: "SIM-1"})
	if got.Symbol != "SIM-1" {
		t.Fatalf("sink func did not receive snapshot")
	}
}
