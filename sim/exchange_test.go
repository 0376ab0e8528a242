package sim

import (
	"context"
	"math"
	"testing"
	"time"

	"hft-pipeline-go/order"
)

func TestExchange_FillsSumToOrderQuantity(t *testing.T) {
	e := NewExchange(7, 64)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	const orders = 200
	const qty = 100.0
	go func() {
		for i := 0; i < orders; i++ {
			_ = e.Submit(ctx, order.Order{Symbol: "XYZ", Side: order.Buy, Quantity: qty, Price: 100})
		}
		_ = e.Close()
	}()

	var total float64
	fills := 0
	for f := range e.Fills() {
		if f.Quantity <= 0 {
			t.Fatalf("non-positive fill quantity %v", f.Quantity)
		}
		total += f.Quantity
		fills++
	}
	if math.Abs(total-orders*qty) > 1e-6 {
		t.Fatalf("fill quantities must sum to order quantities: want %v got %v", orders*qty, total)
	}
	// 约一成订单会拆成两笔
	if fills <= orders {
		t.Fatalf("expected some split fills over %d orders, got %d fills", orders, fills)
	}
}

func TestExchange_SlippageWorksAgainstTrader(t *testing.T) {
	e := NewExchange(11, 64)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	const orders = 100
	go func() {
		for i := 0; i < orders; i++ {
			_ = e.Submit(ctx, order.Order{Symbol: "XYZ", Side: order.Buy, Quantity: 1000, Price: 100})
		}
		_ = e.Close()
	}()

	var sum float64
	var n int
	for f := range e.Fills() {
		// 大幅冲击上限 ±0.5%
		if f.Price < 99.5-1e-9 || f.Price > 100.5+1e-9 {
			t.Fatalf("fill price %v outside slippage envelope", f.Price)
		}
		sum += f.Price
		n++
	}
	// 多数成交按规模滑点向上，均价应高于委托价
	if avg := sum / float64(n); avg <= 100 {
		t.Fatalf("buy fills should average above the order price, got %v", avg)
	}
}

func TestExchange_CloseDrainsQueueThenClosesFills(t *testing.T) {
	e := NewExchange(3, 8)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := e.Submit(ctx, order.Order{Symbol: "XYZ", Side: order.Sell, Quantity: 10, Price: 100}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	_ = e.Close()
	go e.Run(ctx)

	var total float64
	for f := range e.Fills() {
		total += f.Quantity
	}
	if math.Abs(total-50) > 1e-6 {
		t.Fatalf("queued orders must fill completely before close: want 50 got %v", total)
	}
}

func TestExchange_SubmitRespectsContext(t *testing.T) {
	e := NewExchange(1, 1)
	ctx, cancel := context.WithCancel(context.Background())

	// 占满队列；Run 未启动，第二单必然阻塞
	if err := e.Submit(ctx, order.Order{Symbol: "XYZ", Side: order.Buy, Quantity: 1, Price: 100}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Submit(ctx, order.Order{Symbol: "XYZ", Side: order.Buy, Quantity: 1, Price: 100})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected context error from blocked submit")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked submit did not return after cancel")
	}
}

func TestExchange_HardCancelStopsRun(t *testing.T) {
	e := NewExchange(5, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	// 无人消费成交，第二笔订单的回报会堵住 Run
	_ = e.Submit(context.Background(), order.Order{Symbol: "XYZ", Side: order.Buy, Quantity: 1, Price: 100})
	_ = e.Submit(context.Background(), order.Order{Symbol: "XYZ", Side: order.Buy, Quantity: 1, Price: 100})

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop on hard cancel")
	}
	for {
		if _, ok := <-e.Fills(); !ok {
			return
		}
	}
}
