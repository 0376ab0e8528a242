package sim

import (
	"context"
	"math/rand"
	"time"

	"hft-pipeline-go/order"
)

// Exchange 模拟撮合场所。订单进入有界队列，Run 循环逐单产出成交：
// 成交价带随机滑点，约十分之一的订单拆成两笔成交，两笔数量之和
// 恰等于委托数量（任何已接受的订单最终都被完整成交）。
type Exchange struct {
	rng    *rand.Rand
	orders chan order.Order
	fills  chan order.Fill
}

// NewExchange 构造模拟撮合；seed 为 0 时按时间取种。
func NewExchange(seed int64, buffer int) *Exchange {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if buffer <= 0 {
		buffer = 1
	}
	return &Exchange{
		rng:    rand.New(rand.NewSource(seed)),
		orders: make(chan order.Order, buffer),
		fills:  make(chan order.Fill, buffer),
	}
}

// Fills 返回成交回报通道；Run 退出时关闭。
func (e *Exchange) Fills() <-chan order.Fill { return e.fills }

// Submit 把订单排入撮合队列，队列满时阻塞（背压）。
func (e *Exchange) Submit(ctx context.Context, o order.Order) error {
	select {
	case e.orders <- o:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 声明不再有新订单。Run 排空队列后关闭成交通道。
func (e *Exchange) Close() error {
	close(e.orders)
	return nil
}

// Run 顺序撮合直到订单队列关闭并排空（协作停机路径），或 ctx 取消
// （硬中止，剩余队列丢弃）。
func (e *Exchange) Run(ctx context.Context) {
	defer close(e.fills)
	for {
		select {
		case <-ctx.Done():
			return
		case o, ok := <-e.orders:
			if !ok {
				return
			}
			for _, f := range e.execute(o, time.Now()) {
				select {
				case e.fills <- f:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// execute 把订单转成一笔或两笔成交。滑点：5% 概率为 ±0.5% 的大幅
// 冲击（可能有利），其余时间按规模取 (qty/1000)×0.001，方向总是
// 不利于下单方（买高卖低）。
func (e *Exchange) execute(o order.Order, ts time.Time) []order.Fill {
	slip := (o.Quantity / 1000) * 0.001
	if e.rng.Float64() < 0.05 {
		slip = (e.rng.Float64() - 0.5) * 0.01
	}
	px := o.Price * (1 + slip*o.Side.Sign())

	if e.rng.Float64() < 0.10 {
		ratio := 0.3 + e.rng.Float64()*0.4
		q1 := o.Quantity * ratio
		return []order.Fill{
			{Symbol: o.Symbol, Side: o.Side, Quantity: q1, Price: px, Timestamp: ts},
			{Symbol: o.Symbol, Side: o.Side, Quantity: o.Quantity - q1, Price: px, Timestamp: ts},
		}
	}
	return []order.Fill{
		{Symbol: o.Symbol, Side: o.Side, Quantity: o.Quantity, Price: px, Timestamp: ts},
	}
}
