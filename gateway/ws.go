// Package gateway adapts external market-data transports to the quote
// channel contract used by the pipeline.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hft-pipeline-go/infrastructure/logger"
	"hft-pipeline-go/market"
)

// CombinedMessage 对应 combined stream 的外层包装。
type CombinedMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// bookTicker 提取 bookTicker 消息的核心字段（价格为字符串编码）。
// 数量键 B/A 必须显式声明：encoding/json 对 tag 做大小写不敏感的
// 兜底匹配，缺了精确声明时数量会覆盖同名小写的价格字段。
type bookTicker struct {
	Symbol string `json:"s"`
	Bid    string `json:"b"`
	Ask    string `json:"a"`
	BidQty string `json:"B"`
	AskQty string `json:"A"`
}

// ParseBookTicker 解析 bookTicker 消息并校验买卖价关系。
// 同时接受 combined stream 包装与裸消息两种形态。
func ParseBookTicker(raw []byte, at time.Time) (market.Quote, error) {
	var msg CombinedMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return market.Quote{}, fmt.Errorf("bookTicker envelope: %w", err)
	}
	data := msg.Data
	if len(data) == 0 {
		data = raw
	}

	var bt bookTicker
	if err := json.Unmarshal(data, &bt); err != nil {
		return market.Quote{}, fmt.Errorf("bookTicker body: %w", err)
	}
	bid, err := strconv.ParseFloat(bt.Bid, 64)
	if err != nil {
		return market.Quote{}, fmt.Errorf("bookTicker bid %q: %w", bt.Bid, err)
	}
	ask, err := strconv.ParseFloat(bt.Ask, 64)
	if err != nil {
		return market.Quote{}, fmt.Errorf("bookTicker ask %q: %w", bt.Ask, err)
	}

	q := market.Quote{Symbol: bt.Symbol, Bid: bid, Ask: ask, Timestamp: at}
	if err := q.Validate(); err != nil {
		return market.Quote{}, err
	}
	return q, nil
}

// WSFeed 从 websocket bookTicker 流产出报价，满足与 sim.Feed 相同的
// 行情源契约：阻塞式发送（背压），ctx 取消时关闭通道。断线按指数
// 退避重连，成功收到消息后退避归位。
type WSFeed struct {
	Endpoint string // 形如 wss://stream.example.com
	Symbol   string // 流水线标的名；发出的报价统一用它，不用交易所别名
	Dialer   *websocket.Dialer
	Log      *logger.Logger

	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// NewWSFeed 构造 websocket 行情源。
func NewWSFeed(endpoint, symbol string, log *logger.Logger) *WSFeed {
	if log == nil {
		log = logger.Nop()
	}
	return &WSFeed{
		Endpoint:   endpoint,
		Symbol:     symbol,
		Dialer:     websocket.DefaultDialer,
		Log:        log,
		MinBackoff: time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

// Run 持续产出报价直到 ctx 取消，退出前关闭通道。
func (w *WSFeed) Run(ctx context.Context, out chan<- market.Quote) {
	defer close(out)
	backoff := w.MinBackoff
	for {
		emitted, err := w.stream(ctx, out)
		if ctx.Err() != nil {
			return
		}
		if emitted > 0 {
			backoff = w.MinBackoff
		}
		w.Log.LogError(err, map[string]interface{}{
			"symbol":    w.Symbol,
			"backoffMs": backoff.Milliseconds(),
		})

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > w.MaxBackoff {
			backoff = w.MaxBackoff
		}
	}
}

func (w *WSFeed) streamURL() string {
	u := url.URL{
		Scheme: "wss",
		Host:   strings.TrimPrefix(w.Endpoint, "wss://"),
		Path:   "/stream",
	}
	q := u.Query()
	q.Set("streams", strings.ToLower(w.Symbol)+"@bookTicker")
	u.RawQuery = q.Encode()
	return u.String()
}

// stream 单次连接的读循环，返回本次发出的报价数与断开原因。
func (w *WSFeed) stream(ctx context.Context, out chan<- market.Quote) (int, error) {
	conn, _, err := w.Dialer.DialContext(ctx, w.streamURL(), nil)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	// ctx 取消时关闭连接，打断阻塞中的 ReadMessage
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	emitted := 0
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return emitted, err
		}
		q, err := ParseBookTicker(raw, time.Now())
		if err != nil {
			// 坏消息跳过，不断流
			w.Log.Debug("drop unparseable quote", zap.String("symbol", w.Symbol), zap.Error(err))
			continue
		}
		q.Symbol = w.Symbol

		select {
		case out <- q:
			emitted++
		case <-ctx.Done():
			return emitted, ctx.Err()
		}
	}
}
