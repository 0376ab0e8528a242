package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"hft-pipeline-go/config"
	"hft-pipeline-go/market"
	"hft-pipeline-go/order"
	"hft-pipeline-go/posttrade"
	"hft-pipeline-go/risk"
	"hft-pipeline-go/sim"
	"hft-pipeline-go/strategy"
)

// 行情录制与确定性回放。
// 用法：
//
//	go run ./cmd/replay -emit 10000 -out quotes.jsonl -symbol SIMUSD -seed 42
//	go run ./cmd/replay -input quotes.jsonl -strategy market_making
//
// 回放对已准入订单按订单价全量即时成交（无交易所随机性），时钟
// 完全由录制的时间戳驱动；同一份录制两次回放的汇总逐字节一致。
func main() {
	emit := flag.Int("emit", 0, "生成 N 条行情录制后退出")
	out := flag.String("out", "quotes.jsonl", "录制输出路径")
	input := flag.String("input", "", "回放的录制文件")
	symbol := flag.String("symbol", "SIMUSD", "标的名（emit 模式）")
	seed := flag.Int64("seed", 42, "行情种子（emit 模式）")
	stratType := flag.String("strategy", config.StrategyMarketMaking, "回放用策略类型")
	cfgPath := flag.String("config", "", "可选配置文件，按录制的 symbol 取流水线参数")
	flag.Parse()

	switch {
	case *emit > 0:
		if err := emitRecording(*out, *symbol, *seed, *emit); err != nil {
			log.Fatalf("生成录制失败: %v", err)
		}
	case *input != "":
		sum, err := replayRecording(*input, *cfgPath, *stratType)
		if err != nil {
			log.Fatalf("回放失败: %v", err)
		}
		raw, err := json.MarshalIndent(sum, "", "  ")
		if err != nil {
			log.Fatalf("序列化汇总失败: %v", err)
		}
		fmt.Println(string(raw))
	default:
		log.Fatal("用法：-emit N 生成录制，或 -input file 回放")
	}
}

// recordedQuote 录制文件的行格式（JSONL）。
type recordedQuote struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	TsNs   int64   `json:"tsNs"`
}

// replaySummary 回放汇总。全部字段由录制内容决定，不掺挂钟。
type replaySummary struct {
	Symbol        string         `json:"symbol"`
	Quotes        int            `json:"quotes"`
	Decisions     int            `json:"decisions"`
	Accepts       int            `json:"accepts"`
	Rejects       map[string]int `json:"rejects"`
	BreakerTrips  int            `json:"breakerTrips"`
	FinalPosition float64        `json:"finalPosition"`
	RealizedPnL   float64        `json:"realizedPnl"`
	TotalFills    int            `json:"totalFills"`
	AnalyzedFills int            `json:"analyzedFills"`
	AdverseRate   float64        `json:"adverseRate"`
	AvgMarkout1s  float64        `json:"avgMarkout1s"`
	AvgMarkout5s  float64        `json:"avgMarkout5s"`
}

// 录制时间从固定纪元起步，与挂钟无关。
var recordingEpoch = time.Unix(1_700_000_000, 0).UTC()

func emitRecording(path, symbol string, seed int64, n int) error {
	pc := config.DefaultPipeline(symbol)
	pc.Feed.Seed = seed
	feed := sim.NewFeed(&pc)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)

	ts := recordingEpoch
	step := pc.TickInterval()
	for i := 0; i < n; i++ {
		q := feed.Next(ts)
		rq := recordedQuote{Symbol: q.Symbol, Bid: q.Bid, Ask: q.Ask, TsNs: q.Timestamp.UnixNano()}
		if err := enc.Encode(rq); err != nil {
			return err
		}
		ts = ts.Add(step)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	log.Printf("已写入 %d 条行情: %s", n, path)
	return nil
}

// frozenClock 由回放循环手动推进，门禁的频率窗口与熔断过期
// 都按录制时间戳演化。
type frozenClock struct{ now time.Time }

func (c *frozenClock) Now() time.Time { return c.now }

func replayRecording(path, cfgPath, stratType string) (*replaySummary, error) {
	quotes, err := loadRecording(path)
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("录制为空: %s", path)
	}

	symbol := quotes[0].Symbol
	pc := config.DefaultPipeline(symbol)
	pc.Strategy.Type = stratType
	if cfgPath != "" {
		app, err := config.LoadWithEnvOverrides(cfgPath)
		if err != nil {
			return nil, err
		}
		rec, ok := app.Symbols[symbol]
		if !ok {
			return nil, fmt.Errorf("symbol %s 不在配置中", symbol)
		}
		pc = rec
	}

	strat, err := strategy.New(&pc)
	if err != nil {
		return nil, err
	}
	clock := &frozenClock{now: time.Unix(0, quotes[0].TsNs)}
	gate := risk.NewGateWithClock(&pc, clock)
	markout := posttrade.NewAnalyzer()

	sum := &replaySummary{Symbol: symbol, Rejects: map[string]int{}}
	wasTripped := false
	countTrip := func() {
		if gate.Tripped() != wasTripped {
			wasTripped = !wasTripped
			if wasTripped {
				sum.BreakerTrips++
			}
		}
	}

	for _, rq := range quotes {
		ts := time.Unix(0, rq.TsNs)
		clock.now = ts
		q := market.Quote{Symbol: rq.Symbol, Bid: rq.Bid, Ask: rq.Ask, Timestamp: ts}

		sum.Quotes++
		markout.OnQuote(q.Mid(), ts)
		gate.OnQuote(q)
		countTrip()

		o, ok := strat.OnQuote(q)
		if !ok {
			continue
		}
		sum.Decisions++

		if err := o.Validate(); err != nil {
			sum.Rejects["invalid"]++
			continue
		}
		if err := gate.Allow(o); err != nil {
			sum.Rejects[risk.RejectReason(err)]++
			continue
		}
		sum.Accepts++

		f := order.Fill{
			Symbol: o.Symbol, Side: o.Side,
			Quantity: o.Quantity, Price: o.Price,
			Timestamp: ts,
		}
		strat.OnFill(f)
		gate.OnFill(f)
		countTrip()
		markout.OnFill(f)
	}

	st := markout.Stats()
	sum.FinalPosition = gate.Position()
	sum.RealizedPnL = gate.PnL()
	sum.TotalFills = st.TotalFills
	sum.AnalyzedFills = st.AnalyzedFills
	sum.AdverseRate = st.AdverseSelectionRate
	sum.AvgMarkout1s = st.AvgMarkout1s
	sum.AvgMarkout5s = st.AvgMarkout5s
	return sum, nil
}

func loadRecording(path string) ([]recordedQuote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []recordedQuote
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rq recordedQuote
		if err := json.Unmarshal(line, &rq); err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", len(out)+1, err)
		}
		out = append(out, rq)
	}
	return out, sc.Err()
}
