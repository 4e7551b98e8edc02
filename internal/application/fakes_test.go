package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dizzycode.xyz/trading-engine/internal/domain/strategy"
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

type placedOrder struct {
	Symbol string
	Side   vo.Side
	Amount float64
	Price  float64
}

type fakeExchange struct {
	mu          sync.Mutex
	book        *vo.PairBook
	balance     float64
	quoteChange map[string]float64
	books       map[string]vo.OrderBook
	minCost     float64
	placeErr    error
	orders      []placedOrder
}

func newFakeExchange(pairs ...vo.Pair) *fakeExchange {
	return &fakeExchange{
		book:        vo.NewPairBook(pairs...),
		balance:     10000,
		quoteChange: map[string]float64{"1h": 0, "24h": 0},
		books:       make(map[string]vo.OrderBook),
		minCost:     10,
	}
}

func (f *fakeExchange) Pairs() *vo.PairBook                 { return f.book }
func (f *fakeExchange) Balance() float64                    { return f.balance }
func (f *fakeExchange) QuoteChangeInfo() map[string]float64 { return f.quoteChange }
func (f *fakeExchange) MinCost(string) float64              { return f.minCost }
func (f *fakeExchange) GetDepth(_ context.Context, symbol string, side vo.Side) ([]vo.Level, error) {
	b, ok := f.books[symbol]
	if !ok {
		return nil, nil
	}
	return b.Side(side), nil
}

func (f *fakeExchange) PlaceOrder(_ context.Context, symbol string, _ vo.OrderType, side vo.Side, amount, price float64) (vo.TradeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return vo.TradeRecord{}, f.placeErr
	}
	f.orders = append(f.orders, placedOrder{Symbol: symbol, Side: side, Amount: amount, Price: price})
	id := fmt.Sprintf("t-%d", len(f.orders))
	return vo.TradeRecord{
		ID:      id,
		OrderID: id,
		Symbol:  symbol,
		Side:    side,
		Type:    vo.OrderTypeLimit,
		Amount:  amount,
		Price:   price,
		Cost:    amount * price,
	}, nil
}

type fakeIndicators struct {
	mu        sync.Mutex
	stats     map[string]vo.IndicatorSnapshot
	reloads   []string
	onRefresh func()
}

func (f *fakeIndicators) Refresh(context.Context) error {
	if f.onRefresh != nil {
		f.onRefresh()
	}
	return nil
}

func (f *fakeIndicators) Statistics() map[string]vo.IndicatorSnapshot { return f.stats }

func (f *fakeIndicators) ReloadSingleCandleHistory(_ context.Context, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads = append(f.reloads, symbol)
	return nil
}

type fakeStore struct {
	pairs   map[string]vo.Pair
	trades  []vo.TradeRecord
	saveErr error
	saves   int
}

func (f *fakeStore) LoadPairs(context.Context) (map[string]vo.Pair, error) { return f.pairs, nil }
func (f *fakeStore) LoadTradeHistory(context.Context) ([]vo.TradeRecord, error) {
	return f.trades, nil
}

func (f *fakeStore) SavePairs(_ context.Context, pairs map[string]vo.Pair) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.pairs = pairs
	return nil
}

func (f *fakeStore) SaveTradeHistory(_ context.Context, trades []vo.TradeRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.trades = trades
	return nil
}

type countingRecorder struct {
	NopRecorder
	mu       sync.Mutex
	cycles   int
	rejected map[string]int
	failed   map[string]int
	signals  map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		rejected: make(map[string]int),
		failed:   make(map[string]int),
		signals:  make(map[string]int),
	}
}

func (r *countingRecorder) CycleCompleted(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles++
}

func (r *countingRecorder) TradeRejected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected[reason]++
}

func (r *countingRecorder) EvaluationFailed(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[name]++
}

func (r *countingRecorder) SignalEmitted(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals[kind]++
}

// brokenStrategy 模擬評估異常
type brokenStrategy struct {
	panics bool
}

func (b *brokenStrategy) Name() string                                { return "broken" }
func (b *brokenStrategy) Kind() strategy.SignalKind                   { return strategy.KindBuy }
func (b *brokenStrategy) Markers() map[string]strategy.TrailingMarker { return nil }
func (b *brokenStrategy) Evaluate(vo.Pair, vo.IndicatorSnapshot, float64) (*strategy.Signal, error) {
	if b.panics {
		panic("index out of range")
	}
	return nil, fmt.Errorf("indicator series too short")
}
