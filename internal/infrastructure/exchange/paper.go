package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dizzycode.xyz/trading-engine/internal/application"
	"dizzycode.xyz/trading-engine/internal/domain/depth"
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
	"dizzycode.xyz/trading-engine/pkg/logger"
)

var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrNotFilled            = errors.New("order not filled")
	ErrUnknownSymbol        = errors.New("unknown symbol")
)

var (
	_ application.Exchange      = (*PaperExchange)(nil)
	_ application.AccountSource = (*PaperExchange)(nil)
)

// OrderBookSource 訂單簿來源（Redis 行情快取）
type OrderBookSource interface {
	GetOrderBook(ctx context.Context, symbol string) (vo.OrderBook, error)
}

// PaperOptions 模擬帳戶參數
type PaperOptions struct {
	Quote           string
	StartingBalance float64
	FeeRate         float64 // taker 手續費率，以計價幣收取
	MinCost         float64
	MinAmount       float64
	DepthInterval   time.Duration
}

// PaperExchange 模擬交易所
//
// 下單以 IOC 限價單對當下訂單簿撮合，吃不到的部分直接取消。
// 成交後立即更新交易對的 total，成本基礎交由餘額同步任務重建。
type PaperExchange struct {
	pairs    *vo.PairBook
	books    OrderBookSource
	throttle *depth.Throttle
	opts     PaperOptions
	logger   logger.Logger
	now      func() time.Time

	mu          sync.Mutex
	balance     decimal.Decimal
	holdings    map[string]decimal.Decimal
	trades      map[string][]vo.TradeRecord
	quoteChange map[string]float64
}

// NewPaperExchange 創建模擬交易所，交易對的最小下單限制未設定時套用預設值
func NewPaperExchange(pairs *vo.PairBook, books OrderBookSource, opts PaperOptions, log logger.Logger) *PaperExchange {
	for _, symbol := range pairs.Symbols() {
		pairs.Update(symbol, func(p *vo.Pair) {
			if p.MinCost <= 0 {
				p.MinCost = opts.MinCost
			}
			if p.MinAmount <= 0 {
				p.MinAmount = opts.MinAmount
			}
		})
	}
	return &PaperExchange{
		pairs:       pairs,
		books:       books,
		throttle:    depth.NewThrottle(opts.DepthInterval),
		opts:        opts,
		logger:      log,
		now:         time.Now,
		balance:     decimal.NewFromFloat(opts.StartingBalance),
		holdings:    make(map[string]decimal.Decimal),
		trades:      make(map[string][]vo.TradeRecord),
		quoteChange: make(map[string]float64),
	}
}

// WithClock 替換時鐘（測試用），同時套用到訂單簿節流
func (x *PaperExchange) WithClock(now func() time.Time) *PaperExchange {
	x.now = now
	x.throttle.WithClock(now)
	return x
}

func (x *PaperExchange) Pairs() *vo.PairBook {
	return x.pairs
}

// Balance 可用計價幣餘額
func (x *PaperExchange) Balance() float64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.balance.InexactFloat64()
}

// QuoteChangeInfo 計價幣兌 USDT 的各時段漲跌幅
func (x *PaperExchange) QuoteChangeInfo() map[string]float64 {
	x.mu.Lock()
	defer x.mu.Unlock()

	out := make(map[string]float64, len(x.quoteChange))
	for k, v := range x.quoteChange {
		out[k] = v
	}
	return out
}

// SetQuoteChangeInfo 由行情任務寫入
func (x *PaperExchange) SetQuoteChangeInfo(info map[string]float64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.quoteChange = info
}

// GetDepth 取得要吃的一側，節流中回傳 nil
func (x *PaperExchange) GetDepth(ctx context.Context, symbol string, side vo.Side) ([]vo.Level, error) {
	if !x.throttle.Allow(symbol) {
		return nil, nil
	}
	book, err := x.books.GetOrderBook(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("get order book %s: %w", symbol, err)
	}
	levels := book.Side(side)
	if levels == nil {
		levels = []vo.Level{}
	}
	return levels, nil
}

// MinCost 交易對最小下單金額
func (x *PaperExchange) MinCost(symbol string) float64 {
	if p, ok := x.pairs.Get(symbol); ok && p.MinCost > 0 {
		return p.MinCost
	}
	return x.opts.MinCost
}

// PlaceOrder 以當下訂單簿撮合 IOC 訂單
func (x *PaperExchange) PlaceOrder(
	ctx context.Context,
	symbol string,
	orderType vo.OrderType,
	side vo.Side,
	amount, price float64,
) (vo.TradeRecord, error) {
	pair, ok := x.pairs.Get(symbol)
	if !ok {
		return vo.TradeRecord{}, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}
	if amount <= 0 {
		return vo.TradeRecord{}, fmt.Errorf("invalid amount %v", amount)
	}

	// 1. 取得訂單簿並撮合
	book, err := x.books.GetOrderBook(ctx, symbol)
	if err != nil {
		return vo.TradeRecord{}, fmt.Errorf("get order book %s: %w", symbol, err)
	}
	filled, cost := match(book.Side(side), side, orderType, amount, price)
	if !filled.IsPositive() {
		return vo.TradeRecord{}, fmt.Errorf("%s %s %v @ %v: %w", side, symbol, amount, price, ErrNotFilled)
	}
	fee := cost.Mul(decimal.NewFromFloat(x.opts.FeeRate))

	// 2. 檢查並更新帳戶
	x.mu.Lock()
	held := x.holdings[pair.Base]
	switch side {
	case vo.SideBuy:
		need := cost.Add(fee)
		if x.balance.LessThan(need) {
			x.mu.Unlock()
			return vo.TradeRecord{}, fmt.Errorf(
				"need %s %s (cost %s + fee %s), have %s: %w",
				need.StringFixed(8), pair.Quote, cost.StringFixed(8), fee.StringFixed(8), x.balance.StringFixed(8), ErrInsufficientBalance,
			)
		}
		x.balance = x.balance.Sub(need)
		held = held.Add(filled)
	case vo.SideSell:
		if held.LessThan(filled) {
			x.mu.Unlock()
			return vo.TradeRecord{}, fmt.Errorf("sell %s %s, hold %s: %w", filled.String(), pair.Base, held.String(), ErrInsufficientHoldings)
		}
		x.balance = x.balance.Add(cost.Sub(fee))
		held = held.Sub(filled)
	default:
		x.mu.Unlock()
		return vo.TradeRecord{}, fmt.Errorf("invalid side %q", side)
	}
	x.holdings[pair.Base] = held

	trade := vo.TradeRecord{
		ID:        uuid.NewString(),
		OrderID:   uuid.NewString(),
		Symbol:    symbol,
		Side:      side,
		Type:      orderType,
		Amount:    filled.InexactFloat64(),
		Price:     cost.Div(filled).InexactFloat64(),
		Cost:      cost.InexactFloat64(),
		Fee:       fee.InexactFloat64(),
		Timestamp: x.now().UnixMilli(),
	}
	x.trades[symbol] = append(x.trades[symbol], trade)
	x.mu.Unlock()

	// 3. 持倉數量立即反映到交易對，清倉時一併清空成本與 DCA 層級
	x.pairs.Update(symbol, func(p *vo.Pair) {
		p.Total = held.InexactFloat64()
		if !held.IsPositive() {
			p.ClearCostBasis()
			p.DCALevel = 1
		}
	})

	x.logger.Debug("Paper order filled", map[string]any{
		"symbol":    symbol,
		"side":      side,
		"requested": amount,
		"filled":    trade.Amount,
		"price":     trade.Price,
		"fee":       trade.Fee,
	})
	return trade, nil
}

// match 逐檔吃單：買單只吃 <= price 的賣價，賣單只吃 >= price 的買價
func match(levels []vo.Level, side vo.Side, orderType vo.OrderType, amount, price float64) (filled, cost decimal.Decimal) {
	remaining := decimal.NewFromFloat(amount)
	for _, level := range levels {
		if !remaining.IsPositive() {
			break
		}
		if orderType == vo.OrderTypeLimit {
			if side == vo.SideBuy && level.Price > price {
				break
			}
			if side == vo.SideSell && level.Price < price {
				break
			}
		}
		take := decimal.Min(remaining, decimal.NewFromFloat(level.Volume))
		if !take.IsPositive() {
			continue
		}
		filled = filled.Add(take)
		cost = cost.Add(take.Mul(decimal.NewFromFloat(level.Price)))
		remaining = remaining.Sub(take)
	}
	return filled, cost
}

// FetchBalances 基礎幣持倉與計價幣餘額
func (x *PaperExchange) FetchBalances(_ context.Context) (map[string]float64, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	out := make(map[string]float64, len(x.holdings)+1)
	for asset, v := range x.holdings {
		out[asset] = v.InexactFloat64()
	}
	if x.opts.Quote != "" {
		out[x.opts.Quote] = x.balance.InexactFloat64()
	}
	return out, nil
}

// FetchMyTrades 單一交易對的成交記錄（舊到新）
func (x *PaperExchange) FetchMyTrades(_ context.Context, symbol string) ([]vo.TradeRecord, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	trades := x.trades[symbol]
	out := make([]vo.TradeRecord, len(trades))
	copy(out, trades)
	return out, nil
}

// Replay 以保存的成交記錄重建帳戶，重啟時在恢復交易對狀態之前呼叫
func (x *PaperExchange) Replay(trades []vo.TradeRecord) {
	feeRate := decimal.NewFromFloat(x.opts.FeeRate)

	x.mu.Lock()
	x.balance = decimal.NewFromFloat(x.opts.StartingBalance)
	x.holdings = make(map[string]decimal.Decimal)
	x.trades = make(map[string][]vo.TradeRecord)

	for _, t := range trades {
		base, _ := vo.SplitSymbol(t.Symbol)
		qty := decimal.NewFromFloat(t.Amount)
		cost := decimal.NewFromFloat(t.Notional())
		fee := decimal.NewFromFloat(t.Fee)
		if t.Fee == 0 {
			fee = cost.Mul(feeRate)
		}

		switch t.Side {
		case vo.SideBuy:
			x.balance = x.balance.Sub(cost.Add(fee))
			x.holdings[base] = x.holdings[base].Add(qty)
		case vo.SideSell:
			x.balance = x.balance.Add(cost.Sub(fee))
			x.holdings[base] = decimal.Max(decimal.Zero, x.holdings[base].Sub(qty))
		}
		x.trades[t.Symbol] = append(x.trades[t.Symbol], t)
	}
	holdings := make(map[string]float64, len(x.holdings))
	for asset, v := range x.holdings {
		holdings[asset] = v.InexactFloat64()
	}
	balance := x.balance.InexactFloat64()
	x.mu.Unlock()

	for _, symbol := range x.pairs.Symbols() {
		x.pairs.Update(symbol, func(p *vo.Pair) { p.Total = holdings[p.Base] })
	}

	x.logger.Info("Paper account replayed", map[string]any{
		"trades":  len(trades),
		"balance": balance,
	})
}
