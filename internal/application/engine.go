package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"dizzycode.xyz/trading-engine/internal/domain/strategy"
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
	"dizzycode.xyz/trading-engine/pkg/logger"
)

// Strategies 依用途分組的策略實例
type Strategies struct {
	Buy    []strategy.Evaluatable
	DCABuy []strategy.Evaluatable
	Sell   []strategy.Evaluatable
}

// All 依固定順序列出所有策略
func (s Strategies) All() []strategy.Evaluatable {
	out := make([]strategy.Evaluatable, 0, len(s.Buy)+len(s.DCABuy)+len(s.Sell))
	out = append(out, s.Buy...)
	out = append(out, s.DCABuy...)
	return append(out, s.Sell...)
}

// Dependencies 引擎需要的端口
type Dependencies struct {
	Exchange   Exchange
	Indicators Indicators
	Store      StateStore
}

// Option 引擎選項
type Option func(*Engine)

// WithClock 替換時間來源（測試用）
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCyclePause 每輪之間的暫停
func WithCyclePause(d time.Duration) Option {
	return func(e *Engine) { e.cyclePause = d }
}

// WithPublisher 成交後廣播
func WithPublisher(p OrderPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithRecorder 指標記錄
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// Engine 決策循環
// 職責：
// 1. 每輪評估所有策略並解決同一交易對的信號衝突
// 2. 下單前檢查（餘額、黑白名單、持倉數、DCA 冷卻）
// 3. 以訂單簿深度決定成交數量與價格
// 4. 下單並持久化交易對狀態與成交記錄
type Engine struct {
	exchange   Exchange
	indicators Indicators
	store      StateStore
	publisher  OrderPublisher
	recorder   Recorder
	conditions TradeConditions
	strategies Strategies
	logger     logger.Logger
	now        func() time.Time
	cyclePause time.Duration

	mu      sync.RWMutex
	history []vo.TradeRecord
}

// NewEngine 創建決策引擎
func NewEngine(
	deps Dependencies,
	conditions TradeConditions,
	strategies Strategies,
	log logger.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		exchange:   deps.Exchange,
		indicators: deps.Indicators,
		store:      deps.Store,
		recorder:   NopRecorder{},
		conditions: conditions,
		strategies: strategies,
		logger:     log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TradeHistory 成交記錄拷貝
func (e *Engine) TradeHistory() []vo.TradeRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]vo.TradeRecord, len(e.history))
	copy(out, e.history)
	return out
}

// SetTradeHistory 啟動時載入既有成交記錄
func (e *Engine) SetTradeHistory(trades []vo.TradeRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append([]vo.TradeRecord(nil), trades...)
}

func (e *Engine) appendTrade(t vo.TradeRecord) []vo.TradeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, t)
	out := make([]vo.TradeRecord, len(e.history))
	copy(out, e.history)
	return out
}

// Markers 各策略目前武裝中的交易對
func (e *Engine) Markers() map[string]map[string]strategy.TrailingMarker {
	out := make(map[string]map[string]strategy.TrailingMarker)
	for _, s := range e.strategies.All() {
		if m := s.Markers(); len(m) > 0 {
			out[s.Name()] = m
		}
	}
	return out
}

// Run 連續執行決策循環直到 ctx 取消
//
// 只在兩輪之間檢查取消；進行中的一輪使用不可取消的 context 跑完，
// 已送出的訂單一定會寫入成交記錄。
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Decision loop started", map[string]any{
		"buy_strategies":  len(e.strategies.Buy),
		"dca_strategies":  len(e.strategies.DCABuy),
		"sell_strategies": len(e.strategies.Sell),
		"cycle_pause":     e.cyclePause.String(),
	})

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Decision loop stopped", nil)
			return nil
		default:
		}

		if err := e.RunCycle(context.WithoutCancel(ctx)); err != nil {
			e.logger.Error("Cycle finished with errors", map[string]any{
				"error": err,
			})
		}

		if e.cyclePause > 0 {
			select {
			case <-ctx.Done():
				e.logger.Info("Decision loop stopped", nil)
				return nil
			case <-time.After(e.cyclePause):
			}
		}
	}
}

// RunCycle 執行一輪評估與下單，回傳持久化錯誤
func (e *Engine) RunCycle(ctx context.Context) error {
	start := e.now()
	defer func() { e.recorder.CycleCompleted(e.now().Sub(start)) }()

	// 1. 刷新技術指標
	if err := e.indicators.Refresh(ctx); err != nil {
		e.logger.Warn("Indicator refresh failed, using previous statistics", map[string]any{
			"error": err,
		})
	}
	stats := e.indicators.Statistics()

	// 2. 取得交易對快照與總資產
	pairs := e.exchange.Pairs().Snapshot()
	tcv, owned := TotalCurrentValue(e.exchange.Balance(), pairs)

	var errs []error

	// 3. 市場整體允許時才考慮買入與加倉
	if e.conditions.GlobalBuyChecks(pairs, e.exchange.QuoteChangeInfo()) {
		buys := e.collectCandidates(ctx, e.strategies.Buy, pairs, stats, tcv, smaller)
		errs = append(errs, e.handleBuys(ctx, buys, pairs, tcv, &owned)...)

		dcaBuys := e.collectCandidates(ctx, e.strategies.DCABuy, pairs, stats, tcv, smaller)
		errs = append(errs, e.handleDCABuys(ctx, dcaBuys, pairs, tcv)...)
	} else {
		e.recorder.TradeRejected(RejectMarketChange)
		e.logger.Debug("Global buy checks failed, skipping buys", nil)
	}

	// 4. 賣出
	sells := e.collectCandidates(ctx, e.strategies.Sell, pairs, stats, tcv, larger)
	errs = append(errs, e.handleSells(ctx, sells, pairs)...)

	return errors.Join(errs...)
}

// 同一交易對多個買入信號取最小數量，多個賣出信號取最高的最低賣價
func smaller(candidate, current float64) bool { return candidate < current }
func larger(candidate, current float64) bool  { return candidate > current }

func (e *Engine) collectCandidates(
	ctx context.Context,
	strategies []strategy.Evaluatable,
	pairs map[string]vo.Pair,
	stats map[string]vo.IndicatorSnapshot,
	balance float64,
	better func(candidate, current float64) bool,
) map[string]strategy.Signal {
	candidates := make(map[string]strategy.Signal)
	symbols := vo.SortedSymbols(pairs)

	for _, s := range strategies {
		for _, symbol := range symbols {
			indicators, hasStats := stats[symbol]

			signal, err := e.evaluate(s, pairs[symbol], indicators, balance)
			switch {
			case err == nil:
			case errors.Is(err, strategy.ErrUnevaluable):
				continue
			case errors.Is(err, strategy.ErrMissingField):
				e.logger.Debug("Skipping pair with missing field", map[string]any{
					"strategy": s.Name(),
					"symbol":   symbol,
					"error":    err,
				})
				if !hasStats {
					e.reloadCandles(ctx, symbol)
				}
				continue
			default:
				e.recorder.EvaluationFailed(s.Name())
				e.logger.Error("Strategy evaluation failed", map[string]any{
					"strategy": s.Name(),
					"symbol":   symbol,
					"error":    err,
				})
				e.reloadCandles(ctx, symbol)
				continue
			}

			if signal == nil {
				continue
			}
			e.recorder.SignalEmitted(string(signal.Kind))

			if current, ok := candidates[symbol]; !ok || better(signal.Value, current.Value) {
				candidates[symbol] = *signal
			}
		}
	}
	return candidates
}

// evaluate 隔離單一策略的異常，panic 轉為 ErrEvaluation
func (e *Engine) evaluate(
	s strategy.Evaluatable,
	pair vo.Pair,
	indicators vo.IndicatorSnapshot,
	balance float64,
) (signal *strategy.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			signal = nil
			err = fmt.Errorf("%s on %s: panic: %v: %w", s.Name(), pair.Symbol, r, ErrEvaluation)
		}
	}()

	signal, err = s.Evaluate(pair, indicators, balance)
	if err != nil && !errors.Is(err, strategy.ErrMissingField) && !errors.Is(err, strategy.ErrUnevaluable) {
		return nil, fmt.Errorf("%s on %s: %w: %w", s.Name(), pair.Symbol, ErrEvaluation, err)
	}
	return signal, err
}

func (e *Engine) reloadCandles(ctx context.Context, symbol string) {
	if err := e.indicators.ReloadSingleCandleHistory(ctx, symbol); err != nil {
		e.logger.Warn("Candle history reload request failed", map[string]any{
			"symbol": symbol,
			"error":  err,
		})
	}
}

func sortedSignals(candidates map[string]strategy.Signal) []strategy.Signal {
	out := make([]strategy.Signal, 0, len(candidates))
	for _, s := range candidates {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
