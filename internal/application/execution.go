package application

import (
	"context"
	"fmt"

	"dizzycode.xyz/trading-engine/internal/domain/depth"
	"dizzycode.xyz/trading-engine/internal/domain/strategy"
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

// handleBuys 一般買入：補足目標數量與目前持倉的差額，允許部分成交
func (e *Engine) handleBuys(ctx context.Context, candidates map[string]strategy.Signal, pairs map[string]vo.Pair, tcv float64, owned *int) []error {
	var errs []error

	for _, signal := range sortedSignals(candidates) {
		pair := pairs[signal.Symbol]

		reason := e.conditions.pairBuyChecks(buyCheck{
			pair:    pair,
			price:   pair.Close,
			amount:  signal.Value,
			balance: e.exchange.Balance(),
			tcv:     tcv,
			owned:   *owned,
		})
		if reason != "" {
			e.reject(signal, reason)
			continue
		}

		remaining := signal.Value - pair.Total
		minCost := e.exchange.MinCost(pair.Symbol)

		levels, ok := e.depth(ctx, pair.Symbol, vo.SideBuy)
		if !ok {
			continue
		}

		fill, err := depth.SelectFill(pair.Close, levels, remaining, minCost, e.conditions.MaxSpread, true)
		if err != nil {
			e.reject(signal, RejectDepth)
			continue
		}
		if fill.Notional() < minCost {
			e.reject(signal, RejectMinCost)
			continue
		}

		placed, err := e.execute(ctx, signal, fill.Amount, fill.Price)
		if err != nil {
			errs = append(errs, err)
		}
		if placed && pair.CurrentValue() <= 0 {
			*owned++
		}
	}
	return errs
}

// handleDCABuys 加倉：需持倉價值達最小金額、冷卻時間已過，且必須完整成交
func (e *Engine) handleDCABuys(ctx context.Context, candidates map[string]strategy.Signal, pairs map[string]vo.Pair, tcv float64) []error {
	var errs []error

	for _, signal := range sortedSignals(candidates) {
		pair := pairs[signal.Symbol]
		minCost := e.exchange.MinCost(pair.Symbol)

		if pair.CurrentValue() < minCost {
			e.reject(signal, RejectDCAValue)
			continue
		}
		if e.now().Sub(pair.LastOrderTime) < e.conditions.DCATimeout {
			e.reject(signal, RejectDCATimeout)
			continue
		}

		reason := e.conditions.pairBuyChecks(buyCheck{
			pair:    pair,
			price:   pair.Close,
			amount:  signal.Value,
			balance: e.exchange.Balance(),
			tcv:     tcv,
			dca:     true,
		})
		if reason != "" {
			e.reject(signal, reason)
			continue
		}

		levels, ok := e.depth(ctx, pair.Symbol, vo.SideBuy)
		if !ok {
			continue
		}

		fill, err := depth.SelectFill(pair.Close, levels, signal.Value, minCost, e.conditions.MaxSpread, false)
		if err != nil {
			e.reject(signal, RejectDepth)
			continue
		}
		if fill.Notional() < minCost {
			e.reject(signal, RejectMinCost)
			continue
		}

		if _, err := e.execute(ctx, signal, signal.Value, fill.Price); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// handleSells 賣出全部持倉，成交價必須高於信號給出的最低賣價
func (e *Engine) handleSells(ctx context.Context, candidates map[string]strategy.Signal, pairs map[string]vo.Pair) []error {
	var errs []error

	for _, signal := range sortedSignals(candidates) {
		pair := pairs[signal.Symbol]
		minCost := e.exchange.MinCost(pair.Symbol)

		if pair.CurrentValue() < minCost {
			e.reject(signal, RejectMinCost)
			continue
		}

		levels, ok := e.depth(ctx, pair.Symbol, vo.SideSell)
		if !ok {
			continue
		}

		fill, err := depth.SelectSellFill(levels, pair.Total, minCost, signal.Value)
		if err != nil {
			e.reject(signal, RejectDepth)
			continue
		}

		if _, err := e.execute(ctx, signal, pair.Total, fill.Price); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// depth 取得訂單簿一側；被節流或讀取失敗時回傳 false，本輪跳過
func (e *Engine) depth(ctx context.Context, symbol string, side vo.Side) ([]vo.Level, bool) {
	levels, err := e.exchange.GetDepth(ctx, symbol, side)
	if err != nil {
		e.logger.Warn("Order book unavailable", map[string]any{
			"symbol": symbol,
			"side":   side,
			"error":  err,
		})
		return nil, false
	}
	if levels == nil {
		e.logger.Debug("Order book throttled", map[string]any{
			"symbol": symbol,
		})
		return nil, false
	}
	return levels, true
}

func (e *Engine) reject(signal strategy.Signal, reason string) {
	e.recorder.TradeRejected(reason)
	e.logger.Debug("Candidate rejected", map[string]any{
		"symbol":   signal.Symbol,
		"kind":     signal.Kind,
		"strategy": signal.Strategy,
		"reason":   reason,
	})
}

// execute 下單並更新狀態
// 下單失敗只記錄，不重試；回傳的錯誤只有持久化失敗
func (e *Engine) execute(ctx context.Context, signal strategy.Signal, amount, price float64) (bool, error) {
	side := signal.Kind.Side()

	// 1. 送出限價單
	trade, err := e.exchange.PlaceOrder(ctx, signal.Symbol, vo.OrderTypeLimit, side, amount, price)
	if err != nil {
		e.recorder.TradeRejected(RejectSubmission)
		e.logger.Warn("Order submission failed", map[string]any{
			"symbol": signal.Symbol,
			"side":   side,
			"amount": amount,
			"price":  price,
			"error":  fmt.Errorf("%w: %w", ErrSubmission, err),
		})
		return false, nil
	}

	// 2. 更新交易對狀態（最後下單時間、DCA 層級）
	now := e.now()
	e.exchange.Pairs().Update(signal.Symbol, func(p *vo.Pair) {
		p.LastOrderTime = now
		if signal.Kind == strategy.KindDCABuy {
			p.DCALevel = p.EffectiveDCALevel() + 1
		}
	})

	// 3. 記錄成交
	history := e.appendTrade(trade)
	e.recorder.OrderPlaced(string(side))
	e.logger.Info("Order placed", map[string]any{
		"symbol":   trade.Symbol,
		"kind":     signal.Kind,
		"strategy": signal.Strategy,
		"side":     trade.Side,
		"amount":   trade.Amount,
		"price":    trade.Price,
		"order_id": trade.OrderID,
	})

	// 4. 廣播（失敗不影響交易）
	if e.publisher != nil {
		if err := e.publisher.PublishOrder(ctx, trade); err != nil {
			e.logger.Warn("Order event publish failed", map[string]any{
				"symbol": trade.Symbol,
				"error":  err,
			})
		}
	}

	// 5. 持久化
	return true, e.persist(ctx, history)
}

func (e *Engine) persist(ctx context.Context, history []vo.TradeRecord) error {
	if err := e.store.SavePairs(ctx, e.exchange.Pairs().Snapshot()); err != nil {
		return fmt.Errorf("%w: pairs: %w", ErrPersistence, err)
	}
	if err := e.store.SaveTradeHistory(ctx, history); err != nil {
		return fmt.Errorf("%w: trade history: %w", ErrPersistence, err)
	}
	return nil
}
