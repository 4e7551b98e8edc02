package application

import (
	"context"
	"errors"
	"fmt"

	"dizzycode.xyz/trading-engine/internal/domain/position"
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
	"dizzycode.xyz/trading-engine/pkg/logger"
)

// BalanceRefresher 定期同步持倉數量並重建成本基礎
//
// 報價幣餘額由 Exchange 自行維護，這裡只處理基礎幣持倉。
type BalanceRefresher struct {
	pairs   *vo.PairBook
	account AccountSource
	tracker *position.Tracker
	logger  logger.Logger
}

// NewBalanceRefresher 創建餘額同步器
func NewBalanceRefresher(pairs *vo.PairBook, account AccountSource, tracker *position.Tracker, log logger.Logger) *BalanceRefresher {
	return &BalanceRefresher{
		pairs:   pairs,
		account: account,
		tracker: tracker,
		logger:  log,
	}
}

// Refresh 執行一次同步
func (r *BalanceRefresher) Refresh(ctx context.Context) error {
	balances, err := r.account.FetchBalances(ctx)
	if err != nil {
		return fmt.Errorf("fetch balances: %w", err)
	}

	var errs []error
	for _, symbol := range r.pairs.Symbols() {
		if err := r.refreshPair(ctx, symbol, balances); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *BalanceRefresher) refreshPair(ctx context.Context, symbol string, balances map[string]float64) error {
	pair, ok := r.pairs.Get(symbol)
	if !ok {
		return nil
	}
	held := balances[pair.Base]

	// 1. 沒有持倉（或低於最小下單量）：清空成本，DCA 層級歸 1
	if r.tracker.Matches(0, held) || held < pair.MinAmount {
		r.pairs.Update(symbol, func(p *vo.Pair) {
			p.Total = held
			p.ClearCostBasis()
			p.DCALevel = 1
		})
		return nil
	}

	// 2. 持倉未變：沿用現有成本
	prior := position.BasisFromPair(pair)
	if prior != nil && r.tracker.Matches(prior.Amount, held) {
		r.pairs.Update(symbol, func(p *vo.Pair) { p.Total = held })
		return nil
	}

	// 3. 持倉變動：以成交記錄重建
	trades, err := r.account.FetchMyTrades(ctx, symbol)
	if err != nil {
		r.pairs.Update(symbol, func(p *vo.Pair) { p.Total = held })
		return fmt.Errorf("fetch trades %s: %w", symbol, err)
	}

	basis, err := r.tracker.Reconcile(prior, trades, held)
	r.pairs.Update(symbol, func(p *vo.Pair) {
		p.Total = held
		if err != nil {
			p.ClearCostBasis()
			return
		}
		p.SetCostBasis(basis.TotalCost, basis.AvgPrice, basis.LastID)
	})

	if err != nil {
		r.logger.Warn("Cost basis unreconciled, clearing avg price", map[string]any{
			"symbol": symbol,
			"held":   held,
			"error":  err,
		})
		return nil
	}

	r.logger.Debug("Cost basis updated", map[string]any{
		"symbol":     symbol,
		"held":       held,
		"avg_price":  basis.AvgPrice,
		"total_cost": basis.TotalCost,
	})
	return nil
}
