package application

import (
	"context"
	"fmt"

	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

// RestorePairs 以上次保存的狀態補回交易對
//
// 即時資料沒有成本且持倉數量（大於 0）與保存時相同，才信任保存的成本基礎；
// 否則只恢復 DCA 層級與最後下單時間。
func RestorePairs(book *vo.PairBook, stored map[string]vo.Pair) (full, partial int) {
	for _, symbol := range book.Symbols() {
		saved, ok := stored[symbol]
		if !ok {
			continue
		}
		book.Update(symbol, func(p *vo.Pair) {
			if p.TotalCost == nil && saved.Total > 0 && saved.Total == p.Total && saved.HasCostBasis() {
				p.SetCostBasis(*saved.TotalCost, *saved.AvgPrice, saved.LastID)
				full++
			} else {
				partial++
			}
			p.DCALevel = saved.EffectiveDCALevel()
			p.LastOrderTime = saved.LastOrderTime
		})
	}
	return full, partial
}

// RestoreState 啟動時載入交易對狀態與成交記錄
func (e *Engine) RestoreState(ctx context.Context) error {
	stored, err := e.store.LoadPairs(ctx)
	if err != nil {
		return fmt.Errorf("load pairs: %w", err)
	}
	full, partial := RestorePairs(e.exchange.Pairs(), stored)

	trades, err := e.store.LoadTradeHistory(ctx)
	if err != nil {
		return fmt.Errorf("load trade history: %w", err)
	}
	e.SetTradeHistory(trades)

	e.logger.Info("State restored", map[string]any{
		"pairs_full":    full,
		"pairs_partial": partial,
		"trades":        len(trades),
	})
	return nil
}
