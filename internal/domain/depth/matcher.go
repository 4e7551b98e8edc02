package depth

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

// ErrInfeasible 訂單簿無法提供符合最小金額與價差限制的成交
var ErrInfeasible = errors.New("no feasible fill")

// Process 沿訂單簿一側（最佳價在前）累積數量與金額
//
//   - 目標數量被滿足：canFill 恰好等於目標數量，均價只計入吃到的部分
//   - 訂單簿吃完仍不足：minimumFill 為可成交的全部數量，金額需 >= minCost，否則兩者皆為 nil
//
// 價格或數量非正的價位會被略過。
func Process(levels []vo.Level, amount, minCost float64) (canFill, minimumFill *vo.FillEstimate) {
	if amount <= 0 || len(levels) == 0 {
		return nil, nil
	}

	target := decimal.NewFromFloat(amount)
	filled := decimal.Zero
	cost := decimal.Zero
	last := decimal.Zero

	for _, level := range levels {
		if level.Price <= 0 || level.Volume <= 0 {
			continue
		}
		price := decimal.NewFromFloat(level.Price)
		volume := decimal.NewFromFloat(level.Volume)
		last = price

		remaining := target.Sub(filled)
		if volume.GreaterThanOrEqual(remaining) {
			cost = cost.Add(remaining.Mul(price))
			return &vo.FillEstimate{
				Price:        level.Price,
				AveragePrice: cost.Div(target).InexactFloat64(),
				Amount:       amount,
			}, nil
		}

		filled = filled.Add(volume)
		cost = cost.Add(volume.Mul(price))
	}

	if filled.IsZero() || cost.LessThan(decimal.NewFromFloat(minCost)) {
		return nil, nil
	}

	return nil, &vo.FillEstimate{
		Price:        last.InexactFloat64(),
		AveragePrice: cost.Div(filled).InexactFloat64(),
		Amount:       filled.InexactFloat64(),
	}
}

// InMaxSpread 成交價偏離參考價不超過 maxSpread%
func InMaxSpread(referencePrice, fillPrice, maxSpread float64) bool {
	if referencePrice <= 0 {
		return false
	}
	spread := decimal.NewFromFloat(fillPrice).Sub(decimal.NewFromFloat(referencePrice)).
		Div(decimal.NewFromFloat(referencePrice)).
		Mul(decimal.NewFromInt(100)).
		InexactFloat64()
	return math.Abs(spread) <= maxSpread
}

// SelectFill 優先使用 canFill，其次在允許部分成交時使用 minimumFill，兩者都需通過價差檢查
func SelectFill(referencePrice float64, levels []vo.Level, amount, minCost, maxSpread float64, allowPartial bool) (*vo.FillEstimate, error) {
	canFill, minimumFill := Process(levels, amount, minCost)

	if canFill != nil && InMaxSpread(referencePrice, canFill.Price, maxSpread) {
		return canFill, nil
	}
	if allowPartial && minimumFill != nil && InMaxSpread(referencePrice, minimumFill.Price, maxSpread) {
		return minimumFill, nil
	}
	return nil, ErrInfeasible
}

// SelectSellFill 賣出使用：成交價必須高於可接受的最低賣價
func SelectSellFill(levels []vo.Level, amount, minCost, lowestPrice float64) (*vo.FillEstimate, error) {
	canFill, minimumFill := Process(levels, amount, minCost)

	if canFill != nil && canFill.Price > lowestPrice {
		return canFill, nil
	}
	if minimumFill != nil && minimumFill.Price > lowestPrice {
		return minimumFill, nil
	}
	return nil, ErrInfeasible
}
