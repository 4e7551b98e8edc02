package strategy

import (
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

// AnalyzeConditions 依序評估條件列表，每個條件回傳一個布林值
//
// 純函數，無副作用。任何條件缺少欄位即回傳 MissingFieldError，
// 呼叫方應視為「本輪無法評估」並跳過該交易對。
func AnalyzeConditions(
	predicates []Predicate,
	pair vo.Pair,
	indicators vo.IndicatorSnapshot,
	side vo.Side,
	extra map[string]float64,
) ([]bool, error) {
	analysis := make([]bool, len(predicates))
	for i, p := range predicates {
		ok, err := p.Evaluate(pair, indicators, side, extra)
		if err != nil {
			return nil, err
		}
		analysis[i] = ok
	}
	return analysis, nil
}

// AllTrue 沒有任何 false 即為 true（空列表為 true）
func AllTrue(analysis []bool) bool {
	for _, ok := range analysis {
		if !ok {
			return false
		}
	}
	return true
}

// EvaluateConditions AnalyzeConditions + AllTrue
func EvaluateConditions(
	predicates []Predicate,
	pair vo.Pair,
	indicators vo.IndicatorSnapshot,
	side vo.Side,
	extra map[string]float64,
) (bool, error) {
	analysis, err := AnalyzeConditions(predicates, pair, indicators, side, extra)
	if err != nil {
		return false, err
	}
	return AllTrue(analysis), nil
}
