package strategy

import (
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

// trailingCondition 三種條件共用的部分
type trailingCondition struct {
	name       string
	predicates []Predicate
	trailing   *trailingBook
}

func newTrailingCondition(name string, predicates []Predicate, trailingPercent float64) (trailingCondition, error) {
	if trailingPercent < 0 {
		return trailingCondition{}, invalidConfig("%s: trailing %% must not be negative, got %g", name, trailingPercent)
	}
	return trailingCondition{
		name:       name,
		predicates: predicates,
		trailing:   newTrailingBook(trailingPercent),
	}, nil
}

func (c *trailingCondition) Name() string { return c.name }

// Markers 目前武裝中的交易對
func (c *trailingCondition) Markers() map[string]TrailingMarker {
	return c.trailing.snapshot()
}

// Marker 查詢單一交易對的追蹤狀態
func (c *trailingCondition) Marker(symbol string) (TrailingMarker, bool) {
	return c.trailing.get(symbol)
}

// BuyConfig 一般買入策略
type BuyConfig struct {
	Name       string
	Conditions []Predicate
	Trailing   float64 // trailing %
	BuyValue   ValueExpr
}

// BuyCondition 追蹤買入
//
// 條件成立時武裝並記錄最低價，價格自最低點反彈 trailing% 即觸發；
// 觸發後不清除 marker，只有條件不成立才解除。
type BuyCondition struct {
	trailingCondition
	buyValue ValueExpr
}

var _ Evaluatable = (*BuyCondition)(nil)

// NewBuyCondition 建立追蹤買入條件
func NewBuyCondition(cfg BuyConfig) (*BuyCondition, error) {
	base, err := newTrailingCondition(cfg.Name, cfg.Conditions, cfg.Trailing)
	if err != nil {
		return nil, err
	}
	if cfg.BuyValue.Value <= 0 {
		return nil, invalidConfig("%s: buy_value must be positive", cfg.Name)
	}
	return &BuyCondition{trailingCondition: base, buyValue: cfg.BuyValue}, nil
}

func (c *BuyCondition) Kind() SignalKind { return KindBuy }

// Evaluate 回傳目標買入數量（基礎幣）
func (c *BuyCondition) Evaluate(pair vo.Pair, indicators vo.IndicatorSnapshot, balance float64) (*Signal, error) {
	if pair.Close <= 0 {
		return nil, missingField(pair.Symbol, "close")
	}
	price := pair.Close

	ok, err := EvaluateConditions(c.predicates, pair, indicators, vo.SideBuy, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		c.trailing.disarm(pair.Symbol)
		return nil, nil
	}

	marker := c.trailing.trailDown(pair.Symbol, price)
	if price < marker.TrailTo {
		return nil, nil
	}

	return &Signal{
		Symbol:   pair.Symbol,
		Kind:     KindBuy,
		Value:    c.buyValue.Resolve(balance) / price,
		Strategy: c.name,
	}, nil
}
