package strategy

import (
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

// DCABuyConfig 加倉策略
type DCABuyConfig struct {
	Name        string
	Conditions  []Predicate
	Trailing    float64
	MaxDCALevel int
	Levels      *DCALevelPolicy
}

// DCABuyCondition 追蹤加倉
//
// 在條件評估之前先檢查層級上限與當前跌幅是否已達該層級的觸發點。
type DCABuyCondition struct {
	trailingCondition
	maxDCALevel int
	levels      *DCALevelPolicy
}

var _ Evaluatable = (*DCABuyCondition)(nil)

// NewDCABuyCondition 建立追蹤加倉條件
func NewDCABuyCondition(cfg DCABuyConfig) (*DCABuyCondition, error) {
	base, err := newTrailingCondition(cfg.Name, cfg.Conditions, cfg.Trailing)
	if err != nil {
		return nil, err
	}
	if cfg.Levels == nil {
		return nil, invalidConfig("%s: dca_strategy is required", cfg.Name)
	}
	if cfg.MaxDCALevel < 1 {
		return nil, invalidConfig("%s: max_dca_level must be at least 1", cfg.Name)
	}
	return &DCABuyCondition{
		trailingCondition: base,
		maxDCALevel:       cfg.MaxDCALevel,
		levels:            cfg.Levels,
	}, nil
}

func (c *DCABuyCondition) Kind() SignalKind { return KindDCABuy }

// Evaluate 回傳加倉數量 = 該層級百分比 * 目前持倉
func (c *DCABuyCondition) Evaluate(pair vo.Pair, indicators vo.IndicatorSnapshot, _ float64) (*Signal, error) {
	if pair.Close <= 0 {
		return nil, missingField(pair.Symbol, "close")
	}
	if pair.TotalCost == nil {
		return nil, missingField(pair.Symbol, "total_cost")
	}

	price := pair.Close
	level := pair.EffectiveDCALevel()

	if level >= c.maxDCALevel {
		return nil, unevaluable(pair.Symbol, "max dca level %d reached", c.maxDCALevel)
	}

	percentChange := PercentChange(price*pair.Total, *pair.TotalCost)
	if trigger := c.levels.Trigger(level); percentChange > trigger {
		return nil, unevaluable(pair.Symbol, "above dca trigger %g, currently at %.4f", trigger, percentChange)
	}

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
		Kind:     KindDCABuy,
		Value:    c.levels.Percentage(level) / 100 * pair.Total,
		Strategy: c.name,
	}, nil
}
