package strategy

import (
	"github.com/shopspring/decimal"

	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

// DefaultSellFee 預設手續費（%）
const DefaultSellFee = 0.075

// SellConfig 賣出策略
type SellConfig struct {
	Name       string
	Conditions []Predicate
	Trailing   float64
	SellValue  float64
	Fee        *float64           // nil 使用 DefaultSellFee
	PairValues map[string]float64 // 依基礎幣覆寫 sell_value，例如 {"ETH": 2}
}

// SellCondition 追蹤賣出
//
// sell_value >= 0 為停利門檻，負值為停損。武裝後記錄最高 bid，
// 自最高點回落 trailing% 即觸發，輸出可接受的最低賣價。
type SellCondition struct {
	trailingCondition
	sellValue  float64
	fee        float64
	pairValues map[string]float64
}

var _ Evaluatable = (*SellCondition)(nil)

// NewSellCondition 建立追蹤賣出條件
func NewSellCondition(cfg SellConfig) (*SellCondition, error) {
	base, err := newTrailingCondition(cfg.Name, cfg.Conditions, cfg.Trailing)
	if err != nil {
		return nil, err
	}
	fee := DefaultSellFee
	if cfg.Fee != nil {
		fee = *cfg.Fee
	}
	return &SellCondition{
		trailingCondition: base,
		sellValue:         cfg.SellValue,
		fee:               fee,
		pairValues:        cfg.PairValues,
	}, nil
}

func (c *SellCondition) Kind() SignalKind { return KindSell }

// SellValue 交易對適用的 sell_value（有覆寫則用覆寫值）
func (c *SellCondition) SellValue(symbol string) float64 {
	base, _ := vo.SplitSymbol(symbol)
	if v, ok := c.pairValues[base]; ok {
		return v
	}
	return c.sellValue
}

// LowestSellPrice avg_price * (1 + sell_value + fee) / 100
func LowestSellPrice(avgPrice, sellValue, fee float64) float64 {
	return decimal.NewFromFloat(avgPrice).
		Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(sellValue)).Add(decimal.NewFromFloat(fee))).
		Div(hundred).
		InexactFloat64()
}

// Evaluate 回傳可接受的最低賣價
func (c *SellCondition) Evaluate(pair vo.Pair, indicators vo.IndicatorSnapshot, _ float64) (*Signal, error) {
	switch {
	case pair.Bid <= 0:
		return nil, missingField(pair.Symbol, "bid")
	case pair.AvgPrice == nil:
		return nil, missingField(pair.Symbol, "avg_price")
	case pair.TotalCost == nil:
		return nil, missingField(pair.Symbol, "total_cost")
	}

	price := pair.Bid
	avgPrice := *pair.AvgPrice
	percentChange := PercentChange(pair.Total*price, avgPrice*pair.Total) - c.fee
	sellValue := c.SellValue(pair.Symbol)

	ok, err := EvaluateConditions(c.predicates, pair, indicators, vo.SideSell,
		map[string]float64{"percent_change": percentChange})
	if err != nil {
		return nil, err
	}

	var res bool
	if sellValue >= 0 {
		res = ok && percentChange > sellValue
	} else {
		res = ok && percentChange < sellValue
	}

	if !res {
		c.trailing.disarm(pair.Symbol)
		return nil, nil
	}

	marker := c.trailing.trailUp(pair.Symbol, price)
	if price > marker.TrailTo {
		return nil, nil
	}

	return &Signal{
		Symbol:   pair.Symbol,
		Kind:     KindSell,
		Value:    LowestSellPrice(avgPrice, sellValue, c.fee),
		Strategy: c.name,
	}, nil
}
