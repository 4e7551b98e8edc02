package application

import (
	"strings"

	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

// 拒絕原因（同時作為指標標籤）
const (
	RejectMinBalance   = "min_balance"
	RejectMaxChange    = "max_change"
	RejectMinChange    = "min_change"
	RejectBlacklisted  = "blacklisted"
	RejectWhitelist    = "not_whitelisted"
	RejectHolding      = "already_holding"
	RejectMaxPairs     = "max_pairs"
	RejectDCAValue     = "dca_below_min_cost"
	RejectDCATimeout   = "dca_timeout"
	RejectDepth        = "no_viable_depth"
	RejectMinCost      = "below_min_cost"
	RejectSubmission   = "submission"
	RejectMarketChange = "market_change"
)

// TotalCurrentValue 總資產 = 餘額 + Σ close*total，並回傳持有中的交易對數量
func TotalCurrentValue(balance float64, pairs map[string]vo.Pair) (tcv float64, owned int) {
	tcv = balance
	for _, p := range pairs {
		v := p.CurrentValue()
		tcv += v
		if v > 0 {
			owned++
		}
	}
	return tcv, owned
}

// AverageMarketChange 所有交易對 24h 漲跌幅的平均
func AverageMarketChange(pairs map[string]vo.Pair) float64 {
	if len(pairs) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pairs {
		sum += p.Percentage
	}
	return sum / float64(len(pairs))
}

// InRange min <= x <= max
func InRange(x, min, max float64) bool {
	return min <= x && x <= max
}

// ExceedsMinBalance 下單後餘額是否低於保留額度
func ExceedsMinBalance(balance, minBalance, price, amount float64) bool {
	return balance-price*amount < minBalance
}

// BelowMaxChange max 為 0 代表不限制
func BelowMaxChange(change, max float64) bool {
	return change < max || max == 0
}

// AboveMinChange min 為 0 代表不限制
func AboveMinChange(change, min float64) bool {
	return change > min || min == 0
}

// BelowMaxPairs max 為 0 代表不限制
func BelowMaxPairs(owned, max int) bool {
	return owned < max || max == 0
}

// IsBlacklisted 以交易對或基礎幣比對
func IsBlacklisted(symbol string, blacklist []string) bool {
	return listed(symbol, blacklist)
}

// IsWhitelisted 以交易對或基礎幣比對，"ALL" 代表全部
func IsWhitelisted(symbol string, whitelist []string) bool {
	for _, w := range whitelist {
		if w == "ALL" || w == "all" {
			return true
		}
	}
	return listed(symbol, whitelist)
}

func listed(symbol string, list []string) bool {
	base, _ := vo.SplitSymbol(symbol)
	for _, item := range list {
		if strings.EqualFold(item, symbol) || strings.EqualFold(item, base) {
			return true
		}
	}
	return false
}

// buyCheck 單一交易對下單前檢查的輸入
type buyCheck struct {
	pair    vo.Pair
	price   float64
	amount  float64
	balance float64 // 可用餘額
	tcv     float64 // 百分比保留額度的基準
	owned   int
	dca     bool
}

// pairBuyChecks 回傳第一個未通過的原因，全部通過回傳空字串
func (c TradeConditions) pairBuyChecks(in buyCheck) string {
	minBalance := c.MinBuyBalance
	if in.dca {
		minBalance = c.DCAMinBuyBalance
	}
	change := in.pair.Percentage

	switch {
	case ExceedsMinBalance(in.balance, minBalance.Resolve(in.tcv), in.price, in.amount):
		return RejectMinBalance
	case !BelowMaxChange(change, c.MaxChange):
		return RejectMaxChange
	case !AboveMinChange(change, c.MinChange):
		return RejectMinChange
	case IsBlacklisted(in.pair.Symbol, c.Blacklist):
		return RejectBlacklisted
	case !IsWhitelisted(in.pair.Symbol, c.Whitelist):
		return RejectWhitelist
	}

	if in.dca {
		return ""
	}
	if in.pair.Total >= 0.8*in.amount {
		return RejectHolding
	}
	if !BelowMaxPairs(in.owned, c.MaxPairs) {
		return RejectMaxPairs
	}
	return ""
}

// GlobalBuyChecks 市場整體漲跌是否允許買入
func (c TradeConditions) GlobalBuyChecks(pairs map[string]vo.Pair, quoteChange map[string]float64) bool {
	mc := c.MarketChange
	if mc == nil {
		return true
	}
	return InRange(quoteChange["1h"], mc.Min1hQuoteChange, mc.Max1hQuoteChange) &&
		InRange(AverageMarketChange(pairs), mc.Min24hMarketChange, mc.Max24hMarketChange) &&
		InRange(quoteChange["24h"], mc.Min24hQuoteChange, mc.Max24hQuoteChange)
}
