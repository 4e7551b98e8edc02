package application

import (
	"time"

	"dizzycode.xyz/trading-engine/internal/domain/strategy"
)

// MarketChange 全域市場漲跌幅區間（%），區間包含端點
type MarketChange struct {
	Min1hQuoteChange   float64
	Max1hQuoteChange   float64
	Min24hQuoteChange  float64
	Max24hQuoteChange  float64
	Min24hMarketChange float64
	Max24hMarketChange float64
}

// TradeConditions 全域下單限制
type TradeConditions struct {
	MinBuyBalance    strategy.ValueExpr // 百分比以總資產計算
	DCAMinBuyBalance strategy.ValueExpr
	MaxSpread        float64
	MaxChange        float64 // 0 = 不限制
	MinChange        float64 // 0 = 不限制
	Blacklist        []string
	Whitelist        []string // 含 "ALL" 代表全部
	MaxPairs         int      // 0 = 不限制
	DCATimeout       time.Duration

	// nil 代表不檢查市場漲跌
	MarketChange *MarketChange
}
