package value_objects

import (
	"strings"
	"time"
)

// Pair 單一交易對的可變狀態
//
// close/bid/ask 為 0 代表行情尚未到達（欄位不存在）。
// TotalCost 與 AvgPrice 為 nil 代表沒有可信的成本基礎。
type Pair struct {
	Symbol        string    `json:"symbol"`
	Base          string    `json:"base"`
	Quote         string    `json:"quote"`
	Close         float64   `json:"close"`
	Bid           float64   `json:"bid"`
	Ask           float64   `json:"ask"`
	Percentage    float64   `json:"percentage"` // 24h 漲跌幅 %
	QuoteVolume   float64   `json:"quote_volume"`
	Total         float64   `json:"total"`
	TotalCost     *float64  `json:"total_cost"`
	AvgPrice      *float64  `json:"avg_price"`
	LastID        string    `json:"last_id,omitempty"`
	DCALevel      int       `json:"dca_level"`
	LastOrderTime time.Time `json:"last_order_time"`
	MinAmount     float64   `json:"min_amount"` // limits.amount.min
	MinCost       float64   `json:"min_cost"`
}

// NewPair 依 "BASE/QUOTE" 建立交易對
func NewPair(symbol string) Pair {
	base, quote := SplitSymbol(symbol)
	return Pair{
		Symbol:   symbol,
		Base:     base,
		Quote:    quote,
		DCALevel: 1,
	}
}

// SplitSymbol 拆分 "ETH/USDT" 或 "ETH-USDT"
func SplitSymbol(symbol string) (base, quote string) {
	for _, sep := range []string{"/", "-"} {
		if parts := strings.SplitN(symbol, sep, 2); len(parts) == 2 {
			return parts[0], parts[1]
		}
	}
	return symbol, ""
}

// Field 依名稱讀取數值欄位，供條件引擎使用
func (p Pair) Field(name string) (float64, bool) {
	switch name {
	case "close", "price":
		return p.Close, p.Close > 0
	case "bid":
		return p.Bid, p.Bid > 0
	case "ask":
		return p.Ask, p.Ask > 0
	case "percentage", "change_24h":
		return p.Percentage, true
	case "quote_volume", "volume":
		return p.QuoteVolume, true
	case "total":
		return p.Total, true
	case "total_cost":
		if p.TotalCost == nil {
			return 0, false
		}
		return *p.TotalCost, true
	case "avg_price":
		if p.AvgPrice == nil {
			return 0, false
		}
		return *p.AvgPrice, true
	case "dca_level":
		return float64(p.DCALevel), true
	default:
		return 0, false
	}
}

// IsPairField 判斷名稱是否為交易對欄位（否則視為指標名稱）
func IsPairField(name string) bool {
	switch name {
	case "close", "price", "bid", "ask", "percentage", "change_24h", "quote_volume", "volume",
		"total", "total_cost", "avg_price", "dca_level", "percent_change":
		return true
	}
	return false
}

// CurrentValue 以收盤價計算持倉價值
func (p Pair) CurrentValue() float64 {
	return p.Close * p.Total
}

// HasCostBasis 是否有完整的成本基礎
func (p Pair) HasCostBasis() bool {
	return p.TotalCost != nil && p.AvgPrice != nil
}

// SetCostBasis 寫入成本基礎
func (p *Pair) SetCostBasis(totalCost, avgPrice float64, lastID string) {
	p.TotalCost = &totalCost
	p.AvgPrice = &avgPrice
	p.LastID = lastID
}

// ClearCostBasis 清除成本基礎（缺失比錯誤安全）
func (p *Pair) ClearCostBasis() {
	p.TotalCost = nil
	p.AvgPrice = nil
	p.LastID = ""
}

// EffectiveDCALevel DCA 層級至少為 1
func (p Pair) EffectiveDCALevel() int {
	if p.DCALevel < 1 {
		return 1
	}
	return p.DCALevel
}

// Clone 深拷貝（指標欄位不共用）
func (p Pair) Clone() Pair {
	c := p
	if p.TotalCost != nil {
		v := *p.TotalCost
		c.TotalCost = &v
	}
	if p.AvgPrice != nil {
		v := *p.AvgPrice
		c.AvgPrice = &v
	}
	return c
}
