package value_objects

import "time"

// TradeRecord 成交記錄（只追加）
type TradeRecord struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Type      OrderType `json:"type"`
	Amount    float64   `json:"amount"`
	Price     float64   `json:"price"`
	Cost      float64   `json:"cost"`
	Fee       float64   `json:"fee"`
	Timestamp int64     `json:"timestamp"` // 毫秒時間戳
}

// Time 將毫秒時間戳轉為 time.Time
func (t TradeRecord) Time() time.Time {
	return time.UnixMilli(t.Timestamp)
}

// Notional 成交金額，Cost 缺失時以 amount*price 計
func (t TradeRecord) Notional() float64 {
	if t.Cost > 0 {
		return t.Cost
	}
	return t.Amount * t.Price
}

// FilterBySymbol 依交易對篩選，保持原有順序
func FilterBySymbol(trades []TradeRecord, symbol string) []TradeRecord {
	out := make([]TradeRecord, 0)
	for _, t := range trades {
		if t.Symbol == symbol {
			out = append(out, t)
		}
	}
	return out
}
