package value_objects

// Level 訂單簿單一價位
type Level struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// FillEstimate 深度撮合估算結果
// Price 為最後（最差）吃到的價格，AveragePrice 為成交量加權均價
type FillEstimate struct {
	Price        float64 `json:"price"`
	AveragePrice float64 `json:"average_price"`
	Amount       float64 `json:"amount"`
}

// Notional 估算成交金額
func (f FillEstimate) Notional() float64 {
	return f.Amount * f.AveragePrice
}

// OrderBook 訂單簿快照
// Asks 由低到高，Bids 由高到低
type OrderBook struct {
	Symbol    string  `json:"symbol"`
	Asks      []Level `json:"asks"`
	Bids      []Level `json:"bids"`
	Timestamp int64   `json:"ts"`
}

// Side 取出指定方向要吃的一側：買單吃 asks，賣單吃 bids
func (b OrderBook) Side(side Side) []Level {
	if side == SideBuy {
		return b.Asks
	}
	return b.Bids
}
