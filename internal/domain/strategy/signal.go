package strategy

import (
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

// SignalKind 信號類型
type SignalKind string

const (
	KindBuy    SignalKind = "buy"
	KindDCABuy SignalKind = "dca_buy"
	KindSell   SignalKind = "sell"
)

// Side 信號對應的下單方向
func (k SignalKind) Side() vo.Side {
	if k == KindSell {
		return vo.SideSell
	}
	return vo.SideBuy
}

// Signal 策略輸出
// 買方 Value 為目標數量（基礎幣），賣方 Value 為可接受的最低賣價
type Signal struct {
	Symbol   string     `json:"symbol"`
	Kind     SignalKind `json:"kind"`
	Value    float64    `json:"value"`
	Strategy string     `json:"strategy"`
}

// Evaluatable 三種追蹤條件共同的能力介面
//
// 回傳 (nil, nil) 代表本輪無信號；ErrMissingField / ErrUnevaluable 代表跳過；
// 其餘錯誤由呼叫方視為評估異常。
type Evaluatable interface {
	Name() string
	Kind() SignalKind
	Evaluate(pair vo.Pair, indicators vo.IndicatorSnapshot, balance float64) (*Signal, error)
	Markers() map[string]TrailingMarker
}
