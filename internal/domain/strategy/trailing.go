package strategy

import (
	"sync"
)

// TrailingMarker 追蹤狀態：TrailFrom 為武裝期間的最佳價格，TrailTo 為觸發價
type TrailingMarker struct {
	TrailFrom float64 `json:"trail_from"`
	TrailTo   float64 `json:"trail_to"`
}

// trailingBook 每個策略實例獨佔的追蹤表（key 為交易對）
// 有 marker 即為 ARMED，沒有即為 UNARMED
type trailingBook struct {
	mu      sync.Mutex
	percent float64
	markers map[string]TrailingMarker
}

func newTrailingBook(percent float64) *trailingBook {
	return &trailingBook{
		percent: percent,
		markers: make(map[string]TrailingMarker),
	}
}

// trailDown 買方：首次武裝以現價為起點，之後 TrailFrom 只往下調
func (b *trailingBook) trailDown(symbol string, price float64) TrailingMarker {
	b.mu.Lock()
	defer b.mu.Unlock()

	from := price
	if m, ok := b.markers[symbol]; ok && m.TrailFrom < price {
		from = m.TrailFrom
	}
	m := TrailingMarker{TrailFrom: from, TrailTo: scale(from, b.percent)}
	b.markers[symbol] = m
	return m
}

// trailUp 賣方：TrailFrom 只往上調，觸發價在其下方
func (b *trailingBook) trailUp(symbol string, price float64) TrailingMarker {
	b.mu.Lock()
	defer b.mu.Unlock()

	from := price
	if m, ok := b.markers[symbol]; ok && m.TrailFrom > price {
		from = m.TrailFrom
	}
	m := TrailingMarker{TrailFrom: from, TrailTo: scale(from, -b.percent)}
	b.markers[symbol] = m
	return m
}

func (b *trailingBook) disarm(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.markers, symbol)
}

func (b *trailingBook) get(symbol string) (TrailingMarker, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.markers[symbol]
	return m, ok
}

func (b *trailingBook) snapshot() map[string]TrailingMarker {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]TrailingMarker, len(b.markers))
	for k, v := range b.markers {
		out[k] = v
	}
	return out
}
