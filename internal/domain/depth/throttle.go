package depth

import (
	"sync"
	"time"
)

// DefaultMinInterval 同一交易對兩次訂單簿查詢的最小間隔
const DefaultMinInterval = 500 * time.Millisecond

// Throttle 依交易對限制訂單簿查詢頻率
//
// 窗口內的重複查詢直接拒絕（呼叫方本輪跳過），不回傳快取的舊訂單簿。
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
	now      func() time.Time
}

// NewThrottle interval <= 0 時使用 DefaultMinInterval
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultMinInterval
	}
	return &Throttle{
		interval: interval,
		last:     make(map[string]time.Time),
		now:      time.Now,
	}
}

// WithClock 替換時鐘（測試用）
func (t *Throttle) WithClock(now func() time.Time) *Throttle {
	t.now = now
	return t
}

// Allow 允許則記錄本次時間並回傳 true
func (t *Throttle) Allow(symbol string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[symbol]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[symbol] = now
	return true
}
