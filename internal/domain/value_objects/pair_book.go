package value_objects

import (
	"sort"
	"sync"
)

// PairBook 共享的交易對狀態表
//
// 行情更新任務與決策循環同時存取：更新一律走寫鎖，
// 決策循環在每輪開始時取 Snapshot，之後只透過 Update 回寫。
type PairBook struct {
	mu    sync.RWMutex
	pairs map[string]Pair
}

// NewPairBook 建立狀態表
func NewPairBook(pairs ...Pair) *PairBook {
	b := &PairBook{pairs: make(map[string]Pair, len(pairs))}
	for _, p := range pairs {
		b.pairs[p.Symbol] = p.Clone()
	}
	return b
}

// Get 取得單一交易對的拷貝
func (b *PairBook) Get(symbol string) (Pair, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.pairs[symbol]
	if !ok {
		return Pair{}, false
	}
	return p.Clone(), true
}

// Set 覆寫單一交易對
func (b *PairBook) Set(p Pair) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pairs[p.Symbol] = p.Clone()
}

// Update 在寫鎖下修改交易對，不存在時回傳 false
func (b *PairBook) Update(symbol string, fn func(p *Pair)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.pairs[symbol]
	if !ok {
		return false
	}
	fn(&p)
	b.pairs[symbol] = p
	return true
}

// Snapshot 取得整張表的深拷貝
func (b *PairBook) Snapshot() map[string]Pair {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]Pair, len(b.pairs))
	for k, p := range b.pairs {
		out[k] = p.Clone()
	}
	return out
}

// Symbols 排序後的交易對列表
func (b *PairBook) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedKeys(b.pairs)
}

// Len 交易對數量
func (b *PairBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.pairs)
}

// SortedSymbols 將快照的 key 排序，確保每輪評估順序固定
func SortedSymbols(pairs map[string]Pair) []string {
	return sortedKeys(pairs)
}

func sortedKeys(pairs map[string]Pair) []string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
