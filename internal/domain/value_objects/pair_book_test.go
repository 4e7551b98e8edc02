package value_objects

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairBook_SnapshotIsIsolated(t *testing.T) {
	p := NewPair("ETH/USDT")
	p.Close = 2500
	p.SetCostBasis(1000, 2400, "t-1")
	book := NewPairBook(p)

	snap := book.Snapshot()
	eth := snap["ETH/USDT"]
	*eth.TotalCost = 1
	eth.Close = 1

	live, ok := book.Get("ETH/USDT")
	require.True(t, ok)
	assert.Equal(t, 2500.0, live.Close)
	assert.Equal(t, 1000.0, *live.TotalCost)
}

func TestPairBook_UpdateConcurrent(t *testing.T) {
	book := NewPairBook(NewPair("BTC/USDT"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			book.Update("BTC/USDT", func(p *Pair) { p.DCALevel++ })
		}()
		go func() {
			defer wg.Done()
			_ = book.Snapshot()
		}()
	}
	wg.Wait()

	p, _ := book.Get("BTC/USDT")
	assert.Equal(t, 51, p.DCALevel)
	assert.False(t, book.Update("XRP/USDT", func(p *Pair) {}))
}

func TestPair_Field(t *testing.T) {
	p := NewPair("ETH-USDT")
	assert.Equal(t, "ETH", p.Base)
	assert.Equal(t, "USDT", p.Quote)

	_, ok := p.Field("close")
	assert.False(t, ok, "close missing until ticker arrives")

	p.Close = 10
	v, ok := p.Field("close")
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)

	_, ok = p.Field("avg_price")
	assert.False(t, ok)
	assert.True(t, IsPairField("percent_change"))
	assert.False(t, IsPairField("RSI_14_5m"))
}
