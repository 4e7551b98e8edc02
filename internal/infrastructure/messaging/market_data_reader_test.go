package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

func TestParseTicker(t *testing.T) {
	data := []byte(`{"instId":"ETH-USDT","last":"2550","bidPx":"2549.5","askPx":"2550.5",` +
		`"open24h":"2500","volCcy24h":"123456.7","ts":"1714564800000"}`)

	q, err := ParseTicker(data)
	require.NoError(t, err)
	assert.Equal(t, 2550.0, q.Close)
	assert.Equal(t, 2549.5, q.Bid)
	assert.Equal(t, 2550.5, q.Ask)
	assert.InDelta(t, 2.0, q.Percentage, 1e-9)
	assert.Equal(t, 123456.7, q.QuoteVolume)
	assert.Equal(t, time.UnixMilli(1714564800000), q.Time)

	p := vo.NewPair("ETH-USDT")
	q.Apply(&p)
	assert.Equal(t, 2550.0, p.Close)
	t.Logf("✅ ticker parsed: close=%.1f change=%.2f%%", q.Close, q.Percentage)
}

func TestParseTicker_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `nope`},
		{"missing last", `{"instId":"ETH-USDT"}`},
		{"bad bid", `{"last":"1","bidPx":"x"}`},
		{"bad ts", `{"last":"1","ts":"yesterday"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTicker([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseOrderBook(t *testing.T) {
	data := []byte(`{"asks":[["100.5","2","0","1"],["101","3","0","2"]],` +
		`"bids":[["100","1.5","0","1"]],"ts":"1714564800000"}`)

	book, err := ParseOrderBook("BTC-USDT", data)
	require.NoError(t, err)
	assert.Equal(t, "BTC-USDT", book.Symbol)
	assert.Equal(t, []vo.Level{{Price: 100.5, Volume: 2}, {Price: 101, Volume: 3}}, book.Asks)
	assert.Equal(t, []vo.Level{{Price: 100, Volume: 1.5}}, book.Side(vo.SideSell))
	assert.Equal(t, int64(1714564800000), book.Timestamp)

	_, err = ParseOrderBook("BTC-USDT", []byte(`{"asks":[["100"]]}`))
	assert.Error(t, err)
}

func TestQuoteChange(t *testing.T) {
	// 最新在前：index n 是 n 小時前的收盤價
	closes := []string{"110", "100", "100", "100", "88", "100", "125"}
	candles := make([]CandleData, 0, 25)
	for _, c := range closes {
		candles = append(candles, CandleData{Close: c})
	}
	for len(candles) < 25 {
		candles = append(candles, CandleData{Close: "100"})
	}
	candles[12].Close = "200"
	candles[24].Close = "55"

	info, err := QuoteChange(candles)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, info["1h"], 1e-9)
	assert.InDelta(t, 25.0, info["4h"], 1e-9)
	assert.InDelta(t, -12.0, info["6h"], 1e-9)
	assert.InDelta(t, -45.0, info["12h"], 1e-9)
	assert.InDelta(t, 100.0, info["24h"], 1e-9)
}

func TestQuoteChange_ShortHistory(t *testing.T) {
	info, err := QuoteChange([]CandleData{{Close: "1"}, {Close: "2"}})
	require.NoError(t, err)
	assert.InDelta(t, -50.0, info["1h"], 1e-9)
	assert.Zero(t, info["24h"])

	_, err = QuoteChange([]CandleData{{Close: "abc"}})
	assert.Error(t, err)
}

func TestParseIndicators(t *testing.T) {
	snap, err := ParseIndicators(map[string]string{"RSI_14_5m": "28.5", "SMA_20_1h": "101"})
	require.NoError(t, err)
	v, ok := snap.Get("RSI_14_5m")
	assert.True(t, ok)
	assert.Equal(t, 28.5, v)

	_, err = ParseIndicators(map[string]string{"RSI_14_5m": "NaN?"})
	assert.Error(t, err)
}
