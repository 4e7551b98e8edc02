package application

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dizzycode.xyz/trading-engine/internal/domain/strategy"
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

func TestTotalCurrentValue(t *testing.T) {
	held := heldPair("ETH/USDT", 100, 2, 90)
	empty := quotedPair("BTC/USDT", 30000)
	noTicker := vo.NewPair("XRP/USDT")
	noTicker.Total = 50

	tcv, owned := TotalCurrentValue(1000, map[string]vo.Pair{
		held.Symbol:     held,
		empty.Symbol:    empty,
		noTicker.Symbol: noTicker,
	})
	assert.Equal(t, 1200.0, tcv)
	assert.Equal(t, 1, owned)
}

func TestListChecks(t *testing.T) {
	tests := []struct {
		name        string
		symbol      string
		list        []string
		blacklisted bool
		whitelisted bool
	}{
		{"symbol listed", "ETH/USDT", []string{"ETH/USDT"}, true, true},
		{"base listed", "ETH/USDT", []string{"eth"}, true, true},
		{"not listed", "BTC/USDT", []string{"ETH"}, false, false},
		{"ALL", "BTC/USDT", []string{"ALL"}, false, true},
		{"all lowercase", "BTC/USDT", []string{"all"}, false, true},
		{"empty", "BTC/USDT", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.blacklisted, IsBlacklisted(tt.symbol, tt.list))
			assert.Equal(t, tt.whitelisted, IsWhitelisted(tt.symbol, tt.list))
		})
	}
}

func TestChangeLimits(t *testing.T) {
	assert.True(t, BelowMaxChange(50, 0), "0 disables")
	assert.True(t, BelowMaxChange(4, 5))
	assert.False(t, BelowMaxChange(5, 5))

	assert.True(t, AboveMinChange(-50, 0), "0 disables")
	assert.True(t, AboveMinChange(-4, -5))
	assert.False(t, AboveMinChange(-5, -5))

	assert.True(t, BelowMaxPairs(100, 0))
	assert.False(t, BelowMaxPairs(3, 3))

	assert.True(t, InRange(1, 1, 2))
	assert.True(t, InRange(2, 1, 2))
	assert.False(t, InRange(2.01, 1, 2))
}

func TestPairBuyChecks(t *testing.T) {
	base := TradeConditions{
		MinBuyBalance:    strategy.PercentValue(10),
		DCAMinBuyBalance: strategy.AbsoluteValue(50),
		MaxChange:        20,
		MinChange:        -20,
		Whitelist:        []string{"ALL"},
		MaxPairs:         2,
	}

	tests := []struct {
		name   string
		mutate func(in *buyCheck)
		want   string
	}{
		{"passes", func(in *buyCheck) {}, ""},
		{"min balance percent of tcv", func(in *buyCheck) { in.balance = 300 }, RejectMinBalance},
		{"pumped", func(in *buyCheck) { in.pair.Percentage = 25 }, RejectMaxChange},
		{"dumped", func(in *buyCheck) { in.pair.Percentage = -25 }, RejectMinChange},
		{"already holding", func(in *buyCheck) { in.pair.Total = 2.5 }, RejectHolding},
		{"max pairs", func(in *buyCheck) { in.owned = 2 }, RejectMaxPairs},
		{"dca ignores holding and max pairs", func(in *buyCheck) {
			in.dca = true
			in.pair.Total = 10
			in.owned = 5
		}, ""},
		{"dca min balance absolute", func(in *buyCheck) {
			in.dca = true
			in.balance = 349
		}, RejectMinBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := buyCheck{
				pair:    quotedPair("ETH/USDT", 100),
				price:   100,
				amount:  3,
				balance: 5000,
				tcv:     5000,
				owned:   1,
			}
			tt.mutate(&in)
			assert.Equal(t, tt.want, base.pairBuyChecks(in))
		})
	}
}

func TestGlobalBuyChecks(t *testing.T) {
	up := quotedPair("ETH/USDT", 1)
	up.Percentage = 8
	down := quotedPair("BTC/USDT", 1)
	down.Percentage = -2
	pairs := map[string]vo.Pair{up.Symbol: up, down.Symbol: down}

	c := TradeConditions{MarketChange: &MarketChange{
		Min1hQuoteChange: -2, Max1hQuoteChange: 2,
		Min24hQuoteChange: -5, Max24hQuoteChange: 5,
		Min24hMarketChange: -3, Max24hMarketChange: 3,
	}}

	assert.InDelta(t, 3.0, AverageMarketChange(pairs), 1e-9)
	assert.True(t, c.GlobalBuyChecks(pairs, map[string]float64{"1h": 2, "24h": -5}))
	assert.False(t, c.GlobalBuyChecks(pairs, map[string]float64{"1h": 2.5, "24h": 0}))

	down.Percentage = -1
	pairs[down.Symbol] = down
	assert.False(t, c.GlobalBuyChecks(pairs, map[string]float64{"1h": 0, "24h": 0}), "market average 3.5")

	assert.True(t, TradeConditions{}.GlobalBuyChecks(pairs, nil), "no market change limits")
}
