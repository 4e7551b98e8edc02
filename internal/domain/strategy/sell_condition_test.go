package strategy

import (
	"testing"

	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sellPair(symbol string, bid, total, avg float64) vo.Pair {
	p := testPair(symbol, bid)
	p.Total = total
	p.SetCostBasis(avg*total, avg, "")
	return p
}

func TestSellCondition_TakeProfitTrail(t *testing.T) {
	zero := 0.0
	c, err := NewSellCondition(SellConfig{Name: "tp", Trailing: 1, SellValue: 2, Fee: &zero})
	require.NoError(t, err)

	// +1% is below the 2% threshold
	sig, err := c.Evaluate(sellPair("ETH/USDT", 101, 1, 100), nil, 0)
	require.NoError(t, err)
	assert.Nil(t, sig)
	assert.Empty(t, c.Markers())

	// +5%: arm at 105
	sig, err = c.Evaluate(sellPair("ETH/USDT", 105, 1, 100), nil, 0)
	require.NoError(t, err)
	assert.Nil(t, sig)

	// new high: trail_from ratchets up
	_, err = c.Evaluate(sellPair("ETH/USDT", 110, 1, 100), nil, 0)
	require.NoError(t, err)
	m, armed := c.Marker("ETH/USDT")
	require.True(t, armed)
	assert.Equal(t, 110.0, m.TrailFrom)
	assert.InDelta(t, 108.9, m.TrailTo, 1e-9)

	// lower bid above trail_to: trail_from unchanged
	_, err = c.Evaluate(sellPair("ETH/USDT", 109, 1, 100), nil, 0)
	require.NoError(t, err)
	m, _ = c.Marker("ETH/USDT")
	assert.Equal(t, 110.0, m.TrailFrom)

	// drop to trail_to: fire with the minimum acceptable price
	sig, err = c.Evaluate(sellPair("ETH/USDT", 108.5, 1, 100), nil, 0)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, KindSell, sig.Kind)
	assert.InDelta(t, LowestSellPrice(100, 2, 0), sig.Value, 1e-9)

	_, armed = c.Marker("ETH/USDT")
	assert.True(t, armed, "firing does not disarm")
}

func TestSellCondition_FeeReducesPercentChange(t *testing.T) {
	c, err := NewSellCondition(SellConfig{Name: "tp", Trailing: 0, SellValue: 1})
	require.NoError(t, err)

	// +1.05% - 0.075 fee = 0.975% < 1
	sig, err := c.Evaluate(sellPair("ETH/USDT", 101.05, 1, 100), nil, 0)
	require.NoError(t, err)
	assert.Nil(t, sig)

	// +1.1% - 0.075 = 1.025% > 1, trailing 0 fires immediately
	sig, err = c.Evaluate(sellPair("ETH/USDT", 101.1, 1, 100), nil, 0)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.InDelta(t, 100*(1+1+DefaultSellFee)/100, sig.Value, 1e-9)
}

func TestSellCondition_StopLoss(t *testing.T) {
	zero := 0.0
	c, err := NewSellCondition(SellConfig{
		Name:       "sl",
		Conditions: mustPredicates(t, PredicateConfig{Left: "RSI_14_5m", Op: "<", Right: 40}),
		Trailing:   0,
		SellValue:  -5,
		Fee:        &zero,
	})
	require.NoError(t, err)

	// -3% does not breach -5%
	sig, err := c.Evaluate(sellPair("ETH/USDT", 97, 1, 100), vo.IndicatorSnapshot{"RSI_14_5m": 30}, 0)
	require.NoError(t, err)
	assert.Nil(t, sig)

	// -6% but predicates false: combined with AND, no signal
	sig, err = c.Evaluate(sellPair("ETH/USDT", 94, 1, 100), vo.IndicatorSnapshot{"RSI_14_5m": 50}, 0)
	require.NoError(t, err)
	assert.Nil(t, sig)

	sig, err = c.Evaluate(sellPair("ETH/USDT", 94, 1, 100), vo.IndicatorSnapshot{"RSI_14_5m": 30}, 0)
	require.NoError(t, err)
	require.NotNil(t, sig)
}

func TestSellCondition_PairOverrideAndPercentChangeField(t *testing.T) {
	zero := 0.0
	c, err := NewSellCondition(SellConfig{
		Name:       "tp",
		Conditions: mustPredicates(t, PredicateConfig{Left: "percent_change", Op: ">", Right: 0}),
		SellValue:  1,
		Fee:        &zero,
		PairValues: map[string]float64{"BTC": 10},
	})
	require.NoError(t, err)

	assert.Equal(t, 10.0, c.SellValue("BTC/USDT"))
	assert.Equal(t, 1.0, c.SellValue("ETH/USDT"))

	// +5% clears ETH's 1% but not BTC's 10%
	sig, err := c.Evaluate(sellPair("ETH/USDT", 105, 1, 100), nil, 0)
	require.NoError(t, err)
	assert.NotNil(t, sig)

	sig, err = c.Evaluate(sellPair("BTC/USDT", 105, 1, 100), nil, 0)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestSellCondition_RequiresCostBasis(t *testing.T) {
	c, err := NewSellCondition(SellConfig{Name: "tp", SellValue: 1})
	require.NoError(t, err)

	p := testPair("ETH/USDT", 100)
	p.Total = 1
	_, err = c.Evaluate(p, nil, 0)
	assert.ErrorIs(t, err, ErrMissingField)

	p = sellPair("ETH/USDT", 0, 1, 100)
	_, err = c.Evaluate(p, nil, 0)
	assert.ErrorIs(t, err, ErrMissingField)
}
