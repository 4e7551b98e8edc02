package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dizzycode.xyz/trading-engine/internal/domain/strategy"
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
	"dizzycode.xyz/trading-engine/pkg/logger"
)

func f(v float64) *float64 { return &v }

func buyStrategy(t *testing.T, name string, value float64) strategy.Evaluatable {
	t.Helper()
	c, err := strategy.NewBuyCondition(strategy.BuyConfig{
		Name:     name,
		BuyValue: strategy.AbsoluteValue(value),
	})
	require.NoError(t, err)
	return c
}

func sellStrategy(t *testing.T, name string, sellValue float64) strategy.Evaluatable {
	t.Helper()
	c, err := strategy.NewSellCondition(strategy.SellConfig{
		Name:      name,
		SellValue: sellValue,
		Fee:       f(0),
	})
	require.NoError(t, err)
	return c
}

func dcaStrategy(t *testing.T) strategy.Evaluatable {
	t.Helper()
	policy, err := strategy.NewDCALevelPolicy(map[string]strategy.DCALevel{
		"default": {Trigger: f(-3), Percentage: f(100)},
	})
	require.NoError(t, err)
	c, err := strategy.NewDCABuyCondition(strategy.DCABuyConfig{
		Name:        "dca",
		MaxDCALevel: 4,
		Levels:      policy,
	})
	require.NoError(t, err)
	return c
}

func openConditions() TradeConditions {
	return TradeConditions{
		MaxSpread:  1,
		Whitelist:  []string{"ALL"},
		DCATimeout: 30 * time.Minute,
	}
}

func quotedPair(symbol string, close float64) vo.Pair {
	p := vo.NewPair(symbol)
	p.Close = close
	p.Bid = close
	p.Ask = close
	return p
}

func heldPair(symbol string, close, total, avg float64) vo.Pair {
	p := quotedPair(symbol, close)
	p.Total = total
	p.SetCostBasis(avg*total, avg, "")
	return p
}

type harness struct {
	exchange   *fakeExchange
	indicators *fakeIndicators
	store      *fakeStore
	recorder   *countingRecorder
	clock      time.Time
	engine     *Engine
}

func newHarness(t *testing.T, conditions TradeConditions, strategies Strategies, pairs ...vo.Pair) *harness {
	t.Helper()
	h := &harness{
		exchange:   newFakeExchange(pairs...),
		indicators: &fakeIndicators{stats: map[string]vo.IndicatorSnapshot{}},
		store:      &fakeStore{},
		recorder:   newCountingRecorder(),
		clock:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, p := range pairs {
		h.indicators.stats[p.Symbol] = vo.IndicatorSnapshot{}
	}
	h.engine = NewEngine(
		Dependencies{Exchange: h.exchange, Indicators: h.indicators, Store: h.store},
		conditions,
		strategies,
		logger.NewNop(),
		WithClock(func() time.Time { return h.clock }),
		WithRecorder(h.recorder),
	)
	return h
}

func TestCollectCandidates_BuyTakesSmallestAmount(t *testing.T) {
	pair := quotedPair("ETH/USDT", 100)
	h := newHarness(t, openConditions(), Strategies{}, pair)

	buys := []strategy.Evaluatable{
		buyStrategy(t, "wide", 500),
		buyStrategy(t, "narrow", 300),
	}
	pairs := h.exchange.book.Snapshot()
	candidates := h.engine.collectCandidates(context.Background(), buys, pairs, h.indicators.stats, 10000, smaller)

	require.Contains(t, candidates, "ETH/USDT")
	assert.InDelta(t, 3.0, candidates["ETH/USDT"].Value, 1e-9)
	assert.Equal(t, "narrow", candidates["ETH/USDT"].Strategy)
	t.Logf("✅ 5 vs 3 resolved to %.2f", candidates["ETH/USDT"].Value)
}

func TestCollectCandidates_SellTakesHighestPrice(t *testing.T) {
	pair := heldPair("ETH/USDT", 150, 2, 100)
	h := newHarness(t, openConditions(), Strategies{}, pair)

	// 100*(1+9)/100 = 10，100*(1+11)/100 = 12
	sells := []strategy.Evaluatable{
		sellStrategy(t, "low", 9),
		sellStrategy(t, "high", 11),
	}
	pairs := h.exchange.book.Snapshot()
	candidates := h.engine.collectCandidates(context.Background(), sells, pairs, h.indicators.stats, 0, larger)

	require.Contains(t, candidates, "ETH/USDT")
	assert.InDelta(t, 12.0, candidates["ETH/USDT"].Value, 1e-9)
	t.Logf("✅ 10 vs 12 resolved to %.2f", candidates["ETH/USDT"].Value)
}

func TestCollectCandidates_IsolatesFailures(t *testing.T) {
	pairs := []vo.Pair{quotedPair("BTC/USDT", 100), quotedPair("ETH/USDT", 100)}
	h := newHarness(t, openConditions(), Strategies{}, pairs...)

	tests := []struct {
		name     string
		strategy strategy.Evaluatable
	}{
		{"error", &brokenStrategy{}},
		{"panic", &brokenStrategy{panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.indicators.reloads = nil
			candidates := h.engine.collectCandidates(context.Background(),
				[]strategy.Evaluatable{tt.strategy, buyStrategy(t, "ok", 200)},
				h.exchange.book.Snapshot(), h.indicators.stats, 10000, smaller)

			assert.Len(t, candidates, 2, "healthy strategy still evaluated for every pair")
			assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, h.indicators.reloads)
		})
	}
	assert.Equal(t, 4, h.recorder.failed["broken"])
}

func TestEvaluate_WrapsUnexpectedErrors(t *testing.T) {
	h := newHarness(t, openConditions(), Strategies{})

	_, err := h.engine.evaluate(&brokenStrategy{panics: true}, quotedPair("ETH/USDT", 1), nil, 0)
	assert.ErrorIs(t, err, ErrEvaluation)

	_, err = h.engine.evaluate(buyStrategy(t, "b", 10), vo.NewPair("ETH/USDT"), nil, 0)
	assert.ErrorIs(t, err, strategy.ErrMissingField)
	assert.NotErrorIs(t, err, ErrEvaluation)
}

func TestRunCycle_PlacesBuyAndPersists(t *testing.T) {
	pair := quotedPair("ETH/USDT", 100)
	h := newHarness(t, openConditions(), Strategies{
		Buy: []strategy.Evaluatable{buyStrategy(t, "a", 500), buyStrategy(t, "b", 300)},
	}, pair)
	h.exchange.books["ETH/USDT"] = vo.OrderBook{Asks: []vo.Level{{Price: 100, Volume: 10}}}

	require.NoError(t, h.engine.RunCycle(context.Background()))

	require.Len(t, h.exchange.orders, 1)
	order := h.exchange.orders[0]
	assert.Equal(t, vo.SideBuy, order.Side)
	assert.InDelta(t, 3.0, order.Amount, 1e-9)
	assert.Equal(t, 100.0, order.Price)

	live, _ := h.exchange.book.Get("ETH/USDT")
	assert.Equal(t, h.clock, live.LastOrderTime)
	assert.Equal(t, 1, live.DCALevel)

	assert.Len(t, h.engine.TradeHistory(), 1)
	assert.Len(t, h.store.trades, 1)
	assert.Equal(t, 1, h.recorder.cycles)
	t.Logf("✅ bought %.2f @ %.2f", order.Amount, order.Price)
}

func TestRunCycle_BuySizedAgainstHolding(t *testing.T) {
	pair := quotedPair("ETH/USDT", 100)
	pair.Total = 1
	h := newHarness(t, openConditions(), Strategies{
		Buy: []strategy.Evaluatable{buyStrategy(t, "a", 500)},
	}, pair)
	h.exchange.books["ETH/USDT"] = vo.OrderBook{Asks: []vo.Level{{Price: 100, Volume: 10}}}

	require.NoError(t, h.engine.RunCycle(context.Background()))

	require.Len(t, h.exchange.orders, 1)
	assert.InDelta(t, 4.0, h.exchange.orders[0].Amount, 1e-9)
}

func TestRunCycle_Gating(t *testing.T) {
	tests := []struct {
		name       string
		conditions func(c *TradeConditions)
		reason     string
	}{
		{"blacklisted base", func(c *TradeConditions) { c.Blacklist = []string{"ETH"} }, RejectBlacklisted},
		{"not whitelisted", func(c *TradeConditions) { c.Whitelist = []string{"BTC/USDT"} }, RejectWhitelist},
		{"min balance", func(c *TradeConditions) { c.MinBuyBalance = strategy.PercentValue(99) }, RejectMinBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conditions := openConditions()
			tt.conditions(&conditions)

			h := newHarness(t, conditions, Strategies{
				Buy: []strategy.Evaluatable{buyStrategy(t, "a", 300)},
			}, quotedPair("ETH/USDT", 100))
			h.exchange.books["ETH/USDT"] = vo.OrderBook{Asks: []vo.Level{{Price: 100, Volume: 10}}}

			require.NoError(t, h.engine.RunCycle(context.Background()))

			assert.Empty(t, h.exchange.orders)
			assert.Equal(t, 1, h.recorder.rejected[tt.reason])
		})
	}
}

func TestRunCycle_GlobalGateBlocksBuysNotSells(t *testing.T) {
	conditions := openConditions()
	conditions.MarketChange = &MarketChange{
		Min1hQuoteChange: -1, Max1hQuoteChange: 1,
		Min24hQuoteChange: -5, Max24hQuoteChange: 5,
		Min24hMarketChange: -50, Max24hMarketChange: 50,
	}

	held := heldPair("BTC/USDT", 150, 2, 100)
	h := newHarness(t, conditions, Strategies{
		Buy:  []strategy.Evaluatable{buyStrategy(t, "a", 300)},
		Sell: []strategy.Evaluatable{sellStrategy(t, "s", 5)},
	}, quotedPair("ETH/USDT", 100), held)
	h.exchange.quoteChange["1h"] = -3
	h.exchange.books["ETH/USDT"] = vo.OrderBook{Asks: []vo.Level{{Price: 100, Volume: 10}}}
	h.exchange.books["BTC/USDT"] = vo.OrderBook{Bids: []vo.Level{{Price: 150, Volume: 10}}}

	require.NoError(t, h.engine.RunCycle(context.Background()))

	require.Len(t, h.exchange.orders, 1)
	assert.Equal(t, vo.SideSell, h.exchange.orders[0].Side)
	assert.Equal(t, 2.0, h.exchange.orders[0].Amount)
	assert.Equal(t, 1, h.recorder.rejected[RejectMarketChange])
}

func TestRunCycle_MaxPairsCountsNewBuys(t *testing.T) {
	conditions := openConditions()
	conditions.MaxPairs = 1

	h := newHarness(t, conditions, Strategies{
		Buy: []strategy.Evaluatable{buyStrategy(t, "a", 300)},
	}, quotedPair("BTC/USDT", 100), quotedPair("ETH/USDT", 100))
	for _, s := range []string{"BTC/USDT", "ETH/USDT"} {
		h.exchange.books[s] = vo.OrderBook{Asks: []vo.Level{{Price: 100, Volume: 10}}}
	}

	require.NoError(t, h.engine.RunCycle(context.Background()))

	require.Len(t, h.exchange.orders, 1)
	assert.Equal(t, "BTC/USDT", h.exchange.orders[0].Symbol)
	assert.Equal(t, 1, h.recorder.rejected[RejectMaxPairs])
}

func TestRunCycle_DCACooldown(t *testing.T) {
	pair := heldPair("ETH/USDT", 90, 1, 100)
	h := newHarness(t, openConditions(), Strategies{
		DCABuy: []strategy.Evaluatable{dcaStrategy(t)},
	}, pair)
	h.exchange.book.Update("ETH/USDT", func(p *vo.Pair) { p.LastOrderTime = h.clock.Add(-10 * time.Minute) })
	h.exchange.books["ETH/USDT"] = vo.OrderBook{Asks: []vo.Level{{Price: 90, Volume: 5}}}

	require.NoError(t, h.engine.RunCycle(context.Background()))
	assert.Empty(t, h.exchange.orders)
	assert.Equal(t, 1, h.recorder.rejected[RejectDCATimeout])
	t.Logf("✅ DCA held back inside cooldown")

	h.clock = h.clock.Add(21 * time.Minute)
	require.NoError(t, h.engine.RunCycle(context.Background()))

	require.Len(t, h.exchange.orders, 1)
	assert.InDelta(t, 1.0, h.exchange.orders[0].Amount, 1e-9)
	assert.Equal(t, 90.0, h.exchange.orders[0].Price)

	live, _ := h.exchange.book.Get("ETH/USDT")
	assert.Equal(t, 2, live.DCALevel)
	assert.Equal(t, h.clock, live.LastOrderTime)
	t.Logf("✅ DCA placed after cooldown, level now %d", live.DCALevel)
}

func TestRunCycle_DCARequiresFullFill(t *testing.T) {
	pair := heldPair("ETH/USDT", 90, 1, 100)
	h := newHarness(t, openConditions(), Strategies{
		DCABuy: []strategy.Evaluatable{dcaStrategy(t)},
	}, pair)
	h.exchange.books["ETH/USDT"] = vo.OrderBook{Asks: []vo.Level{{Price: 90, Volume: 0.5}}}

	require.NoError(t, h.engine.RunCycle(context.Background()))
	assert.Empty(t, h.exchange.orders)
	assert.Equal(t, 1, h.recorder.rejected[RejectDepth])
}

func TestRunCycle_SellBelowLowestPriceSkipped(t *testing.T) {
	h := newHarness(t, openConditions(), Strategies{
		Sell: []strategy.Evaluatable{sellStrategy(t, "s", 5)},
	}, heldPair("ETH/USDT", 150, 2, 100))
	// 最低賣價 100*(1+5)/100 = 6，買盤只有 5
	h.exchange.books["ETH/USDT"] = vo.OrderBook{Bids: []vo.Level{{Price: 5, Volume: 10}}}

	require.NoError(t, h.engine.RunCycle(context.Background()))
	assert.Empty(t, h.exchange.orders)
}

func TestRunCycle_ThrottledDepthSkipsQuietly(t *testing.T) {
	h := newHarness(t, openConditions(), Strategies{
		Buy: []strategy.Evaluatable{buyStrategy(t, "a", 300)},
	}, quotedPair("ETH/USDT", 100))

	require.NoError(t, h.engine.RunCycle(context.Background()))
	assert.Empty(t, h.exchange.orders)
	assert.Empty(t, h.recorder.rejected)
}

func TestRunCycle_SubmissionFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, openConditions(), Strategies{
		Buy: []strategy.Evaluatable{buyStrategy(t, "a", 300)},
	}, quotedPair("ETH/USDT", 100))
	h.exchange.books["ETH/USDT"] = vo.OrderBook{Asks: []vo.Level{{Price: 100, Volume: 10}}}
	h.exchange.placeErr = errors.New("insufficient balance")

	require.NoError(t, h.engine.RunCycle(context.Background()))
	assert.Empty(t, h.engine.TradeHistory())
	assert.Equal(t, 1, h.recorder.rejected[RejectSubmission])
	assert.Zero(t, h.store.saves)
}

func TestRunCycle_PersistenceErrorSurfaced(t *testing.T) {
	h := newHarness(t, openConditions(), Strategies{
		Buy: []strategy.Evaluatable{buyStrategy(t, "a", 300)},
	}, quotedPair("ETH/USDT", 100))
	h.exchange.books["ETH/USDT"] = vo.OrderBook{Asks: []vo.Level{{Price: 100, Volume: 10}}}
	h.store.saveErr = errors.New("disk full")

	err := h.engine.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Len(t, h.engine.TradeHistory(), 1, "trade kept in memory")
}

func TestRun_StopsBetweenCycles(t *testing.T) {
	h := newHarness(t, openConditions(), Strategies{
		Buy: []strategy.Evaluatable{buyStrategy(t, "a", 300)},
	}, quotedPair("ETH/USDT", 100))
	h.exchange.books["ETH/USDT"] = vo.OrderBook{Asks: []vo.Level{{Price: 100, Volume: 10}}}

	ctx, cancel := context.WithCancel(context.Background())
	h.indicators.onRefresh = cancel

	done := make(chan error, 1)
	go func() { done <- h.engine.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run loop did not stop")
	}

	assert.Equal(t, 1, h.recorder.cycles)
	assert.Len(t, h.exchange.orders, 1, "cycle in flight completes its order")
	assert.Len(t, h.store.trades, 1)
}

func TestRestorePairs(t *testing.T) {
	live := vo.NewPair("ETH/USDT")
	live.Total = 2
	moved := vo.NewPair("BTC/USDT")
	moved.Total = 1

	lastOrder := time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)
	savedETH := heldPair("ETH/USDT", 100, 2, 90)
	savedETH.DCALevel = 3
	savedETH.LastOrderTime = lastOrder
	savedETH.LastID = "t-9"
	savedBTC := heldPair("BTC/USDT", 100, 0.5, 20000)
	savedBTC.DCALevel = 2

	book := vo.NewPairBook(live, moved)
	full, partial := RestorePairs(book, map[string]vo.Pair{
		"ETH/USDT": savedETH,
		"BTC/USDT": savedBTC,
	})
	assert.Equal(t, 1, full)
	assert.Equal(t, 1, partial)

	eth, _ := book.Get("ETH/USDT")
	require.True(t, eth.HasCostBasis())
	assert.Equal(t, 90.0, *eth.AvgPrice)
	assert.Equal(t, "t-9", eth.LastID)
	assert.Equal(t, 3, eth.DCALevel)
	assert.Equal(t, lastOrder, eth.LastOrderTime)

	btc, _ := book.Get("BTC/USDT")
	assert.False(t, btc.HasCostBasis(), "holding changed, basis not trusted")
	assert.Equal(t, 2, btc.DCALevel)
}

func TestRestorePairs_EmptyPositionGetsNoBasis(t *testing.T) {
	live := vo.NewPair("ETH/USDT")

	// 清倉後仍帶著成本的保存狀態
	saved := heldPair("ETH/USDT", 100, 0, 100)
	saved.DCALevel = 2

	book := vo.NewPairBook(live)
	full, partial := RestorePairs(book, map[string]vo.Pair{"ETH/USDT": saved})
	assert.Equal(t, 0, full)
	assert.Equal(t, 1, partial)

	eth, _ := book.Get("ETH/USDT")
	assert.False(t, eth.HasCostBasis())
	assert.Equal(t, 2, eth.DCALevel)
}

func TestEngine_RestoreState(t *testing.T) {
	live := vo.NewPair("ETH/USDT")
	h := newHarness(t, openConditions(), Strategies{}, live)
	saved := vo.NewPair("ETH/USDT")
	saved.DCALevel = 2
	h.store.pairs = map[string]vo.Pair{"ETH/USDT": saved}
	h.store.trades = []vo.TradeRecord{{ID: "t-1", Symbol: "ETH/USDT", Side: vo.SideBuy, Amount: 1, Price: 10}}

	require.NoError(t, h.engine.RestoreState(context.Background()))

	p, _ := h.exchange.book.Get("ETH/USDT")
	assert.Equal(t, 2, p.DCALevel)
	assert.Len(t, h.engine.TradeHistory(), 1)
}
