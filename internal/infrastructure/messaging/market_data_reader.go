package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
	"dizzycode.xyz/trading-engine/pkg/logger"
)

// ErrNoData key 不存在（行情尚未到達或已過期）
var ErrNoData = errors.New("no market data")

// TickerData OKX ticker（字串欄位）
type TickerData struct {
	InstID    string `json:"instId"`
	Last      string `json:"last"`
	BidPx     string `json:"bidPx"`
	AskPx     string `json:"askPx"`
	Open24h   string `json:"open24h"`
	VolCcy24h string `json:"volCcy24h"`
	Ts        string `json:"ts"`
}

// Quote 解析後的行情
type Quote struct {
	Close       float64
	Bid         float64
	Ask         float64
	Percentage  float64 // (last - open24h) / open24h * 100
	QuoteVolume float64
	Time        time.Time
}

// Apply 寫入交易對
func (q Quote) Apply(p *vo.Pair) {
	p.Close = q.Close
	p.Bid = q.Bid
	p.Ask = q.Ask
	p.Percentage = q.Percentage
	p.QuoteVolume = q.QuoteVolume
}

// CandleData K 線（與行情服務寫入的格式一致）
type CandleData struct {
	InstID string `json:"instId"`
	Bar    string `json:"bar"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Ts     string `json:"ts"` // Timestamp in milliseconds
}

// orderBookData OKX books 格式：[price, size, liquidated, orders]
type orderBookData struct {
	Asks [][]string `json:"asks"`
	Bids [][]string `json:"bids"`
	Ts   string     `json:"ts"`
}

// MarketDataReader 從 Redis 讀取市場數據
type MarketDataReader struct {
	client *RedisClient
	logger logger.Logger
}

// NewMarketDataReader 創建 MarketDataReader
func NewMarketDataReader(client *RedisClient, log logger.Logger) *MarketDataReader {
	return &MarketDataReader{
		client: client,
		logger: log,
	}
}

// GetQuotes 一次讀取多個交易對的最新行情（MGET），缺少的交易對不出現在結果中
func (r *MarketDataReader) GetQuotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	if len(symbols) == 0 {
		return map[string]Quote{}, nil
	}

	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = fmt.Sprintf(KeyPatternTickerLatest, s)
	}

	values, err := r.client.Client().MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get tickers from Redis: %w", err)
	}

	quotes := make(map[string]Quote, len(symbols))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		q, err := ParseTicker([]byte(raw))
		if err != nil {
			r.logger.Warn("Skipping malformed ticker", map[string]any{
				"key":   keys[i],
				"error": err,
			})
			continue
		}
		quotes[symbols[i]] = q
	}
	return quotes, nil
}

// GetOrderBook 讀取訂單簿快照
// Key format: orderbook.latest.{instId}
func (r *MarketDataReader) GetOrderBook(ctx context.Context, symbol string) (vo.OrderBook, error) {
	key := fmt.Sprintf(KeyPatternOrderBookLatest, symbol)

	val, err := r.client.Client().Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return vo.OrderBook{}, fmt.Errorf("%s: %w", key, ErrNoData)
	}
	if err != nil {
		return vo.OrderBook{}, fmt.Errorf("failed to get order book from Redis (key: %s): %w", key, err)
	}

	book, err := ParseOrderBook(symbol, []byte(val))
	if err != nil {
		return vo.OrderBook{}, fmt.Errorf("failed to parse order book (key: %s): %w", key, err)
	}
	return book, nil
}

// GetCandleHistories 讀取 K 線歷史（最新在前）
func (r *MarketDataReader) GetCandleHistories(ctx context.Context, symbol, bar string, limit int64) ([]CandleData, error) {
	key := fmt.Sprintf(KeyPatternCandleHistory, bar, symbol)

	vals, err := r.client.Client().LRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get candles from Redis (key: %s): %w", key, err)
	}

	candles := make([]CandleData, len(vals))
	for i, v := range vals {
		if err := json.Unmarshal([]byte(v), &candles[i]); err != nil {
			return nil, fmt.Errorf("failed to parse candle at index %d (instId: %s, bar: %s): %w", i, symbol, bar, err)
		}
	}
	return candles, nil
}

// LatestCandleTime 最新一根 K 線的時間
func (r *MarketDataReader) LatestCandleTime(ctx context.Context, symbol, bar string) (time.Time, error) {
	candles, err := r.GetCandleHistories(ctx, symbol, bar, 1)
	if err != nil {
		return time.Time{}, err
	}
	if len(candles) == 0 {
		return time.Time{}, fmt.Errorf("%s %s candles: %w", symbol, bar, ErrNoData)
	}
	return parseMillis(candles[0].Ts)
}

// GetQuoteChange 計價幣相對 USDT 在各時間範圍的漲跌幅（%）
// 計價幣為 USDT 時全部為 0
func (r *MarketDataReader) GetQuoteChange(ctx context.Context, quote string) (map[string]float64, error) {
	out := make(map[string]float64, len(QuoteChangeHorizons))
	for h := range QuoteChangeHorizons {
		out[h] = 0
	}
	if strings.EqualFold(quote, "USDT") {
		return out, nil
	}

	candles, err := r.GetCandleHistories(ctx, strings.ToUpper(quote)+"-USDT", QuoteChangeBar, 25)
	if err != nil {
		return nil, err
	}
	return QuoteChange(candles)
}

// QuoteChange 由 K 線（最新在前）計算各時間範圍的收盤價變化
func QuoteChange(candles []CandleData) (map[string]float64, error) {
	closes := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		d, err := decimal.NewFromString(c.Close)
		if err != nil {
			return nil, fmt.Errorf("invalid close at index %d: %w", i, err)
		}
		closes[i] = d
	}

	out := make(map[string]float64, len(QuoteChangeHorizons))
	for name, n := range QuoteChangeHorizons {
		if n >= len(closes) || closes[n].IsZero() {
			out[name] = 0
			continue
		}
		out[name] = closes[0].Sub(closes[n]).Div(closes[n]).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return out, nil
}

// ParseTicker 解析 OKX ticker JSON
func ParseTicker(data []byte) (Quote, error) {
	var t TickerData
	if err := json.Unmarshal(data, &t); err != nil {
		return Quote{}, fmt.Errorf("failed to parse ticker JSON: %w", err)
	}

	last, err := parseFloat("last", t.Last)
	if err != nil {
		return Quote{}, err
	}
	bid, err := parseOptional("bidPx", t.BidPx)
	if err != nil {
		return Quote{}, err
	}
	ask, err := parseOptional("askPx", t.AskPx)
	if err != nil {
		return Quote{}, err
	}
	volume, err := parseOptional("volCcy24h", t.VolCcy24h)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{Close: last, Bid: bid, Ask: ask, QuoteVolume: volume}

	if open, err := decimal.NewFromString(t.Open24h); err == nil && open.IsPositive() {
		q.Percentage = decimal.NewFromFloat(last).Sub(open).Div(open).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	if t.Ts != "" {
		if q.Time, err = parseMillis(t.Ts); err != nil {
			return Quote{}, err
		}
	}
	return q, nil
}

// ParseOrderBook 解析 OKX books JSON
func ParseOrderBook(symbol string, data []byte) (vo.OrderBook, error) {
	var raw orderBookData
	if err := json.Unmarshal(data, &raw); err != nil {
		return vo.OrderBook{}, fmt.Errorf("failed to parse order book JSON: %w", err)
	}

	asks, err := parseLevels(raw.Asks)
	if err != nil {
		return vo.OrderBook{}, fmt.Errorf("asks: %w", err)
	}
	bids, err := parseLevels(raw.Bids)
	if err != nil {
		return vo.OrderBook{}, fmt.Errorf("bids: %w", err)
	}

	book := vo.OrderBook{Symbol: symbol, Asks: asks, Bids: bids}
	if raw.Ts != "" {
		if book.Timestamp, err = strconv.ParseInt(raw.Ts, 10, 64); err != nil {
			return vo.OrderBook{}, fmt.Errorf("invalid timestamp: %w", err)
		}
	}
	return book, nil
}

func parseLevels(rows [][]string) ([]vo.Level, error) {
	levels := make([]vo.Level, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("level %d has %d columns", i, len(row))
		}
		price, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("level %d price: %w", i, err)
		}
		volume, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("level %d size: %w", i, err)
		}
		levels = append(levels, vo.Level{Price: price, Volume: volume})
	}
	return levels, nil
}

func parseFloat(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", field, s, err)
	}
	return v, nil
}

func parseOptional(field, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return parseFloat(field, s)
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return time.UnixMilli(ms), nil
}
