package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
	"dizzycode.xyz/trading-engine/pkg/logger"
)

// QuoteChangeSink 接收計價幣漲跌幅
type QuoteChangeSink interface {
	SetQuoteChangeInfo(info map[string]float64)
}

// CandleReloader 發送 K 線重新載入請求
type CandleReloader interface {
	ReloadSingleCandleHistory(ctx context.Context, symbol string) error
}

// MarketFeed 將 Redis 中的行情同步到交易對狀態表
// 每個方法都是一個維護任務，由排程器週期呼叫
type MarketFeed struct {
	reader   *MarketDataReader
	pairs    *vo.PairBook
	sink     QuoteChangeSink
	reloader CandleReloader
	quote    string
	bar      string
	maxAge   time.Duration
	logger   logger.Logger
	now      func() time.Time
}

// MarketFeedOptions 行情同步設定
type MarketFeedOptions struct {
	Quote     string        // 計價幣
	CandleBar string        // 檢查新鮮度的 K 線週期
	MaxAge    time.Duration // 超過即要求重新載入
}

// NewMarketFeed 創建 MarketFeed
func NewMarketFeed(
	reader *MarketDataReader,
	pairs *vo.PairBook,
	sink QuoteChangeSink,
	reloader CandleReloader,
	opts MarketFeedOptions,
	log logger.Logger,
) *MarketFeed {
	return &MarketFeed{
		reader:   reader,
		pairs:    pairs,
		sink:     sink,
		reloader: reloader,
		quote:    opts.Quote,
		bar:      opts.CandleBar,
		maxAge:   opts.MaxAge,
		logger:   log,
		now:      time.Now,
	}
}

// RefreshTickers 更新 close/bid/ask/24h 漲跌幅
func (f *MarketFeed) RefreshTickers(ctx context.Context) error {
	quotes, err := f.reader.GetQuotes(ctx, f.pairs.Symbols())
	if err != nil {
		return err
	}
	for symbol, q := range quotes {
		f.pairs.Update(symbol, q.Apply)
	}
	return nil
}

// RefreshQuoteChange 更新計價幣漲跌幅
func (f *MarketFeed) RefreshQuoteChange(ctx context.Context) error {
	info, err := f.reader.GetQuoteChange(ctx, f.quote)
	if err != nil {
		return err
	}
	f.sink.SetQuoteChangeInfo(info)
	f.logger.Debug("Quote change updated", map[string]any{
		"quote": f.quote,
		"1h":    info["1h"],
		"24h":   info["24h"],
	})
	return nil
}

// SweepCandles K 線過期的交易對要求重新載入
func (f *MarketFeed) SweepCandles(ctx context.Context) error {
	var errs []error
	for _, symbol := range f.pairs.Symbols() {
		latest, err := f.reader.LatestCandleTime(ctx, symbol, f.bar)
		if err != nil && !errors.Is(err, ErrNoData) {
			errs = append(errs, err)
			continue
		}
		if err == nil && f.now().Sub(latest) <= f.maxAge {
			continue
		}

		f.logger.Warn("Candle history stale", map[string]any{
			"symbol": symbol,
			"bar":    f.bar,
			"latest": latest,
		})
		if err := f.reloader.ReloadSingleCandleHistory(ctx, symbol); err != nil {
			errs = append(errs, fmt.Errorf("reload %s: %w", symbol, err))
		}
	}
	return errors.Join(errs...)
}
