package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
	"dizzycode.xyz/trading-engine/pkg/logger"
)

// ReloadRequest 要求行情服務重新載入某交易對的 K 線歷史
type ReloadRequest struct {
	InstID      string `json:"instId"`
	RequestedAt int64  `json:"requestedAt"` // ms
}

// IndicatorReader implements the Indicators port from application layer
//
// 技術指標由外部服務計算並寫入 indicator.latest.{instId}，這裡每輪讀取一次。
type IndicatorReader struct {
	client  *RedisClient
	symbols []string
	logger  logger.Logger
	now     func() time.Time

	mu    sync.RWMutex
	stats map[string]vo.IndicatorSnapshot
}

// NewIndicatorReader 創建 IndicatorReader
func NewIndicatorReader(client *RedisClient, symbols []string, log logger.Logger) *IndicatorReader {
	return &IndicatorReader{
		client:  client,
		symbols: symbols,
		logger:  log,
		now:     time.Now,
		stats:   make(map[string]vo.IndicatorSnapshot),
	}
}

// Refresh 以 pipeline 一次讀取所有交易對的指標
// 沒有指標的交易對不會出現在 Statistics 中
func (r *IndicatorReader) Refresh(ctx context.Context) error {
	pipe := r.client.Client().Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(r.symbols))
	for i, s := range r.symbols {
		cmds[i] = pipe.HGetAll(ctx, fmt.Sprintf(KeyPatternIndicatorLatest, s))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to read indicators: %w", err)
	}

	stats := make(map[string]vo.IndicatorSnapshot, len(r.symbols))
	for i, cmd := range cmds {
		raw := cmd.Val()
		if len(raw) == 0 {
			continue
		}
		snapshot, err := ParseIndicators(raw)
		if err != nil {
			r.logger.Warn("Skipping malformed indicators", map[string]any{
				"symbol": r.symbols[i],
				"error":  err,
			})
			continue
		}
		stats[r.symbols[i]] = snapshot
	}

	r.mu.Lock()
	r.stats = stats
	r.mu.Unlock()
	return nil
}

// Statistics 最近一次刷新的結果
func (r *IndicatorReader) Statistics() map[string]vo.IndicatorSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// ReloadSingleCandleHistory 發布重新載入請求
// Channel: market.candle.reload
func (r *IndicatorReader) ReloadSingleCandleHistory(ctx context.Context, symbol string) error {
	data, err := json.Marshal(ReloadRequest{InstID: symbol, RequestedAt: r.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("failed to marshal reload request: %w", err)
	}

	if err := r.client.Client().Publish(ctx, ChannelCandleReload, data).Err(); err != nil {
		return fmt.Errorf("failed to publish reload request to channel %s: %w", ChannelCandleReload, err)
	}

	r.logger.Info("Candle history reload requested", map[string]any{
		"symbol": symbol,
	})
	return nil
}

// ParseIndicators HASH 欄位轉為數值
func ParseIndicators(raw map[string]string) (vo.IndicatorSnapshot, error) {
	out := make(vo.IndicatorSnapshot, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("indicator %s: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}
