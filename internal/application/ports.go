package application

import (
	"context"
	"time"

	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

// Exchange 交易所端口（應用層定義介面，基礎設施層實現）
//
// Pairs 由行情更新任務持續修改；GetDepth 回傳 nil levels 代表被節流，本輪跳過。
type Exchange interface {
	Pairs() *vo.PairBook
	Balance() float64
	QuoteChangeInfo() map[string]float64
	GetDepth(ctx context.Context, symbol string, side vo.Side) ([]vo.Level, error)
	MinCost(symbol string) float64
	PlaceOrder(ctx context.Context, symbol string, orderType vo.OrderType, side vo.Side, amount, price float64) (vo.TradeRecord, error)
}

// AccountSource 帳戶資料（餘額刷新與成本重建使用）
type AccountSource interface {
	FetchBalances(ctx context.Context) (map[string]float64, error)
	FetchMyTrades(ctx context.Context, symbol string) ([]vo.TradeRecord, error)
}

// Indicators 技術指標端口，每輪評估前刷新一次
type Indicators interface {
	Refresh(ctx context.Context) error
	Statistics() map[string]vo.IndicatorSnapshot
	ReloadSingleCandleHistory(ctx context.Context, symbol string) error
}

// StateStore 交易對狀態與成交記錄的持久化
type StateStore interface {
	LoadPairs(ctx context.Context) (map[string]vo.Pair, error)
	SavePairs(ctx context.Context, pairs map[string]vo.Pair) error
	LoadTradeHistory(ctx context.Context) ([]vo.TradeRecord, error)
	SaveTradeHistory(ctx context.Context, trades []vo.TradeRecord) error
}

// OrderPublisher 成交事件對外廣播（可選）
type OrderPublisher interface {
	PublishOrder(ctx context.Context, trade vo.TradeRecord) error
}

// Recorder 指標記錄
type Recorder interface {
	CycleCompleted(duration time.Duration)
	SignalEmitted(kind string)
	OrderPlaced(side string)
	TradeRejected(reason string)
	EvaluationFailed(strategy string)
	UpkeepRun(task string, duration time.Duration, err error)
}

// NopRecorder 不記錄任何指標
type NopRecorder struct{}

func (NopRecorder) CycleCompleted(time.Duration)           {}
func (NopRecorder) SignalEmitted(string)                   {}
func (NopRecorder) OrderPlaced(string)                     {}
func (NopRecorder) TradeRejected(string)                   {}
func (NopRecorder) EvaluationFailed(string)                {}
func (NopRecorder) UpkeepRun(string, time.Duration, error) {}
