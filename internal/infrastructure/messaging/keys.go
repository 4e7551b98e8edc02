package messaging

// Redis Key Patterns
//
// 與行情服務共用的 key 格式
const (
	// ========== KV 存儲 Key（Pull 模式）==========

	KeyPatternTickerLatest    = "price.latest.%s"      // %s = instId
	KeyPatternOrderBookLatest = "orderbook.latest.%s"  // %s = instId
	KeyPatternCandleHistory   = "candle.history.%s.%s" // %s = bar, %s = instId（LPUSH，最新在前）
	KeyPatternIndicatorLatest = "indicator.latest.%s"  // %s = instId（HASH：指標名 → 數值）

	// ========== Pub/Sub Channel（Push 模式）==========

	ChannelCandleReload  = "market.candle.reload"
	ChannelPatternOrders = "engine.orders.%s" // %s = instId
)

// QuoteChangeBar 計價幣漲跌幅使用 1 小時 K 線
const QuoteChangeBar = "1H"

// QuoteChangeHorizons 計價幣漲跌幅的時間範圍（小時）
var QuoteChangeHorizons = map[string]int{
	"1h":  1,
	"4h":  4,
	"6h":  6,
	"12h": 12,
	"24h": 24,
}
