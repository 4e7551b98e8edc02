package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dizzycode.xyz/trading-engine/internal/application"
	"dizzycode.xyz/trading-engine/internal/domain/position"
	"dizzycode.xyz/trading-engine/internal/domain/strategy"
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
	"dizzycode.xyz/trading-engine/internal/infrastructure/config"
	"dizzycode.xyz/trading-engine/internal/infrastructure/exchange"
	"dizzycode.xyz/trading-engine/internal/infrastructure/httpserver"
	logfactory "dizzycode.xyz/trading-engine/internal/infrastructure/logger"
	"dizzycode.xyz/trading-engine/internal/infrastructure/messaging"
	"dizzycode.xyz/trading-engine/internal/infrastructure/metrics"
	"dizzycode.xyz/trading-engine/internal/infrastructure/rabbitmq"
	"dizzycode.xyz/trading-engine/internal/infrastructure/storage"
	"dizzycode.xyz/trading-engine/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trading engine: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. 載入配置與 logger
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logfactory.Must(cfg)
	defer log.Sync()

	log.Info("Starting Trading Engine", map[string]any{
		"environment": cfg.Environment,
		"symbols":     cfg.Market.Symbols,
		"store":       cfg.Store.Driver,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Redis 與策略設定
	redisClient, err := messaging.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	set, err := config.LoadStrategies(cfg.StrategyFile)
	if err != nil {
		return err
	}
	log.Info("Strategies loaded", map[string]any{
		"buy":     len(set.Strategies.Buy),
		"dca_buy": len(set.Strategies.DCABuy),
		"sell":    len(set.Strategies.Sell),
	})

	// 3. 狀態儲存
	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	// 4. 模擬交易所與交易對
	pairs := vo.NewPairBook()
	for _, symbol := range cfg.Market.Symbols {
		pairs.Set(vo.NewPair(symbol))
	}
	reader := messaging.NewMarketDataReader(redisClient, log)
	paper := exchange.NewPaperExchange(pairs, reader, exchange.PaperOptions{
		Quote:           cfg.Market.Quote,
		StartingBalance: cfg.Paper.StartingBalance,
		FeeRate:         cfg.Paper.FeeRate,
		MinCost:         cfg.Paper.MinCost,
		MinAmount:       cfg.Paper.MinAmount,
	}, log)
	indicators := messaging.NewIndicatorReader(redisClient, cfg.Market.Symbols, log)

	// 5. 選擇性的成交廣播
	publisher, closePublisher, err := openPublisher(cfg.RabbitMQ, redisClient, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	recorder := metrics.New()
	engine := application.NewEngine(
		application.Dependencies{Exchange: paper, Indicators: indicators, Store: store},
		set.Conditions,
		set.Strategies,
		log,
		application.WithPublisher(publisher),
		application.WithRecorder(recorder),
		application.WithCyclePause(cfg.Upkeep.CyclePause),
	)

	// 6. 恢復狀態：先重建模擬帳戶，再套用保存的交易對
	history, err := store.LoadTradeHistory(ctx)
	if err != nil {
		return fmt.Errorf("load trade history: %w", err)
	}
	paper.Replay(history)
	if err := engine.RestoreState(ctx); err != nil {
		return err
	}

	// 7. 維護任務與 HTTP
	feed := messaging.NewMarketFeed(reader, pairs, paper, indicators, messaging.MarketFeedOptions{
		Quote:     cfg.Market.Quote,
		CandleBar: cfg.Upkeep.CandleBar,
		MaxAge:    cfg.Upkeep.CandleMaxAge,
	}, log)
	balances := application.NewBalanceRefresher(pairs, paper, position.NewTracker(0), log)

	scheduler := application.NewScheduler(log, recorder,
		application.Task{Name: "tickers", Interval: cfg.Upkeep.TickerInterval, Run: feed.RefreshTickers},
		application.Task{Name: "quote_change", Interval: cfg.Upkeep.QuoteChangeInterval, Run: feed.RefreshQuoteChange},
		application.Task{Name: "candle_sweep", Interval: cfg.Upkeep.CandleSweepInterval, Run: feed.SweepCandles},
		application.Task{Name: "balances", Interval: cfg.Upkeep.BalanceInterval, Run: balances.Refresh},
	)
	scheduler.Start(ctx)

	server := httpserver.New(cfg.HTTPAddr, statusView{engine: engine, exchange: paper}, recorder.Handler(), log)
	server.Start()

	log.Info("Trading Engine started successfully", map[string]any{
		"http_addr": cfg.HTTPAddr,
	})

	// 8. 決策循環，收到退出信號後結束
	runErr := engine.Run(ctx)

	log.Info("Shutting down Trading Engine...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown failed", map[string]any{"error": err})
	}
	scheduler.Wait()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func openStore(cfg config.StoreConfig) (application.StateStore, func(), error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		s, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		s, err := storage.NewJSONStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

// openPublisher 設定 RabbitMQ 時走佇列，否則走 Redis Pub/Sub
func openPublisher(cfg config.RabbitMQConfig, redisClient *messaging.RedisClient, log logger.Logger) (application.OrderPublisher, func(), error) {
	if cfg.URL == "" {
		return messaging.NewRedisOrderPublisher(redisClient, log), func() {}, nil
	}

	conn := rabbitmq.NewConnection(cfg.URL, log)
	if err := conn.Connect(); err != nil {
		return nil, nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	return rabbitmq.NewOrderPublisher(conn, cfg.Queue, log), func() { _ = conn.Close() }, nil
}

// statusView 供 HTTP 查詢的唯讀狀態
type statusView struct {
	engine   *application.Engine
	exchange application.Exchange
}

func (v statusView) Pairs() map[string]vo.Pair { return v.exchange.Pairs().Snapshot() }
func (v statusView) Balance() float64          { return v.exchange.Balance() }
func (v statusView) TradeHistory() []vo.TradeRecord {
	return v.engine.TradeHistory()
}
func (v statusView) Markers() map[string]map[string]strategy.TrailingMarker {
	return v.engine.Markers()
}
