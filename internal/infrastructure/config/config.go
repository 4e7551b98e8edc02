package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// 儲存後端
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

type Config struct {
	Environment string `env:"ENVIRONMENT,required,notEmpty"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"zap"` // zap | console
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8090"`

	StrategyFile string `env:"STRATEGY_FILE" envDefault:"strategies.yaml"`

	Redis    RedisConfig
	RabbitMQ RabbitMQConfig `envPrefix:"RABBITMQ_"`
	Store    StoreConfig
	Market   MarketConfig
	Paper    PaperConfig `envPrefix:"PAPER_"`
	Upkeep   UpkeepConfig
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,required,notEmpty"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
}

// RabbitMQConfig URL 為空時不啟用
type RabbitMQConfig struct {
	URL   string `env:"URL"`
	Queue string `env:"ORDER_QUEUE" envDefault:"engine.orders"`
}

// StoreConfig 交易對狀態與成交記錄的儲存
type StoreConfig struct {
	Driver     string `env:"STORE_DRIVER" envDefault:"json"`
	DataDir    string `env:"DATA_DIR" envDefault:"data"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/engine.db"`
}

// MarketConfig 交易市場
type MarketConfig struct {
	Quote   string   `env:"QUOTE_CURRENCY" envDefault:"USDT"`
	Symbols []string `env:"SYMBOLS" envSeparator:"," envDefault:"BTC-USDT,ETH-USDT"`
}

// PaperConfig 模擬交易
type PaperConfig struct {
	StartingBalance float64 `env:"STARTING_BALANCE" envDefault:"1000"`
	FeeRate         float64 `env:"FEE_RATE" envDefault:"0.001"` // 0.1%
	MinCost         float64 `env:"MIN_COST" envDefault:"10"`
	MinAmount       float64 `env:"MIN_AMOUNT" envDefault:"0.00001"`
}

// UpkeepConfig 維護任務間隔與決策循環暫停
type UpkeepConfig struct {
	TickerInterval      time.Duration `env:"TICKER_INTERVAL" envDefault:"1s"`
	QuoteChangeInterval time.Duration `env:"QUOTE_CHANGE_INTERVAL" envDefault:"60s"`
	CandleSweepInterval time.Duration `env:"CANDLE_SWEEP_INTERVAL" envDefault:"60s"`
	BalanceInterval     time.Duration `env:"BALANCE_INTERVAL" envDefault:"10s"`
	CyclePause          time.Duration `env:"CYCLE_PAUSE" envDefault:"0s"`
	CandleBar           string        `env:"CANDLE_BAR" envDefault:"1m"`
	CandleMaxAge        time.Duration `env:"CANDLE_MAX_AGE" envDefault:"3m"`
}

// Load 載入 .env 並解析環境變數
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found")
	}
	return Parse()
}

// Parse 只解析目前的環境變數
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	cfg.Market.Symbols = normalizeSymbols(cfg.Market.Symbols)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 檢查設定
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreJSON, StoreSQLite:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q (json|sqlite)", c.Store.Driver)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if len(c.Market.Symbols) == 0 {
		return fmt.Errorf("SYMBOLS must list at least one pair")
	}
	if c.Paper.FeeRate < 0 || c.Paper.FeeRate >= 1 {
		return fmt.Errorf("invalid PAPER_FEE_RATE %v", c.Paper.FeeRate)
	}
	return nil
}

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsDevelopment 開發環境使用彩色輸出
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
