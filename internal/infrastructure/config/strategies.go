package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"dizzycode.xyz/trading-engine/internal/application"
	"dizzycode.xyz/trading-engine/internal/domain/strategy"
)

// StrategyFile 策略設定檔（YAML）
type StrategyFile struct {
	BuyStrategies         []BuyStrategyConfig          `yaml:"buy_strategies"`
	DCABuyStrategies      []DCABuyStrategyConfig       `yaml:"dca_buy_strategies"`
	SellStrategies        []SellStrategyConfig         `yaml:"sell_strategies"`
	PairSettings          map[string]PairSettingConfig `yaml:"pair_settings"`
	GlobalTradeConditions GlobalTradeConditionsConfig  `yaml:"global_trade_conditions"`
}

type BuyStrategyConfig struct {
	Name       string                     `yaml:"name"`
	Conditions []strategy.PredicateConfig `yaml:"conditions"`
	Trailing   float64                    `yaml:"trailing"`
	BuyValue   strategy.ValueExpr         `yaml:"buy_value"`
}

type DCABuyStrategyConfig struct {
	Name        string                       `yaml:"name"`
	Conditions  []strategy.PredicateConfig   `yaml:"conditions"`
	Trailing    float64                      `yaml:"trailing"`
	MaxDCALevel int                          `yaml:"max_dca_level"`
	DCAStrategy map[string]strategy.DCALevel `yaml:"dca_strategy"`
}

type SellStrategyConfig struct {
	Name       string                     `yaml:"name"`
	Conditions []strategy.PredicateConfig `yaml:"conditions"`
	Trailing   float64                    `yaml:"trailing"`
	SellValue  float64                    `yaml:"sell_value"`
	Fee        *float64                   `yaml:"fee"`
}

// PairSettingConfig 依基礎幣覆寫，例如 ETH: {sell: {value: 2}}
type PairSettingConfig struct {
	Sell struct {
		Value *float64 `yaml:"value"`
	} `yaml:"sell"`
}

type GlobalTradeConditionsConfig struct {
	MinBuyBalance    strategy.ValueExpr  `yaml:"min_buy_balance"`
	DCAMinBuyBalance strategy.ValueExpr  `yaml:"dca_min_buy_balance"`
	MaxSpread        float64             `yaml:"max_spread"`
	MaxChange        float64             `yaml:"max_change"`
	MinChange        float64             `yaml:"min_change"`
	Blacklist        []string            `yaml:"blacklist"`
	Whitelist        []string            `yaml:"whitelist"`
	MaxPairs         int                 `yaml:"max_pairs"`
	DCATimeout       float64             `yaml:"dca_timeout"` // 分鐘
	MarketChange     *MarketChangeConfig `yaml:"market_change"`
}

type MarketChangeConfig struct {
	Min1hQuoteChange   float64 `yaml:"min_1h_quote_change"`
	Max1hQuoteChange   float64 `yaml:"max_1h_quote_change"`
	Min24hQuoteChange  float64 `yaml:"min_24h_quote_change"`
	Max24hQuoteChange  float64 `yaml:"max_24h_quote_change"`
	Min24hMarketChange float64 `yaml:"min_24h_market_change"`
	Max24hMarketChange float64 `yaml:"max_24h_market_change"`
}

// StrategySet 轉換後的策略與全域限制
type StrategySet struct {
	Strategies application.Strategies
	Conditions application.TradeConditions
}

// LoadStrategies 讀取並驗證策略設定檔
func LoadStrategies(path string) (*StrategySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy file %s: %w", path, err)
	}
	set, err := ParseStrategies(data)
	if err != nil {
		return nil, fmt.Errorf("strategy file %s: %w", path, err)
	}
	return set, nil
}

// ParseStrategies 解析 YAML，未知欄位視為錯誤
func ParseStrategies(data []byte) (*StrategySet, error) {
	var file StrategyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return file.Build()
}

// Build 轉換為領域物件
func (f StrategyFile) Build() (*StrategySet, error) {
	var set StrategySet

	for i, cfg := range f.BuyStrategies {
		preds, err := strategy.NewPredicates(cfg.Conditions)
		if err != nil {
			return nil, fmt.Errorf("buy_strategies[%d]: %w", i, err)
		}
		c, err := strategy.NewBuyCondition(strategy.BuyConfig{
			Name:       nameOr(cfg.Name, "buy", i),
			Conditions: preds,
			Trailing:   cfg.Trailing,
			BuyValue:   cfg.BuyValue,
		})
		if err != nil {
			return nil, fmt.Errorf("buy_strategies[%d]: %w", i, err)
		}
		set.Strategies.Buy = append(set.Strategies.Buy, c)
	}

	for i, cfg := range f.DCABuyStrategies {
		preds, err := strategy.NewPredicates(cfg.Conditions)
		if err != nil {
			return nil, fmt.Errorf("dca_buy_strategies[%d]: %w", i, err)
		}
		policy, err := strategy.NewDCALevelPolicy(cfg.DCAStrategy)
		if err != nil {
			return nil, fmt.Errorf("dca_buy_strategies[%d]: %w", i, err)
		}
		c, err := strategy.NewDCABuyCondition(strategy.DCABuyConfig{
			Name:        nameOr(cfg.Name, "dca", i),
			Conditions:  preds,
			Trailing:    cfg.Trailing,
			MaxDCALevel: cfg.MaxDCALevel,
			Levels:      policy,
		})
		if err != nil {
			return nil, fmt.Errorf("dca_buy_strategies[%d]: %w", i, err)
		}
		set.Strategies.DCABuy = append(set.Strategies.DCABuy, c)
	}

	pairValues := make(map[string]float64)
	for base, s := range f.PairSettings {
		if s.Sell.Value != nil {
			pairValues[base] = *s.Sell.Value
		}
	}

	for i, cfg := range f.SellStrategies {
		preds, err := strategy.NewPredicates(cfg.Conditions)
		if err != nil {
			return nil, fmt.Errorf("sell_strategies[%d]: %w", i, err)
		}
		c, err := strategy.NewSellCondition(strategy.SellConfig{
			Name:       nameOr(cfg.Name, "sell", i),
			Conditions: preds,
			Trailing:   cfg.Trailing,
			SellValue:  cfg.SellValue,
			Fee:        cfg.Fee,
			PairValues: pairValues,
		})
		if err != nil {
			return nil, fmt.Errorf("sell_strategies[%d]: %w", i, err)
		}
		set.Strategies.Sell = append(set.Strategies.Sell, c)
	}

	set.Conditions = f.GlobalTradeConditions.toDomain()
	return &set, nil
}

func (g GlobalTradeConditionsConfig) toDomain() application.TradeConditions {
	c := application.TradeConditions{
		MinBuyBalance:    g.MinBuyBalance,
		DCAMinBuyBalance: g.DCAMinBuyBalance,
		MaxSpread:        g.MaxSpread,
		MaxChange:        g.MaxChange,
		MinChange:        g.MinChange,
		Blacklist:        g.Blacklist,
		Whitelist:        g.Whitelist,
		MaxPairs:         g.MaxPairs,
		DCATimeout:       time.Duration(g.DCATimeout * float64(time.Minute)),
	}
	if mc := g.MarketChange; mc != nil {
		c.MarketChange = &application.MarketChange{
			Min1hQuoteChange:   mc.Min1hQuoteChange,
			Max1hQuoteChange:   mc.Max1hQuoteChange,
			Min24hQuoteChange:  mc.Min24hQuoteChange,
			Max24hQuoteChange:  mc.Max24hQuoteChange,
			Min24hMarketChange: mc.Min24hMarketChange,
			Max24hMarketChange: mc.Max24hMarketChange,
		}
	}
	return c
}

func nameOr(name, kind string, i int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s_%d", kind, i)
}
