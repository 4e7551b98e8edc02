package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dizzycode.xyz/trading-engine/internal/application"
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

const (
	PairsFile        = "pair_data.json"
	TradeHistoryFile = "tradehistory.json"
)

var _ application.StateStore = (*JSONStore)(nil)

// JSONStore 以兩個 JSON 檔保存狀態
type JSONStore struct {
	dir string
	mu  sync.Mutex
}

// NewJSONStore 建立目錄（不存在時）
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &JSONStore{dir: dir}, nil
}

// LoadPairs 檔案不存在時回傳空表
func (s *JSONStore) LoadPairs(_ context.Context) (map[string]vo.Pair, error) {
	pairs := make(map[string]vo.Pair)
	if err := s.load(PairsFile, &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

func (s *JSONStore) SavePairs(_ context.Context, pairs map[string]vo.Pair) error {
	return s.save(PairsFile, pairs)
}

// LoadTradeHistory 檔案不存在時回傳空列表
func (s *JSONStore) LoadTradeHistory(_ context.Context) ([]vo.TradeRecord, error) {
	var trades []vo.TradeRecord
	if err := s.load(TradeHistoryFile, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

func (s *JSONStore) SaveTradeHistory(_ context.Context, trades []vo.TradeRecord) error {
	if trades == nil {
		trades = []vo.TradeRecord{}
	}
	return s.save(TradeHistoryFile, trades)
}

func (s *JSONStore) load(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (s *JSONStore) save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
