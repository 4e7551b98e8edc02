package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"dizzycode.xyz/trading-engine/internal/application"
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

var _ application.StateStore = (*SQLiteStore)(nil)

// SQLiteStore 以 SQLite 保存狀態，成交記錄只新增不覆寫
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with WAL mode enabled
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS pairs (
			symbol TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trades (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			ts INTEGER NOT NULL,
			data TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadPairs(ctx context.Context) (map[string]vo.Pair, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT symbol, data FROM pairs")
	if err != nil {
		return nil, fmt.Errorf("failed to query pairs: %w", err)
	}
	defer rows.Close()

	pairs := make(map[string]vo.Pair)
	for rows.Next() {
		var symbol, data string
		if err := rows.Scan(&symbol, &data); err != nil {
			return nil, fmt.Errorf("failed to scan pair: %w", err)
		}
		var p vo.Pair
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("failed to decode pair %s: %w", symbol, err)
		}
		pairs[symbol] = p
	}
	return pairs, rows.Err()
}

// SavePairs 在同一個交易中覆寫所有交易對
func (s *SQLiteStore) SavePairs(ctx context.Context, pairs map[string]vo.Pair) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for symbol, p := range pairs {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode pair %s: %w", symbol, err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO pairs (symbol, data, updated_at) VALUES (?, ?, ?) ON CONFLICT(symbol) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at",
			symbol, string(data), now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert pair %s: %w", symbol, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadTradeHistory(ctx context.Context) ([]vo.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM trades ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []vo.TradeRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		var t vo.TradeRecord
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, fmt.Errorf("failed to decode trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// SaveTradeHistory 只寫入尚未保存的成交（以 id 去重）
func (s *SQLiteStore) SaveTradeHistory(ctx context.Context, trades []vo.TradeRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, t := range trades {
		if t.ID == "" {
			return fmt.Errorf("trade for %s has no id", t.Symbol)
		}
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode trade %s: %w", t.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO trades (id, symbol, side, ts, data) VALUES (?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING",
			t.ID, t.Symbol, string(t.Side), t.Timestamp, string(data),
		)
		if err != nil {
			return fmt.Errorf("failed to insert trade %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}
