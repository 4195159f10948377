package storage

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mselser95/predict-agent/internal/arbitrage"
	"github.com/mselser95/predict-agent/internal/execution"
)

// SQLiteStorage implements Storage using an embedded SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// SQLiteConfig holds SQLite configuration.
type SQLiteConfig struct {
	Path   string
	Logger *zap.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS arbitrage_opportunities (
	id              TEXT PRIMARY KEY,
	key             TEXT NOT NULL,
	type            TEXT NOT NULL,
	detected_at     TIMESTAMP NOT NULL,
	risk_level      TEXT NOT NULL,
	confidence      REAL NOT NULL,
	edge            REAL NOT NULL,
	size            REAL NOT NULL,
	total_notional  REAL NOT NULL,
	expected_profit REAL NOT NULL,
	legs            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opportunities_key ON arbitrage_opportunities (key, detected_at);

CREATE TABLE IF NOT EXISTS arbitrage_executions (
	opportunity_id  TEXT NOT NULL,
	key             TEXT NOT NULL,
	type            TEXT NOT NULL,
	status          TEXT NOT NULL,
	executed_at     TIMESTAMP NOT NULL,
	total_cost      REAL NOT NULL,
	expected_profit REAL NOT NULL,
	trades          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_key ON arbitrage_executions (key, executed_at);
`

// NewSQLiteStorage opens the database in WAL mode and ensures the schema.
func NewSQLiteStorage(cfg *SQLiteConfig) (*SQLiteStorage, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The sqlite driver is not safe for concurrent writers over one file.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cfg.Logger.Info("sqlite-storage-opened",
		zap.String("path", cfg.Path))

	return &SQLiteStorage{db: db, logger: cfg.Logger}, nil
}

// StoreOpportunity stores a detected opportunity with its legs as JSON text.
func (s *SQLiteStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	legs, err := json.Marshal(opp.Legs)
	if err != nil {
		return fmt.Errorf("marshal legs: %w", err)
	}

	query := `
		INSERT INTO arbitrage_opportunities (
			id, key, type, detected_at, risk_level, confidence,
			edge, size, total_notional, expected_profit, legs
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		opp.ID,
		opp.Key,
		string(opp.Type),
		opp.DetectedAt,
		string(opp.RiskLevel),
		opp.Confidence,
		opp.Edge,
		opp.Size,
		opp.TotalNotional(),
		opp.ExpectedProfit(),
		string(legs),
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	return nil
}

// StoreExecution stores an execution record with its trades as JSON text.
func (s *SQLiteStorage) StoreExecution(ctx context.Context, rec *execution.Record) error {
	trades, err := json.Marshal(rec.Trades)
	if err != nil {
		return fmt.Errorf("marshal trades: %w", err)
	}

	query := `
		INSERT INTO arbitrage_executions (
			opportunity_id, key, type, status, executed_at,
			total_cost, expected_profit, trades
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.OpportunityID,
		rec.Key,
		string(rec.Type),
		string(rec.Status),
		rec.ExecutedAt,
		rec.TotalCost,
		rec.ExpectedProfit,
		string(trades),
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}

	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	s.logger.Info("closing-sqlite-storage")
	return s.db.Close()
}
