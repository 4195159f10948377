package storage

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/arbitrage"
	"github.com/mselser95/predict-agent/internal/execution"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS arbitrage_opportunities (
	id              UUID PRIMARY KEY,
	key             TEXT NOT NULL,
	type            TEXT NOT NULL,
	detected_at     TIMESTAMPTZ NOT NULL,
	risk_level      TEXT NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	edge            DOUBLE PRECISION NOT NULL,
	size            DOUBLE PRECISION NOT NULL,
	total_notional  DOUBLE PRECISION NOT NULL,
	expected_profit DOUBLE PRECISION NOT NULL,
	legs            JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opportunities_key ON arbitrage_opportunities (key, detected_at);

CREATE TABLE IF NOT EXISTS arbitrage_executions (
	opportunity_id  UUID NOT NULL,
	key             TEXT NOT NULL,
	type            TEXT NOT NULL,
	status          TEXT NOT NULL,
	executed_at     TIMESTAMPTZ NOT NULL,
	total_cost      DOUBLE PRECISION NOT NULL,
	expected_profit DOUBLE PRECISION NOT NULL,
	trades          JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_key ON arbitrage_executions (key, executed_at);
`

// NewPostgresStorage connects and ensures the schema exists.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{db: db, logger: cfg.Logger}, nil
}

// StoreOpportunity stores a detected opportunity with its legs as JSONB.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	legs, err := json.Marshal(opp.Legs)
	if err != nil {
		return fmt.Errorf("marshal legs: %w", err)
	}

	query := `
		INSERT INTO arbitrage_opportunities (
			id, key, type, detected_at, risk_level, confidence,
			edge, size, total_notional, expected_profit, legs
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = p.db.ExecContext(ctx, query,
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
		legs,
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored",
		zap.String("opportunity-id", opp.ID),
		zap.String("key", opp.Key))

	return nil
}

// StoreExecution stores an execution record with its trades as JSONB.
func (p *PostgresStorage) StoreExecution(ctx context.Context, rec *execution.Record) error {
	trades, err := json.Marshal(rec.Trades)
	if err != nil {
		return fmt.Errorf("marshal trades: %w", err)
	}

	query := `
		INSERT INTO arbitrage_executions (
			opportunity_id, key, type, status, executed_at,
			total_cost, expected_profit, trades
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = p.db.ExecContext(ctx, query,
		rec.OpportunityID,
		rec.Key,
		string(rec.Type),
		string(rec.Status),
		rec.ExecutedAt,
		rec.TotalCost,
		rec.ExpectedProfit,
		trades,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}

	p.logger.Debug("execution-stored",
		zap.String("opportunity-id", rec.OpportunityID),
		zap.String("status", string(rec.Status)))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
