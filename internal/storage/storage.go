// Package storage persists detected opportunities and execution records.
// Backends: console pretty-printer for interactive runs, PostgreSQL for the
// hosted deployment, SQLite for single-box runs.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/arbitrage"
	"github.com/mselser95/predict-agent/internal/execution"
	"github.com/mselser95/predict-agent/pkg/config"
)

// Storage records what the scanner found and what the executor did.
type Storage interface {
	// StoreOpportunity stores a detected arbitrage opportunity.
	StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error

	// StoreExecution stores the outcome of an execution attempt.
	StoreExecution(ctx context.Context, rec *execution.Record) error

	// Close closes the storage connection.
	Close() error
}

// New builds the backend selected by STORAGE_MODE.
func New(cfg *config.Config, logger *zap.Logger) (Storage, error) {
	switch cfg.StorageMode {
	case "console":
		return NewConsoleStorage(logger), nil
	case "postgres":
		return NewPostgresStorage(&PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	case "sqlite":
		return NewSQLiteStorage(&SQLiteConfig{
			Path:   cfg.SQLitePath,
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.StorageMode)
	}
}
