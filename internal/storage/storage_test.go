package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/arbitrage"
	"github.com/mselser95/predict-agent/internal/execution"
	"github.com/mselser95/predict-agent/pkg/types"
)

func sampleOpportunity() *arbitrage.Opportunity {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &arbitrage.Opportunity{
		ID:         "7f9c34c2-93a1-4a57-9d6e-0a1b2c3d4e5f",
		Type:       arbitrage.TypeIntraVenue,
		Key:        "INTRA_VENUE:mkt-1",
		DetectedAt: now,
		ExpiresAt:  now.Add(5 * time.Second),
		RiskLevel:  arbitrage.RiskLow,
		Confidence: 0.9,
		Edge:       0.03,
		Size:       100,
		Legs: []arbitrage.Leg{
			{Venue: types.VenuePredict, TokenID: "yes-tok", Outcome: "YES", Side: types.SideBuy, Shares: 100, Price: 0.42},
			{Venue: types.VenuePredict, TokenID: "no-tok", Outcome: "NO", Side: types.SideBuy, Shares: 100, Price: 0.55},
		},
		MarketID:   "mkt-1",
		YesTokenID: "yes-tok",
		NoTokenID:  "no-tok",
		Action:     arbitrage.ActionBuyBoth,
	}
}

func sampleRecord() *execution.Record {
	return &execution.Record{
		OpportunityID: "7f9c34c2-93a1-4a57-9d6e-0a1b2c3d4e5f",
		Key:           "INTRA_VENUE:mkt-1",
		Type:          arbitrage.TypeIntraVenue,
		Status:        execution.StatusExecuted,
		Trades: []execution.Trade{
			{Venue: types.VenuePredict, TokenID: "yes-tok", Side: types.SideBuy, Price: 0.42, Shares: 100, Hash: "0xaaa", Status: execution.StatusExecuted},
			{Venue: types.VenuePredict, TokenID: "no-tok", Side: types.SideBuy, Price: 0.55, Shares: 100, Hash: "0xbbb", Status: execution.StatusExecuted},
		},
		TotalCost:      97,
		ExpectedProfit: 3,
		ExecutedAt:     time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC),
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func TestConsoleStorageOpportunity(t *testing.T) {
	s := NewConsoleStorage(zap.NewNop())

	out := captureStdout(t, func() {
		if err := s.StoreOpportunity(context.Background(), sampleOpportunity()); err != nil {
			t.Errorf("store: %v", err)
		}
	})

	if !strings.Contains(out, "INTRA_VENUE") {
		t.Errorf("output missing type:\n%s", out)
	}
	if !strings.Contains(out, "INTRA_VENUE:mkt-1") {
		t.Errorf("output missing key:\n%s", out)
	}
	if !strings.Contains(out, "$97.00") {
		t.Errorf("output missing total notional:\n%s", out)
	}
}

func TestConsoleStorageExecution(t *testing.T) {
	s := NewConsoleStorage(zap.NewNop())

	out := captureStdout(t, func() {
		if err := s.StoreExecution(context.Background(), sampleRecord()); err != nil {
			t.Errorf("store: %v", err)
		}
	})

	if !strings.Contains(out, "EXECUTED") {
		t.Errorf("output missing status:\n%s", out)
	}
	if !strings.Contains(out, "0.4200") {
		t.Errorf("output missing trade price:\n%s", out)
	}
}

func TestPostgresStoreOpportunity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := &PostgresStorage{db: db, logger: zap.NewNop()}
	opp := sampleOpportunity()

	mock.ExpectExec("INSERT INTO arbitrage_opportunities").
		WithArgs(
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
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.StoreOpportunity(context.Background(), opp); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresStoreExecution(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := &PostgresStorage{db: db, logger: zap.NewNop()}
	rec := sampleRecord()

	mock.ExpectExec("INSERT INTO arbitrage_executions").
		WithArgs(
			rec.OpportunityID,
			rec.Key,
			string(rec.Type),
			string(rec.Status),
			rec.ExecutedAt,
			rec.TotalCost,
			rec.ExpectedProfit,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.StoreExecution(context.Background(), rec); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := &PostgresStorage{db: db, logger: zap.NewNop()}

	mock.ExpectExec("INSERT INTO arbitrage_opportunities").
		WillReturnError(io.ErrUnexpectedEOF)

	if err := s.StoreOpportunity(context.Background(), sampleOpportunity()); err == nil {
		t.Error("expected insert error")
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.db")

	s, err := NewSQLiteStorage(&SQLiteConfig{Path: path, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.StoreOpportunity(ctx, sampleOpportunity()); err != nil {
		t.Fatalf("store opportunity: %v", err)
	}
	if err := s.StoreExecution(ctx, sampleRecord()); err != nil {
		t.Fatalf("store execution: %v", err)
	}

	var opps, execs int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM arbitrage_opportunities").Scan(&opps); err != nil {
		t.Fatalf("count opportunities: %v", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM arbitrage_executions").Scan(&execs); err != nil {
		t.Fatalf("count executions: %v", err)
	}
	if opps != 1 || execs != 1 {
		t.Errorf("counts = %d/%d, want 1/1", opps, execs)
	}
}

func TestSQLiteRejectsEmptyPath(t *testing.T) {
	if _, err := NewSQLiteStorage(&SQLiteConfig{Logger: zap.NewNop()}); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestFactorySelectsBackend(t *testing.T) {
	s := NewConsoleStorage(zap.NewNop())
	var _ Storage = s

	var _ Storage = (*PostgresStorage)(nil)
	var _ Storage = (*SQLiteStorage)(nil)
}
