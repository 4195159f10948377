package wallet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantErr bool
	}{
		{name: "valid", cfg: ClientConfig{RPCURL: "https://polygon-rpc.com", Logger: zap.NewNop()}},
		{name: "empty rpc url", cfg: ClientConfig{Logger: zap.NewNop()}, wantErr: true},
		{name: "nil logger", cfg: ClientConfig{RPCURL: "https://polygon-rpc.com"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && client == nil {
				t.Fatal("NewClient() returned nil client")
			}
		})
	}
}

func TestGetPositionsFiltersDust(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/positions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if !strings.Contains(r.URL.RawQuery, "user=0xabc") {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode([]dataAPIPosition{
			{Slug: "will-x-happen", Outcome: "YES", Size: 100.5, CurrentValue: 55, InitialValue: 52.26, CashPnL: 2.74},
			{Slug: "zero-position", Outcome: "NO", Size: 0},
			{Slug: "negative-position", Outcome: "YES", Size: -10},
		})
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{
		RPCURL:     "https://polygon-rpc.com",
		DataAPIURL: srv.URL,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	positions, err := client.GetPositions(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("get positions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("got %d positions, want 1", len(positions))
	}
	if positions[0].MarketSlug != "will-x-happen" || positions[0].Value != 55 {
		t.Errorf("position = %+v", positions[0])
	}
}

func TestGetPositionsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{
		RPCURL:     "https://polygon-rpc.com",
		DataAPIURL: srv.URL,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.GetPositions(context.Background(), "0xabc"); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestGetPositionsContextCancellation(t *testing.T) {
	client, err := NewClient(ClientConfig{
		RPCURL: "https://polygon-rpc.com",
		Logger: zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.GetPositions(ctx, "0xabc"); err == nil {
		t.Error("expected error with cancelled context")
	}
}
