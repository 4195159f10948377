package opinion

import (
	"testing"

	"github.com/mselser95/predict-agent/pkg/types"
)

func TestMarketRecordToMarkets(t *testing.T) {
	r := marketRecord{
		MarketID:   42,
		Title:      "Will it rain?",
		YesTokenID: "tok-yes",
		NoTokenID:  "tok-no",
		Status:     "activated",
		Volume24h:  900,
	}

	markets := r.toMarkets()
	if len(markets) != 2 {
		t.Fatalf("markets = %d, want 2", len(markets))
	}

	yes, no := markets[0], markets[1]
	if yes.TokenID != "tok-yes" || yes.Outcome != types.OutcomeYes {
		t.Errorf("yes leg = %+v", yes)
	}
	if no.TokenID != "tok-no" || no.Outcome != types.OutcomeNo {
		t.Errorf("no leg = %+v", no)
	}
	if yes.MarketID != "opinion-42" {
		t.Errorf("market id = %q, want opinion-42", yes.MarketID)
	}
	if !yes.Active {
		t.Error("activated market reported inactive")
	}
}

func TestMarketRecordNotActivated(t *testing.T) {
	r := marketRecord{MarketID: 1, YesTokenID: "a", NoTokenID: "b", Status: "resolved"}

	markets := r.toMarkets()
	if len(markets) != 2 {
		t.Fatalf("markets = %d, want 2", len(markets))
	}
	if markets[0].Active {
		t.Error("resolved market reported active")
	}
}

func TestMarketRecordMissingToken(t *testing.T) {
	r := marketRecord{MarketID: 1, YesTokenID: "a", Status: "activated"}
	if got := r.toMarkets(); got != nil {
		t.Errorf("toMarkets = %v, want nil when a token is missing", got)
	}
}

func TestDecodeBook(t *testing.T) {
	p := &bookPayload{
		TokenID: "tok-1",
		Bids: []bookLevel{
			{Price: 0.48, Amount: 50},
			{Price: 0.49, Amount: 80},
		},
		Asks: []bookLevel{{Price: 0.51, Amount: 20}},
		TsMs: 1700000000000,
	}

	book, err := decodeBook(p, "")
	if err != nil {
		t.Fatalf("decodeBook: %v", err)
	}
	if book.Bids[0].Price != 0.49 {
		t.Errorf("best bid = %v, want 0.49 (descending)", book.Bids[0].Price)
	}
	if book.UpdatedAt.UnixMilli() != 1700000000000 {
		t.Errorf("updatedAt = %v, want wire timestamp", book.UpdatedAt)
	}
	if err := book.Validate(); err != nil {
		t.Errorf("decoded book fails validation: %v", err)
	}
}

func TestDecodeBookFallbackTokenID(t *testing.T) {
	book, err := decodeBook(&bookPayload{}, "tok-2")
	if err != nil {
		t.Fatalf("decodeBook: %v", err)
	}
	if book.TokenID != "tok-2" {
		t.Errorf("token id = %q, want request fallback", book.TokenID)
	}

	if _, err := decodeBook(&bookPayload{}, ""); !types.IsData(err) {
		t.Errorf("error = %v, want DataError without any id", err)
	}
	if _, err := decodeBook(nil, "tok-2"); !types.IsData(err) {
		t.Errorf("error = %v, want DataError for nil payload", err)
	}
}

func TestDecodeFrame(t *testing.T) {
	frame := []byte(`{"channel":"orderbook","data":{"tokenId":"tok-1","bids":[{"price":0.49,"amount":80}],"asks":[]}}`)

	book, err := decodeFrame(frame)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if book == nil || book.TokenID != "tok-1" {
		t.Errorf("book = %+v", book)
	}
}

func TestDecodeFrameControl(t *testing.T) {
	cases := []struct {
		name  string
		frame string
	}{
		{"pong", `{"channel":"pong"}`},
		{"orderbook without data", `{"channel":"orderbook"}`},
		{"unknown channel", `{"channel":"trades","data":{"tokenId":"tok-1"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			book, err := decodeFrame([]byte(tc.frame))
			if err != nil {
				t.Fatalf("decodeFrame: %v", err)
			}
			if book != nil {
				t.Errorf("control frame produced a book: %+v", book)
			}
		})
	}
}

func TestDecodeFrameMalformed(t *testing.T) {
	if _, err := decodeFrame([]byte(`{bad`)); !types.IsData(err) {
		t.Errorf("error = %v, want DataError", err)
	}
}
