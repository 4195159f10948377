package predict

import (
	"math"
	"testing"

	"github.com/mselser95/predict-agent/pkg/types"
)

func TestDecodeFrameBook(t *testing.T) {
	frame := []byte(`{
		"type": "M",
		"topic": "predictOrderbook/tok-1",
		"data": {
			"orderbook": {
				"bids": [{"price": "0.48", "quantity": "50"}, {"price": "0.49", "quantity": "80"}],
				"asks": [{"price": "0.51", "quantity": "20"}],
				"best_bid": "0.49",
				"best_ask": "0.51",
				"ts": 1700000000000
			}
		}
	}`)

	book, heartbeat, err := decodeFrame(frame)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if heartbeat {
		t.Fatal("book frame reported as heartbeat")
	}
	if book == nil {
		t.Fatal("expected a decoded book")
	}

	if book.TokenID != "tok-1" {
		t.Errorf("token id = %q, want tok-1", book.TokenID)
	}
	if book.Venue != types.VenuePredict {
		t.Errorf("venue = %q, want predict", book.Venue)
	}

	// Bids must come out descending regardless of wire order.
	if len(book.Bids) != 2 || book.Bids[0].Price != 0.49 {
		t.Errorf("bids = %v, want descending starting at 0.49", book.Bids)
	}
	if len(book.Asks) != 1 || book.Asks[0].Price != 0.51 {
		t.Errorf("asks = %v, want single level at 0.51", book.Asks)
	}
	if book.UpdatedAt.UnixMilli() != 1700000000000 {
		t.Errorf("updatedAt = %v, want wire timestamp", book.UpdatedAt)
	}
}

func TestDecodeFrameHeartbeat(t *testing.T) {
	book, heartbeat, err := decodeFrame([]byte(`{"type":"M","topic":"heartbeat"}`))
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if !heartbeat {
		t.Error("heartbeat frame not detected")
	}
	if book != nil {
		t.Error("heartbeat frame produced a book")
	}
}

func TestDecodeFrameControlAndUnknown(t *testing.T) {
	cases := []struct {
		name  string
		frame string
	}{
		{"subscription ack", `{"type":"R","requestId":1}`},
		{"unknown type", `{"type":"X","topic":"predictOrderbook/tok-1"}`},
		{"data without book", `{"type":"M","topic":"predictOrderbook/tok-1","data":{}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			book, heartbeat, err := decodeFrame([]byte(tc.frame))
			if err != nil {
				t.Fatalf("decodeFrame: %v", err)
			}
			if book != nil || heartbeat {
				t.Errorf("control frame produced book=%v heartbeat=%v", book, heartbeat)
			}
		})
	}
}

func TestDecodeFrameMalformed(t *testing.T) {
	_, _, err := decodeFrame([]byte(`{not json`))
	if err == nil {
		t.Fatal("expected a data error for malformed frame")
	}
	if !types.IsData(err) {
		t.Errorf("error = %v, want DataError", err)
	}
}

func TestDecodeFrameBadPrice(t *testing.T) {
	frame := []byte(`{
		"type": "M",
		"topic": "predictOrderbook/tok-1",
		"data": {"orderbook": {"bids": [{"price": "abc", "quantity": "5"}], "asks": []}}
	}`)

	_, _, err := decodeFrame(frame)
	if !types.IsData(err) {
		t.Errorf("error = %v, want DataError", err)
	}
}

func TestDecodeMarketsShapes(t *testing.T) {
	enveloped := []byte(`{"data":[{"tokenId":"tok-1","question":"Will it rain?","active":true}]}`)
	records, err := decodeMarkets(enveloped)
	if err != nil {
		t.Fatalf("decodeMarkets enveloped: %v", err)
	}
	if len(records) != 1 || records[0].TokenID != "tok-1" {
		t.Errorf("enveloped records = %v", records)
	}

	bare := []byte(`[{"tokenId":"tok-2","question":"q","active":true}]`)
	records, err = decodeMarkets(bare)
	if err != nil {
		t.Fatalf("decodeMarkets bare: %v", err)
	}
	if len(records) != 1 || records[0].TokenID != "tok-2" {
		t.Errorf("bare records = %v", records)
	}
}

func TestMarketRecordActivation(t *testing.T) {
	body := []byte(`{"data":[{
		"tokenId": "tok-1",
		"conditionId": "cond-1",
		"question": "Will it rain?",
		"outcome": "YES",
		"feeRateBps": 100,
		"active": true,
		"activation": {"active": true, "minShares": 50, "maxSpreadCents": 3}
	}]}`)

	records, err := decodeMarkets(body)
	if err != nil {
		t.Fatalf("decodeMarkets: %v", err)
	}

	m := records[0].toMarket()
	if m.Activation == nil {
		t.Fatal("activation not decoded")
	}
	if !m.Activation.Active || m.Activation.MinShares != 50 {
		t.Errorf("activation = %+v", m.Activation)
	}
	if math.Abs(m.FeeRateBps-100) > 1e-9 {
		t.Errorf("feeRateBps = %v, want 100", m.FeeRateBps)
	}
	if !m.IsYes() {
		t.Error("outcome YES not recognized")
	}
}

func TestTopicSuffix(t *testing.T) {
	if got := topicSuffix("predictOrderbook/tok-1"); got != "tok-1" {
		t.Errorf("topicSuffix = %q, want tok-1", got)
	}
	if got := topicSuffix("heartbeat"); got != "" {
		t.Errorf("topicSuffix without slash = %q, want empty", got)
	}
}
