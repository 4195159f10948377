package mapping

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
)

func newTestStore(t *testing.T, contents string) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cross-platform-mapping.json")
	if contents != "" {
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatalf("write mapping file: %v", err)
		}
	}

	store := NewStore(Config{
		Path:          path,
		MinSimilarity: 0.7,
		Logger:        zap.NewNop(),
	})
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return store
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store := newTestStore(t, "")
	if store.Len() != 0 {
		t.Errorf("entries = %d, want 0", store.Len())
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.json")
	if err := os.WriteFile(path, []byte(`{broken`), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(Config{Path: path, Logger: zap.NewNop()})
	if err := store.Load(); err == nil {
		t.Error("expected an error for a malformed file")
	}
}

func TestLookupByIDAndQuestion(t *testing.T) {
	store := newTestStore(t, `{"entries":[
		{"predictMarketId":"pm-1","predictQuestion":"Will BTC close above 100k?","polymarketYesToken":"py","polymarketNoToken":"pn"}
	]}`)

	byID, ok := store.Lookup(&types.Market{MarketID: "pm-1"})
	if !ok || byID.PolymarketYesToken != "py" {
		t.Errorf("lookup by id = %+v, ok=%v", byID, ok)
	}

	// Question matching is normalization-insensitive.
	byQ, ok := store.Lookup(&types.Market{Question: "will btc close above 100k"})
	if !ok || byQ.PolymarketNoToken != "pn" {
		t.Errorf("lookup by question = %+v, ok=%v", byQ, ok)
	}

	if _, ok := store.Lookup(&types.Market{MarketID: "pm-9", Question: "something else"}); ok {
		t.Error("lookup of unmapped market succeeded")
	}
}

func TestSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"Will BTC close above 100k?", "will btc close above 100k", 1},
		{"Will BTC rise?", "Will ETH rise?", 0.5},
		{"", "anything", 0},
		{"one two three four", "one two three five", 3.0 / 5.0},
	}

	for _, tc := range cases {
		if got := Similarity(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func peerPair(venue types.Venue, question, yesTok, noTok string) []types.Market {
	return []types.Market{
		{Venue: venue, TokenID: yesTok, Question: question, Outcome: types.OutcomeYes, Active: true},
		{Venue: venue, TokenID: noTok, Question: question, Outcome: types.OutcomeNo, Active: true},
	}
}

func TestResolvePrefersMappingFile(t *testing.T) {
	store := newTestStore(t, `{"entries":[
		{"predictMarketId":"pm-1","polymarketYesToken":"file-yes","polymarketNoToken":"file-no"}
	]}`)

	// A textually perfect peer exists, but the file entry must win.
	peers := peerPair(types.VenuePolymarket, "Will it rain?", "sim-yes", "sim-no")

	matches := store.Resolve(&types.Market{MarketID: "pm-1", Question: "Will it rain?"}, peers)
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].Source != "mapping" || matches[0].YesTokenID != "file-yes" {
		t.Errorf("match = %+v, want the file entry", matches[0])
	}
}

func TestResolveSimilarityFallback(t *testing.T) {
	store := newTestStore(t, "")

	peers := append(
		peerPair(types.VenuePolymarket, "Will BTC close above 100k in 2026?", "py", "pn"),
		peerPair(types.VenueOpinion, "Completely different question", "oy", "on")...,
	)

	matches := store.Resolve(&types.Market{
		MarketID: "pm-1",
		Question: "Will BTC close above 100k in 2026?",
	}, peers)

	if len(matches) != 1 {
		t.Fatalf("matches = %+v, want only the polymarket pair", matches)
	}
	m := matches[0]
	if m.Venue != types.VenuePolymarket || m.Source != "similarity" {
		t.Errorf("match = %+v", m)
	}
	if m.YesTokenID != "py" || m.NoTokenID != "pn" {
		t.Errorf("tokens = %q/%q", m.YesTokenID, m.NoTokenID)
	}
	if m.Similarity < 0.99 {
		t.Errorf("similarity = %v, want ~1", m.Similarity)
	}
}

func TestResolveIgnoresIncompletePairs(t *testing.T) {
	store := newTestStore(t, "")

	// YES token only: not a tradable pair.
	peers := []types.Market{
		{Venue: types.VenuePolymarket, TokenID: "py", Question: "Will it rain?", Outcome: types.OutcomeYes},
	}

	matches := store.Resolve(&types.Market{Question: "Will it rain?"}, peers)
	if len(matches) != 0 {
		t.Errorf("matches = %+v, want none for a half pair", matches)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	store := newTestStore(t, "")

	peers := append(
		peerPair(types.VenuePolymarket, "Will BTC close above 100k?", "a-yes", "a-no"),
		peerPair(types.VenuePolymarket, "Will BTC close above 100k soon?", "b-yes", "b-no")...,
	)
	m := &types.Market{Question: "Will BTC close above 100k?"}

	first := store.Resolve(m, peers)
	for i := 0; i < 10; i++ {
		again := store.Resolve(m, peers)
		if len(again) != len(first) || again[0] != first[0] {
			t.Fatalf("resolution unstable: %+v vs %+v", again, first)
		}
	}
	if first[0].YesTokenID != "a-yes" {
		t.Errorf("best match = %+v, want the exact-question pair", first[0])
	}
}

func TestUpsertAndSaveRoundTrip(t *testing.T) {
	store := newTestStore(t, "")

	store.Upsert(types.MappingEntry{
		PredictMarketID:    "pm-1",
		PredictQuestion:    "Will it rain?",
		PolymarketYesToken: "py",
		PolymarketNoToken:  "pn",
	})
	// Replacing the same market id must not grow the file.
	store.Upsert(types.MappingEntry{
		PredictMarketID:    "pm-1",
		PredictQuestion:    "Will it rain?",
		PolymarketYesToken: "py2",
		PolymarketNoToken:  "pn2",
	})

	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := NewStore(Config{Path: store.path, MinSimilarity: 0.7, Logger: zap.NewNop()})
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Len() != 1 {
		t.Fatalf("entries = %d, want 1", reloaded.Len())
	}

	entry, ok := reloaded.Lookup(&types.Market{MarketID: "pm-1"})
	if !ok || entry.PolymarketYesToken != "py2" {
		t.Errorf("entry = %+v, ok=%v", entry, ok)
	}
}
