package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/mapping"
	"github.com/mselser95/predict-agent/pkg/types"
)

func testMappingStore(t *testing.T) *mapping.Store {
	t.Helper()

	store := mapping.NewStore(mapping.Config{
		Path:          filepath.Join(t.TempDir(), "mapping.json"),
		MinSimilarity: 0.5,
		Logger:        zap.NewNop(),
	})
	require.NoError(t, store.Load())
	return store
}

func btcQuestion() string { return "Will BTC close above 100k in 2026?" }

func btcPredictMarkets() []types.Market {
	return []types.Market{
		{
			Venue:    types.VenuePredict,
			TokenID:  "pd-yes",
			MarketID: "m-1",
			Outcome:  "YES",
			Question: btcQuestion(),
		},
		{
			Venue:    types.VenuePredict,
			TokenID:  "pd-no",
			MarketID: "m-1",
			Outcome:  "NO",
			Question: btcQuestion(),
		},
	}
}

func btcPolymarketPeers() []types.Market {
	return []types.Market{
		{
			Venue:       types.VenuePolymarket,
			TokenID:     "pm-yes",
			ConditionID: "c-1",
			Outcome:     "YES",
			Question:    btcQuestion(),
		},
		{
			Venue:       types.VenuePolymarket,
			TokenID:     "pm-no",
			ConditionID: "c-1",
			Outcome:     "NO",
			Question:    btcQuestion(),
		},
	}
}

func TestProposeMappingsMatchesBySimilarity(t *testing.T) {
	store := testMappingStore(t)

	proposals, entries := proposeMappings(store, btcPredictMarkets(), btcPolymarketPeers())

	require.Len(t, proposals, 1)
	p := proposals[0]
	assert.Equal(t, types.VenuePolymarket, p.venue)
	assert.Equal(t, "pm-yes", p.yesToken)
	assert.Equal(t, "pm-no", p.noToken)
	assert.GreaterOrEqual(t, p.similarity, 0.99, "identical questions should score ~1")

	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "m-1", entry.PredictMarketID)
	assert.Equal(t, "pm-yes", entry.PolymarketYesToken)
	assert.Equal(t, "pm-no", entry.PolymarketNoToken)
}

func TestProposeMappingsSkipsFileBackedMatches(t *testing.T) {
	store := testMappingStore(t)
	store.Upsert(types.MappingEntry{
		PredictMarketID:    "m-1",
		PredictQuestion:    btcQuestion(),
		PolymarketYesToken: "pm-yes",
		PolymarketNoToken:  "pm-no",
	})

	proposals, entries := proposeMappings(store, btcPredictMarkets(), btcPolymarketPeers())

	assert.Empty(t, proposals, "file-backed venues need no proposal")
	assert.Empty(t, entries)
}

func TestProposeMappingsIgnoresDissimilarQuestions(t *testing.T) {
	store := testMappingStore(t)

	peers := []types.Market{
		{
			Venue:       types.VenuePolymarket,
			TokenID:     "pm-yes",
			ConditionID: "c-9",
			Outcome:     "YES",
			Question:    "Who wins the 2028 presidential election?",
		},
		{
			Venue:       types.VenuePolymarket,
			TokenID:     "pm-no",
			ConditionID: "c-9",
			Outcome:     "NO",
			Question:    "Who wins the 2028 presidential election?",
		},
	}

	proposals, _ := proposeMappings(store, btcPredictMarkets(), peers)

	assert.Empty(t, proposals, "matches below the similarity threshold must be dropped")
}

func TestProposeMappingsKeepsExistingVenueTokens(t *testing.T) {
	store := testMappingStore(t)
	store.Upsert(types.MappingEntry{
		PredictMarketID: "m-1",
		PredictQuestion: btcQuestion(),
		OpinionYesToken: "op-yes",
		OpinionNoToken:  "op-no",
	})

	_, entries := proposeMappings(store, btcPredictMarkets(), btcPolymarketPeers())

	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "op-yes", entry.OpinionYesToken, "operator-mapped tokens must survive the merge")
	assert.Equal(t, "pm-yes", entry.PolymarketYesToken)
}
