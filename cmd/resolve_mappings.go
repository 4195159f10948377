package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mselser95/predict-agent/internal/mapping"
	"github.com/mselser95/predict-agent/internal/venues/opinion"
	"github.com/mselser95/predict-agent/internal/venues/polymarket"
	"github.com/mselser95/predict-agent/internal/venues/predict"
	"github.com/mselser95/predict-agent/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var resolveMappingsCmd = &cobra.Command{
	Use:   "resolve-mappings",
	Short: "Match Predict markets to peer-venue markets by question similarity",
	Long: `Fetches market lists from Predict, Polymarket, and Opinion and proposes
cross-venue pairings by question similarity. Existing entries in the mapping
file always win over similarity matches.

By default only prints the proposals. Use --write to merge them into the
mapping file used by the cross-venue detector.

Examples:
  # Preview proposed pairings
  predict-agent resolve-mappings

  # Persist them to the mapping file
  predict-agent resolve-mappings --write`,
	Args: cobra.NoArgs,
	RunE: runResolveMappings,
}

//nolint:gochecknoglobals // Cobra boilerplate
var writeMappings bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(resolveMappingsCmd)
	resolveMappingsCmd.Flags().BoolVar(&writeMappings, "write", false, "Merge proposals into the mapping file")
}

func runResolveMappings(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	predictClient := predict.NewClient(predict.Config{
		BaseURL:  cfg.APIBaseURL,
		APIKey:   cfg.APIKey,
		JWTToken: cfg.JWTToken,
		Timeout:  cfg.HTTPTimeoutMs,
		Logger:   logger,
	})
	polyClient := polymarket.NewClient(polymarket.Config{
		GammaURL: cfg.PolymarketGammaURL,
		ClobURL:  cfg.PolymarketClobURL,
		Timeout:  cfg.HTTPTimeoutMs,
		Logger:   logger,
	})
	opinionClient := opinion.NewClient(opinion.Config{
		BaseURL: cfg.OpinionOpenAPIURL,
		APIKey:  cfg.OpinionAPIKey,
		Timeout: cfg.HTTPTimeoutMs,
		Logger:  logger,
	})

	store := mapping.NewStore(mapping.Config{
		Path:          cfg.MappingFile,
		MinSimilarity: cfg.CrossPlatformMinSimilarity,
		Logger:        logger,
	})
	if err := store.Load(); err != nil {
		return fmt.Errorf("load mapping file: %w", err)
	}

	fmt.Println("Fetching market lists...")

	predictMarkets, err := predictClient.Markets(ctx, cfg.ArbMaxMarkets)
	if err != nil {
		return fmt.Errorf("fetch predict markets: %w", err)
	}

	var peers []types.Market
	polyMarkets, err := polyClient.Markets(ctx, cfg.PolymarketMaxMarkets)
	if err != nil {
		fmt.Printf("Warning: polymarket markets unavailable: %v\n", err)
	} else {
		peers = append(peers, polyMarkets...)
	}
	opinionMarkets, err := opinionClient.Markets(ctx, cfg.OpinionMaxMarkets)
	if err != nil {
		fmt.Printf("Warning: opinion markets unavailable: %v\n", err)
	} else {
		peers = append(peers, opinionMarkets...)
	}

	if len(peers) == 0 {
		return fmt.Errorf("no peer markets available")
	}

	proposals, entries := proposeMappings(store, predictMarkets, peers)
	if len(proposals) == 0 {
		fmt.Println("No new pairings found above the similarity threshold.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PREDICT MARKET\tVENUE\tSIMILARITY\tYES TOKEN\tNO TOKEN\n")
	fmt.Fprintf(w, "--------------\t-----\t----------\t---------\t--------\n")
	for _, p := range proposals {
		question := p.question
		if len(question) > 50 {
			question = question[:47] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n",
			question, p.venue, p.similarity,
			shortID(p.yesToken), shortID(p.noToken))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d proposed pairings\n", len(proposals))

	if !writeMappings {
		fmt.Println("\nDry run; re-run with --write to persist.")
		return nil
	}

	for _, entry := range entries {
		store.Upsert(entry)
	}
	if err := store.Save(); err != nil {
		return fmt.Errorf("save mapping file: %w", err)
	}

	fmt.Printf("Wrote %d entries to %s\n", store.Len(), cfg.MappingFile)
	return nil
}

// proposal is one similarity match not yet present in the mapping file.
type proposal struct {
	question   string
	venue      types.Venue
	similarity float64
	yesToken   string
	noToken    string
}

// proposeMappings resolves every Predict YES token against the peer list and
// keeps the similarity matches. File-backed matches are already covered and
// are skipped. Matches for the same market merge into a single entry since
// Upsert replaces whole entries.
func proposeMappings(store *mapping.Store, predictMarkets, peers []types.Market) ([]proposal, []types.MappingEntry) {
	var proposals []proposal
	var entries []types.MappingEntry

	for i := range predictMarkets {
		m := &predictMarkets[i]
		if !m.IsYes() {
			continue
		}

		// Start from the file entry so a new venue match never clobbers
		// tokens the operator already mapped.
		entry, _ := store.Lookup(m)
		entry.PredictMarketID = m.MarketID
		entry.PredictQuestion = m.Question
		matched := false

		for _, match := range store.Resolve(m, peers) {
			if match.Source != "similarity" {
				continue
			}

			switch match.Venue {
			case types.VenuePolymarket:
				entry.PolymarketYesToken = match.YesTokenID
				entry.PolymarketNoToken = match.NoTokenID
			case types.VenueOpinion:
				entry.OpinionYesToken = match.YesTokenID
				entry.OpinionNoToken = match.NoTokenID
			default:
				continue
			}
			matched = true

			proposals = append(proposals, proposal{
				question:   m.Question,
				venue:      match.Venue,
				similarity: match.Similarity,
				yesToken:   match.YesTokenID,
				noToken:    match.NoTokenID,
			})
		}

		if matched {
			entries = append(entries, entry)
		}
	}

	return proposals, entries
}
