// Package mapping resolves Predict markets to their peer-venue token pairs.
// Operator-curated entries come from the cross-platform mapping file; markets
// the file does not cover fall back to normalized-question similarity.
package mapping

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
)

// Match is one resolved peer-venue pairing for a Predict market.
type Match struct {
	Venue      types.Venue
	YesTokenID string
	NoTokenID  string
	Source     string  // "mapping" or "similarity"
	Similarity float64 // 1.0 for file entries
}

// mappingFile is the on-disk shape.
type mappingFile struct {
	Entries []types.MappingEntry `json:"entries"`
}

// Store holds the mapping entries and their lookup indices.
type Store struct {
	path          string
	minSimilarity float64
	logger        *zap.Logger

	mu         sync.RWMutex
	entries    []types.MappingEntry
	byID       map[string]int // predictMarketId -> entries index
	byQuestion map[string]int // normalized question -> entries index
}

// Config holds mapping store configuration.
type Config struct {
	Path          string
	MinSimilarity float64
	Logger        *zap.Logger
}

// NewStore creates a mapping store. Call Load to read the file.
func NewStore(cfg Config) *Store {
	return &Store{
		path:          cfg.Path,
		minSimilarity: cfg.MinSimilarity,
		logger:        cfg.Logger,
		byID:          make(map[string]int),
		byQuestion:    make(map[string]int),
	}
}

// Load reads the mapping file and rebuilds the indices. A missing file is an
// empty mapping, not an error.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.replaceLocked(nil)
		s.mu.Unlock()
		s.logger.Info("mapping-file-absent", zap.String("path", s.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read mapping file: %w", err)
	}

	var file mappingFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse mapping file %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.replaceLocked(file.Entries)
	count := len(s.entries)
	s.mu.Unlock()

	s.logger.Info("mapping-loaded",
		zap.String("path", s.path),
		zap.Int("entries", count))
	return nil
}

func (s *Store) replaceLocked(entries []types.MappingEntry) {
	s.entries = entries
	s.byID = make(map[string]int, len(entries))
	s.byQuestion = make(map[string]int, len(entries))
	for i := range entries {
		if id := entries[i].PredictMarketID; id != "" {
			s.byID[id] = i
		}
		if q := types.NormalizeQuestion(entries[i].PredictQuestion); q != "" {
			s.byQuestion[q] = i
		}
	}
}

// Entries returns a copy of the current entries.
func (s *Store) Entries() []types.MappingEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.MappingEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len reports the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Lookup finds the file entry for a Predict market, by market id first and
// normalized question second.
func (s *Store) Lookup(m *types.Market) (types.MappingEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m.MarketID != "" {
		if i, ok := s.byID[m.MarketID]; ok {
			return s.entries[i], true
		}
	}
	if q := types.NormalizeQuestion(m.Question); q != "" {
		if i, ok := s.byQuestion[q]; ok {
			return s.entries[i], true
		}
	}
	return types.MappingEntry{}, false
}

// Upsert adds or replaces the entry for its Predict market id and reindexes.
// Call Save to persist.
func (s *Store) Upsert(entry types.MappingEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.byID[entry.PredictMarketID]; ok && entry.PredictMarketID != "" {
		s.entries[i] = entry
	} else {
		s.entries = append(s.entries, entry)
	}
	s.replaceLocked(s.entries)
}

// Save writes the entries back atomically: temp file in the same directory,
// then rename over the target.
func (s *Store) Save() error {
	s.mu.RLock()
	file := mappingFile{Entries: append([]types.MappingEntry(nil), s.entries...)}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode mapping file: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".mapping-*.json")
	if err != nil {
		return fmt.Errorf("create temp mapping file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp mapping file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp mapping file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace mapping file: %w", err)
	}

	s.logger.Debug("mapping-saved",
		zap.String("path", s.path),
		zap.Int("entries", len(file.Entries)))
	return nil
}

// Similarity is the token-set Jaccard index of two normalized questions.
func Similarity(a, b string) float64 {
	as := types.QuestionTokens(a)
	bs := types.QuestionTokens(b)
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}

	inter := 0
	for w := range as {
		if _, ok := bs[w]; ok {
			inter++
		}
	}
	union := len(as) + len(bs) - inter
	return float64(inter) / float64(union)
}

// Resolve returns the peer-venue pairings for a Predict market: the file
// entry's venues first, then a similarity match per venue the file does not
// cover. Results depend only on the market's keys, the peer list, and the
// loaded entries, so repeated calls with the same inputs agree.
func (s *Store) Resolve(m *types.Market, peers []types.Market) []Match {
	var matches []Match
	covered := map[types.Venue]bool{}

	if entry, ok := s.Lookup(m); ok {
		for _, venue := range []types.Venue{types.VenuePolymarket, types.VenueOpinion} {
			if !entry.HasVenue(venue) {
				continue
			}
			yes, no := entry.VenueTokens(venue)
			matches = append(matches, Match{
				Venue:      venue,
				YesTokenID: yes,
				NoTokenID:  no,
				Source:     "mapping",
				Similarity: 1,
			})
			covered[venue] = true
		}
	}

	for _, venue := range []types.Venue{types.VenuePolymarket, types.VenueOpinion} {
		if covered[venue] {
			continue
		}
		if match, ok := s.bestSimilarityMatch(m, peers, venue); ok {
			matches = append(matches, match)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}

// pairKey groups one venue's outcome tokens for a shared market.
type pairKey struct {
	venue types.Venue
	group string
}

// bestSimilarityMatch scans the peer list for the venue's YES/NO pair whose
// question is most similar to m's, at or above the threshold.
func (s *Store) bestSimilarityMatch(m *types.Market, peers []types.Market, venue types.Venue) (Match, bool) {
	type pair struct {
		yes, no  string
		question string
	}
	pairs := map[pairKey]*pair{}

	for i := range peers {
		p := &peers[i]
		if p.Venue != venue || p.TokenID == "" {
			continue
		}
		key := pairKey{venue, p.GroupKey()}
		entry := pairs[key]
		if entry == nil {
			entry = &pair{question: p.Question}
			pairs[key] = entry
		}
		switch {
		case p.IsYes():
			entry.yes = p.TokenID
		case p.IsNo():
			entry.no = p.TokenID
		}
	}

	best := Match{Venue: venue, Source: "similarity"}
	found := false
	for _, entry := range pairs {
		if entry.yes == "" || entry.no == "" {
			continue
		}
		sim := Similarity(m.Question, entry.question)
		if sim < s.minSimilarity {
			continue
		}
		if !found || sim > best.Similarity {
			best.YesTokenID = entry.yes
			best.NoTokenID = entry.no
			best.Similarity = sim
			found = true
		}
	}

	return best, found
}
