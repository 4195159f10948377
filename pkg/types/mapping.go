package types

// MappingEntry links one Predict market to its peer-venue YES/NO tokens.
// Entries are loaded from the cross-platform mapping file; any field may be
// empty when the operator has not mapped that venue.
type MappingEntry struct {
	PredictMarketID    string `json:"predictMarketId,omitempty"`
	PredictQuestion    string `json:"predictQuestion,omitempty"`
	PolymarketYesToken string `json:"polymarketYesToken,omitempty"`
	PolymarketNoToken  string `json:"polymarketNoToken,omitempty"`
	OpinionYesToken    string `json:"opinionYesToken,omitempty"`
	OpinionNoToken     string `json:"opinionNoToken,omitempty"`
}

// HasVenue reports whether the entry maps the given peer venue.
func (e *MappingEntry) HasVenue(v Venue) bool {
	switch v {
	case VenuePolymarket:
		return e.PolymarketYesToken != "" && e.PolymarketNoToken != ""
	case VenueOpinion:
		return e.OpinionYesToken != "" && e.OpinionNoToken != ""
	default:
		return false
	}
}

// VenueTokens returns the (yes, no) token pair for a peer venue.
func (e *MappingEntry) VenueTokens(v Venue) (yes, no string) {
	switch v {
	case VenuePolymarket:
		return e.PolymarketYesToken, e.PolymarketNoToken
	case VenueOpinion:
		return e.OpinionYesToken, e.OpinionNoToken
	default:
		return "", ""
	}
}
