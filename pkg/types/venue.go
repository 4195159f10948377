package types

// Venue identifies one of the supported trading venues.
type Venue string

const (
	VenuePredict    Venue = "predict"
	VenuePolymarket Venue = "polymarket"
	VenueOpinion    Venue = "opinion"
)

// AllVenues lists every supported venue in a stable order.
func AllVenues() []Venue {
	return []Venue{VenuePredict, VenuePolymarket, VenueOpinion}
}

// Valid reports whether v is a known venue.
func (v Venue) Valid() bool {
	switch v {
	case VenuePredict, VenuePolymarket, VenueOpinion:
		return true
	default:
		return false
	}
}

func (v Venue) String() string {
	return string(v)
}
