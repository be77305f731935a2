package entities

import "fmt"

// ListingType distinguishes the two browsable record kinds that reviews,
// favourites and gallery images attach to.
type ListingType string

const (
	ListingTypePlace ListingType = "place"
	ListingTypeEvent ListingType = "event"
)

// ParseListingType accepts both singular and plural forms ("place", "places").
func ParseListingType(s string) (ListingType, error) {
	switch s {
	case "place", "places":
		return ListingTypePlace, nil
	case "event", "events":
		return ListingTypeEvent, nil
	}
	return "", fmt.Errorf("unknown listing type %q", s)
}

// Plural is used when building URLs ("/places/...").
func (t ListingType) Plural() string {
	return string(t) + "s"
}

// ListingRef identifies a single place or event.
type ListingRef struct {
	Type ListingType `json:"type"`
	ID   uint        `json:"id"`
}

func (r ListingRef) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// Aggregates are the denormalised counters kept on places and events.
// They are recomputed by separate queries, never transactionally.
type Aggregates struct {
	RatingAverage  float64 `gorm:"default:0" json:"rating_average"`
	ReviewCount    int     `gorm:"default:0" json:"review_count"`
	FavouriteCount int     `gorm:"default:0" json:"favourite_count"`
}
