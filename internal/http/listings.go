package http

import (
	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
)

// ReviewReader is what listing pages need to show reviews.
type ReviewReader interface {
	ListForListing(ref entities.ListingRef, limit, offset int) ([]entities.Review, int64, error)
	RatingSummary(ref entities.ListingRef) (*entities.RatingSummary, error)
	GetForUser(userID uint, ref entities.ListingRef) (*entities.Review, error)
}

// FavouriteReader marks listings the viewer has favourited.
type FavouriteReader interface {
	IsFavourite(userID uint, ref entities.ListingRef) (bool, error)
	FavouriteSet(userID uint, listingType entities.ListingType, ids []uint) (map[uint]bool, error)
}

const detailReviewLimit = 10

// MapMarker is one pin the browser map draws.
type MapMarker struct {
	ID        uint    `json:"id"`
	Type      string  `json:"type"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	URL       string  `json:"url"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

func placeMarker(p *entities.Place) *MapMarker {
	if !p.HasCoordinates() {
		return nil
	}
	return &MapMarker{
		ID:        p.ID,
		Type:      string(entities.ListingTypePlace),
		Name:      p.Name,
		Category:  string(p.Category),
		URL:       "/places/" + p.Slug,
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
	}
}

func eventMarker(e *entities.Event) *MapMarker {
	if !e.HasCoordinates() {
		return nil
	}
	return &MapMarker{
		ID:        e.ID,
		Type:      string(entities.ListingTypeEvent),
		Name:      e.Title,
		Category:  string(e.Category),
		URL:       "/events/" + e.Slug,
		Latitude:  *e.Latitude,
		Longitude: *e.Longitude,
	}
}

// favouriteSet loads the viewer's favourites among ids. Anonymous viewers
// and lookup failures yield an empty set.
func favouriteSet(c *gin.Context, store FavouriteReader, listingType entities.ListingType, ids []uint) map[uint]bool {
	userID := auth.GetUserID(c)
	if store == nil || userID == 0 {
		return map[uint]bool{}
	}
	set, err := store.FavouriteSet(userID, listingType, ids)
	if err != nil {
		logging.Component("http").Warn().Err(err).Msg("failed to load favourite set")
		return map[uint]bool{}
	}
	return set
}

// listingExtras holds the review and favourite state of a detail page.
type listingExtras struct {
	Reviews     []entities.Review
	ReviewTotal int64
	Summary     *entities.RatingSummary
	MyReview    *entities.Review
	IsFavourite bool
}

func loadListingExtras(c *gin.Context, reviews ReviewReader, favs FavouriteReader, ref entities.ListingRef) (listingExtras, error) {
	var extras listingExtras
	var err error

	extras.Reviews, extras.ReviewTotal, err = reviews.ListForListing(ref, detailReviewLimit, 0)
	if err != nil {
		return extras, err
	}
	extras.Summary, err = reviews.RatingSummary(ref)
	if err != nil {
		return extras, err
	}

	if userID := auth.GetUserID(c); userID != 0 {
		// a missing review or favourite row just leaves the defaults
		if mine, err := reviews.GetForUser(userID, ref); err == nil {
			extras.MyReview = mine
		}
		if favs != nil {
			if on, err := favs.IsFavourite(userID, ref); err == nil {
				extras.IsFavourite = on
			}
		}
	}
	return extras, nil
}

// canSeeUnpublished is true for admins previewing drafts.
func canSeeUnpublished(c *gin.Context) bool {
	return auth.IsAdmin(c)
}
