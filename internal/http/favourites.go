package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/database/favourites"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
)

// FavouritesStore defines database operations for favourites management.
type FavouritesStore interface {
	FavouriteReader
	Add(userID uint, ref entities.ListingRef) error
	Remove(userID uint, ref entities.ListingRef) error
	Toggle(userID uint, ref entities.ListingRef) (bool, error)
	ListPlaces(userID uint, limit, offset int) ([]entities.Place, int64, error)
	ListEvents(userID uint, limit, offset int) ([]entities.Event, int64, error)
	Count(userID uint) (int64, error)
}

// FavouriteState is the toggle response. On failure IsFavourite carries the
// state the page should revert to and Error explains why.
type FavouriteState struct {
	Listing     entities.ListingRef `json:"listing"`
	IsFavourite bool                `json:"is_favourite"`
	Reverted    bool                `json:"reverted,omitempty"`
	Error       string              `json:"error,omitempty"`
	Code        string              `json:"code,omitempty"`
}

type FavouritesController struct {
	store      FavouritesStore
	aggregates AggregateRefresher
	renderer   *Renderer
	pageSize   int
}

func NewFavouritesController(store FavouritesStore, aggregates AggregateRefresher, renderer *Renderer, pageSize int) *FavouritesController {
	return &FavouritesController{store: store, aggregates: aggregates, renderer: renderer, pageSize: pageSize}
}

func parseListingParams(c *gin.Context) (entities.ListingRef, bool) {
	listingType, err := entities.ParseListingType(c.Param("listingType"))
	if err != nil {
		respondBadRequest(c, "listing type must be place or event")
		return entities.ListingRef{}, false
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return entities.ListingRef{}, false
	}
	return entities.ListingRef{Type: listingType, ID: id}, true
}

// AddFavourite marks a listing as favourite.
// POST /api/favourites/:listingType/:id
func (fc *FavouritesController) AddFavourite(c *gin.Context) {
	ref, ok := parseListingParams(c)
	if !ok {
		return
	}
	fc.set(c, ref, true)
}

// RemoveFavourite unmarks a listing.
// DELETE /api/favourites/:listingType/:id
func (fc *FavouritesController) RemoveFavourite(c *gin.Context) {
	ref, ok := parseListingParams(c)
	if !ok {
		return
	}
	fc.set(c, ref, false)
}

func (fc *FavouritesController) set(c *gin.Context, ref entities.ListingRef, on bool) {
	userID := auth.GetUserID(c)
	var err error
	if on {
		err = fc.store.Add(userID, ref)
	} else {
		err = fc.store.Remove(userID, ref)
	}
	if err != nil {
		fc.respondFailure(c, ref, !on, err)
		return
	}
	fc.refresh(c, ref)
	c.JSON(http.StatusOK, FavouriteState{Listing: ref, IsFavourite: on})
}

// ToggleFavourite flips the favourite state. When the store call fails the
// response reports the previous state so the page can revert its button.
// POST /api/favourites/:listingType/:id/toggle
func (fc *FavouritesController) ToggleFavourite(c *gin.Context) {
	ref, ok := parseListingParams(c)
	if !ok {
		return
	}
	userID := auth.GetUserID(c)

	previous, err := fc.store.IsFavourite(userID, ref)
	if err != nil {
		// fall back to what the page was showing
		previous, _ = strconv.ParseBool(c.Query("current"))
		fc.respondFailure(c, ref, previous, err)
		return
	}

	current, err := fc.store.Toggle(userID, ref)
	if err != nil {
		fc.respondFailure(c, ref, previous, err)
		return
	}
	fc.refresh(c, ref)

	if isFormPost(c) {
		c.Redirect(http.StatusSeeOther, backURL(c, "/"+ref.Type.Plural()))
		return
	}
	c.JSON(http.StatusOK, FavouriteState{Listing: ref, IsFavourite: current})
}

func (fc *FavouritesController) respondFailure(c *gin.Context, ref entities.ListingRef, previous bool, err error) {
	status := http.StatusInternalServerError
	state := FavouriteState{
		Listing:     ref,
		IsFavourite: previous,
		Reverted:    true,
		Error:       "Couldn't update your favourites. Please try again.",
		Code:        "internal",
	}
	if errors.Is(err, favourites.ErrListingNotFound) {
		status = http.StatusNotFound
		state.Error = "Listing not found"
		state.Code = "not_found"
	} else {
		_ = c.Error(err)
		logging.Component("http").Error().Err(err).Str("listing", ref.String()).Msg("favourite update failed")
	}

	if isFormPost(c) {
		redirectWithError(c, backURL(c, "/"+ref.Type.Plural()), state.Error)
		return
	}
	c.JSON(status, state)
}

func (fc *FavouritesController) refresh(c *gin.Context, ref entities.ListingRef) {
	if fc.aggregates == nil {
		return
	}
	if err := fc.aggregates.Refresh(c.Request.Context(), ref); err != nil {
		logging.Component("http").Warn().Err(err).Str("listing", ref.String()).Msg("failed to refresh aggregates")
	}
}

// ListFavourites returns the caller's favourite places or events.
// GET /api/favourites?type=place|event
func (fc *FavouritesController) ListFavourites(c *gin.Context) {
	listingType := entities.ListingTypePlace
	if t := c.Query("type"); t != "" {
		parsed, err := entities.ParseListingType(t)
		if err != nil {
			respondBadRequest(c, "type must be place or event")
			return
		}
		listingType = parsed
	}

	userID := auth.GetUserID(c)
	page := parsePagination(c, fc.pageSize)

	var data any
	var total int64
	var err error
	if listingType == entities.ListingTypeEvent {
		data, total, err = fc.store.ListEvents(userID, page.PerPage, page.Offset())
	} else {
		data, total, err = fc.store.ListPlaces(userID, page.PerPage, page.Offset())
	}
	if err != nil {
		respondInternalError(c, err, "list favourites")
		return
	}
	page.SetTotal(total)
	respondPage(c, data, page)
}

// GetFavouriteCount returns how many listings the caller has favourited.
// GET /api/favourites/count
func (fc *FavouritesController) GetFavouriteCount(c *gin.Context) {
	count, err := fc.store.Count(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "get favourite count")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// FavouritesPage renders the caller's saved places and events.
// GET /favourites
func (fc *FavouritesController) FavouritesPage(c *gin.Context) {
	userID := auth.GetUserID(c)

	placeList, placeTotal, err := fc.store.ListPlaces(userID, maxPerPage, 0)
	if err != nil {
		fc.renderer.Failure(c, err, "favourite places")
		return
	}
	eventList, eventTotal, err := fc.store.ListEvents(userID, maxPerPage, 0)
	if err != nil {
		fc.renderer.Failure(c, err, "favourite events")
		return
	}

	fc.renderer.HTML(c, http.StatusOK, "favourites.html", gin.H{
		"Title":      "Your favourites",
		"Places":     placeList,
		"PlaceTotal": placeTotal,
		"Events":     eventList,
		"EventTotal": eventTotal,
	})
}
