package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/database/events"
	"github.com/choplife/choplifeib/internal/database/places"
	"github.com/choplife/choplifeib/internal/entities"
)

// PlaceStore defines the place reads the public pages use.
type PlaceStore interface {
	List(filter places.Filter) ([]entities.Place, int64, error)
	GetByID(id uint) (*entities.Place, error)
	GetBySlug(slug string) (*entities.Place, error)
	Categories() ([]places.CategoryCount, error)
	Areas() ([]string, error)
}

// EventLister lists events, used for "coming up here" on place pages.
type EventLister interface {
	List(filter events.Filter) ([]entities.Event, int64, error)
}

type placeQuery struct {
	Category string `form:"category" binding:"omitempty,place_category"`
	Query    string `form:"q" binding:"max=100"`
	Area     string `form:"area" binding:"max=128"`
	Sort     string `form:"sort" binding:"omitempty,oneof=newest rating name popular"`
	Featured bool   `form:"featured"`
}

func (q placeQuery) filter(p Pagination) places.Filter {
	return places.Filter{
		Category:     entities.PlaceCategory(q.Category),
		Query:        q.Query,
		Area:         q.Area,
		FeaturedOnly: q.Featured,
		Sort:         places.ParseSort(q.Sort),
		Limit:        p.PerPage,
		Offset:       p.Offset(),
	}
}

type PlacesController struct {
	places     PlaceStore
	events     EventLister
	reviews    ReviewReader
	favourites FavouriteReader
	renderer   *Renderer
	pageSize   int
}

func NewPlacesController(places PlaceStore, events EventLister, reviews ReviewReader, favourites FavouriteReader, renderer *Renderer, pageSize int) *PlacesController {
	return &PlacesController{
		places:     places,
		events:     events,
		reviews:    reviews,
		favourites: favourites,
		renderer:   renderer,
		pageSize:   pageSize,
	}
}

// PlacesPage renders the browsable place list.
// GET /places
func (pc *PlacesController) PlacesPage(c *gin.Context) {
	var q placeQuery
	bindErr := c.ShouldBindQuery(&q)
	if bindErr != nil {
		// unknown filters fall back to the unfiltered list
		q = placeQuery{Query: q.Query}
	}

	page := parsePagination(c, pc.pageSize)
	list, total, err := pc.places.List(q.filter(page))
	if err != nil {
		pc.renderer.Failure(c, err, "list places")
		return
	}
	page.SetTotal(total)

	categories, err := pc.places.Categories()
	if err != nil {
		pc.renderer.Failure(c, err, "place categories")
		return
	}
	areas, err := pc.places.Areas()
	if err != nil {
		pc.renderer.Failure(c, err, "place areas")
		return
	}

	ids := make([]uint, len(list))
	markers := make([]*MapMarker, 0, len(list))
	for i := range list {
		ids[i] = list[i].ID
		if m := placeMarker(&list[i]); m != nil {
			markers = append(markers, m)
		}
	}

	data := gin.H{
		"Title":        "Places in Ibadan",
		"Places":       list,
		"Categories":   categories,
		"Areas":        areas,
		"Filter":       q,
		"Pagination":   page,
		"Favourites":   favouriteSet(c, pc.favourites, entities.ListingTypePlace, ids),
		"Markers":      markers,
		"EmptyMessage": "No places match your filters",
	}
	if bindErr != nil {
		data["Error"] = firstValidationMessage(bindErr)
	}
	pc.renderer.HTML(c, http.StatusOK, "places.html", data)
}

// PlacePage renders one place with its gallery, reviews and map pin.
// GET /places/:slug
func (pc *PlacesController) PlacePage(c *gin.Context) {
	place, err := pc.places.GetBySlug(c.Param("slug"))
	if errors.Is(err, places.ErrNotFound) || (err == nil && !place.IsPublished && !canSeeUnpublished(c)) {
		pc.renderer.NotFound(c, "We couldn't find that place.")
		return
	}
	if err != nil {
		pc.renderer.Failure(c, err, "load place")
		return
	}

	extras, err := loadListingExtras(c, pc.reviews, pc.favourites, place.Ref())
	if err != nil {
		pc.renderer.Failure(c, err, "load place reviews")
		return
	}

	var upcoming []entities.Event
	if pc.events != nil {
		upcoming, _, err = pc.events.List(events.Filter{PlaceID: place.ID, When: events.WhenUpcoming, Limit: 4})
		if err != nil {
			pc.renderer.Failure(c, err, "load place events")
			return
		}
	}

	pc.renderer.HTML(c, http.StatusOK, "place.html", gin.H{
		"Title":    place.Name,
		"Place":    place,
		"Listing":  place.Ref(),
		"Extras":   extras,
		"Marker":   placeMarker(place),
		"Upcoming": upcoming,
	})
}

// ListPlaces returns one page of published places.
// GET /api/places
func (pc *PlacesController) ListPlaces(c *gin.Context) {
	var q placeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondValidationError(c, err)
		return
	}

	page := parsePagination(c, pc.pageSize)
	list, total, err := pc.places.List(q.filter(page))
	if err != nil {
		respondInternalError(c, err, "list places")
		return
	}
	page.SetTotal(total)
	respondPage(c, list, page)
}

// GetPlace returns a single place.
// GET /api/places/:id
func (pc *PlacesController) GetPlace(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	place, err := pc.places.GetByID(id)
	if errors.Is(err, places.ErrNotFound) || (err == nil && !place.IsPublished && !canSeeUnpublished(c)) {
		respondNotFound(c, "place")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get place")
		return
	}

	// the slug lookup carries the gallery
	if full, err := pc.places.GetBySlug(place.Slug); err == nil {
		place = full
	}
	c.JSON(http.StatusOK, place)
}

// Categories returns every category with its published place count.
// GET /api/places/categories
func (pc *PlacesController) Categories(c *gin.Context) {
	categories, err := pc.places.Categories()
	if err != nil {
		respondInternalError(c, err, "place categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// Markers returns map pins for every published place matching the filter.
// GET /api/places/map
func (pc *PlacesController) Markers(c *gin.Context) {
	var q placeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondValidationError(c, err)
		return
	}

	f := q.filter(Pagination{Page: 1})
	f.Limit = 500
	list, _, err := pc.places.List(f)
	if err != nil {
		respondInternalError(c, err, "place markers")
		return
	}

	markers := make([]*MapMarker, 0, len(list))
	for i := range list {
		if m := placeMarker(&list[i]); m != nil {
			markers = append(markers, m)
		}
	}
	c.JSON(http.StatusOK, gin.H{"markers": markers})
}
