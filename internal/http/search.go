package http

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/cache"
	"github.com/choplife/choplifeib/internal/database/events"
	"github.com/choplife/choplifeib/internal/database/places"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
)

const (
	// MinSearchLength is the shortest query that reaches the database.
	MinSearchLength = 2
	// DefaultSearchDebounce is how long the search box waits after typing.
	DefaultSearchDebounce = 300 * time.Millisecond

	searchResultLimit = 6
	maxSearchLength   = 100
)

// SearchResult is one hit in the combined search dropdown.
type SearchResult struct {
	Type     entities.ListingType `json:"type"`
	ID       uint                 `json:"id"`
	Name     string               `json:"name"`
	Category string               `json:"category"`
	Subtitle string               `json:"subtitle,omitempty"`
	URL      string               `json:"url"`
}

type SearchResponse struct {
	Query  string         `json:"query"`
	Places []SearchResult `json:"places"`
	Events []SearchResult `json:"events"`
	Cached bool           `json:"cached"`
}

type SearchController struct {
	places PlaceStore
	events EventLister
	cache  cache.Cache
	ttl    time.Duration
	now    func() time.Time
}

func NewSearchController(places PlaceStore, events EventLister, c cache.Cache, ttl time.Duration, now func() time.Time) *SearchController {
	if now == nil {
		now = time.Now
	}
	return &SearchController{places: places, events: events, cache: c, ttl: ttl, now: now}
}

// normalizeQuery lowercases and collapses whitespace so equivalent queries
// share a cache entry.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Search looks up places and upcoming events by name.
// GET /api/search?q=
func (sc *SearchController) Search(c *gin.Context) {
	q := normalizeQuery(c.Query("q"))
	resp := SearchResponse{Query: q, Places: []SearchResult{}, Events: []SearchResult{}}

	if utf8.RuneCountInString(q) < MinSearchLength {
		c.JSON(http.StatusOK, resp)
		return
	}
	if utf8.RuneCountInString(q) > maxSearchLength {
		respondBadRequest(c, "query is too long")
		return
	}

	key := "search:v1:" + q
	ctx := c.Request.Context()
	if sc.cache != nil {
		var cached SearchResponse
		err := cache.GetJSON(ctx, sc.cache, key, &cached)
		if err == nil {
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}
		if !errors.Is(err, cache.ErrMiss) {
			logging.Component("search").Warn().Err(err).Msg("search cache read failed")
		}
	}

	placeList, _, err := sc.places.List(places.Filter{Query: q, Sort: places.SortRating, Limit: searchResultLimit})
	if err != nil {
		respondInternalError(c, err, "search places")
		return
	}
	eventList, _, err := sc.events.List(events.Filter{Query: q, When: events.WhenUpcoming, Limit: searchResultLimit, Now: sc.now()})
	if err != nil {
		respondInternalError(c, err, "search events")
		return
	}

	for _, p := range placeList {
		resp.Places = append(resp.Places, SearchResult{
			Type:     entities.ListingTypePlace,
			ID:       p.ID,
			Name:     p.Name,
			Category: string(p.Category),
			Subtitle: p.Area,
			URL:      "/places/" + p.Slug,
		})
	}
	for _, e := range eventList {
		resp.Events = append(resp.Events, SearchResult{
			Type:     entities.ListingTypeEvent,
			ID:       e.ID,
			Name:     e.Title,
			Category: string(e.Category),
			Subtitle: e.StartsAt.In(events.Lagos).Format("Mon 2 Jan, 3:04 PM"),
			URL:      "/events/" + e.Slug,
		})
	}

	if sc.cache != nil && sc.ttl > 0 {
		if err := cache.SetJSON(ctx, sc.cache, key, resp, sc.ttl); err != nil {
			logging.Component("search").Warn().Err(err).Msg("search cache write failed")
		}
	}
	c.JSON(http.StatusOK, resp)
}
