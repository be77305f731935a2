package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/database/events"
	"github.com/choplife/choplifeib/internal/database/places"
	"github.com/choplife/choplifeib/internal/entities"
)

// SpotlightReader lists the home page banners.
type SpotlightReader interface {
	ListActive(now time.Time) ([]entities.Spotlight, error)
}

const (
	homeFeaturedPlaces = 6
	homeFeaturedEvents = 6
)

type HomeController struct {
	spotlights SpotlightReader
	places     PlaceStore
	events     EventLister
	renderer   *Renderer
	now        func() time.Time
}

func NewHomeController(spotlights SpotlightReader, places PlaceStore, events EventLister, renderer *Renderer, now func() time.Time) *HomeController {
	if now == nil {
		now = time.Now
	}
	return &HomeController{spotlights: spotlights, places: places, events: events, renderer: renderer, now: now}
}

// HomePage renders spotlights, featured places and upcoming featured events.
// GET /
func (hc *HomeController) HomePage(c *gin.Context) {
	now := hc.now()

	spots, err := hc.spotlights.ListActive(now)
	if err != nil {
		hc.renderer.Failure(c, err, "home spotlights")
		return
	}

	featured, _, err := hc.places.List(places.Filter{FeaturedOnly: true, Sort: places.SortRating, Limit: homeFeaturedPlaces})
	if err != nil {
		hc.renderer.Failure(c, err, "home places")
		return
	}

	upcoming, _, err := hc.events.List(events.Filter{
		FeaturedOnly: true,
		When:         events.WhenUpcoming,
		Limit:        homeFeaturedEvents,
		Now:          now,
	})
	if err != nil {
		hc.renderer.Failure(c, err, "home events")
		return
	}

	categories, err := hc.places.Categories()
	if err != nil {
		hc.renderer.Failure(c, err, "home categories")
		return
	}

	hc.renderer.HTML(c, http.StatusOK, "home.html", gin.H{
		"Title":           "Discover Ibadan",
		"Spotlights":      spots,
		"FeaturedPlaces":  featured,
		"UpcomingEvents":  upcoming,
		"Categories":      categories,
		"EventCategories": entities.EventCategories,
	})
}
