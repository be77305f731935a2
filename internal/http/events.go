package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/database/events"
	"github.com/choplife/choplifeib/internal/entities"
)

// EventStore defines the event reads the public pages use.
type EventStore interface {
	List(filter events.Filter) ([]entities.Event, int64, error)
	GetByID(id uint) (*entities.Event, error)
	GetBySlug(slug string) (*entities.Event, error)
}

type eventQuery struct {
	Category string `form:"category" binding:"omitempty,event_category"`
	Query    string `form:"q" binding:"max=100"`
	When     string `form:"when" binding:"omitempty,oneof=upcoming past today weekend all"`
	Sort     string `form:"sort" binding:"omitempty,oneof=soonest newest popular"`
	PlaceID  uint   `form:"place_id"`
	Featured bool   `form:"featured"`
}

func (q eventQuery) filter(p Pagination, now time.Time) events.Filter {
	return events.Filter{
		Category:     entities.EventCategory(q.Category),
		Query:        q.Query,
		When:         events.ParseWhen(q.When),
		FeaturedOnly: q.Featured,
		PlaceID:      q.PlaceID,
		Sort:         events.ParseSort(q.Sort),
		Limit:        p.PerPage,
		Offset:       p.Offset(),
		Now:          now,
	}
}

// WhenTab is one of the time filter tabs on the events page.
type WhenTab struct {
	Value events.When
	Label string
}

var whenTabs = []WhenTab{
	{events.WhenUpcoming, "Upcoming"},
	{events.WhenToday, "Today"},
	{events.WhenWeekend, "This weekend"},
	{events.WhenPast, "Past"},
	{events.WhenAll, "All"},
}

type EventsController struct {
	events     EventStore
	reviews    ReviewReader
	favourites FavouriteReader
	renderer   *Renderer
	pageSize   int
	now        func() time.Time
}

func NewEventsController(events EventStore, reviews ReviewReader, favourites FavouriteReader, renderer *Renderer, pageSize int, now func() time.Time) *EventsController {
	if now == nil {
		now = time.Now
	}
	return &EventsController{
		events:     events,
		reviews:    reviews,
		favourites: favourites,
		renderer:   renderer,
		pageSize:   pageSize,
		now:        now,
	}
}

// EventsPage renders the browsable event list.
// GET /events
func (ec *EventsController) EventsPage(c *gin.Context) {
	var q eventQuery
	bindErr := c.ShouldBindQuery(&q)
	if bindErr != nil {
		q = eventQuery{Query: q.Query}
	}

	page := parsePagination(c, ec.pageSize)
	filter := q.filter(page, ec.now())
	list, total, err := ec.events.List(filter)
	if err != nil {
		ec.renderer.Failure(c, err, "list events")
		return
	}
	page.SetTotal(total)

	ids := make([]uint, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}

	data := gin.H{
		"Title":        "Events in Ibadan",
		"Events":       list,
		"Categories":   entities.EventCategories,
		"WhenTabs":     whenTabs,
		"When":         filter.When,
		"Filter":       q,
		"Pagination":   page,
		"Favourites":   favouriteSet(c, ec.favourites, entities.ListingTypeEvent, ids),
		"Now":          ec.now(),
		"EmptyMessage": "No events match your filters",
	}
	if bindErr != nil {
		data["Error"] = firstValidationMessage(bindErr)
	}
	ec.renderer.HTML(c, http.StatusOK, "events.html", data)
}

// EventPage renders one event with tickets, FAQs, organizer and reviews.
// GET /events/:slug
func (ec *EventsController) EventPage(c *gin.Context) {
	event, err := ec.events.GetBySlug(c.Param("slug"))
	if errors.Is(err, events.ErrNotFound) || (err == nil && !event.IsPublished && !canSeeUnpublished(c)) {
		ec.renderer.NotFound(c, "We couldn't find that event.")
		return
	}
	if err != nil {
		ec.renderer.Failure(c, err, "load event")
		return
	}

	extras, err := loadListingExtras(c, ec.reviews, ec.favourites, event.Ref())
	if err != nil {
		ec.renderer.Failure(c, err, "load event reviews")
		return
	}

	lowest, hasTickets := event.LowestPrice()
	ec.renderer.HTML(c, http.StatusOK, "event.html", gin.H{
		"Title":       event.Title,
		"Event":       event,
		"Listing":     event.Ref(),
		"Extras":      extras,
		"Marker":      eventMarker(event),
		"IsPast":      event.IsPast(ec.now()),
		"LowestPrice": lowest,
		"HasTickets":  hasTickets,
	})
}

// ListEvents returns one page of published events.
// GET /api/events
func (ec *EventsController) ListEvents(c *gin.Context) {
	var q eventQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondValidationError(c, err)
		return
	}

	page := parsePagination(c, ec.pageSize)
	list, total, err := ec.events.List(q.filter(page, ec.now()))
	if err != nil {
		respondInternalError(c, err, "list events")
		return
	}
	page.SetTotal(total)
	respondPage(c, list, page)
}

// GetEvent returns a single event with its tiers, FAQs and organizer.
// GET /api/events/:id
func (ec *EventsController) GetEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	event, err := ec.events.GetByID(id)
	if errors.Is(err, events.ErrNotFound) || (err == nil && !event.IsPublished && !canSeeUnpublished(c)) {
		respondNotFound(c, "event")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get event")
		return
	}
	c.JSON(http.StatusOK, event)
}

// Markers returns map pins for events matching the filter.
// GET /api/events/map
func (ec *EventsController) Markers(c *gin.Context) {
	var q eventQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondValidationError(c, err)
		return
	}

	f := q.filter(Pagination{Page: 1}, ec.now())
	f.Limit = 500
	list, _, err := ec.events.List(f)
	if err != nil {
		respondInternalError(c, err, "event markers")
		return
	}

	markers := make([]*MapMarker, 0, len(list))
	for i := range list {
		if m := eventMarker(&list[i]); m != nil {
			markers = append(markers, m)
		}
	}
	c.JSON(http.StatusOK, gin.H{"markers": markers})
}
