package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/audit"
	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/database/events"
	"github.com/choplife/choplifeib/internal/database/places"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
)

// AdminEventStore defines the event and organizer writes of the back-office.
type AdminEventStore interface {
	List(filter events.Filter) ([]entities.Event, int64, error)
	GetByID(id uint) (*entities.Event, error)
	Create(event *entities.Event) error
	Update(event *entities.Event) error
	Delete(id uint) error
	SetFeatured(id uint, featured bool) error
	SetPublished(id uint, published bool) error

	ListOrganizers() ([]entities.Organizer, error)
	GetOrganizer(id uint) (*entities.Organizer, error)
	CreateOrganizer(organizer *entities.Organizer) error
	UpdateOrganizer(organizer *entities.Organizer) error
	DeleteOrganizer(id uint) error
}

// PlaceOptions feeds the venue select of the event form.
type PlaceOptions interface {
	List(filter places.Filter) ([]entities.Place, int64, error)
}

// inputTimeLayout matches <input type="datetime-local">.
const inputTimeLayout = "2006-01-02T15:04"

const maxVenueOptions = 500

type eventForm struct {
	Title         string `form:"title" binding:"required,max=200"`
	Slug          string `form:"slug" binding:"omitempty,max=160"`
	Category      string `form:"category" binding:"required,event_category"`
	Description   string `form:"description" binding:"max=10000"`
	Venue         string `form:"venue" binding:"max=200"`
	Address       string `form:"address" binding:"max=512"`
	Latitude      string `form:"latitude" binding:"omitempty,latitude"`
	Longitude     string `form:"longitude" binding:"omitempty,longitude"`
	StartsAt      string `form:"starts_at" binding:"required"`
	EndsAt        string `form:"ends_at"`
	CoverImageURL string `form:"cover_image_url" binding:"omitempty,url,max=2048"`
	PlaceID       uint   `form:"place_id"`
	OrganizerID   uint   `form:"organizer_id"`
	IsFeatured    bool   `form:"is_featured"`
	IsPublished   bool   `form:"is_published"`

	// repeated rows, read with PostFormArray
	Tiers []TierRow `form:"-"`
	FAQs  []FAQRow  `form:"-"`
}

// TierRow is one ticket tier line of the event form.
type TierRow struct {
	Name        string
	Description string
	Price       string
	Quantity    string
}

type FAQRow struct {
	Question string
	Answer   string
}

func eventFormFrom(e *entities.Event) eventForm {
	form := eventForm{
		Title:         e.Title,
		Slug:          e.Slug,
		Category:      string(e.Category),
		Description:   e.Description,
		Venue:         e.Venue,
		Address:       e.Address,
		Latitude:      formatCoord(e.Latitude),
		Longitude:     formatCoord(e.Longitude),
		StartsAt:      e.StartsAt.In(events.Lagos).Format(inputTimeLayout),
		CoverImageURL: e.CoverImageURL,
		PlaceID:       derefUint(e.PlaceID),
		OrganizerID:   derefUint(e.OrganizerID),
		IsFeatured:    e.IsFeatured,
		IsPublished:   e.IsPublished,
	}
	if e.EndsAt != nil {
		form.EndsAt = e.EndsAt.In(events.Lagos).Format(inputTimeLayout)
	}
	for _, t := range e.TicketTiers {
		row := TierRow{Name: t.Name, Description: t.Description, Price: strconv.FormatInt(t.PriceNaira, 10)}
		if t.Quantity > 0 {
			row.Quantity = strconv.Itoa(t.Quantity)
		}
		form.Tiers = append(form.Tiers, row)
	}
	for _, f := range e.FAQs {
		form.FAQs = append(form.FAQs, FAQRow{Question: f.Question, Answer: f.Answer})
	}
	return form
}

// bindRows reads the repeated tier and FAQ inputs. Rows with an empty name
// or question are skipped.
func (f *eventForm) bindRows(c *gin.Context) {
	names := c.PostFormArray("tier_name")
	descs := c.PostFormArray("tier_description")
	prices := c.PostFormArray("tier_price")
	qtys := c.PostFormArray("tier_quantity")
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		f.Tiers = append(f.Tiers, TierRow{
			Name:        name,
			Description: at(descs, i),
			Price:       at(prices, i),
			Quantity:    at(qtys, i),
		})
	}

	questions := c.PostFormArray("faq_question")
	answers := c.PostFormArray("faq_answer")
	for i, q := range questions {
		if strings.TrimSpace(q) == "" {
			continue
		}
		f.FAQs = append(f.FAQs, FAQRow{Question: q, Answer: at(answers, i)})
	}
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

// parseInputTime reads a datetime-local value as Ibadan wall time.
func parseInputTime(s string) (time.Time, error) {
	return time.ParseInLocation(inputTimeLayout, strings.TrimSpace(s), events.Lagos)
}

// apply validates the parts binding cannot and copies the form onto event.
func (f eventForm) apply(event *entities.Event) error {
	starts, err := parseInputTime(f.StartsAt)
	if err != nil {
		return errors.New("Start time is not a valid date and time")
	}
	var ends *time.Time
	if strings.TrimSpace(f.EndsAt) != "" {
		t, err := parseInputTime(f.EndsAt)
		if err != nil {
			return errors.New("End time is not a valid date and time")
		}
		if t.Before(starts) {
			return errors.New("End time must be after the start time")
		}
		ends = &t
	}

	tiers := make([]entities.TicketTier, 0, len(f.Tiers))
	for _, row := range f.Tiers {
		price, err := strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(row.Price), ",", ""), 10, 64)
		if err != nil || price < 0 {
			return fmt.Errorf("Price for %q must be a whole naira amount", row.Name)
		}
		qty := 0
		if strings.TrimSpace(row.Quantity) != "" {
			qty, err = strconv.Atoi(strings.TrimSpace(row.Quantity))
			if err != nil || qty < 0 {
				return fmt.Errorf("Quantity for %q must be a positive number", row.Name)
			}
		}
		tiers = append(tiers, entities.TicketTier{
			Name:        strings.TrimSpace(row.Name),
			Description: strings.TrimSpace(row.Description),
			PriceNaira:  price,
			Quantity:    qty,
		})
	}
	faqs := make([]entities.FAQ, 0, len(f.FAQs))
	for i, row := range f.FAQs {
		faqs = append(faqs, entities.FAQ{
			Question: strings.TrimSpace(row.Question),
			Answer:   strings.TrimSpace(row.Answer),
			Position: i + 1,
		})
	}

	event.Title = strings.TrimSpace(f.Title)
	event.Slug = strings.TrimSpace(f.Slug)
	event.Category = entities.EventCategory(f.Category)
	event.Description = strings.TrimSpace(f.Description)
	event.Venue = strings.TrimSpace(f.Venue)
	event.Address = strings.TrimSpace(f.Address)
	event.Latitude, event.Longitude = parseCoords(f.Latitude, f.Longitude)
	event.StartsAt = starts
	event.EndsAt = ends
	event.CoverImageURL = strings.TrimSpace(f.CoverImageURL)
	event.PlaceID = optionalID(f.PlaceID)
	event.OrganizerID = optionalID(f.OrganizerID)
	event.IsFeatured = f.IsFeatured
	event.IsPublished = f.IsPublished
	event.TicketTiers = tiers
	event.FAQs = faqs
	// preloaded associations would be saved back otherwise
	event.Place = nil
	event.Organizer = nil
	return nil
}

func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

type AdminEventsController struct {
	events   AdminEventStore
	places   PlaceOptions
	gallery  GalleryLister
	auditor  Auditor
	renderer *Renderer
	now      func() time.Time
}

func NewAdminEventsController(events AdminEventStore, places PlaceOptions, gallery GalleryLister, auditor Auditor, renderer *Renderer, now func() time.Time) *AdminEventsController {
	if now == nil {
		now = time.Now
	}
	return &AdminEventsController{events: events, places: places, gallery: gallery, auditor: auditor, renderer: renderer, now: now}
}

// ListPage shows all events, drafts and archived ones included.
// GET /admin/events
func (ec *AdminEventsController) ListPage(c *gin.Context) {
	page := parsePagination(c, maxPerPage)
	when := events.ParseWhen(c.DefaultQuery("when", string(events.WhenAll)))
	filter := events.Filter{
		Query:              c.Query("q"),
		Category:           entities.EventCategory(c.Query("category")),
		When:               when,
		IncludeUnpublished: true,
		Sort:               events.ParseSort(c.Query("sort")),
		Limit:              page.PerPage,
		Offset:             page.Offset(),
		Now:                ec.now(),
	}
	if !filter.Category.IsValid() {
		filter.Category = ""
	}

	list, total, err := ec.events.List(filter)
	if err != nil {
		ec.renderer.Failure(c, err, "admin events")
		return
	}
	page.SetTotal(total)

	ec.renderer.HTML(c, http.StatusOK, "admin-events.html", gin.H{
		"Title":        "Events",
		"Section":      "events",
		"Events":       list,
		"When":         when,
		"WhenTabs":     whenTabs,
		"Categories":   entities.EventCategories,
		"Pagination":   page,
		"Now":          ec.now(),
		"EmptyMessage": "No events match your filters",
	})
}

// NewPage renders an empty event form.
// GET /admin/events/new
func (ec *AdminEventsController) NewPage(c *gin.Context) {
	form := eventForm{IsPublished: true}
	if id, err := strconv.ParseUint(c.Query("place_id"), 10, 32); err == nil {
		form.PlaceID = uint(id)
	}
	ec.renderForm(c, http.StatusOK, nil, form, "")
}

// EditPage renders the form for an existing event.
// GET /admin/events/:id/edit
func (ec *AdminEventsController) EditPage(c *gin.Context) {
	event, ok := ec.load(c)
	if !ok {
		return
	}
	ec.renderForm(c, http.StatusOK, event, eventFormFrom(event), "")
}

func (ec *AdminEventsController) renderForm(c *gin.Context, status int, event *entities.Event, form eventForm, errMsg string) {
	venues, _, err := ec.places.List(places.Filter{IncludeUnpublished: true, Sort: places.SortName, Limit: maxVenueOptions})
	if err != nil {
		ec.renderer.Failure(c, err, "venue options")
		return
	}
	organizers, err := ec.events.ListOrganizers()
	if err != nil {
		ec.renderer.Failure(c, err, "organizer options")
		return
	}

	title := "New event"
	var gallery []entities.GalleryImage
	if event != nil {
		title = "Edit " + event.Title
		if ec.gallery != nil {
			gallery, _ = ec.gallery.ListFor(event.Ref())
		}
	}
	data := gin.H{
		"Title":      title,
		"Section":    "events",
		"Event":      event,
		"Form":       form,
		"Gallery":    gallery,
		"Venues":     venues,
		"Organizers": organizers,
		"Categories": entities.EventCategories,
	}
	if errMsg != "" {
		data["Error"] = errMsg
	}
	ec.renderer.HTML(c, status, "admin-event-form.html", data)
}

// Create stores a new event with its tiers and FAQs.
// POST /admin/events
func (ec *AdminEventsController) Create(c *gin.Context) {
	var form eventForm
	err := c.ShouldBind(&form)
	form.bindRows(c)
	if err != nil {
		ec.renderForm(c, http.StatusBadRequest, nil, form, firstValidationMessage(err))
		return
	}

	event := &entities.Event{}
	if err := form.apply(event); err != nil {
		ec.renderForm(c, http.StatusBadRequest, nil, form, err.Error())
		return
	}

	err = ec.events.Create(event)
	ec.auditor.LogListing(auth.GetUserID(c), event.Ref(), "create", event.Title, err)
	if err != nil {
		logging.Component("admin").Error().Err(err).Msg("create event failed")
		ec.renderForm(c, http.StatusInternalServerError, nil, form, "Failed to save the event. Please try again.")
		return
	}
	redirectWithNotice(c, fmt.Sprintf("/admin/events/%d/edit", event.ID), "Event created")
}

// Update saves an event, replacing its tiers and FAQs.
// POST /admin/events/:id
func (ec *AdminEventsController) Update(c *gin.Context) {
	event, ok := ec.load(c)
	if !ok {
		return
	}

	var form eventForm
	err := c.ShouldBind(&form)
	form.bindRows(c)
	if err != nil {
		ec.renderForm(c, http.StatusBadRequest, event, form, firstValidationMessage(err))
		return
	}
	if err := form.apply(event); err != nil {
		ec.renderForm(c, http.StatusBadRequest, event, form, err.Error())
		return
	}
	// a rescheduled event comes back from the archive
	event.IsArchived = event.IsPast(ec.now())

	err = ec.events.Update(event)
	ec.auditor.LogListing(auth.GetUserID(c), event.Ref(), "update", event.Title, err)
	if err != nil {
		logging.Component("admin").Error().Err(err).Uint("event_id", event.ID).Msg("update event failed")
		ec.renderForm(c, http.StatusInternalServerError, event, form, "Failed to save the event. Please try again.")
		return
	}
	redirectWithNotice(c, fmt.Sprintf("/admin/events/%d/edit", event.ID), "Event saved")
}

// Delete removes an event and everything attached to it.
// POST /admin/events/:id/delete
func (ec *AdminEventsController) Delete(c *gin.Context) {
	event, ok := ec.load(c)
	if !ok {
		return
	}
	err := ec.events.Delete(event.ID)
	ec.auditor.LogListing(auth.GetUserID(c), event.Ref(), "delete", event.Title, err)
	if err != nil {
		logging.Component("admin").Error().Err(err).Uint("event_id", event.ID).Msg("delete event failed")
		redirectWithError(c, "/admin/events", "Failed to delete "+event.Title)
		return
	}
	redirectWithNotice(c, "/admin/events", "Deleted "+event.Title)
}

// POST /admin/events/:id/featured, POST /admin/events/:id/published
func (ec *AdminEventsController) SetFeatured(c *gin.Context) {
	ec.setFlag(c, "featured", ec.events.SetFeatured)
}

func (ec *AdminEventsController) SetPublished(c *gin.Context) {
	ec.setFlag(c, "published", ec.events.SetPublished)
}

func (ec *AdminEventsController) setFlag(c *gin.Context, flag string, set func(uint, bool) error) {
	event, ok := ec.load(c)
	if !ok {
		return
	}
	value, _ := strconv.ParseBool(c.PostForm("value"))

	verb := flag
	if !value {
		verb = "un" + flag
	}
	err := set(event.ID, value)
	ec.auditor.LogListing(auth.GetUserID(c), event.Ref(), verb, event.Title, err)
	if err != nil {
		logging.Component("admin").Error().Err(err).Uint("event_id", event.ID).Msg("event flag update failed")
		redirectWithError(c, backURL(c, "/admin/events"), "Failed to update "+event.Title)
		return
	}
	redirectWithNotice(c, backURL(c, "/admin/events"), capitalize(event.Title+" "+verb))
}

func (ec *AdminEventsController) load(c *gin.Context) (*entities.Event, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		ec.renderer.NotFound(c, "We couldn't find that event.")
		return nil, false
	}
	event, err := ec.events.GetByID(uint(id))
	if errors.Is(err, events.ErrNotFound) {
		ec.renderer.NotFound(c, "We couldn't find that event.")
		return nil, false
	}
	if err != nil {
		ec.renderer.Failure(c, err, "load event")
		return nil, false
	}
	return event, true
}

// --- Organizers ---

type organizerForm struct {
	Name    string `form:"name" binding:"required,max=160"`
	Email   string `form:"email" binding:"omitempty,email,max=255"`
	Phone   string `form:"phone" binding:"max=32"`
	Website string `form:"website" binding:"omitempty,url,max=2048"`
	LogoURL string `form:"logo_url" binding:"omitempty,url,max=2048"`
	Bio     string `form:"bio" binding:"max=5000"`
}

func (f organizerForm) apply(o *entities.Organizer) {
	o.Name = strings.TrimSpace(f.Name)
	o.Email = strings.TrimSpace(f.Email)
	o.Phone = strings.TrimSpace(f.Phone)
	o.Website = strings.TrimSpace(f.Website)
	o.LogoURL = strings.TrimSpace(f.LogoURL)
	o.Bio = strings.TrimSpace(f.Bio)
}

// OrganizersPage lists organizers with an inline create form.
// GET /admin/organizers
func (ec *AdminEventsController) OrganizersPage(c *gin.Context) {
	organizers, err := ec.events.ListOrganizers()
	if err != nil {
		ec.renderer.Failure(c, err, "organizers")
		return
	}
	ec.renderer.HTML(c, http.StatusOK, "admin-organizers.html", gin.H{
		"Title":        "Organizers",
		"Section":      "organizers",
		"Organizers":   organizers,
		"EmptyMessage": "No organizers yet",
	})
}

// CreateOrganizer adds an organizer.
// POST /admin/organizers
func (ec *AdminEventsController) CreateOrganizer(c *gin.Context) {
	var form organizerForm
	if err := c.ShouldBind(&form); err != nil {
		redirectWithError(c, "/admin/organizers", firstValidationMessage(err))
		return
	}
	organizer := &entities.Organizer{}
	form.apply(organizer)

	err := ec.events.CreateOrganizer(organizer)
	ec.recordOrganizer(c, "create", organizer, err)
	if err != nil {
		redirectWithError(c, "/admin/organizers", "Failed to save "+organizer.Name+". Names must be unique.")
		return
	}
	redirectWithNotice(c, "/admin/organizers", "Added "+organizer.Name)
}

// UpdateOrganizer saves changes to an organizer.
// POST /admin/organizers/:id
func (ec *AdminEventsController) UpdateOrganizer(c *gin.Context) {
	organizer, ok := ec.loadOrganizer(c)
	if !ok {
		return
	}
	var form organizerForm
	if err := c.ShouldBind(&form); err != nil {
		redirectWithError(c, "/admin/organizers", firstValidationMessage(err))
		return
	}
	form.apply(organizer)

	err := ec.events.UpdateOrganizer(organizer)
	ec.recordOrganizer(c, "update", organizer, err)
	if err != nil {
		redirectWithError(c, "/admin/organizers", "Failed to save "+organizer.Name)
		return
	}
	redirectWithNotice(c, "/admin/organizers", "Saved "+organizer.Name)
}

// DeleteOrganizer removes an organizer; their events are kept.
// POST /admin/organizers/:id/delete
func (ec *AdminEventsController) DeleteOrganizer(c *gin.Context) {
	organizer, ok := ec.loadOrganizer(c)
	if !ok {
		return
	}
	err := ec.events.DeleteOrganizer(organizer.ID)
	ec.recordOrganizer(c, "delete", organizer, err)
	if err != nil {
		redirectWithError(c, "/admin/organizers", "Failed to delete "+organizer.Name)
		return
	}
	redirectWithNotice(c, "/admin/organizers", "Deleted "+organizer.Name)
}

func (ec *AdminEventsController) recordOrganizer(c *gin.Context, verb string, o *entities.Organizer, err error) {
	if err != nil {
		logging.Component("admin").Error().Err(err).Str("organizer", o.Name).Msg("organizer " + verb + " failed")
	}
	ec.auditor.Record(audit.Action{
		ActorID:     auth.GetUserID(c),
		EventType:   entities.AuditEventOrganizer,
		Action:      "organizer_" + verb,
		EntityType:  "organizer",
		EntityID:    o.ID,
		Description: fmt.Sprintf("%s organizer %q", capitalize(verb), o.Name),
		Err:         err,
	})
}

func (ec *AdminEventsController) loadOrganizer(c *gin.Context) (*entities.Organizer, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		ec.renderer.NotFound(c, "We couldn't find that organizer.")
		return nil, false
	}
	organizer, err := ec.events.GetOrganizer(uint(id))
	if errors.Is(err, events.ErrOrganizerNotFound) {
		ec.renderer.NotFound(c, "We couldn't find that organizer.")
		return nil, false
	}
	if err != nil {
		ec.renderer.Failure(c, err, "load organizer")
		return nil, false
	}
	return organizer, true
}
