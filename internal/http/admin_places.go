package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/database/places"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
	"github.com/choplife/choplifeib/internal/tasks"
)

// AdminPlaceStore defines the place writes of the back-office.
type AdminPlaceStore interface {
	List(filter places.Filter) ([]entities.Place, int64, error)
	GetByID(id uint) (*entities.Place, error)
	Create(place *entities.Place) error
	Update(place *entities.Place) error
	Delete(id uint) error
	SetFeatured(id uint, featured bool) error
	SetPublished(id uint, published bool) error
}

// GalleryLister loads the images attached to a listing.
type GalleryLister interface {
	ListFor(ref entities.ListingRef) ([]entities.GalleryImage, error)
}

// Enqueuer adds background tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
}

type placeForm struct {
	Name          string `form:"name" json:"name" binding:"required,max=160"`
	Slug          string `form:"slug" json:"slug" binding:"omitempty,max=160"`
	Category      string `form:"category" json:"category" binding:"required,place_category"`
	Description   string `form:"description" json:"description" binding:"max=5000"`
	Address       string `form:"address" json:"address" binding:"max=512"`
	Area          string `form:"area" json:"area" binding:"max=128"`
	Latitude      string `form:"latitude" json:"latitude" binding:"omitempty,latitude"`
	Longitude     string `form:"longitude" json:"longitude" binding:"omitempty,longitude"`
	PriceRange    int    `form:"price_range" json:"price_range" binding:"omitempty,min=1,max=4"`
	Phone         string `form:"phone" json:"phone" binding:"max=32"`
	Website       string `form:"website" json:"website" binding:"omitempty,url,max=2048"`
	Instagram     string `form:"instagram" json:"instagram" binding:"max=128"`
	OpeningHours  string `form:"opening_hours" json:"opening_hours" binding:"max=512"`
	CoverImageURL string `form:"cover_image_url" json:"cover_image_url" binding:"omitempty,url,max=2048"`
	IsFeatured    bool   `form:"is_featured" json:"is_featured"`
	IsPublished   bool   `form:"is_published" json:"is_published"`
}

func placeFormFrom(p *entities.Place) placeForm {
	return placeForm{
		Name:          p.Name,
		Slug:          p.Slug,
		Category:      string(p.Category),
		Description:   p.Description,
		Address:       p.Address,
		Area:          p.Area,
		Latitude:      formatCoord(p.Latitude),
		Longitude:     formatCoord(p.Longitude),
		PriceRange:    p.PriceRange,
		Phone:         p.Phone,
		Website:       p.Website,
		Instagram:     p.Instagram,
		OpeningHours:  p.OpeningHours,
		CoverImageURL: p.CoverImageURL,
		IsFeatured:    p.IsFeatured,
		IsPublished:   p.IsPublished,
	}
}

// apply copies the form onto place. Aggregates are left untouched.
func (f placeForm) apply(place *entities.Place) {
	place.Name = strings.TrimSpace(f.Name)
	place.Slug = strings.TrimSpace(f.Slug)
	place.Category = entities.PlaceCategory(f.Category)
	place.Description = strings.TrimSpace(f.Description)
	place.Address = strings.TrimSpace(f.Address)
	place.Area = strings.TrimSpace(f.Area)
	place.Latitude, place.Longitude = parseCoords(f.Latitude, f.Longitude)
	place.PriceRange = f.PriceRange
	if place.PriceRange == 0 {
		place.PriceRange = 2
	}
	place.Phone = strings.TrimSpace(f.Phone)
	place.Website = strings.TrimSpace(f.Website)
	place.Instagram = strings.TrimPrefix(strings.TrimSpace(f.Instagram), "@")
	place.OpeningHours = strings.TrimSpace(f.OpeningHours)
	place.CoverImageURL = strings.TrimSpace(f.CoverImageURL)
	place.IsFeatured = f.IsFeatured
	place.IsPublished = f.IsPublished
}

// parseCoords returns both coordinates or neither.
func parseCoords(lat, lng string) (*float64, *float64) {
	la, errLat := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	lo, errLng := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if errLat != nil || errLng != nil {
		return nil, nil
	}
	return &la, &lo
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}

type AdminPlacesController struct {
	places   AdminPlaceStore
	gallery  GalleryLister
	queue    Enqueuer
	auditor  Auditor
	renderer *Renderer
}

func NewAdminPlacesController(places AdminPlaceStore, gallery GalleryLister, queue Enqueuer, auditor Auditor, renderer *Renderer) *AdminPlacesController {
	return &AdminPlacesController{places: places, gallery: gallery, queue: queue, auditor: auditor, renderer: renderer}
}

// ListPage shows every place, drafts included.
// GET /admin/places
func (pc *AdminPlacesController) ListPage(c *gin.Context) {
	page := parsePagination(c, maxPerPage)
	filter := places.Filter{
		Query:              c.Query("q"),
		Category:           entities.PlaceCategory(c.Query("category")),
		IncludeUnpublished: true,
		Sort:               places.ParseSort(c.DefaultQuery("sort", string(places.SortName))),
		Limit:              page.PerPage,
		Offset:             page.Offset(),
	}
	if !filter.Category.IsValid() {
		filter.Category = ""
	}

	list, total, err := pc.places.List(filter)
	if err != nil {
		pc.renderer.Failure(c, err, "admin places")
		return
	}
	page.SetTotal(total)

	pc.renderer.HTML(c, http.StatusOK, "admin-places.html", gin.H{
		"Title":        "Places",
		"Section":      "places",
		"Places":       list,
		"Categories":   entities.PlaceCategories,
		"Pagination":   page,
		"EmptyMessage": "No places match your filters",
	})
}

// NewPage renders an empty place form.
// GET /admin/places/new
func (pc *AdminPlacesController) NewPage(c *gin.Context) {
	pc.renderForm(c, http.StatusOK, nil, placeForm{PriceRange: 2, IsPublished: true}, "")
}

// EditPage renders the form for an existing place.
// GET /admin/places/:id/edit
func (pc *AdminPlacesController) EditPage(c *gin.Context) {
	place, ok := pc.load(c)
	if !ok {
		return
	}
	pc.renderForm(c, http.StatusOK, place, placeFormFrom(place), "")
}

func (pc *AdminPlacesController) renderForm(c *gin.Context, status int, place *entities.Place, form placeForm, errMsg string) {
	var gallery []entities.GalleryImage
	title := "New place"
	if place != nil {
		title = "Edit " + place.Name
		if pc.gallery != nil {
			gallery, _ = pc.gallery.ListFor(place.Ref())
		}
	}
	data := gin.H{
		"Title":      title,
		"Section":    "places",
		"Place":      place,
		"Form":       form,
		"Gallery":    gallery,
		"Categories": entities.PlaceCategories,
	}
	if errMsg != "" {
		data["Error"] = errMsg
	}
	pc.renderer.HTML(c, status, "admin-place-form.html", data)
}

// Create stores a new place.
// POST /admin/places
func (pc *AdminPlacesController) Create(c *gin.Context) {
	var form placeForm
	if err := c.ShouldBind(&form); err != nil {
		pc.renderForm(c, http.StatusBadRequest, nil, form, firstValidationMessage(err))
		return
	}

	place := &entities.Place{}
	form.apply(place)
	err := pc.places.Create(place)
	pc.auditor.LogListing(auth.GetUserID(c), place.Ref(), "create", place.Name, err)
	if err != nil {
		logging.Component("admin").Error().Err(err).Msg("create place failed")
		pc.renderForm(c, http.StatusInternalServerError, nil, form, "Failed to save the place. Please try again.")
		return
	}

	pc.enqueueGeocode(c, place)
	redirectWithNotice(c, fmt.Sprintf("/admin/places/%d/edit", place.ID), "Place created")
}

// Update saves changes to an existing place.
// POST /admin/places/:id
func (pc *AdminPlacesController) Update(c *gin.Context) {
	place, ok := pc.load(c)
	if !ok {
		return
	}

	var form placeForm
	if err := c.ShouldBind(&form); err != nil {
		pc.renderForm(c, http.StatusBadRequest, place, form, firstValidationMessage(err))
		return
	}

	form.apply(place)
	err := pc.places.Update(place)
	pc.auditor.LogListing(auth.GetUserID(c), place.Ref(), "update", place.Name, err)
	if err != nil {
		logging.Component("admin").Error().Err(err).Uint("place_id", place.ID).Msg("update place failed")
		pc.renderForm(c, http.StatusInternalServerError, place, form, "Failed to save the place. Please try again.")
		return
	}

	pc.enqueueGeocode(c, place)
	redirectWithNotice(c, fmt.Sprintf("/admin/places/%d/edit", place.ID), "Place saved")
}

// Delete removes a place and everything attached to it.
// POST /admin/places/:id/delete
func (pc *AdminPlacesController) Delete(c *gin.Context) {
	place, ok := pc.load(c)
	if !ok {
		return
	}

	err := pc.places.Delete(place.ID)
	pc.auditor.LogListing(auth.GetUserID(c), place.Ref(), "delete", place.Name, err)
	if err != nil {
		logging.Component("admin").Error().Err(err).Uint("place_id", place.ID).Msg("delete place failed")
		redirectWithError(c, "/admin/places", "Failed to delete "+place.Name)
		return
	}
	redirectWithNotice(c, "/admin/places", "Deleted "+place.Name)
}

// SetFeatured and SetPublished flip one flag from the list page.
// POST /admin/places/:id/featured, POST /admin/places/:id/published
func (pc *AdminPlacesController) SetFeatured(c *gin.Context) {
	pc.setFlag(c, "featured", pc.places.SetFeatured)
}

func (pc *AdminPlacesController) SetPublished(c *gin.Context) {
	pc.setFlag(c, "published", pc.places.SetPublished)
}

func (pc *AdminPlacesController) setFlag(c *gin.Context, flag string, set func(uint, bool) error) {
	place, ok := pc.load(c)
	if !ok {
		return
	}
	value, _ := strconv.ParseBool(c.PostForm("value"))

	err := set(place.ID, value)
	verb := flag
	if !value {
		verb = "un" + flag
	}
	pc.auditor.LogListing(auth.GetUserID(c), place.Ref(), verb, place.Name, err)
	if err != nil {
		logging.Component("admin").Error().Err(err).Uint("place_id", place.ID).Msg("place flag update failed")
		redirectWithError(c, backURL(c, "/admin/places"), "Failed to update "+place.Name)
		return
	}
	redirectWithNotice(c, backURL(c, "/admin/places"), capitalize(place.Name+" "+verb))
}

// Geocode queues a coordinate lookup for the place's address.
// POST /admin/places/:id/geocode
func (pc *AdminPlacesController) Geocode(c *gin.Context) {
	place, ok := pc.load(c)
	if !ok {
		return
	}
	if strings.TrimSpace(place.Address) == "" {
		redirectWithError(c, fmt.Sprintf("/admin/places/%d/edit", place.ID), "Add an address first")
		return
	}
	if pc.queue == nil {
		redirectWithError(c, fmt.Sprintf("/admin/places/%d/edit", place.ID), "Background tasks are disabled")
		return
	}
	if _, err := pc.queue.Enqueue(c.Request.Context(), tasks.GeocodePlaceTask{PlaceID: place.ID}); err != nil {
		logging.Component("admin").Error().Err(err).Uint("place_id", place.ID).Msg("failed to queue geocoding")
		redirectWithError(c, fmt.Sprintf("/admin/places/%d/edit", place.ID), "Failed to queue the lookup")
		return
	}
	redirectWithNotice(c, fmt.Sprintf("/admin/places/%d/edit", place.ID), "Location lookup queued")
}

// enqueueGeocode queues a lookup for places saved with an address and no
// coordinates.
func (pc *AdminPlacesController) enqueueGeocode(c *gin.Context, place *entities.Place) {
	if pc.queue == nil || place.HasCoordinates() || strings.TrimSpace(place.Address) == "" {
		return
	}
	if _, err := pc.queue.Enqueue(c.Request.Context(), tasks.GeocodePlaceTask{PlaceID: place.ID}); err != nil {
		logging.Component("admin").Warn().Err(err).Uint("place_id", place.ID).Msg("failed to queue geocoding")
	}
}

func (pc *AdminPlacesController) load(c *gin.Context) (*entities.Place, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		pc.renderer.NotFound(c, "We couldn't find that place.")
		return nil, false
	}
	place, err := pc.places.GetByID(uint(id))
	if errors.Is(err, places.ErrNotFound) {
		pc.renderer.NotFound(c, "We couldn't find that place.")
		return nil, false
	}
	if err != nil {
		pc.renderer.Failure(c, err, "load place")
		return nil, false
	}
	return place, true
}
