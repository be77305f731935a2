package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/audit"
	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/database/spotlights"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
)

// SpotlightStore defines the home page banner writes.
type SpotlightStore interface {
	List() ([]entities.Spotlight, error)
	Create(spotlight *entities.Spotlight) error
	Delete(id uint) error
}

type spotlightForm struct {
	Title       string `form:"title" binding:"required,max=160"`
	Subtitle    string `form:"subtitle" binding:"max=300"`
	ImageURL    string `form:"image_url" binding:"omitempty,url,max=2048"`
	LinkURL     string `form:"link_url" binding:"max=2048"`
	ListingType string `form:"listing_type" binding:"omitempty,listing_type"`
	ListingID   uint   `form:"listing_id"`
	Position    int    `form:"position" binding:"min=0"`
	StartsAt    string `form:"starts_at"`
	EndsAt      string `form:"ends_at"`
	IsActive    bool   `form:"is_active"`
}

func (f spotlightForm) toSpotlight(now time.Time) (*entities.Spotlight, error) {
	s := &entities.Spotlight{
		Title:    strings.TrimSpace(f.Title),
		Subtitle: strings.TrimSpace(f.Subtitle),
		ImageURL: strings.TrimSpace(f.ImageURL),
		LinkURL:  strings.TrimSpace(f.LinkURL),
		Position: f.Position,
		StartsAt: now,
		IsActive: f.IsActive,
	}
	if s.LinkURL != "" && !strings.HasPrefix(s.LinkURL, "/") &&
		!strings.HasPrefix(s.LinkURL, "https://") && !strings.HasPrefix(s.LinkURL, "http://") {
		return nil, errors.New("Link must be a site path or an http(s) URL")
	}
	if f.ListingType != "" && f.ListingID > 0 {
		t, _ := entities.ParseListingType(f.ListingType)
		id := f.ListingID
		s.ListingType = t
		s.ListingID = &id
	}
	if strings.TrimSpace(f.StartsAt) != "" {
		t, err := parseInputTime(f.StartsAt)
		if err != nil {
			return nil, errors.New("Start time is not a valid date and time")
		}
		s.StartsAt = t
	}
	if strings.TrimSpace(f.EndsAt) != "" {
		t, err := parseInputTime(f.EndsAt)
		if err != nil {
			return nil, errors.New("End time is not a valid date and time")
		}
		if !t.After(s.StartsAt) {
			return nil, errors.New("End time must be after the start time")
		}
		s.EndsAt = &t
	}
	return s, nil
}

type AdminSpotlightsController struct {
	spotlights SpotlightStore
	auditor    Auditor
	renderer   *Renderer
	now        func() time.Time
}

func NewAdminSpotlightsController(spotlights SpotlightStore, auditor Auditor, renderer *Renderer, now func() time.Time) *AdminSpotlightsController {
	if now == nil {
		now = time.Now
	}
	return &AdminSpotlightsController{spotlights: spotlights, auditor: auditor, renderer: renderer, now: now}
}

// ListPage shows every spotlight with its live state.
// GET /admin/spotlights
func (sc *AdminSpotlightsController) ListPage(c *gin.Context) {
	list, err := sc.spotlights.List()
	if err != nil {
		sc.renderer.Failure(c, err, "admin spotlights")
		return
	}
	sc.renderer.HTML(c, http.StatusOK, "admin-spotlights.html", gin.H{
		"Title":        "Spotlights",
		"Section":      "spotlights",
		"Spotlights":   list,
		"Now":          sc.now(),
		"EmptyMessage": "No spotlights yet",
	})
}

// Create adds a spotlight.
// POST /admin/spotlights
func (sc *AdminSpotlightsController) Create(c *gin.Context) {
	var form spotlightForm
	if err := c.ShouldBind(&form); err != nil {
		redirectWithError(c, "/admin/spotlights", firstValidationMessage(err))
		return
	}
	spotlight, err := form.toSpotlight(sc.now())
	if err != nil {
		redirectWithError(c, "/admin/spotlights", err.Error())
		return
	}

	err = sc.spotlights.Create(spotlight)
	sc.record(c, "create", spotlight.ID, spotlight.Title, err)
	if err != nil {
		redirectWithError(c, "/admin/spotlights", "Failed to save the spotlight")
		return
	}
	redirectWithNotice(c, "/admin/spotlights", "Added "+spotlight.Title)
}

// Delete removes a spotlight.
// POST /admin/spotlights/:id/delete
func (sc *AdminSpotlightsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	err := sc.spotlights.Delete(id)
	if errors.Is(err, spotlights.ErrNotFound) {
		sc.renderer.NotFound(c, "We couldn't find that spotlight.")
		return
	}
	sc.record(c, "delete", id, "", err)
	if err != nil {
		redirectWithError(c, "/admin/spotlights", "Failed to delete the spotlight")
		return
	}
	redirectWithNotice(c, "/admin/spotlights", "Spotlight removed")
}

func (sc *AdminSpotlightsController) record(c *gin.Context, verb string, id uint, title string, err error) {
	if err != nil {
		logging.Component("admin").Error().Err(err).Str("op", "spotlight_"+verb).Msg("spotlight write failed")
	}
	desc := capitalize(verb) + " spotlight"
	if title != "" {
		desc += " " + title
	}
	sc.auditor.Record(audit.Action{
		ActorID:     auth.GetUserID(c),
		EventType:   entities.AuditEventSpotlight,
		Action:      "spotlight_" + verb,
		EntityType:  "spotlight",
		EntityID:    id,
		Description: desc,
		Err:         err,
	})
}
