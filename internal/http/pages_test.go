package http

import (
	"html/template"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choplife/choplifeib/internal/entities"
)

func TestHomePage(t *testing.T) {
	app := newTestApp(t)
	p := &entities.Place{Name: "Amala Skye", Category: entities.PlaceCategoryRestaurant, IsPublished: true, IsFeatured: true}
	require.NoError(t, app.places.Create(p))

	w := app.get("/", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Discover Ibadan")
	assert.Contains(t, body, "Amala Skye")
	assert.Contains(t, body, `href="/login"`)
}

func TestEventsPage_WeekendTab(t *testing.T) {
	app := newTestApp(t)
	// testNow is Wednesday 15 May; the weekend opens Friday 17 May at 18:00.
	app.event(t, "Afrobeats Saturday", time.Date(2024, time.May, 18, 21, 0, 0, 0, testNow.Location()))
	app.event(t, "Laugh Out Loud", testNow.AddDate(0, 0, 10))

	w := app.get("/events?when=weekend", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Afrobeats Saturday")
	assert.NotContains(t, w.Body.String(), "Laugh Out Loud")

	w = app.get("/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Afrobeats Saturday")
	assert.Contains(t, w.Body.String(), "Laugh Out Loud")
}

func TestEventPage_ShowsTicketsAndFAQ(t *testing.T) {
	app := newTestApp(t)
	e := &entities.Event{
		Title:       "Garden Brunch",
		Category:    entities.EventCategoryFood,
		StartsAt:    testNow.Add(96 * time.Hour),
		IsPublished: true,
		TicketTiers: []entities.TicketTier{{Name: "Entry", PriceNaira: 8000}},
		FAQs:        []entities.FAQ{{Question: "Is there parking?", Answer: "Yes."}},
	}
	require.NoError(t, app.events.Create(e))

	w := app.get("/events/"+e.Slug, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Garden Brunch")
	assert.Contains(t, body, "₦8,000")
	assert.Contains(t, body, "Is there parking?")
}

func TestPlacePage_ShowsReviews(t *testing.T) {
	app := newTestApp(t)
	place := app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)
	_, token := app.user(t, "tolu", entities.UserRoleVerifiedReviewer)

	w := app.postJSON(t, http.MethodPost, "/api/reviews", token, gin.H{
		"listing_type": "place", "listing_id": place.ID, "rating": 5, "title": "Best amala in town",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = app.get("/places/"+place.Slug, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Best amala in town")
	assert.Contains(t, body, "Verified reviewer")
	assert.Contains(t, body, "1 review")
}

func TestPlacePage_DraftHiddenFromVisitors(t *testing.T) {
	app := newTestApp(t)
	draft := &entities.Place{Name: "Draft Bar", Category: entities.PlaceCategoryBar}
	require.NoError(t, app.places.Create(draft))

	assert.Equal(t, http.StatusNotFound, app.get("/places/"+draft.Slug, "").Code)
}

func TestNoRoute(t *testing.T) {
	app := newTestApp(t)

	w := app.get("/nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "find that page")

	w = app.get("/api/nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, w).Code)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	w := app.get("/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "ok", health.Checks["database"])
	assert.Equal(t, "ok", health.Checks["cache"])
}

func TestLayout_AnalyticsScript(t *testing.T) {
	tag := template.HTML(`<script defer data-domain="choplife.ng" src="https://plausible.io/js/script.js"></script>`)
	app := newTestApp(t, func(cfg *RouterConfig) {
		cfg.AnalyticsScript = tag
		cfg.AnalyticsScriptURL = "https://plausible.io/js/script.js"
	})

	w := app.get("/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(tag))
	csp := w.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "script-src 'self' 'unsafe-inline' https://unpkg.com https://plausible.io;")
	assert.Contains(t, csp, "connect-src 'self' https://plausible.io;")

	plain := newTestApp(t)
	w = plain.get("/", "")
	assert.NotContains(t, w.Body.String(), "data-domain")
	assert.NotContains(t, w.Header().Get("Content-Security-Policy"), "plausible.io")
}
