package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choplife/choplifeib/internal/entities"
)

type placePage struct {
	Data       []entities.Place `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
	HasMore    bool             `json:"has_more"`
}

func TestPlacesPage_FiltersByCategory(t *testing.T) {
	app := newTestApp(t)
	app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)
	app.place(t, "Cafe Jade", entities.PlaceCategoryCafe)

	w := app.get("/places?category=restaurant", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Amala Skye")
	assert.NotContains(t, w.Body.String(), "Cafe Jade")
}

func TestPlacesPage_EmptyState(t *testing.T) {
	app := newTestApp(t)
	app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)

	w := app.get("/places?category=nightclub", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No places match your filters")
}

func TestPlacesPage_UnknownCategoryFallsBack(t *testing.T) {
	app := newTestApp(t)
	app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)

	w := app.get("/places?category=spaceport", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Amala Skye")
}

func TestListPlaces_API(t *testing.T) {
	app := newTestApp(t)
	app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)
	app.place(t, "Cafe Jade", entities.PlaceCategoryCafe)
	hidden := &entities.Place{Name: "Draft Bar", Category: entities.PlaceCategoryBar}
	require.NoError(t, app.places.Create(hidden))

	w := app.get("/api/places?per_page=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	page := decode[placePage](t, w)
	assert.EqualValues(t, 2, page.Total)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, 1, page.PerPage)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasMore)
}

func TestListPlaces_RejectsUnknownCategory(t *testing.T) {
	app := newTestApp(t)

	w := app.get("/api/places?category=spaceport", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPlace_HidesUnpublished(t *testing.T) {
	app := newTestApp(t)
	draft := &entities.Place{Name: "Draft Bar", Category: entities.PlaceCategoryBar}
	require.NoError(t, app.places.Create(draft))

	w := app.get("/api/places/"+uintStr(draft.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, adminToken := app.user(t, "admin", entities.UserRoleAdmin)
	w = app.get("/api/places/"+uintStr(draft.ID), adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPlacePage_NotFound(t *testing.T) {
	app := newTestApp(t)

	w := app.get("/places/nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
