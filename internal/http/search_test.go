package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choplife/choplifeib/internal/entities"
)

func TestSearch_ShortQueryReturnsNothing(t *testing.T) {
	app := newTestApp(t)
	app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)

	w := app.get("/api/search?q=a", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[SearchResponse](t, w)
	assert.Equal(t, "a", resp.Query)
	assert.Empty(t, resp.Places)
	assert.Empty(t, resp.Events)
	assert.False(t, resp.Cached)
}

func TestSearch_FindsPlacesAndUpcomingEvents(t *testing.T) {
	app := newTestApp(t)
	place := app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)
	app.event(t, "Amala Festival", testNow.Add(48*time.Hour))
	app.event(t, "Amala Night Last Month", testNow.AddDate(0, -1, 0))

	w := app.get("/api/search?q=+AMALA++", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[SearchResponse](t, w)
	assert.Equal(t, "amala", resp.Query)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, place.ID, resp.Places[0].ID)
	assert.Equal(t, "/places/amala-skye", resp.Places[0].URL)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "Amala Festival", resp.Events[0].Name)
	assert.Equal(t, entities.ListingTypeEvent, resp.Events[0].Type)
}

func TestSearch_WildcardQueryMatchesLiterally(t *testing.T) {
	app := newTestApp(t)
	app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)
	app.event(t, "Amala Festival", testNow.Add(48*time.Hour))

	w := app.get("/api/search?q=%25%25", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[SearchResponse](t, w)
	assert.Equal(t, "%%", resp.Query)
	assert.Empty(t, resp.Places)
	assert.Empty(t, resp.Events)

	resp = decode[SearchResponse](t, app.get("/api/search?q=__", ""))
	assert.Empty(t, resp.Places)
	assert.Empty(t, resp.Events)
}

func TestSearch_RepeatQueryIsCached(t *testing.T) {
	app := newTestApp(t)
	app.place(t, "Cafe Jade", entities.PlaceCategoryCafe)

	first := decode[SearchResponse](t, app.get("/api/search?q=jade", ""))
	assert.False(t, first.Cached)

	// a place added after the first search is not visible until the entry expires
	app.place(t, "Jade Garden", entities.PlaceCategoryRestaurant)

	second := decode[SearchResponse](t, app.get("/api/search?q=Jade", ""))
	assert.True(t, second.Cached)
	assert.Len(t, second.Places, 1)
}

func TestSearch_RejectsLongQuery(t *testing.T) {
	app := newTestApp(t)

	long := make([]byte, maxSearchLength+1)
	for i := range long {
		long[i] = 'x'
	}
	w := app.get("/api/search?q="+string(long), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
