package http

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choplife/choplifeib/internal/entities"
)

func TestReadOnly_BlocksWrites(t *testing.T) {
	app := newTestApp(t, withReadOnly())
	place := app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)
	_, token := app.user(t, "tolu", entities.UserRoleUser)

	w := app.postJSON(t, http.MethodPost, "/api/reviews", token, gin.H{
		"listing_type": "place", "listing_id": place.ID, "rating": 5,
	})
	require.Equal(t, http.StatusForbidden, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "read_only", body["code"])
	assert.Equal(t, true, body["read_only"])

	w = app.do(request{
		method:  http.MethodPost,
		path:    "/profile",
		body:    nil,
		headers: map[string]string{"Referer": "http://example.com/places/amala-skye"},
	})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/places/amala-skye", loc.Path)
	assert.NotEmpty(t, loc.Query().Get("error"))
}

func TestReadOnly_AllowsReads(t *testing.T) {
	app := newTestApp(t, withReadOnly())
	app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)

	w := app.get("/places", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "read-only mode")

	w = app.get("/api/places", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
