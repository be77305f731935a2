package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choplife/choplifeib/internal/database/favourites"
	"github.com/choplife/choplifeib/internal/entities"
)

func TestToggleFavourite_FlipsState(t *testing.T) {
	app := newTestApp(t)
	place := app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)
	_, token := app.user(t, "tolu", entities.UserRoleUser)
	path := "/api/favourites/place/" + uintStr(place.ID) + "/toggle"

	w := app.do(request{method: http.MethodPost, path: path, token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	state := decode[FavouriteState](t, w)
	assert.True(t, state.IsFavourite)
	assert.False(t, state.Reverted)

	refreshed, err := app.places.GetByID(place.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.FavouriteCount)

	w = app.do(request{method: http.MethodPost, path: path, token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[FavouriteState](t, w).IsFavourite)
}

func TestToggleFavourite_RequiresLogin(t *testing.T) {
	app := newTestApp(t)
	place := app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)

	w := app.do(request{method: http.MethodPost, path: "/api/favourites/place/" + uintStr(place.ID) + "/toggle"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestToggleFavourite_UnknownListing(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "tolu", entities.UserRoleUser)

	w := app.do(request{method: http.MethodPost, path: "/api/favourites/event/999/toggle", token: token})
	require.Equal(t, http.StatusNotFound, w.Code)
	state := decode[FavouriteState](t, w)
	assert.True(t, state.Reverted)
	assert.Equal(t, "not_found", state.Code)
}

func TestToggleFavourite_BadListingType(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "tolu", entities.UserRoleUser)

	w := app.do(request{method: http.MethodPost, path: "/api/favourites/book/1/toggle", token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFavouriteCount(t *testing.T) {
	app := newTestApp(t)
	place := app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)
	_, token := app.user(t, "tolu", entities.UserRoleUser)

	w := app.do(request{method: http.MethodPost, path: "/api/favourites/place/" + uintStr(place.ID), token: token})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.get("/api/favourites?type=place", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Amala Skye")

	w = app.get("/api/favourites/count", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":1}`, w.Body.String())
}

// failingFavourites reports the listing as saved but cannot change it.
type failingFavourites struct {
	FavouritesStore
	readErr error
}

func (f failingFavourites) IsFavourite(uint, entities.ListingRef) (bool, error) {
	if f.readErr != nil {
		return false, f.readErr
	}
	return true, nil
}

func (f failingFavourites) Toggle(uint, entities.ListingRef) (bool, error) {
	return false, errors.New("database is locked")
}

func toggleWith(store FavouritesStore, target string) *httptest.ResponseRecorder {
	fc := NewFavouritesController(store, nil, nil, 12)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, target, nil)
	c.Params = gin.Params{{Key: "listingType", Value: "place"}, {Key: "id", Value: "7"}}
	fc.ToggleFavourite(c)
	return w
}

func TestToggleFavourite_RevertsOnFailure(t *testing.T) {
	w := toggleWith(failingFavourites{}, "/api/favourites/place/7/toggle")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	state := decode[FavouriteState](t, w)
	assert.True(t, state.Reverted)
	assert.True(t, state.IsFavourite, "previous state is reported")
	assert.Equal(t, "internal", state.Code)
	assert.NotEmpty(t, state.Error)
}

func TestToggleFavourite_RevertsToPageStateWhenUnreadable(t *testing.T) {
	store := failingFavourites{readErr: favourites.ErrListingNotFound}
	w := toggleWith(store, "/api/favourites/place/7/toggle?current=true")

	require.Equal(t, http.StatusNotFound, w.Code)
	state := decode[FavouriteState](t, w)
	assert.True(t, state.Reverted)
	assert.True(t, state.IsFavourite)
}
