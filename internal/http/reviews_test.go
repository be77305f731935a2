package http

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choplife/choplifeib/internal/entities"
)

type reviewResponse struct {
	Review  entities.Review `json:"review"`
	Created bool            `json:"created"`
}

func TestSubmitReview_CreatesThenUpdates(t *testing.T) {
	app := newTestApp(t)
	place := app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)
	_, token := app.user(t, "tolu", entities.UserRoleVerifiedReviewer)

	w := app.postJSON(t, http.MethodPost, "/api/reviews", token, gin.H{
		"listing_type": "place",
		"listing_id":   place.ID,
		"rating":       5,
		"title":        "Best amala in town",
		"body":         "The gbegiri is unreal.",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[reviewResponse](t, w)
	assert.True(t, created.Created)
	assert.True(t, created.Review.IsVerified)

	refreshed, err := app.places.GetByID(place.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.ReviewCount)
	assert.InDelta(t, 5.0, refreshed.RatingAverage, 0.001)

	w = app.postJSON(t, http.MethodPost, "/api/reviews", token, gin.H{
		"listing_type": "place",
		"listing_id":   place.ID,
		"rating":       3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[reviewResponse](t, w)
	assert.False(t, updated.Created)
	assert.Equal(t, created.Review.ID, updated.Review.ID)

	refreshed, err = app.places.GetByID(place.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.ReviewCount)
	assert.InDelta(t, 3.0, refreshed.RatingAverage, 0.001)
}

func TestSubmitReview_Validation(t *testing.T) {
	app := newTestApp(t)
	place := app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)
	_, token := app.user(t, "tolu", entities.UserRoleUser)

	tests := []struct {
		name   string
		body   gin.H
		status int
	}{
		{"rating too high", gin.H{"listing_type": "place", "listing_id": place.ID, "rating": 6}, http.StatusBadRequest},
		{"missing rating", gin.H{"listing_type": "place", "listing_id": place.ID}, http.StatusBadRequest},
		{"unknown listing type", gin.H{"listing_type": "book", "listing_id": place.ID, "rating": 4}, http.StatusBadRequest},
		{"missing listing", gin.H{"listing_type": "event", "listing_id": 404, "rating": 4}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.postJSON(t, http.MethodPost, "/api/reviews", token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestListReviews_PublicAuthorName(t *testing.T) {
	app := newTestApp(t)
	place := app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)
	_, token := app.user(t, "tolu", entities.UserRoleUser)

	w := app.postJSON(t, http.MethodPost, "/api/reviews", token, gin.H{
		"listing_type": "place", "listing_id": place.ID, "rating": 4, "body": "Lovely",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = app.get("/api/places/"+uintStr(place.ID)+"/reviews", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"author":"tolu"`)
	assert.NotContains(t, w.Body.String(), "tolu@example.com")
}

func TestDeleteReview_OnlyOwner(t *testing.T) {
	app := newTestApp(t)
	place := app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)
	_, owner := app.user(t, "tolu", entities.UserRoleUser)
	_, other := app.user(t, "bisi", entities.UserRoleUser)

	w := app.postJSON(t, http.MethodPost, "/api/reviews", owner, gin.H{
		"listing_type": "place", "listing_id": place.ID, "rating": 4,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[reviewResponse](t, w).Review.ID

	w = app.do(request{method: http.MethodDelete, path: "/api/reviews/" + uintStr(id), token: other})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(request{method: http.MethodDelete, path: "/api/reviews/" + uintStr(id), token: owner})
	assert.Equal(t, http.StatusOK, w.Code)

	refreshed, err := app.places.GetByID(place.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, refreshed.ReviewCount)
}
