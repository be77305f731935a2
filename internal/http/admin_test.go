package http

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choplife/choplifeib/internal/database/places"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/storage"
)

func TestAdmin_RejectsMembers(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "tolu", entities.UserRoleUser)

	w := app.get("/api/admin/users", token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.get("/admin", token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.get("/admin", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/login"))
}

func TestAdmin_CreatePlace(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "admin", entities.UserRoleAdmin)

	w := app.postForm("/admin/places", token, url.Values{
		"name":         {"Amala Skye"},
		"category":     {"restaurant"},
		"area":         {"Bodija"},
		"latitude":     {"7.4352"},
		"longitude":    {"3.9133"},
		"price_range":  {"1"},
		"is_published": {"true"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

	list, total, err := app.places.List(places.Filter{IncludeUnpublished: true})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	place := list[0]
	assert.Equal(t, "amala-skye", place.Slug)
	assert.True(t, place.IsPublished)
	require.True(t, place.HasCoordinates())
	assert.InDelta(t, 7.4352, *place.Latitude, 1e-6)
	assert.Equal(t, "/admin/places/"+uintStr(place.ID)+"/edit?notice=Place+created", w.Header().Get("Location"))
}

func TestAdmin_CreatePlaceValidation(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "admin", entities.UserRoleAdmin)

	w := app.postForm("/admin/places", token, url.Values{"name": {"No Category"}, "category": {"spaceport"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No Category")

	_, total, err := app.places.List(places.Filter{IncludeUnpublished: true})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAdmin_SetRole(t *testing.T) {
	app := newTestApp(t)
	admin, token := app.user(t, "admin", entities.UserRoleAdmin)
	member, _ := app.user(t, "bisi", entities.UserRoleUser)

	w := app.postJSON(t, http.MethodPatch, "/api/admin/users/"+uintStr(member.ID)+"/role", token,
		gin.H{"role": "verified_reviewer"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entities.UserRoleVerifiedReviewer, decode[entities.User](t, w).Role)

	stored, err := app.users.GetByID(member.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleVerifiedReviewer, stored.Role)

	w = app.postJSON(t, http.MethodPatch, "/api/admin/users/"+uintStr(admin.ID)+"/role", token,
		gin.H{"role": "user"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "admins cannot demote themselves")

	w = app.postJSON(t, http.MethodPatch, "/api/admin/users/"+uintStr(member.ID)+"/role", token,
		gin.H{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.postJSON(t, http.MethodPatch, "/api/admin/users/9999/role", token, gin.H{"role": "user"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_RoleChangeAppliesToNextRequest(t *testing.T) {
	app := newTestApp(t)
	_, adminToken := app.user(t, "admin", entities.UserRoleAdmin)
	member, token := app.user(t, "bisi", entities.UserRoleUser)

	assert.Equal(t, http.StatusForbidden, app.get("/api/admin/users", token).Code)

	w := app.postJSON(t, http.MethodPatch, "/api/admin/users/"+uintStr(member.ID)+"/role", adminToken,
		gin.H{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusOK, app.get("/api/admin/users", token).Code)
}

func TestAdmin_GalleryURL(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "admin", entities.UserRoleAdmin)
	place := app.place(t, "Agodi Gardens", entities.PlaceCategoryPark)
	path := "/admin/places/" + uintStr(place.ID) + "/gallery"

	w := app.postForm(path, token, url.Values{"url": {"https://images.example/agodi.jpg"}, "caption": {"The lake"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	image := decode[entities.GalleryImage](t, w)
	assert.Equal(t, "https://images.example/agodi.jpg", image.URL)
	assert.Empty(t, image.StorageKey)

	list, err := app.gallery.ListFor(place.Ref())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "The lake", list[0].Caption)

	w = app.postForm(path, token, url.Values{"url": {"ftp://images.example/agodi.jpg"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.postForm("/admin/places/9999/gallery", token, url.Values{"url": {"https://images.example/x.jpg"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_GalleryCaptionKeepsWholeRunes(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "admin", entities.UserRoleAdmin)
	place := app.place(t, "Oja Oba", entities.PlaceCategoryRestaurant)

	// "ọ" is two bytes, so a byte cut at 300 would split a rune
	caption := "a" + strings.Repeat("ọ", maxCaptionLength)
	w := app.postForm("/admin/places/"+uintStr(place.ID)+"/gallery", token,
		url.Values{"url": {"https://images.example/oja.jpg"}, "caption": {caption}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	list, err := app.gallery.ListFor(place.Ref())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, utf8.ValidString(list[0].Caption))
	assert.Equal(t, maxCaptionLength, utf8.RuneCountInString(list[0].Caption))
	assert.Equal(t, "a"+strings.Repeat("ọ", maxCaptionLength-1), list[0].Caption)
}

func TestAdmin_GalleryRequiresImageSource(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "admin", entities.UserRoleAdmin)
	place := app.place(t, "Agodi Gardens", entities.PlaceCategoryPark)

	w := app.postForm("/admin/places/"+uintStr(place.ID)+"/gallery", token, url.Values{"caption": {"No image"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Choose an image file")
}

func TestIsUploadError(t *testing.T) {
	assert.True(t, isUploadError(storage.ErrTooLarge))
	assert.True(t, isUploadError(fmt.Errorf("prepare: %w", storage.ErrUnsupportedType)))
	assert.True(t, isUploadError(errImageURLScheme))
	assert.True(t, isUploadError(errNoImageSource))

	assert.False(t, isUploadError(errors.New("Choose a different disk: no space left")))
	assert.False(t, isUploadError(errors.New("Uploads bucket unreachable")))
	assert.False(t, isUploadError(fmt.Errorf("store upload: %w", errors.New("timeout"))))
}

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func multipartImage(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("caption", "Dance floor"))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAdmin_GalleryUpload(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "admin", entities.UserRoleAdmin)
	event := app.event(t, "Afrobeats Saturday", testNow.Add(72*time.Hour))

	body, contentType := multipartImage(t, "floor.png", pngHeader)
	w := app.do(request{
		method:  http.MethodPost,
		path:    "/admin/events/" + uintStr(event.ID) + "/gallery",
		token:   token,
		body:    body,
		headers: map[string]string{"Content-Type": contentType},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	image := decode[entities.GalleryImage](t, w)
	assert.True(t, strings.HasPrefix(image.URL, "/uploads/gallery/"))
	assert.True(t, strings.HasSuffix(image.URL, ".png"))

	list, err := app.gallery.ListFor(event.Ref())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, strings.TrimPrefix(image.URL, "/uploads/"), list[0].StorageKey)
	assert.Equal(t, "Dance floor", list[0].Caption)

	served := app.get(image.URL, "")
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, pngHeader, served.Body.Bytes())
}

func TestAdmin_GalleryUploadRejectsNonImages(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "admin", entities.UserRoleAdmin)
	place := app.place(t, "Agodi Gardens", entities.PlaceCategoryPark)

	body, contentType := multipartImage(t, "notes.png", []byte("just some text"))
	w := app.do(request{
		method:  http.MethodPost,
		path:    "/admin/places/" + uintStr(place.ID) + "/gallery",
		token:   token,
		body:    body,
		headers: map[string]string{"Content-Type": contentType},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_ReviewModeration(t *testing.T) {
	app := newTestApp(t)
	_, adminToken := app.user(t, "admin", entities.UserRoleAdmin)
	_, token := app.user(t, "tolu", entities.UserRoleUser)
	place := app.place(t, "Amala Skye", entities.PlaceCategoryRestaurant)

	w := app.postJSON(t, http.MethodPost, "/api/reviews", token, gin.H{
		"listing_type": "place", "listing_id": place.ID, "rating": 1, "body": "spam spam",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[reviewResponse](t, w).Review.ID

	w = app.postForm("/admin/reviews/"+uintStr(id)+"/status", adminToken, url.Values{"status": {"hidden"}})
	require.Less(t, w.Code, 400, w.Body.String())

	refreshed, err := app.places.GetByID(place.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, refreshed.ReviewCount)

	w = app.get("/api/places/"+uintStr(place.ID)+"/reviews", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "spam spam")
}
