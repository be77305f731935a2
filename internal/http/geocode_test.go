package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choplife/choplifeib/internal/geocoding"
)

type fakeGeocoder struct {
	location   *geocoding.Location
	candidates []geocoding.Candidate
	err        error
	lastLimit  int
}

func (f *fakeGeocoder) ReverseGeocode(_ context.Context, lat, lon float64) (*geocoding.Location, error) {
	if f.err != nil {
		return nil, f.err
	}
	loc := *f.location
	loc.Latitude, loc.Longitude = lat, lon
	return &loc, nil
}

func (f *fakeGeocoder) Search(_ context.Context, _ string, limit int) ([]geocoding.Candidate, error) {
	f.lastLimit = limit
	return f.candidates, f.err
}

func geocodeRouter(g Geocoder) *gin.Engine {
	gc := NewGeocodeController(g)
	r := gin.New()
	r.GET("/api/geocode/reverse", gc.Reverse)
	r.GET("/api/geocode/search", gc.Search)
	return r
}

func serve(r *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestGeocode_Reverse(t *testing.T) {
	g := &fakeGeocoder{location: &geocoding.Location{DisplayName: "Bodija Market, Ibadan", Area: "Bodija", City: "Ibadan"}}
	r := geocodeRouter(g)

	w := serve(r, "/api/geocode/reverse?lat=7.4352&lon=3.9133")
	require.Equal(t, http.StatusOK, w.Code)
	loc := decode[geocoding.Location](t, w)
	assert.Equal(t, "Bodija", loc.Area)
	assert.InDelta(t, 7.4352, loc.Latitude, 1e-9)

	w = serve(r, "/api/geocode/reverse?lat=north&lon=3.9")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGeocode_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{geocoding.ErrInvalidCoordinates, http.StatusBadRequest, "bad_request"},
		{geocoding.ErrNoResult, http.StatusNotFound, "not_found"},
		{errors.New("connection refused"), http.StatusBadGateway, "upstream"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			r := geocodeRouter(&fakeGeocoder{err: tt.err})
			w := serve(r, "/api/geocode/reverse?lat=91&lon=3.9")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestGeocode_Search(t *testing.T) {
	g := &fakeGeocoder{candidates: []geocoding.Candidate{{DisplayName: "Cocoa Mall, Dugbe", Latitude: 7.38, Longitude: 3.88}}}
	r := geocodeRouter(g)

	w := serve(r, "/api/geocode/search?q=cocoa+mall&limit=3")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, g.lastLimit)
	body := decode[struct {
		Results []geocoding.Candidate `json:"results"`
	}](t, w)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Cocoa Mall, Dugbe", body.Results[0].DisplayName)

	g.candidates = nil
	w = serve(r, "/api/geocode/search?q=nowhere")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[]}`, w.Body.String())
}
