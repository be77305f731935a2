package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/geocoding"
	"github.com/choplife/choplifeib/internal/logging"
)

// Geocoder resolves coordinates and addresses.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (*geocoding.Location, error)
	Search(ctx context.Context, query string, limit int) ([]geocoding.Candidate, error)
}

type GeocodeController struct {
	geocoder Geocoder
}

func NewGeocodeController(geocoder Geocoder) *GeocodeController {
	return &GeocodeController{geocoder: geocoder}
}

// Reverse returns the address at a coordinate.
// GET /api/geocode/reverse?lat=&lon=
func (gc *GeocodeController) Reverse(c *gin.Context) {
	lat, ok := parseFloatQuery(c, "lat")
	if !ok {
		return
	}
	lon, ok := parseFloatQuery(c, "lon")
	if !ok {
		return
	}

	loc, err := gc.geocoder.ReverseGeocode(c.Request.Context(), lat, lon)
	if err != nil {
		gc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// Search returns candidate places for a free-text address.
// GET /api/geocode/search?q=&limit=
func (gc *GeocodeController) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	candidates, err := gc.geocoder.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		gc.respondError(c, err)
		return
	}
	if candidates == nil {
		candidates = []geocoding.Candidate{}
	}
	c.JSON(http.StatusOK, gin.H{"results": candidates})
}

func (gc *GeocodeController) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, geocoding.ErrInvalidCoordinates), errors.Is(err, geocoding.ErrQueryTooShort):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: capitalize(err.Error()), Code: "bad_request"})
	case errors.Is(err, geocoding.ErrNoResult):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No location found for that point", Code: "not_found"})
	default:
		logging.Component("geocoding").Warn().Err(err).Msg("geocoding request failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: "The location service is unavailable right now. Please try again shortly.",
			Code:  "upstream",
		})
	}
}
