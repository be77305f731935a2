package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/geocoding"
	"github.com/choplife/choplifeib/internal/logging"
)

// PlaceLocator loads places and stores their coordinates.
type PlaceLocator interface {
	GetByID(id uint) (*entities.Place, error)
	SetCoordinates(id uint, lat, lng float64) error
}

// Geocoder resolves a free-form address.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocoding.Candidate, error)
}

// GeocodePlaceTask fills in coordinates for a place saved without them.
type GeocodePlaceTask struct {
	PlaceID uint `json:"place_id"`
}

func (t GeocodePlaceTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "geocode_place",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PlaceAddressQuery builds the geocoder query for a place, anchored to Ibadan.
func PlaceAddressQuery(place *entities.Place) string {
	parts := []string{strings.TrimSpace(place.Address)}
	if area := strings.TrimSpace(place.Area); area != "" && !strings.Contains(strings.ToLower(place.Address), strings.ToLower(area)) {
		parts = append(parts, area)
	}
	if !strings.Contains(strings.ToLower(place.Address), "ibadan") {
		parts = append(parts, "Ibadan")
	}
	return strings.Join(parts, ", ")
}

func GeocodePlaceProcessor(places PlaceLocator, geocoder Geocoder) backlite.QueueProcessor[GeocodePlaceTask] {
	logger := logging.Component("tasks")
	return func(ctx context.Context, task GeocodePlaceTask) error {
		if places == nil || geocoder == nil {
			return errors.New("geocoding not configured")
		}

		place, err := places.GetByID(task.PlaceID)
		if err != nil {
			return fmt.Errorf("load place %d: %w", task.PlaceID, err)
		}
		if place.HasCoordinates() || strings.TrimSpace(place.Address) == "" {
			return nil
		}

		hit, err := geocoder.Geocode(ctx, PlaceAddressQuery(place))
		if errors.Is(err, geocoding.ErrNoResult) {
			// retrying will not find anything new
			logger.Warn().Uint("place_id", place.ID).Str("address", place.Address).Msg("no geocoding match for place")
			return nil
		}
		if err != nil {
			return fmt.Errorf("geocode place %d: %w", place.ID, err)
		}

		if err := places.SetCoordinates(place.ID, hit.Latitude, hit.Longitude); err != nil {
			return fmt.Errorf("store coordinates for place %d: %w", place.ID, err)
		}

		logger.Info().Uint("place_id", place.ID).Float64("lat", hit.Latitude).Float64("lng", hit.Longitude).Msg("geocoded place")
		return nil
	}
}

func NewGeocodePlaceQueue(places PlaceLocator, geocoder Geocoder) backlite.Queue {
	return backlite.NewQueue(GeocodePlaceProcessor(places, geocoder))
}
