package demo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/choplife/choplifeib/internal/database/dbtest"
	"github.com/choplife/choplifeib/internal/database/events"
	"github.com/choplife/choplifeib/internal/entities"
)

func TestSeed(t *testing.T) {
	db := dbtest.New(t)
	// a Wednesday
	now := time.Date(2024, time.May, 15, 12, 0, 0, 0, events.Lagos)

	result, err := Seed(db, now, bcrypt.MinCost)
	require.NoError(t, err)

	assert.Equal(t, len(sampleUsers), result.Users)
	assert.Equal(t, len(samplePlaces), result.Places)
	assert.Equal(t, 4, result.Events)
	assert.Equal(t, len(sampleReviews), result.Reviews)
	assert.Equal(t, 1, result.Spotlights)

	repo := events.NewRepository(db)
	upcoming, total, err := repo.List(events.Filter{When: events.WhenUpcoming, Now: now})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, "Afrobeats Saturday", upcoming[0].Title)
	assert.Equal(t, time.Saturday, upcoming[0].StartsAt.In(events.Lagos).Weekday())

	var archived int64
	require.NoError(t, db.Model(&entities.Event{}).Where("is_archived = ?", true).Count(&archived).Error)
	assert.EqualValues(t, 1, archived)

	var amala entities.Place
	require.NoError(t, db.Where("name = ?", "Amala Skye").First(&amala).Error)
	assert.Equal(t, "amala-skye", amala.Slug)
	assert.EqualValues(t, 1, amala.ReviewCount)
	assert.InDelta(t, 5.0, amala.RatingAverage, 0.001)
}

func TestSeed_RefusesPopulatedDatabase(t *testing.T) {
	db := dbtest.New(t)
	now := time.Date(2024, time.May, 15, 12, 0, 0, 0, events.Lagos)

	_, err := Seed(db, now, bcrypt.MinCost)
	require.NoError(t, err)

	_, err = Seed(db, now, bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrAlreadySeeded)
}
