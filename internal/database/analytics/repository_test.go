package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/database/dbtest"
	"github.com/choplife/choplifeib/internal/entities"
)

func seed(t *testing.T) (*gorm.DB, time.Time) {
	db := dbtest.New(t)
	now := time.Now()

	places := []entities.Place{
		{Name: "Amala Skye", Slug: "amala-skye", Category: entities.PlaceCategoryRestaurant, IsPublished: true},
		{Name: "Cafe Valerie", Slug: "cafe-valerie", Category: entities.PlaceCategoryCafe, IsPublished: true},
		{Name: "Bukka Hut", Slug: "bukka-hut", Category: entities.PlaceCategoryRestaurant, IsPublished: true},
	}
	require.NoError(t, db.Create(&places).Error)

	events := []entities.Event{
		{Title: "Past", Slug: "past", Category: entities.EventCategoryMusic, StartsAt: now.Add(-48 * time.Hour).UTC()},
		{Title: "Soon", Slug: "soon", Category: entities.EventCategoryComedy, StartsAt: now.Add(48 * time.Hour).UTC()},
	}
	require.NoError(t, db.Create(&events).Error)

	users := []entities.User{
		{Username: "admin", Email: "a@example.com", Role: entities.UserRoleAdmin},
		{Username: "kemi", Email: "k@example.com", Role: entities.UserRoleVerifiedReviewer},
		{Username: "tunde", Email: "t@example.com"},
	}
	require.NoError(t, db.Create(&users).Error)

	reviews := []entities.Review{
		{UserID: users[1].ID, ListingType: entities.ListingTypePlace, ListingID: places[0].ID, Rating: 5},
		{UserID: users[2].ID, ListingType: entities.ListingTypePlace, ListingID: places[0].ID, Rating: 4},
		{UserID: users[2].ID, ListingType: entities.ListingTypePlace, ListingID: places[1].ID, Rating: 4},
	}
	require.NoError(t, db.Omit("User").Create(&reviews).Error)

	favourites := []entities.Favourite{
		{UserID: users[1].ID, ListingType: entities.ListingTypePlace, ListingID: places[1].ID},
		{UserID: users[2].ID, ListingType: entities.ListingTypePlace, ListingID: places[1].ID},
		{UserID: users[2].ID, ListingType: entities.ListingTypePlace, ListingID: places[2].ID},
		{UserID: users[2].ID, ListingType: entities.ListingTypeEvent, ListingID: places[0].ID},
	}
	require.NoError(t, db.Create(&favourites).Error)

	return db, now
}

func TestRepository_Totals(t *testing.T) {
	db, now := seed(t)
	repo := NewRepository(db)

	totals, err := repo.Totals(now)
	require.NoError(t, err)
	assert.Equal(t, Totals{Places: 3, Events: 2, UpcomingEvents: 1, Users: 3, Reviews: 3, Favourites: 4}, totals)
}

func TestRepository_GroupedCountsAreZeroFilled(t *testing.T) {
	db, _ := seed(t)
	repo := NewRepository(db)

	ratings, err := repo.ReviewsByRating()
	require.NoError(t, err)
	assert.Equal(t, []LabelCount{
		{Label: "1", Count: 0},
		{Label: "2", Count: 0},
		{Label: "3", Count: 0},
		{Label: "4", Count: 2},
		{Label: "5", Count: 1},
	}, ratings)

	roles, err := repo.UsersByRole()
	require.NoError(t, err)
	assert.Equal(t, []LabelCount{
		{Label: "admin", Count: 1},
		{Label: "verified_reviewer", Count: 1},
		{Label: "user", Count: 1},
	}, roles)

	categories, err := repo.PlacesByCategory()
	require.NoError(t, err)
	require.Len(t, categories, len(entities.PlaceCategories))
	assert.Equal(t, LabelCount{Label: "restaurant", Count: 2}, categories[0])

	eventCategories, err := repo.EventsByCategory()
	require.NoError(t, err)
	assert.Len(t, eventCategories, len(entities.EventCategories))
}

func TestRepository_TopPlaces(t *testing.T) {
	db, _ := seed(t)
	repo := NewRepository(db)

	top, err := repo.TopPlaces(2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Cafe Valerie", top[0].Name)
	assert.Equal(t, int64(2), top[0].FavouriteCount)
	assert.Equal(t, "Bukka Hut", top[1].Name)
}

func TestRepository_SignupsPerDay(t *testing.T) {
	db, now := seed(t)
	repo := NewRepository(db)

	days, err := repo.SignupsPerDay(now, 7)
	require.NoError(t, err)
	require.Len(t, days, 7)

	assert.Equal(t, now.UTC().Format("2006-01-02"), days[6].Day)
	assert.Equal(t, int64(3), days[6].Count)
	for _, d := range days[:6] {
		assert.Zero(t, d.Count, d.Day)
	}
}

func TestRepository_Dashboard(t *testing.T) {
	db, now := seed(t)
	repo := NewRepository(db)

	d, err := repo.Dashboard(now, 14, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.Totals.Places)
	assert.Len(t, d.Signups, 14)
	assert.Len(t, d.TopPlaces, 3)
}

func TestZeroFill_KeepsUnknownLabels(t *testing.T) {
	got := zeroFill([]string{"a", "b"}, []LabelCount{{Label: "c", Count: 4}, {Label: "a", Count: 1}})
	assert.Equal(t, []LabelCount{{Label: "a", Count: 1}, {Label: "b", Count: 0}, {Label: "c", Count: 4}}, got)
}
