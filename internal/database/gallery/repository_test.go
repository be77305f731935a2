package gallery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choplife/choplifeib/internal/database/dbtest"
	"github.com/choplife/choplifeib/internal/entities"
)

func TestRepository_AddAppendsPositions(t *testing.T) {
	repo := NewRepository(dbtest.New(t))
	ref := entities.ListingRef{Type: entities.ListingTypePlace, ID: 3}

	first := &entities.GalleryImage{ListingType: ref.Type, ListingID: ref.ID, URL: "/uploads/1.jpg"}
	second := &entities.GalleryImage{ListingType: ref.Type, ListingID: ref.ID, URL: "/uploads/2.jpg"}
	other := &entities.GalleryImage{ListingType: entities.ListingTypeEvent, ListingID: 3, URL: "/uploads/e.jpg"}
	require.NoError(t, repo.Add(first))
	require.NoError(t, repo.Add(second))
	require.NoError(t, repo.Add(other))

	assert.Equal(t, 1, first.Position)
	assert.Equal(t, 2, second.Position)
	assert.Equal(t, 1, other.Position)

	images, err := repo.ListFor(ref)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "/uploads/1.jpg", images[0].URL)
}

func TestRepository_DeleteReturnsImage(t *testing.T) {
	repo := NewRepository(dbtest.New(t))

	image := &entities.GalleryImage{ListingType: entities.ListingTypePlace, ListingID: 1, URL: "u", StorageKey: "gallery/abc.jpg"}
	require.NoError(t, repo.Add(image))

	deleted, err := repo.Delete(image.ID)
	require.NoError(t, err)
	assert.Equal(t, "gallery/abc.jpg", deleted.StorageKey)

	_, err = repo.Delete(image.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
