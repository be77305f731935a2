// Package gallery provides database operations for listing photos.
package gallery

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/entities"
)

var ErrNotFound = errors.New("gallery image not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListFor returns the images of a listing in display order.
func (r *Repository) ListFor(ref entities.ListingRef) ([]entities.GalleryImage, error) {
	var images []entities.GalleryImage
	err := r.db.Where("listing_type = ? AND listing_id = ?", ref.Type, ref.ID).
		Order("position ASC, id ASC").
		Find(&images).Error
	return images, err
}

// Add appends an image after the listing's current last position.
func (r *Repository) Add(image *entities.GalleryImage) error {
	var maxPos int
	err := r.db.Model(&entities.GalleryImage{}).
		Where("listing_type = ? AND listing_id = ?", image.ListingType, image.ListingID).
		Select("COALESCE(MAX(position), 0)").
		Row().Scan(&maxPos)
	if err != nil {
		return fmt.Errorf("failed to read gallery position: %w", err)
	}
	image.Position = maxPos + 1

	if err := r.db.Create(image).Error; err != nil {
		return fmt.Errorf("failed to add gallery image: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(id uint) (*entities.GalleryImage, error) {
	var image entities.GalleryImage
	if err := r.db.First(&image, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &image, nil
}

// Delete removes one image and returns it so its stored file can be removed.
func (r *Repository) Delete(id uint) (*entities.GalleryImage, error) {
	image, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := r.db.Delete(&entities.GalleryImage{}, id).Error; err != nil {
		return nil, fmt.Errorf("failed to delete gallery image: %w", err)
	}
	return image, nil
}
