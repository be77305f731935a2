// Package favourites provides database operations for per-user favourites
// of places and events.
//
// # Usage
//
//	repo := favourites.NewRepository(db)
//	on, err := repo.Toggle(userID, entities.ListingRef{Type: entities.ListingTypePlace, ID: 7})
package favourites

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/choplife/choplifeib/internal/database"
	"github.com/choplife/choplifeib/internal/entities"
)

var ErrListingNotFound = errors.New("listing not found")

// Repository handles all favourites database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new favourites repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add marks a listing as a favourite. Adding twice is not an error.
func (r *Repository) Add(userID uint, ref entities.ListingRef) error {
	exists, err := database.ListingExists(r.db, ref)
	if err != nil {
		return fmt.Errorf("failed to check listing: %w", err)
	}
	if !exists {
		return ErrListingNotFound
	}

	fav := entities.Favourite{UserID: userID, ListingType: ref.Type, ListingID: ref.ID}
	err = r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&fav).Error
	if err != nil {
		return fmt.Errorf("failed to add favourite: %w", err)
	}
	return nil
}

// Remove unmarks a listing. Removing a missing favourite is not an error.
func (r *Repository) Remove(userID uint, ref entities.ListingRef) error {
	err := r.db.Where("user_id = ? AND listing_type = ? AND listing_id = ?", userID, ref.Type, ref.ID).
		Delete(&entities.Favourite{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove favourite: %w", err)
	}
	return nil
}

// Toggle flips the favourite state and returns the new state.
func (r *Repository) Toggle(userID uint, ref entities.ListingRef) (bool, error) {
	on, err := r.IsFavourite(userID, ref)
	if err != nil {
		return false, err
	}
	if on {
		return false, r.Remove(userID, ref)
	}
	return true, r.Add(userID, ref)
}

func (r *Repository) IsFavourite(userID uint, ref entities.ListingRef) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Favourite{}).
		Where("user_id = ? AND listing_type = ? AND listing_id = ?", userID, ref.Type, ref.ID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check favourite: %w", err)
	}
	return count > 0, nil
}

// FavouriteSet reports which of ids the user has favourited.
func (r *Repository) FavouriteSet(userID uint, listingType entities.ListingType, ids []uint) (map[uint]bool, error) {
	set := make(map[uint]bool, len(ids))
	if userID == 0 || len(ids) == 0 {
		return set, nil
	}

	var found []uint
	err := r.db.Model(&entities.Favourite{}).
		Where("user_id = ? AND listing_type = ? AND listing_id IN ?", userID, listingType, ids).
		Pluck("listing_id", &found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load favourites: %w", err)
	}
	for _, id := range found {
		set[id] = true
	}
	return set, nil
}

// ListPlaces returns the user's favourite places, most recently added first.
func (r *Repository) ListPlaces(userID uint, limit, offset int) ([]entities.Place, int64, error) {
	var places []entities.Place
	total, err := r.listJoined(&entities.Place{}, &places, entities.ListingTypePlace, userID, limit, offset)
	return places, total, err
}

// ListEvents returns the user's favourite events, most recently added first.
func (r *Repository) ListEvents(userID uint, limit, offset int) ([]entities.Event, int64, error) {
	var events []entities.Event
	total, err := r.listJoined(&entities.Event{}, &events, entities.ListingTypeEvent, userID, limit, offset)
	return events, total, err
}

func (r *Repository) listJoined(model, dest any, listingType entities.ListingType, userID uint, limit, offset int) (int64, error) {
	table := listingType.Plural()
	query := r.db.Model(model).
		Joins(fmt.Sprintf("JOIN favourites f ON f.listing_id = %s.id AND f.listing_type = ?", table), listingType).
		Where("f.user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count favourites: %w", err)
	}

	query = query.Select(table + ".*").Order("f.created_at DESC").Order("f.id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(dest).Error; err != nil {
		return 0, fmt.Errorf("failed to list favourites: %w", err)
	}
	return total, nil
}

// Count returns how many listings the user has favourited.
func (r *Repository) Count(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Favourite{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
