// Package reviews provides database operations for listing reviews.
//
// A user holds at most one review per listing; writing again updates it.
package reviews

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/database"
	"github.com/choplife/choplifeib/internal/entities"
)

var (
	ErrNotFound        = errors.New("review not found")
	ErrNotOwner        = errors.New("review belongs to another user")
	ErrInvalidRating   = fmt.Errorf("rating must be between %d and %d", entities.MinRating, entities.MaxRating)
	ErrBodyTooLong     = fmt.Errorf("review must be at most %d characters", entities.MaxReviewBodyLen)
	ErrInvalidStatus   = errors.New("invalid review status")
	ErrListingNotFound = errors.New("listing not found")
)

type Filter struct {
	Status      entities.ReviewStatus
	ListingType entities.ListingType
	ListingID   uint
	UserID      uint
	Limit       int
	Offset      int
}

// Repository handles all review database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reviews repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert stores the user's review for a listing, updating the existing one
// when present. IsVerified is derived from the author's current role.
// Returns true when a new review was created.
func (r *Repository) Upsert(review *entities.Review) (bool, error) {
	if review.Rating < entities.MinRating || review.Rating > entities.MaxRating {
		return false, ErrInvalidRating
	}
	review.Title = strings.TrimSpace(review.Title)
	review.Body = strings.TrimSpace(review.Body)
	if len([]rune(review.Body)) > entities.MaxReviewBodyLen {
		return false, ErrBodyTooLong
	}

	exists, err := database.ListingExists(r.db, review.Listing())
	if err != nil {
		return false, fmt.Errorf("failed to check listing: %w", err)
	}
	if !exists {
		return false, ErrListingNotFound
	}

	var author entities.User
	if err := r.db.Select("id", "role").First(&author, review.UserID).Error; err != nil {
		return false, fmt.Errorf("failed to load author: %w", err)
	}
	review.IsVerified = author.Role == entities.UserRoleVerifiedReviewer

	var existing entities.Review
	err = r.db.Where("user_id = ? AND listing_type = ? AND listing_id = ?",
		review.UserID, review.ListingType, review.ListingID).First(&existing).Error
	switch {
	case err == nil:
		err = r.db.Model(&existing).Updates(map[string]any{
			"rating":      review.Rating,
			"title":       review.Title,
			"body":        review.Body,
			"is_verified": review.IsVerified,
			"updated_at":  time.Now(),
		}).Error
		if err != nil {
			return false, fmt.Errorf("failed to update review: %w", err)
		}
		review.ID = existing.ID
		review.Status = existing.Status
		review.CreatedAt = existing.CreatedAt
		return false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if review.Status == "" {
			review.Status = entities.ReviewStatusPublished
		}
		if err := r.db.Omit("User").Create(review).Error; err != nil {
			return false, fmt.Errorf("failed to create review: %w", err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("failed to look up review: %w", err)
	}
}

func (r *Repository) GetByID(id uint) (*entities.Review, error) {
	var review entities.Review
	if err := r.db.Preload("User").First(&review, id).Error; err != nil {
		return nil, translate(err)
	}
	return &review, nil
}

// GetForUser returns the user's own review of a listing, if any.
func (r *Repository) GetForUser(userID uint, ref entities.ListingRef) (*entities.Review, error) {
	var review entities.Review
	err := r.db.Where("user_id = ? AND listing_type = ? AND listing_id = ?", userID, ref.Type, ref.ID).
		First(&review).Error
	if err != nil {
		return nil, translate(err)
	}
	return &review, nil
}

// ListForListing returns published reviews of a listing, newest first.
func (r *Repository) ListForListing(ref entities.ListingRef, limit, offset int) ([]entities.Review, int64, error) {
	return r.ListAll(Filter{
		Status:      entities.ReviewStatusPublished,
		ListingType: ref.Type,
		ListingID:   ref.ID,
		Limit:       limit,
		Offset:      offset,
	})
}

// ListAll returns reviews for the moderation queue, newest first.
func (r *Repository) ListAll(filter Filter) ([]entities.Review, int64, error) {
	query := r.db.Model(&entities.Review{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ListingType != "" {
		query = query.Where("listing_type = ?", filter.ListingType)
	}
	if filter.ListingID > 0 {
		query = query.Where("listing_id = ?", filter.ListingID)
	}
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	query = query.Preload("User").Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var reviews []entities.Review
	if err := query.Find(&reviews).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, total, nil
}

// SetStatus publishes or hides a review and returns it.
func (r *Repository) SetStatus(id uint, status entities.ReviewStatus) (*entities.Review, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	review, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := r.db.Model(review).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update review status: %w", err)
	}
	review.Status = status
	return review, nil
}

// Delete removes a review and returns what was deleted.
func (r *Repository) Delete(id uint) (*entities.Review, error) {
	review, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := r.db.Delete(&entities.Review{}, id).Error; err != nil {
		return nil, fmt.Errorf("failed to delete review: %w", err)
	}
	return review, nil
}

// DeleteOwn removes a review only when userID wrote it.
func (r *Repository) DeleteOwn(id, userID uint) (*entities.Review, error) {
	review, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, ErrNotOwner
	}
	if err := r.db.Delete(&entities.Review{}, id).Error; err != nil {
		return nil, fmt.Errorf("failed to delete review: %w", err)
	}
	return review, nil
}

// RatingSummary computes average, count and star histogram over published reviews.
func (r *Repository) RatingSummary(ref entities.ListingRef) (*entities.RatingSummary, error) {
	var rows []struct {
		Rating int
		Count  int64
	}
	err := r.db.Model(&entities.Review{}).
		Select("rating, COUNT(*) AS count").
		Where("listing_type = ? AND listing_id = ? AND status = ?", ref.Type, ref.ID, entities.ReviewStatusPublished).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarise ratings: %w", err)
	}

	summary := &entities.RatingSummary{Listing: ref}
	var sum int64
	for _, row := range rows {
		if row.Rating < entities.MinRating || row.Rating > entities.MaxRating {
			continue
		}
		summary.Histogram[row.Rating-1] = row.Count
		summary.Count += row.Count
		sum += int64(row.Rating) * row.Count
	}
	if summary.Count > 0 {
		summary.Average = float64(sum) / float64(summary.Count)
	}
	return summary, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
