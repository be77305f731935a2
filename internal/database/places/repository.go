// Package places provides database operations for place listings.
//
// # Usage
//
//	repo := places.NewRepository(db)
//	list, total, err := repo.List(places.Filter{Category: entities.PlaceCategoryBar, Limit: 12})
package places

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/database"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/utils"
)

var ErrNotFound = errors.New("place not found")

type Sort string

const (
	SortNewest  Sort = "newest"
	SortRating  Sort = "rating"
	SortName    Sort = "name"
	SortPopular Sort = "popular"
)

// ParseSort falls back to SortNewest for unknown values.
func ParseSort(s string) Sort {
	switch Sort(s) {
	case SortRating, SortName, SortPopular:
		return Sort(s)
	}
	return SortNewest
}

// Filter narrows a place listing. Zero values mean "no constraint".
type Filter struct {
	Category           entities.PlaceCategory
	Query              string
	Area               string
	FeaturedOnly       bool
	IncludeUnpublished bool
	Sort               Sort
	Limit              int
	Offset             int
}

// CategoryCount is the number of published places in one category.
type CategoryCount struct {
	Category entities.PlaceCategory `json:"category"`
	Count    int64                  `json:"count"`
}

// Repository handles all place database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new places repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns one page of places matching the filter and the total match count.
func (r *Repository) List(filter Filter) ([]entities.Place, int64, error) {
	query := r.db.Model(&entities.Place{})

	if !filter.IncludeUnpublished {
		query = query.Where("is_published = ?", true)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Area != "" {
		query = query.Where("LOWER(area) = ?", strings.ToLower(strings.TrimSpace(filter.Area)))
	}
	if filter.FeaturedOnly {
		query = query.Where("is_featured = ?", true)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := database.ContainsPattern(q)
		query = query.Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(area) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\'", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count places: %w", err)
	}

	switch filter.Sort {
	case SortRating:
		query = query.Order("rating_average DESC").Order("review_count DESC")
	case SortName:
		query = query.Order("name ASC")
	case SortPopular:
		query = query.Order("favourite_count DESC").Order("review_count DESC")
	default:
		query = query.Order("created_at DESC")
	}
	query = query.Order("id DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var places []entities.Place
	if err := query.Find(&places).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list places: %w", err)
	}
	return places, total, nil
}

// GetByID returns a place without its gallery.
func (r *Repository) GetByID(id uint) (*entities.Place, error) {
	var place entities.Place
	if err := r.db.First(&place, id).Error; err != nil {
		return nil, translate(err)
	}
	return &place, nil
}

// GetBySlug returns a place with its gallery loaded.
func (r *Repository) GetBySlug(slug string) (*entities.Place, error) {
	var place entities.Place
	if err := r.db.Where("slug = ?", slug).First(&place).Error; err != nil {
		return nil, translate(err)
	}

	err := r.db.Where("listing_type = ? AND listing_id = ?", entities.ListingTypePlace, place.ID).
		Order("position ASC, id ASC").
		Find(&place.Gallery).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}
	return &place, nil
}

// GetByIDs returns the places with the given ids, in no particular order.
func (r *Repository) GetByIDs(ids []uint) ([]entities.Place, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var places []entities.Place
	err := r.db.Where("id IN ?", ids).Find(&places).Error
	return places, err
}

// Create inserts a place, deriving a unique slug from its name when none is set.
func (r *Repository) Create(place *entities.Place) error {
	slug, err := r.uniqueSlug(place.Slug, place.Name, 0)
	if err != nil {
		return err
	}
	place.Slug = slug

	if err := r.db.Create(place).Error; err != nil {
		return fmt.Errorf("failed to create place: %w", err)
	}
	return nil
}

// Update saves every column of an existing place.
func (r *Repository) Update(place *entities.Place) error {
	if _, err := r.GetByID(place.ID); err != nil {
		return err
	}

	slug, err := r.uniqueSlug(place.Slug, place.Name, place.ID)
	if err != nil {
		return err
	}
	place.Slug = slug

	if err := r.db.Save(place).Error; err != nil {
		return fmt.Errorf("failed to update place: %w", err)
	}
	return nil
}

// Delete removes a place together with its favourites, reviews and gallery
// rows. Events held at the place keep existing without a venue link.
func (r *Repository) Delete(id uint) error {
	ref := []any{entities.ListingTypePlace, id}

	if err := r.db.Where("listing_type = ? AND listing_id = ?", ref...).Delete(&entities.Favourite{}).Error; err != nil {
		return fmt.Errorf("failed to delete favourites: %w", err)
	}
	if err := r.db.Where("listing_type = ? AND listing_id = ?", ref...).Delete(&entities.Review{}).Error; err != nil {
		return fmt.Errorf("failed to delete reviews: %w", err)
	}
	if err := r.db.Where("listing_type = ? AND listing_id = ?", ref...).Delete(&entities.GalleryImage{}).Error; err != nil {
		return fmt.Errorf("failed to delete gallery: %w", err)
	}
	if err := r.db.Model(&entities.Event{}).Where("place_id = ?", id).Update("place_id", nil).Error; err != nil {
		return fmt.Errorf("failed to detach events: %w", err)
	}

	result := r.db.Delete(&entities.Place{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete place: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Categories returns every category in display order with its published count.
func (r *Repository) Categories() ([]CategoryCount, error) {
	var rows []CategoryCount
	err := r.db.Model(&entities.Place{}).
		Select("category, COUNT(*) AS count").
		Where("is_published = ?", true).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}

	counts := make(map[entities.PlaceCategory]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Count
	}

	result := make([]CategoryCount, 0, len(entities.PlaceCategories))
	for _, c := range entities.PlaceCategories {
		result = append(result, CategoryCount{Category: c, Count: counts[c]})
	}
	return result, nil
}

// Areas returns the distinct neighbourhoods of published places.
func (r *Repository) Areas() ([]string, error) {
	var areas []string
	err := r.db.Model(&entities.Place{}).
		Where("is_published = ? AND area <> ''", true).
		Distinct().Order("area ASC").
		Pluck("area", &areas).Error
	return areas, err
}

// SetCoordinates stores geocoded coordinates for a place.
func (r *Repository) SetCoordinates(id uint, lat, lng float64) error {
	result := r.db.Model(&entities.Place{}).Where("id = ?", id).
		Updates(map[string]any{"latitude": lat, "longitude": lng})
	if result.Error != nil {
		return fmt.Errorf("failed to set coordinates: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFeatured toggles the featured flag.
func (r *Repository) SetFeatured(id uint, featured bool) error {
	return r.setFlag(id, "is_featured", featured)
}

// SetPublished toggles public visibility.
func (r *Repository) SetPublished(id uint, published bool) error {
	return r.setFlag(id, "is_published", published)
}

func (r *Repository) setFlag(id uint, column string, value bool) error {
	result := r.db.Model(&entities.Place{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMissingCoordinates returns places that have an address but no coordinates.
func (r *Repository) ListMissingCoordinates(limit int) ([]entities.Place, error) {
	var places []entities.Place
	query := r.db.Where("address <> '' AND (latitude IS NULL OR longitude IS NULL)").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&places).Error
	return places, err
}

// RefreshAggregates recomputes rating and favourite counters for a place.
func (r *Repository) RefreshAggregates(id uint) error {
	return database.RefreshAggregates(r.db, entities.ListingTypePlace, id)
}

func (r *Repository) uniqueSlug(requested, name string, selfID uint) (string, error) {
	base := utils.Slugify(name)
	if requested != "" {
		base = utils.Slugify(requested)
	}
	return utils.UniqueSlug(base, func(candidate string) (bool, error) {
		var count int64
		err := r.db.Model(&entities.Place{}).
			Where("slug = ? AND id <> ?", candidate, selfID).
			Count(&count).Error
		return count > 0, err
	})
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
