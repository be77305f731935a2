package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/entities"
)

const aggregatesSQL = `UPDATE %[1]s SET
	rating_average = COALESCE((SELECT AVG(r.rating) FROM reviews r
		WHERE r.listing_type = ? AND r.listing_id = %[1]s.id AND r.status = ?), 0),
	review_count = (SELECT COUNT(*) FROM reviews r
		WHERE r.listing_type = ? AND r.listing_id = %[1]s.id AND r.status = ?),
	favourite_count = (SELECT COUNT(*) FROM favourites f
		WHERE f.listing_type = ? AND f.listing_id = %[1]s.id)`

// RefreshAggregates recomputes rating average, review count and favourite
// count for one listing. Only published reviews are counted.
func RefreshAggregates(db *gorm.DB, listingType entities.ListingType, id uint) error {
	query := fmt.Sprintf(aggregatesSQL, listingTable(listingType)) + " WHERE id = ?"
	result := db.Exec(query, aggregateArgs(listingType, id)...)
	if result.Error != nil {
		return fmt.Errorf("failed to refresh %s aggregates: %w", listingType, result.Error)
	}
	return nil
}

// RefreshAllAggregates recomputes the counters for every listing of a type.
// Returns the number of rows touched.
func RefreshAllAggregates(db *gorm.DB, listingType entities.ListingType) (int64, error) {
	query := fmt.Sprintf(aggregatesSQL, listingTable(listingType))
	result := db.Exec(query, aggregateArgs(listingType)...)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to refresh %s aggregates: %w", listingType, result.Error)
	}
	return result.RowsAffected, nil
}

func aggregateArgs(listingType entities.ListingType, ids ...uint) []any {
	args := []any{
		listingType, entities.ReviewStatusPublished,
		listingType, entities.ReviewStatusPublished,
		listingType,
	}
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

func listingTable(listingType entities.ListingType) string {
	if listingType == entities.ListingTypeEvent {
		return entities.Event{}.TableName()
	}
	return entities.Place{}.TableName()
}

// ListingExists reports whether the referenced place or event exists.
func ListingExists(db *gorm.DB, ref entities.ListingRef) (bool, error) {
	var count int64
	err := db.Table(listingTable(ref.Type)).Where("id = ?", ref.ID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
