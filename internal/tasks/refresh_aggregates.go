package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/choplife/choplifeib/internal/entities"
)

// AggregateRefresher recomputes the denormalised counters of a listing.
type AggregateRefresher interface {
	RefreshNow(ref entities.ListingRef) error
}

// RefreshListingAggregatesTask recomputes rating average, review count and
// favourite count for one listing.
type RefreshListingAggregatesTask struct {
	ListingType entities.ListingType `json:"listing_type"`
	ListingID   uint                 `json:"listing_id"`
}

func (t RefreshListingAggregatesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "refresh_listing_aggregates",
		MaxAttempts: 5,
		Backoff:     10 * time.Second,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   time.Hour,
			OnlyFailed: true,
		},
	}
}

func RefreshListingAggregatesProcessor(refresher AggregateRefresher) backlite.QueueProcessor[RefreshListingAggregatesTask] {
	return func(ctx context.Context, task RefreshListingAggregatesTask) error {
		if refresher == nil {
			return errors.New("aggregate refresher not configured")
		}
		ref := entities.ListingRef{Type: task.ListingType, ID: task.ListingID}
		if err := refresher.RefreshNow(ref); err != nil {
			return fmt.Errorf("refresh %s: %w", ref, err)
		}
		return nil
	}
}

func NewRefreshListingAggregatesQueue(refresher AggregateRefresher) backlite.Queue {
	return backlite.NewQueue(RefreshListingAggregatesProcessor(refresher))
}
