// Package services holds application logic shared by the HTTP controllers,
// the CLI and background jobs.
package services

import (
	"context"

	"github.com/mikestefanello/backlite"
	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/database"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
	"github.com/choplife/choplifeib/internal/tasks"
)

// Enqueuer saves background tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
}

// Aggregates keeps the denormalised rating and favourite counters of
// listings in step with reviews and favourites.
type Aggregates struct {
	db    *gorm.DB
	queue Enqueuer
}

// NewAggregates returns a refresher. A nil queue refreshes synchronously.
func NewAggregates(db *gorm.DB, queue Enqueuer) *Aggregates {
	return &Aggregates{db: db, queue: queue}
}

// SetQueue attaches the task queue once it has been created.
func (a *Aggregates) SetQueue(queue Enqueuer) {
	a.queue = queue
}

// Refresh schedules a recount for the listing, falling back to an
// immediate recount when the queue is unavailable or rejects the task.
func (a *Aggregates) Refresh(ctx context.Context, ref entities.ListingRef) error {
	if a.queue != nil {
		_, err := a.queue.Enqueue(ctx, tasks.RefreshListingAggregatesTask{ListingType: ref.Type, ListingID: ref.ID})
		if err == nil {
			return nil
		}
		logging.Component("aggregates").Warn().Err(err).Str("listing", ref.String()).
			Msg("failed to enqueue aggregate refresh, refreshing inline")
	}
	return a.RefreshNow(ref)
}

// RefreshNow recounts one listing immediately.
func (a *Aggregates) RefreshNow(ref entities.ListingRef) error {
	return database.RefreshAggregates(a.db, ref.Type, ref.ID)
}

// RefreshAll recounts every place and event and returns the rows touched.
func (a *Aggregates) RefreshAll() (int64, error) {
	var total int64
	for _, listingType := range []entities.ListingType{entities.ListingTypePlace, entities.ListingTypeEvent} {
		n, err := database.RefreshAllAggregates(a.db, listingType)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
