package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/tasks"
)

const (
	JobArchiveEvents     = "archive_past_events"
	JobRefreshAggregates = "refresh_all_aggregates"
	JobCleanupAudit      = "cleanup_audit"
	JobGeocodeBackfill   = "geocode_backfill"
)

type EventArchiver interface {
	ArchivePast(now time.Time) (int64, error)
}

type AggregateRefresher interface {
	RefreshAll() (int64, error)
}

type MissingCoordinatesLister interface {
	ListMissingCoordinates(limit int) ([]entities.Place, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
}

// ArchiveEventsJob marks finished events as archived.
func ArchiveEventsJob(schedule string, archiver EventArchiver, now func() time.Time) Job {
	if now == nil {
		now = time.Now
	}
	return Job{
		Name:     JobArchiveEvents,
		Schedule: schedule,
		Run: func(context.Context) (string, error) {
			n, err := archiver.ArchivePast(now())
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("archived %d events", n), nil
		},
	}
}

// RefreshAggregatesJob recounts ratings and favourites for every listing.
func RefreshAggregatesJob(schedule string, refresher AggregateRefresher) Job {
	return Job{
		Name:     JobRefreshAggregates,
		Schedule: schedule,
		Run: func(context.Context) (string, error) {
			n, err := refresher.RefreshAll()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("refreshed %d listings", n), nil
		},
	}
}

// CleanupAuditJob hands audit retention to the task queue when one is
// available and runs it inline otherwise.
func CleanupAuditJob(schedule string, retentionDays int, queue Enqueuer, cleaner tasks.AuditEventCleaner) Job {
	return Job{
		Name:     JobCleanupAudit,
		Schedule: schedule,
		Run: func(ctx context.Context) (string, error) {
			task := tasks.CleanupAuditTask{RetentionDays: retentionDays}
			if queue != nil {
				if _, err := queue.Enqueue(ctx, task); err != nil {
					return "", err
				}
				return "enqueued audit cleanup", nil
			}
			if err := tasks.CleanupAuditProcessor(cleaner)(ctx, task); err != nil {
				return "", err
			}
			return fmt.Sprintf("removed audit events older than %d days", retentionDays), nil
		},
	}
}

// GeocodeBackfillJob enqueues geocoding for places still missing
// coordinates. It needs the task queue.
func GeocodeBackfillJob(schedule string, places MissingCoordinatesLister, queue Enqueuer) Job {
	return Job{
		Name:     JobGeocodeBackfill,
		Schedule: schedule,
		Run: func(ctx context.Context) (string, error) {
			missing, err := places.ListMissingCoordinates(50)
			if err != nil {
				return "", err
			}
			if len(missing) == 0 {
				return "no places need geocoding", nil
			}
			batch := make([]backlite.Task, 0, len(missing))
			for _, p := range missing {
				batch = append(batch, tasks.GeocodePlaceTask{PlaceID: p.ID})
			}
			if _, err := queue.Enqueue(ctx, batch...); err != nil {
				return "", err
			}
			return fmt.Sprintf("enqueued geocoding for %d places", len(batch)), nil
		},
	}
}
