package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/choplife/choplifeib/internal/logging"
)

// AuditEventCleaner deletes audit events older than a retention window.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// CleanupAuditTask removes audit events older than RetentionDays.
type CleanupAuditTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupAuditTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_audit",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func CleanupAuditProcessor(cleaner AuditEventCleaner) backlite.QueueProcessor[CleanupAuditTask] {
	logger := logging.Component("tasks")
	return func(ctx context.Context, task CleanupAuditTask) error {
		if cleaner == nil {
			return errors.New("audit event cleaner not configured")
		}

		days := task.RetentionDays
		if days <= 0 {
			days = 90
		}

		deleted, err := cleaner.DeleteOldEvents(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return fmt.Errorf("cleanup audit events: %w", err)
		}

		logger.Info().Int64("deleted", deleted).Int("retention_days", days).Msg("cleaned up audit events")
		return nil
	}
}

func NewCleanupAuditQueue(cleaner AuditEventCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupAuditProcessor(cleaner))
}
