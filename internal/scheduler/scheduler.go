// Package scheduler runs recurring maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/choplife/choplifeib/internal/audit"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
)

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrJobRunning = errors.New("job is already running")
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Job is a named unit of recurring work. Run returns a short summary of
// what it did, recorded in the audit log.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) (string, error)
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Scheduler owns a cron instance and the jobs registered on it.
type Scheduler struct {
	cron    *cron.Cron
	auditor *audit.Service
	logger  zerolog.Logger
	timeout time.Duration

	mu      sync.Mutex
	jobs    map[string]Job
	entries map[string]cron.EntryID
	running map[string]bool
	started bool
}

// New creates a scheduler. auditor may be nil.
func New(auditor *audit.Service) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC)),
		auditor: auditor,
		logger:  *logging.Component("scheduler"),
		timeout: 10 * time.Minute,
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
		running: make(map[string]bool),
	}
}

// Add registers a job. A job with an empty schedule is registered for
// manual runs only.
func (s *Scheduler) Add(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	if job.Schedule != "" {
		if err := ValidateSchedule(job.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule %q for %s: %w", job.Schedule, job.Name, err)
		}
		name := job.Name
		id, err := s.cron.AddFunc(job.Schedule, func() {
			if err := s.RunNow(context.Background(), name); err != nil && !errors.Is(err, ErrJobRunning) {
				s.logger.Error().Err(err).Str("job", name).Msg("scheduled job failed")
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
		s.entries[job.Name] = id
	}
	s.jobs[job.Name] = job
	return nil
}

// Start runs the cron loop until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info().Strs("jobs", s.Jobs()).Msg("scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// RunNow executes a job synchronously. Concurrent runs of the same job are
// rejected with ErrJobRunning.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownJob
	}
	if s.running[name] {
		s.mu.Unlock()
		s.logger.Debug().Str("job", name).Msg("skipped, previous run still in progress")
		return ErrJobRunning
	}
	s.running[name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, name)
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	summary, err := job.Run(ctx)
	event := s.logger.Info()
	if err != nil {
		event = s.logger.Error().Err(err)
	}
	event.Str("job", name).Dur("took", time.Since(start)).Str("result", summary).Msg("job finished")

	if s.auditor != nil {
		s.auditor.Record(audit.Action{
			EventType:   entities.AuditEventMaintenance,
			Action:      name,
			Description: summary,
			Err:         err,
		})
	}
	return err
}

// NextRuns returns the next activation of every scheduled job.
func (s *Scheduler) NextRuns() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.entries))
	for name, id := range s.entries {
		if next := s.cron.Entry(id).Next; !next.IsZero() {
			out[name] = next
		}
	}
	return out
}

// Jobs lists registered job names in order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
