package http

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/choplife/choplifeib/internal/audit"
	"github.com/choplife/choplifeib/internal/database/analytics"
	auditdb "github.com/choplife/choplifeib/internal/database/audit"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/scheduler"
)

// Auditor records back-office actions.
type Auditor interface {
	Record(a audit.Action)
	LogListing(actorID uint, ref entities.ListingRef, verb, name string, err error)
	LogRoleChange(actorID, targetID uint, username string, from, to entities.UserRole)
	LogReviewModeration(actorID, reviewID uint, action string)
	List(filter auditdb.Filter) ([]entities.AuditEvent, int64, error)
}

// AnalyticsReader produces the dashboard aggregates.
type AnalyticsReader interface {
	Dashboard(now time.Time, signupDays, topN int) (*analytics.Dashboard, error)
}

// JobRunner is the cron scheduler as seen by the back-office.
type JobRunner interface {
	Jobs() []string
	NextRuns() map[string]time.Time
	RunNow(ctx context.Context, name string) error
}

// TaskStatusReader reports background task progress.
type TaskStatusReader interface {
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

const (
	dashboardSignupDays = 30
	dashboardTopPlaces  = 5
)

// JobInfo is one row of the maintenance table.
type JobInfo struct {
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run,omitempty"`
}

type AdminController struct {
	analytics AnalyticsReader
	auditor   Auditor
	jobs      JobRunner
	tasks     TaskStatusReader
	renderer  *Renderer
	pageSize  int
	now       func() time.Time
}

func NewAdminController(analytics AnalyticsReader, auditor Auditor, jobs JobRunner, tasks TaskStatusReader, renderer *Renderer, pageSize int, now func() time.Time) *AdminController {
	if now == nil {
		now = time.Now
	}
	return &AdminController{
		analytics: analytics,
		auditor:   auditor,
		jobs:      jobs,
		tasks:     tasks,
		renderer:  renderer,
		pageSize:  pageSize,
		now:       now,
	}
}

// DashboardPage renders totals and the chart containers; the charts load
// their data from the analytics endpoint.
// GET /admin
func (ac *AdminController) DashboardPage(c *gin.Context) {
	dashboard, err := ac.analytics.Dashboard(ac.now(), dashboardSignupDays, dashboardTopPlaces)
	if err != nil {
		ac.renderer.Failure(c, err, "dashboard")
		return
	}

	ac.renderer.HTML(c, http.StatusOK, "admin-dashboard.html", gin.H{
		"Title":     "Dashboard",
		"Section":   "dashboard",
		"Dashboard": dashboard,
		"Jobs":      ac.jobInfo(),
	})
}

// Analytics returns the dashboard aggregates as chart data.
// GET /api/admin/analytics
func (ac *AdminController) Analytics(c *gin.Context) {
	dashboard, err := ac.analytics.Dashboard(ac.now(), dashboardSignupDays, dashboardTopPlaces)
	if err != nil {
		respondInternalError(c, err, "analytics")
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (ac *AdminController) jobInfo() []JobInfo {
	if ac.jobs == nil {
		return nil
	}
	next := ac.jobs.NextRuns()
	names := ac.jobs.Jobs()
	sort.Strings(names)

	out := make([]JobInfo, 0, len(names))
	for _, name := range names {
		out = append(out, JobInfo{Name: name, NextRun: next[name]})
	}
	return out
}

// ListJobs returns the scheduled jobs and their next activation.
// GET /api/admin/jobs
func (ac *AdminController) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": ac.jobInfo()})
}

// RunJob runs a maintenance job immediately.
// POST /admin/jobs/:name/run, POST /api/admin/jobs/:name/run
func (ac *AdminController) RunJob(c *gin.Context) {
	if ac.jobs == nil {
		respondError(c, http.StatusServiceUnavailable, "scheduler is disabled")
		return
	}

	name := c.Param("name")
	err := ac.jobs.RunNow(c.Request.Context(), name)

	status, msg := http.StatusOK, "Job "+name+" finished"
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		status, msg = http.StatusNotFound, "Unknown job "+name
	case errors.Is(err, scheduler.ErrJobRunning):
		status, msg = http.StatusConflict, "Job "+name+" is already running"
	case err != nil:
		status, msg = http.StatusInternalServerError, "Job "+name+" failed: "+err.Error()
	}

	if wantsJSON(c) {
		if status == http.StatusOK {
			respondSuccess(c, msg)
		} else {
			respondError(c, status, msg)
		}
		return
	}
	if status == http.StatusOK {
		redirectWithNotice(c, "/admin", msg)
	} else {
		redirectWithError(c, "/admin", msg)
	}
}

// TaskStatus reports a queued background task.
// GET /api/admin/tasks/:id
func (ac *AdminController) TaskStatus(c *gin.Context) {
	if ac.tasks == nil {
		respondError(c, http.StatusServiceUnavailable, "task queue is disabled")
		return
	}
	status, err := ac.tasks.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": status})
}

type auditQuery struct {
	EventType string `form:"type" binding:"omitempty,max=50"`
	UserID    uint   `form:"user_id"`
}

// AuditPage renders the audit log.
// GET /admin/audit
func (ac *AdminController) AuditPage(c *gin.Context) {
	var q auditQuery
	_ = c.ShouldBindQuery(&q)

	page := parsePagination(c, maxPerPage)
	list, total, err := ac.auditor.List(auditdb.Filter{
		UserID:    q.UserID,
		EventType: entities.AuditEventType(q.EventType),
		Limit:     page.PerPage,
		Offset:    page.Offset(),
	})
	if err != nil {
		ac.renderer.Failure(c, err, "audit log")
		return
	}
	page.SetTotal(total)

	if wantsJSON(c) {
		respondPage(c, list, page)
		return
	}
	ac.renderer.HTML(c, http.StatusOK, "admin-audit.html", gin.H{
		"Title":      "Audit log",
		"Section":    "audit",
		"Events":     list,
		"Filter":     q,
		"Pagination": page,
	})
}
