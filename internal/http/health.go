package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/cache"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	db      *gorm.DB
	cache   cache.Cache
	version string
}

func NewHealthController(db *gorm.DB, c cache.Cache, version string) *HealthController {
	return &HealthController{db: db, cache: c, version: version}
}

// Status reports database and cache reachability.
// GET /health
func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	if h.cache != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		// cache failures are reported without failing the check
		if err := h.cache.Set(ctx, "health:ping", []byte("1"), time.Minute); err != nil {
			checks["cache"] = "degraded: " + err.Error()
		} else {
			checks["cache"] = "ok"
		}
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
