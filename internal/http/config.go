package http

import (
	"html/template"
	"io/fs"
	"time"

	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/audit"
	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/cache"
	"github.com/choplife/choplifeib/internal/config"
	"github.com/choplife/choplifeib/internal/database/analytics"
	"github.com/choplife/choplifeib/internal/database/events"
	"github.com/choplife/choplifeib/internal/database/favourites"
	"github.com/choplife/choplifeib/internal/database/gallery"
	"github.com/choplife/choplifeib/internal/database/places"
	"github.com/choplife/choplifeib/internal/database/reviews"
	"github.com/choplife/choplifeib/internal/database/spotlights"
	"github.com/choplife/choplifeib/internal/database/users"
	"github.com/choplife/choplifeib/internal/geocoding"
	"github.com/choplife/choplifeib/internal/readonly"
	"github.com/choplife/choplifeib/internal/realtime"
	"github.com/choplife/choplifeib/internal/scheduler"
	"github.com/choplife/choplifeib/internal/services"
	"github.com/choplife/choplifeib/internal/storage"
	"github.com/choplife/choplifeib/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	DB         *gorm.DB
	Places     *places.Repository
	Events     *events.Repository
	Reviews    *reviews.Repository
	Favourites *favourites.Repository
	Users      *users.Repository
	Gallery    *gallery.Repository
	Spotlights *spotlights.Repository
	Analytics  *analytics.Repository
	Auditor    *audit.Service
	Aggregates *services.Aggregates

	// Integrations
	Geocoder *geocoding.Client
	Cache    cache.Cache
	Bus      realtime.Bus
	Storage  storage.Storage

	// Background work (optional)
	TaskClient *tasks.Client
	Scheduler  *scheduler.Scheduler

	// Authentication
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	AuthConfig     config.Auth
	CSRFSecret     []byte
	SecureCookies  bool

	ReadOnly *readonly.Middleware

	// UI
	UI        config.UI
	Templates fs.FS // parsed when UI.TemplatesPath is empty
	Static    fs.FS // served when UI.StaticPath is empty

	// AnalyticsScript is injected into every page head; empty disables it.
	// AnalyticsScriptURL is its src, whose origin the CSP allows.
	AnalyticsScript    template.HTML
	AnalyticsScriptURL string

	CORS           config.CORS
	SearchCacheTTL time.Duration
	SearchDebounce time.Duration
	MaxUploadBytes int64
	UploadsDir     string // served at /uploads for disk storage

	// Application info
	Version string

	// Now is the clock used for time windows; nil means time.Now.
	Now func() time.Time
}

func (cfg RouterConfig) clock() func() time.Time {
	if cfg.Now != nil {
		return cfg.Now
	}
	return time.Now
}
