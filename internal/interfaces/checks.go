package interfaces

// Compile-time checks that the concrete types wired in entrypoint satisfy
// the narrow interfaces their consumers declare.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/choplife/choplifeib/internal/audit"
	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/cache"
	"github.com/choplife/choplifeib/internal/database/analytics"
	"github.com/choplife/choplifeib/internal/database/events"
	"github.com/choplife/choplifeib/internal/database/favourites"
	"github.com/choplife/choplifeib/internal/database/gallery"
	"github.com/choplife/choplifeib/internal/database/places"
	"github.com/choplife/choplifeib/internal/database/reviews"
	"github.com/choplife/choplifeib/internal/database/spotlights"
	"github.com/choplife/choplifeib/internal/database/users"
	"github.com/choplife/choplifeib/internal/geocoding"
	"github.com/choplife/choplifeib/internal/http"
	"github.com/choplife/choplifeib/internal/realtime"
	"github.com/choplife/choplifeib/internal/scheduler"
	"github.com/choplife/choplifeib/internal/services"
	"github.com/choplife/choplifeib/internal/storage"
	"github.com/choplife/choplifeib/internal/tasks"
)

// =============================================================================
// Listings
// =============================================================================

var _ http.PlaceStore = (*places.Repository)(nil)
var _ http.AdminPlaceStore = (*places.Repository)(nil)
var _ http.PlaceOptions = (*places.Repository)(nil)
var _ http.EventStore = (*events.Repository)(nil)
var _ http.EventLister = (*events.Repository)(nil)
var _ http.AdminEventStore = (*events.Repository)(nil)
var _ http.GalleryStore = (*gallery.Repository)(nil)
var _ http.GalleryLister = (*gallery.Repository)(nil)
var _ http.SpotlightReader = (*spotlights.Repository)(nil)
var _ http.SpotlightStore = (*spotlights.Repository)(nil)

// =============================================================================
// Reviews and favourites
// =============================================================================

var _ http.ReviewStore = (*reviews.Repository)(nil)
var _ http.ReviewReader = (*reviews.Repository)(nil)
var _ http.ReviewHistory = (*reviews.Repository)(nil)
var _ http.ReviewModerator = (*reviews.Repository)(nil)
var _ http.FavouritesStore = (*favourites.Repository)(nil)
var _ http.FavouriteReader = (*favourites.Repository)(nil)
var _ http.AggregateRefresher = (*services.Aggregates)(nil)

// =============================================================================
// Accounts and back-office
// =============================================================================

var _ http.ProfileStore = (*users.Repository)(nil)
var _ http.UserAdmin = (*users.Repository)(nil)
var _ http.Credentials = (*auth.Service)(nil)
var _ http.AnalyticsReader = (*analytics.Repository)(nil)
var _ http.Auditor = (*audit.Service)(nil)
var _ http.JobRunner = (*scheduler.Scheduler)(nil)
var _ auth.Renderer = (*http.Renderer)(nil)

// =============================================================================
// Background work
// =============================================================================

var _ http.Enqueuer = (*tasks.Client)(nil)
var _ http.TaskStatusReader = (*tasks.Client)(nil)
var _ services.Enqueuer = (*tasks.Client)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ scheduler.EventArchiver = (*events.Repository)(nil)
var _ scheduler.AggregateRefresher = (*services.Aggregates)(nil)
var _ scheduler.MissingCoordinatesLister = (*places.Repository)(nil)
var _ tasks.AggregateRefresher = (*services.Aggregates)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ tasks.PlaceLocator = (*places.Repository)(nil)

// =============================================================================
// Integrations
// =============================================================================

var _ http.Geocoder = (*geocoding.Client)(nil)
var _ tasks.Geocoder = (*geocoding.Client)(nil)
var _ cache.Cache = (*cache.Memory)(nil)
var _ cache.Cache = (*cache.Redis)(nil)
var _ realtime.Bus = (*realtime.MemoryBus)(nil)
var _ realtime.Bus = (*realtime.RedisBus)(nil)
var _ storage.Storage = (*storage.Disk)(nil)
var _ storage.Storage = (*storage.S3)(nil)
