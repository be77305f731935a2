package http

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/cache"
	"github.com/choplife/choplifeib/internal/config"
	"github.com/choplife/choplifeib/internal/database"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
	"github.com/choplife/choplifeib/internal/realtime"
)

const streamPath = "/api/profile/stream"

// NewRouter builds the gin engine with every page and API route.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.RequestID())
	router.Use(logging.RequestLogger())

	router.Use(auth.SecurityHeadersMiddleware(cfg.AnalyticsScriptURL))
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}
	router.Use(apiCORS(cfg.CORS))
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{streamPath})))

	// CSRF must run before the session so the session context survives
	// the request copy gorilla/csrf makes.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, auth.DefaultUserID)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}
	router.Use(AuthContextMiddleware(cfg.AuthConfig))
	if cfg.ReadOnly.IsEnabled() {
		router.Use(cfg.ReadOnly.Handler())
	}

	RegisterValidators()

	tmpl, err := LoadTemplates(cfg.UI.TemplatesPath, cfg.Templates)
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	if cfg.UI.StaticPath != "" {
		router.Static("/static", cfg.UI.StaticPath)
	} else if cfg.Static != nil {
		router.StaticFS("/static", http.FS(cfg.Static))
	}
	if cfg.UploadsDir != "" {
		router.Static("/uploads", cfg.UploadsDir)
	}

	now := cfg.clock()
	debounce := cfg.SearchDebounce
	if debounce <= 0 {
		debounce = DefaultSearchDebounce
	}
	renderer := NewRenderer(debounce, cfg.AnalyticsScript, now)
	pageSize := cfg.UI.PageSize

	store := cfg.Cache
	if store == nil {
		store = cache.NewMemory()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = realtime.NewMemoryBus()
	}
	var aggregates AggregateRefresher
	if cfg.Aggregates != nil {
		aggregates = cfg.Aggregates
	}
	var (
		queue      Enqueuer
		taskStatus TaskStatusReader
	)
	if cfg.TaskClient != nil {
		queue = cfg.TaskClient
		taskStatus = cfg.TaskClient
	}
	var jobs JobRunner
	if cfg.Scheduler != nil {
		jobs = cfg.Scheduler
	}

	// Health
	health := NewHealthController(cfg.DB, store, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Accounts
	if cfg.AuthService != nil && cfg.AuthConfig.Mode == config.AuthModeLocal {
		authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, renderer, cfg.Auditor, cfg.AuthConfig)
		authController.RegisterRoutes(router)
	}

	// Public pages
	places := NewPlacesController(cfg.Places, cfg.Events, cfg.Reviews, cfg.Favourites, renderer, pageSize)
	events := NewEventsController(cfg.Events, cfg.Reviews, cfg.Favourites, renderer, pageSize, now)
	home := NewHomeController(cfg.Spotlights, cfg.Places, cfg.Events, renderer, now)

	router.GET("/", home.HomePage)
	router.GET("/places", places.PlacesPage)
	router.GET("/places/:slug", places.PlacePage)
	router.GET("/events", events.EventsPage)
	router.GET("/events/:slug", events.EventPage)

	// Public API
	reviews := NewReviewsController(cfg.Reviews, aggregates, pageSize)
	search := NewSearchController(cfg.Places, cfg.Events, store, cfg.SearchCacheTTL, now)

	api := router.Group("/api")
	api.GET("/places", places.ListPlaces)
	api.GET("/places/categories", places.Categories)
	api.GET("/places/map", places.Markers)
	api.GET("/places/:id", places.GetPlace)
	api.GET("/places/:id/reviews", reviews.ListForListing(entities.ListingTypePlace))
	api.GET("/events", events.ListEvents)
	api.GET("/events/map", events.Markers)
	api.GET("/events/:id", events.GetEvent)
	api.GET("/events/:id/reviews", reviews.ListForListing(entities.ListingTypeEvent))
	api.GET("/search", search.Search)

	// Signed-in users
	requireAuth := func(c *gin.Context) { c.Next() }
	if cfg.AuthMiddleware != nil {
		requireAuth = cfg.AuthMiddleware.RequireAuth()
	}
	favourites := NewFavouritesController(cfg.Favourites, aggregates, renderer, pageSize)
	var credentials Credentials
	if cfg.AuthService != nil {
		credentials = cfg.AuthService
	}
	profile := NewProfileController(cfg.Users, cfg.Reviews, cfg.Favourites, credentials, bus, renderer)

	member := router.Group("/", requireAuth)
	member.GET("/favourites", favourites.FavouritesPage)
	member.GET("/profile", profile.ProfilePage)
	member.POST("/profile", profile.UpdateProfile)
	if credentials != nil {
		member.POST("/profile/password", profile.ChangePassword)
		member.POST("/profile/token", profile.GenerateToken)
		member.POST("/profile/token/revoke", profile.RevokeToken)
	}

	memberAPI := router.Group("/api", requireAuth)
	memberAPI.GET("/favourites", favourites.ListFavourites)
	memberAPI.GET("/favourites/count", favourites.GetFavouriteCount)
	memberAPI.POST("/favourites/:listingType/:id", favourites.AddFavourite)
	memberAPI.DELETE("/favourites/:listingType/:id", favourites.RemoveFavourite)
	memberAPI.POST("/favourites/:listingType/:id/toggle", favourites.ToggleFavourite)
	memberAPI.POST("/reviews", reviews.SubmitReview)
	memberAPI.DELETE("/reviews/:id", reviews.DeleteReview)
	memberAPI.GET("/profile", profile.GetProfile)
	memberAPI.PATCH("/profile", profile.UpdateProfile)
	memberAPI.GET("/profile/stream", profile.Stream)
	if cfg.AuthService != nil {
		tokens := auth.NewAPITokenController(cfg.AuthService)
		memberAPI.POST("/auth/token", tokens.GenerateToken)
		memberAPI.DELETE("/auth/token", tokens.RevokeToken)
	}

	// Back-office
	requireAdmin := func(c *gin.Context) { c.Next() }
	if cfg.AuthMiddleware != nil {
		requireAdmin = cfg.AuthMiddleware.RequireRole(entities.UserRoleAdmin)
	}
	registerAdminRoutes(router, requireAdmin, cfg, renderer, adminDeps{
		aggregates: aggregates,
		queue:      queue,
		taskStatus: taskStatus,
		jobs:       jobs,
		bus:        bus,
		pageSize:   pageSize,
	})

	router.NoRoute(func(c *gin.Context) {
		renderer.NotFound(c, "We couldn't find that page.")
	})

	return router, nil
}

type adminDeps struct {
	aggregates AggregateRefresher
	queue      Enqueuer
	taskStatus TaskStatusReader
	jobs       JobRunner
	bus        realtime.Bus
	pageSize   int
}

func registerAdminRoutes(router *gin.Engine, requireAdmin gin.HandlerFunc, cfg RouterConfig, renderer *Renderer, deps adminDeps) {
	now := cfg.clock()

	dashboard := NewAdminController(cfg.Analytics, cfg.Auditor, deps.jobs, deps.taskStatus, renderer, deps.pageSize, now)
	adminPlaces := NewAdminPlacesController(cfg.Places, cfg.Gallery, deps.queue, cfg.Auditor, renderer)
	adminEvents := NewAdminEventsController(cfg.Events, cfg.Places, cfg.Gallery, cfg.Auditor, renderer, now)
	adminReviews := NewAdminReviewsController(cfg.Reviews, deps.aggregates, cfg.Auditor, renderer)
	adminUsers := NewAdminUsersController(cfg.Users, cfg.Auditor, deps.bus, renderer)
	adminSpotlights := NewAdminSpotlightsController(cfg.Spotlights, cfg.Auditor, renderer, now)
	exists := func(ref entities.ListingRef) (bool, error) {
		return database.ListingExists(cfg.DB, ref)
	}
	adminGallery := NewAdminGalleryController(cfg.Gallery, exists, cfg.Storage, cfg.MaxUploadBytes, cfg.Auditor, renderer)

	admin := router.Group("/admin", requireAdmin)
	admin.GET("", dashboard.DashboardPage)
	admin.GET("/audit", dashboard.AuditPage)
	admin.POST("/jobs/:name/run", dashboard.RunJob)

	admin.GET("/places", adminPlaces.ListPage)
	admin.GET("/places/new", adminPlaces.NewPage)
	admin.GET("/places/:id/edit", adminPlaces.EditPage)
	admin.POST("/places", adminPlaces.Create)
	admin.POST("/places/:id", adminPlaces.Update)
	admin.POST("/places/:id/delete", adminPlaces.Delete)
	admin.POST("/places/:id/featured", adminPlaces.SetFeatured)
	admin.POST("/places/:id/published", adminPlaces.SetPublished)
	admin.POST("/places/:id/geocode", adminPlaces.Geocode)
	admin.POST("/places/:id/gallery", adminGallery.Upload(entities.ListingTypePlace))

	admin.GET("/events", adminEvents.ListPage)
	admin.GET("/events/new", adminEvents.NewPage)
	admin.GET("/events/:id/edit", adminEvents.EditPage)
	admin.POST("/events", adminEvents.Create)
	admin.POST("/events/:id", adminEvents.Update)
	admin.POST("/events/:id/delete", adminEvents.Delete)
	admin.POST("/events/:id/featured", adminEvents.SetFeatured)
	admin.POST("/events/:id/published", adminEvents.SetPublished)
	admin.POST("/events/:id/gallery", adminGallery.Upload(entities.ListingTypeEvent))

	admin.GET("/organizers", adminEvents.OrganizersPage)
	admin.POST("/organizers", adminEvents.CreateOrganizer)
	admin.POST("/organizers/:id", adminEvents.UpdateOrganizer)
	admin.POST("/organizers/:id/delete", adminEvents.DeleteOrganizer)

	admin.POST("/gallery/:id/delete", adminGallery.Delete)

	admin.GET("/reviews", adminReviews.ListPage)
	admin.POST("/reviews/:id/status", adminReviews.SetStatus)
	admin.POST("/reviews/:id/delete", adminReviews.Delete)

	admin.GET("/users", adminUsers.ListPage)
	admin.POST("/users/:id/role", adminUsers.SetRole)

	admin.GET("/spotlights", adminSpotlights.ListPage)
	admin.POST("/spotlights", adminSpotlights.Create)
	admin.POST("/spotlights/:id/delete", adminSpotlights.Delete)

	adminAPI := router.Group("/api/admin", requireAdmin)
	adminAPI.GET("/analytics", dashboard.Analytics)
	adminAPI.GET("/jobs", dashboard.ListJobs)
	adminAPI.POST("/jobs/:name/run", dashboard.RunJob)
	adminAPI.GET("/tasks/:id", dashboard.TaskStatus)
	adminAPI.GET("/users", adminUsers.ListUsers)
	adminAPI.PATCH("/users/:id/role", adminUsers.SetRole)
	adminAPI.GET("/reviews", adminReviews.ListPage)
	adminAPI.GET("/audit", dashboard.AuditPage)

	// Address lookups are used by the place and event forms.
	if cfg.Geocoder != nil {
		geocode := NewGeocodeController(cfg.Geocoder)
		router.GET("/api/geocode/reverse", requireAdmin, geocode.Reverse)
		router.GET("/api/geocode/search", requireAdmin, geocode.Search)
	}
}

// apiCORS applies the CORS policy to /api routes only.
func apiCORS(cfg config.CORS) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-CSRF-Token"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
	}
	origins := cfg.AllowOrigins
	if len(origins) == 0 || contains(origins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	handler := cors.New(corsCfg)

	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			handler(c)
			return
		}
		c.Next()
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
