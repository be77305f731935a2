package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	pageanalytics "github.com/choplife/choplifeib/internal/analytics"
	"github.com/choplife/choplifeib/internal/audit"
	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/cache"
	"github.com/choplife/choplifeib/internal/config"
	"github.com/choplife/choplifeib/internal/database"
	"github.com/choplife/choplifeib/internal/database/analytics"
	auditrepo "github.com/choplife/choplifeib/internal/database/audit"
	"github.com/choplife/choplifeib/internal/database/events"
	"github.com/choplife/choplifeib/internal/database/favourites"
	"github.com/choplife/choplifeib/internal/database/gallery"
	"github.com/choplife/choplifeib/internal/database/places"
	"github.com/choplife/choplifeib/internal/database/reviews"
	"github.com/choplife/choplifeib/internal/database/spotlights"
	"github.com/choplife/choplifeib/internal/database/users"
	"github.com/choplife/choplifeib/internal/geocoding"
	http_controllers "github.com/choplife/choplifeib/internal/http"
	"github.com/choplife/choplifeib/internal/logging"
	"github.com/choplife/choplifeib/internal/readonly"
	"github.com/choplife/choplifeib/internal/realtime"
	"github.com/choplife/choplifeib/internal/scheduler"
	"github.com/choplife/choplifeib/internal/services"
	"github.com/choplife/choplifeib/internal/storage"
	"github.com/choplife/choplifeib/internal/tasks"
	"github.com/choplife/choplifeib/web"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	logger := logging.Component("server")
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	// kill -9 cannot be caught
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Dur("timeout", timeout).Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the listener so in-flight requests can
	// still enqueue.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	logger.Info().Msg("server exiting")
}

// Run wires every dependency from cfg and serves until interrupted.
func Run(cfg *config.Config, version string) {
	logging.Init("choplifeib", cfg.Global.Env, cfg.Logging.Level)
	logger := logging.Component("entrypoint")
	logger.Info().Str("version", version).Msg("starting ChopLife IB")

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing database")
		}
	}()

	ctx := context.Background()

	// Redis backs the cache and the profile bus when configured.
	var (
		store       cache.Cache = cache.NewMemory()
		bus         realtime.Bus
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to redis")
		}
		store = cache.NewRedis(redisClient)
		bus = realtime.NewRedisBus(redisClient)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis for cache and profile updates")
	} else {
		bus = realtime.NewMemoryBus()
	}

	objects, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize gallery storage")
	}
	var uploadsDir string
	if disk, ok := objects.(*storage.Disk); ok {
		uploadsDir = disk.Dir()
	}

	geocoder := geocoding.NewClient(cfg.Geocoding, store)

	placeRepo := places.NewRepository(db.DB)
	eventRepo := events.NewRepository(db.DB)
	auditor := audit.NewService(auditrepo.NewRepository(db.DB))
	aggregates := services.NewAggregates(db.DB, nil)

	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize task queue")
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing task client")
			}
		}()

		taskClient.Register(
			tasks.NewRefreshListingAggregatesQueue(aggregates),
			tasks.NewCleanupAuditQueue(auditor),
			tasks.NewGeocodePlaceQueue(placeRepo, geocoder),
		)
		aggregates.SetQueue(taskClient)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = buildScheduler(cfg, auditor, eventRepo, placeRepo, aggregates, taskClient)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure scheduler")
		}
		sched.Start(ctx)
	}

	var authService *auth.Service
	var authMiddleware *auth.Middleware
	var sessionManager *auth.SessionManager
	var csrfSecret []byte

	if cfg.Auth.Mode == config.AuthModeLocal {
		logger.Info().Msg("authentication mode: local")

		authService = auth.NewService(db.DB, cfg.Auth)

		sqlDB, err := db.DB.DB()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to get SQL DB for sessions")
		}
		sessionManager, err = auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize session manager")
		}
		authMiddleware = auth.NewMiddleware(authService, sessionManager, cfg.Auth)

		csrfSecret, err = csrfSecretFrom(cfg.Auth.SessionSecret)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to generate CSRF secret")
		}
		if cfg.Auth.SessionSecret == "" {
			logger.Warn().Msg("generated session secret; set AUTH_SESSION_SECRET to keep sessions across restarts")
		}

		if hasUsers, _ := authService.HasUsers(); !hasUsers {
			logger.Info().Msg("no users found; visit /setup to create an administrator account")
		}
	} else {
		logger.Warn().Msg("authentication mode: none; every visitor has admin access")
	}

	pageAnalytics := pageanalytics.FromConfig(cfg.Plausible)
	router, err := http_controllers.NewRouter(http_controllers.RouterConfig{
		DB:                 db.DB,
		Places:             placeRepo,
		Events:             eventRepo,
		Reviews:            reviews.NewRepository(db.DB),
		Favourites:         favourites.NewRepository(db.DB),
		Users:              users.NewRepository(db.DB),
		Gallery:            gallery.NewRepository(db.DB),
		Spotlights:         spotlights.NewRepository(db.DB),
		Analytics:          analytics.NewRepository(db.DB),
		Auditor:            auditor,
		Aggregates:         aggregates,
		Geocoder:           geocoder,
		Cache:              store,
		Bus:                bus,
		Storage:            objects,
		TaskClient:         taskClient,
		Scheduler:          sched,
		AuthService:        authService,
		AuthMiddleware:     authMiddleware,
		SessionManager:     sessionManager,
		AuthConfig:         cfg.Auth,
		CSRFSecret:         csrfSecret,
		SecureCookies:      cfg.Auth.SecureCookies,
		ReadOnly:           readonly.NewMiddleware(cfg.ReadOnly.Enabled),
		UI:                 cfg.UI,
		Templates:          web.Templates(),
		Static:             web.Static(),
		AnalyticsScript:    pageAnalytics.ScriptTag(),
		AnalyticsScriptURL: pageAnalytics.ScriptSrc(),
		CORS:               cfg.CORS,
		SearchCacheTTL:     cfg.Scheduler.SearchCacheTTL,
		SearchDebounce:     time.Duration(cfg.Scheduler.SearchDebounceMS) * time.Millisecond,
		MaxUploadBytes:     cfg.Storage.MaxUploadMB << 20,
		UploadsDir:         uploadsDir,
		Version:            version,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build router")
	}

	onShutdown := func(ctx context.Context) {
		if sched != nil {
			sched.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		_ = bus.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}

	Serve(router, cfg, onShutdown)
}

func buildScheduler(cfg *config.Config, auditor *audit.Service, eventRepo *events.Repository, placeRepo *places.Repository, aggregates *services.Aggregates, taskClient *tasks.Client) (*scheduler.Scheduler, error) {
	sched := scheduler.New(auditor)

	var queue scheduler.Enqueuer
	if taskClient != nil {
		queue = taskClient
	}

	jobs := []scheduler.Job{
		scheduler.ArchiveEventsJob(cfg.Scheduler.ArchiveSchedule, eventRepo, nil),
		scheduler.RefreshAggregatesJob(cfg.Scheduler.RefreshSchedule, aggregates),
		scheduler.CleanupAuditJob(cfg.Scheduler.RefreshSchedule, cfg.Scheduler.AuditRetainDays, queue, auditor),
	}
	if queue != nil {
		jobs = append(jobs, scheduler.GeocodeBackfillJob(cfg.Scheduler.RefreshSchedule, placeRepo, queue))
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			return nil, fmt.Errorf("add job %s: %w", job.Name, err)
		}
	}
	return sched, nil
}

// csrfSecretFrom decodes a hex secret, falls back to its raw bytes, and
// generates a fresh one when empty.
func csrfSecretFrom(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}
	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(secret)
}
