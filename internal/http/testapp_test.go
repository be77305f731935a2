package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/audit"
	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/cache"
	"github.com/choplife/choplifeib/internal/config"
	"github.com/choplife/choplifeib/internal/database/analytics"
	auditrepo "github.com/choplife/choplifeib/internal/database/audit"
	"github.com/choplife/choplifeib/internal/database/dbtest"
	"github.com/choplife/choplifeib/internal/database/events"
	"github.com/choplife/choplifeib/internal/database/favourites"
	"github.com/choplife/choplifeib/internal/database/gallery"
	"github.com/choplife/choplifeib/internal/database/places"
	"github.com/choplife/choplifeib/internal/database/reviews"
	"github.com/choplife/choplifeib/internal/database/spotlights"
	"github.com/choplife/choplifeib/internal/database/users"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/readonly"
	"github.com/choplife/choplifeib/internal/realtime"
	"github.com/choplife/choplifeib/internal/services"
	"github.com/choplife/choplifeib/internal/storage"
	"github.com/choplife/choplifeib/web"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testNow is a Wednesday afternoon in Ibadan.
var testNow = time.Date(2024, time.May, 15, 14, 0, 0, 0, events.Lagos)

type testApp struct {
	db      *gorm.DB
	router  *gin.Engine
	auth    *auth.Service
	places  *places.Repository
	events  *events.Repository
	users   *users.Repository
	gallery *gallery.Repository
	bus     realtime.Bus
	cache   *cache.Memory
}

type appOption func(*RouterConfig)

func withReadOnly() appOption {
	return func(cfg *RouterConfig) { cfg.ReadOnly = readonly.NewMiddleware(true) }
}

// newTestApp builds the full router in local auth mode without CSRF so
// requests can authenticate with bearer tokens.
func newTestApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()

	db := dbtest.New(t)
	authCfg := config.Auth{
		Mode:             config.AuthModeLocal,
		SessionLifetime:  time.Hour,
		BcryptCost:       4,
		AllowSignup:      true,
		MaxLoginAttempts: 5,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}
	authService := auth.NewService(db, authCfg)
	disk, err := storage.NewDisk(filepath.Join(t.TempDir(), "uploads"), "/uploads")
	require.NoError(t, err)

	app := &testApp{
		db:      db,
		auth:    authService,
		places:  places.NewRepository(db),
		events:  events.NewRepository(db),
		users:   users.NewRepository(db),
		gallery: gallery.NewRepository(db),
		bus:     realtime.NewMemoryBus(),
		cache:   cache.NewMemory(),
	}

	cfg := RouterConfig{
		DB:             db,
		Places:         app.places,
		Events:         app.events,
		Reviews:        reviews.NewRepository(db),
		Favourites:     favourites.NewRepository(db),
		Users:          app.users,
		Gallery:        app.gallery,
		Spotlights:     spotlights.NewRepository(db),
		Analytics:      analytics.NewRepository(db),
		Auditor:        audit.NewService(auditrepo.NewRepository(db)),
		Aggregates:     services.NewAggregates(db, nil),
		Cache:          app.cache,
		Bus:            app.bus,
		Storage:        disk,
		AuthService:    authService,
		AuthMiddleware: auth.NewMiddleware(authService, nil, authCfg),
		AuthConfig:     authCfg,
		UI:             config.UI{PageSize: 12},
		Templates:      web.Templates(),
		Static:         web.Static(),
		SearchCacheTTL: time.Minute,
		MaxUploadBytes: 1 << 20,
		UploadsDir:     disk.Dir(),
		Version:        "test",
		Now:            func() time.Time { return testNow },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	app.router, err = NewRouter(cfg)
	require.NoError(t, err)
	return app
}

// testUserPassword satisfies auth.MinPasswordLength.
const testUserPassword = "amala-and-ewedu"

// user creates an account and returns it with a fresh API token.
func (a *testApp) user(t *testing.T, username string, role entities.UserRole) (*entities.User, string) {
	t.Helper()
	u, err := a.auth.CreateUser(username, username+"@example.com", testUserPassword, role)
	require.NoError(t, err)
	token, err := a.auth.GenerateToken(u.ID)
	require.NoError(t, err)
	return u, token
}

func (a *testApp) place(t *testing.T, name string, category entities.PlaceCategory) *entities.Place {
	t.Helper()
	p := &entities.Place{Name: name, Category: category, Area: "Bodija", IsPublished: true}
	require.NoError(t, a.places.Create(p))
	return p
}

func (a *testApp) event(t *testing.T, title string, startsAt time.Time) *entities.Event {
	t.Helper()
	e := &entities.Event{Title: title, Category: entities.EventCategoryMusic, StartsAt: startsAt, IsPublished: true}
	require.NoError(t, a.events.Create(e))
	return e
}

type request struct {
	method  string
	path    string
	token   string
	body    io.Reader
	headers map[string]string
}

func (a *testApp) do(r request) *httptest.ResponseRecorder {
	req := httptest.NewRequest(r.method, r.path, r.body)
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(path, token string) *httptest.ResponseRecorder {
	return a.do(request{method: http.MethodGet, path: path, token: token})
}

func (a *testApp) postJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return a.do(request{
		method:  method,
		path:    path,
		token:   token,
		body:    bytes.NewReader(data),
		headers: map[string]string{"Content-Type": "application/json"},
	})
}

func (a *testApp) postForm(path, token string, form url.Values) *httptest.ResponseRecorder {
	return a.do(request{
		method:  http.MethodPost,
		path:    path,
		token:   token,
		body:    strings.NewReader(form.Encode()),
		headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	})
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func uintStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
