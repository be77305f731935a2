package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/config"
	"github.com/choplife/choplifeib/internal/database/dbtest"
	"github.com/choplife/choplifeib/internal/entities"
)

const testPassword = "jollof-rice-2024"

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.Auth {
	return config.Auth{
		Mode:             config.AuthModeLocal,
		SessionLifetime:  24 * time.Hour,
		BcryptCost:       4,
		AllowSignup:      true,
		MaxLoginAttempts: 3,
		LockoutDuration:  time.Minute,
	}
}

type fixture struct {
	db      *gorm.DB
	service *Service
	sm      *SessionManager
	router  *gin.Engine
	mw      *Middleware
}

// newFixture builds a router with sessions and the auth middleware, plus
// the auth pages (rendered as JSON) and a few test routes.
func newFixture(t *testing.T, cfg config.Auth) *fixture {
	t.Helper()
	db := dbtest.New(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	svc := NewService(db, cfg)
	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)
	mw := NewMiddleware(svc, sm, cfg)

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.Use(mw.Handler())

	ac := NewAuthController(svc, sm, nil, nil, cfg)
	t.Cleanup(ac.Stop)
	ac.RegisterRoutes(router)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	router.GET("/favourites", mw.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	router.GET("/api/favourites", mw.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	admin := router.Group("/admin", mw.RequireRole(entities.UserRoleAdmin))
	admin.GET("", func(c *gin.Context) { c.String(http.StatusOK, "dashboard") })
	router.GET("/api/admin/users", mw.RequireRole(entities.UserRoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	return &fixture{db: db, service: svc, sm: sm, router: router, mw: mw}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatalf("no session cookie in response: %v", w.Header())
	return nil
}
