package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

var csrfSecret = []byte("test-secret-key-32-bytes-long!!!")

func csrfRouter(handled *bool) *gin.Engine {
	router := gin.New()
	router.Use(CSRFMiddleware(csrfSecret, false, nil))
	router.GET("/form", func(c *gin.Context) {
		c.String(http.StatusOK, GetCSRFToken(c))
	})
	router.POST("/api/favourites/place/1/toggle", func(c *gin.Context) {
		*handled = true
		c.Status(http.StatusOK)
	})
	router.POST("/profile", func(c *gin.Context) {
		*handled = true
		c.Status(http.StatusOK)
	})
	return router
}

func TestCSRFMiddleware_IssuesTokenOnGET(t *testing.T) {
	var handled bool
	w := httptest.NewRecorder()
	csrfRouter(&handled).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/form", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())
}

func TestCSRFMiddleware_BlocksPOSTWithoutToken(t *testing.T) {
	var handled bool
	router := csrfRouter(&handled)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/profile", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, handled, "handler must not run after a CSRF failure")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/favourites/place/1/toggle", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"csrf"`)
	assert.False(t, handled)
}

func TestCSRFMiddleware_AcceptsHeaderToken(t *testing.T) {
	var handled bool
	router := csrfRouter(&handled)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/form", nil))
	token := w.Body.String()

	req := httptest.NewRequest(http.MethodPost, "/api/favourites/place/1/toggle", nil)
	req.Header.Set(CSRFTokenHeader, token)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, handled)
}

func TestCSRFMiddleware_SkipsBearerClients(t *testing.T) {
	var handled bool
	req := httptest.NewRequest(http.MethodPost, "/api/favourites/place/1/toggle", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	w := httptest.NewRecorder()
	csrfRouter(&handled).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, handled)
}

func TestCSRFErrorHandler_RedirectsFormsBack(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader(""))
	req.Host = "choplife.test"
	req.Header.Set("Referer", "http://choplife.test/profile")
	w := httptest.NewRecorder()

	csrfErrorHandler(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "http://choplife.test/profile?error=Session+expired.+Please+try+again.", w.Header().Get("Location"))
}

func TestCSRFErrorHandler_IgnoresForeignReferer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/profile", nil)
	req.Host = "choplife.test"
	req.Header.Set("Referer", "https://evil.example/page")
	w := httptest.NewRecorder()

	csrfErrorHandler(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Session expired")
}

func TestIsAPIWithValidBearer(t *testing.T) {
	for header, want := range map[string]bool{
		"Bearer token":       true,
		"bearer token":       true,
		"BEARER token":       true,
		"Basic dXNlcjpwYXNz": false,
		"":                   false,
	} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, isAPIWithValidBearer(c, nil), header)
	}
}
