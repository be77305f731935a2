package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestLogger_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("choplife-test", "production", "info", &buf)

	router := gin.New()
	router.Use(RequestID(), RequestLogger())
	router.GET("/places", func(c *gin.Context) {
		c.Set(UserIDKey, uint(7))
		c.Status(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/places?category=bar", nil)
	router.ServeHTTP(w, req)

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "choplife-test", entry["service"])
	assert.Equal(t, "http", entry["component"])
	assert.Equal(t, "/places?category=bar", entry["path"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, float64(7), entry["user_id"])
	assert.Equal(t, w.Header().Get(RequestIDHeader), entry["request_id"])
}

func TestRequestID_ReusesInboundHeader(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestInit_ParsesLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("svc", "production", "error", &buf)
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())

	InitWithWriter("svc", "production", "nonsense", &buf)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestComponent_TagsChainedEvents(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("svc", "production", "info", &buf)

	Component("geocoding").Warn().Str("query", "bodija").Msg("no match")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "geocoding", entry["component"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "bodija", entry["query"])
}
