// Package logging configures the process-wide zerolog logger and provides
// the request logging middleware used by the HTTP router.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global zerolog logger.
func Init(serviceName, env, level string) {
	InitWithWriter(serviceName, env, level, os.Stdout)
}

// InitWithWriter is Init with an explicit output, used by tests.
func InitWithWriter(serviceName, env, level string, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if env == "development" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
		}).With().
			Timestamp().
			Str("service", serviceName).
			Logger()
		return
	}

	log.Logger = zerolog.New(out).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Component returns a child logger tagged with a component name.
func Component(name string) *zerolog.Logger {
	l := log.With().Str("component", name).Logger()
	return &l
}

// UserIDKey is the gin context key the auth middleware stores the user ID under.
// Duplicated here as a string to keep this package free of auth imports.
const UserIDKey = "auth_user_id"

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID reuses an inbound X-Request-ID or assigns a new UUID, and echoes
// it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request once the handler chain has run.
func RequestLogger() gin.HandlerFunc {
	logger := Component("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		var evt *zerolog.Event
		switch {
		case status >= 500:
			evt = logger.Error()
		case status >= 400:
			evt = logger.Warn()
		default:
			evt = logger.Info()
		}

		if uid, ok := c.Get(UserIDKey); ok {
			evt = evt.Interface("user_id", uid)
		}
		if rid := c.GetString(requestIDKey); rid != "" {
			evt = evt.Str("request_id", rid)
		}
		if len(c.Errors) > 0 {
			evt = evt.Str("errors", c.Errors.String())
		}

		evt.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("request")
	}
}
