// Package readonly blocks writes for public demo deployments.
package readonly

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// Message is shown to visitors when a write is refused.
const Message = "This site is in read-only mode"

// ContextKey exposes the mode to templates.
const ContextKey = "read_only"

// Middleware refuses every non-GET request except signing in and out.
type Middleware struct {
	enabled bool
}

func NewMiddleware(enabled bool) *Middleware {
	return &Middleware{enabled: enabled}
}

func (m *Middleware) IsEnabled() bool {
	return m != nil && m.enabled
}

// Handler returns the gin middleware. It is a no-op when disabled.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKey, m.IsEnabled())
		if !m.IsEnabled() {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if isAllowedPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		respondBlocked(c)
	}
}

func isAllowedPath(path string) bool {
	return path == "/login" || path == "/logout"
}

func respondBlocked(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") || strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     Message,
			"code":      "read_only",
			"read_only": true,
		})
		return
	}

	target := "/"
	if ref := c.Request.Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil && (u.Host == "" || u.Host == c.Request.Host) {
			target = u.Path
			if target == "" {
				target = "/"
			}
		}
	}
	c.Redirect(http.StatusSeeOther, target+"?error="+url.QueryEscape(Message))
	c.Abort()
}

// Enabled reads the flag the middleware stored on the context.
func Enabled(c *gin.Context) bool {
	return c.GetBool(ContextKey)
}
