package auth

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeadersMiddleware sets the browser hardening headers. Map tiles
// and listing images come from arbitrary HTTPS hosts; map and chart
// scripts load from unpkg. When analyticsScriptURL is set its origin may
// serve scripts and receive page-view events.
func SecurityHeadersMiddleware(analyticsScriptURL string) gin.HandlerFunc {
	scriptSrc := "'self' 'unsafe-inline' https://unpkg.com"
	connectSrc := "'self'"
	if origin := extractOrigin(analyticsScriptURL); origin != "" {
		scriptSrc += " " + origin
		connectSrc += " " + origin
	}

	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		formAction := "'self'"
		if host := c.Request.Host; host != "" {
			formAction = "'self' https://" + host
		}

		c.Header("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src "+scriptSrc+"; "+
				"style-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"img-src 'self' data: https:; "+
				"font-src 'self'; "+
				"connect-src "+connectSrc+"; "+
				"frame-ancestors 'none'; "+
				"form-action "+formAction)

		// geolocation powers "near me" and the admin location picker
		c.Header("Permissions-Policy",
			"camera=(), geolocation=(self), microphone=(), payment=(), usb=()")

		c.Next()
	}
}

// extractOrigin returns scheme://host of rawURL, assuming https when the
// scheme is missing. Empty or unparsable input yields "".
func extractOrigin(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}

// StrictTransportSecurityMiddleware adds HSTS on HTTPS requests.
func StrictTransportSecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
