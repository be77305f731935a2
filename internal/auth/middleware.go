package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/config"
	"github.com/choplife/choplifeib/internal/entities"
)

const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUser     = "auth_user"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
	ContextKeyAuthType = "auth_type" // "session", "bearer", or "none"
)

type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// DefaultUserID marks an anonymous request.
const DefaultUserID = uint(0)

// Middleware identifies the caller on every request. Browsing is public;
// RequireAuth and RequireRole gate the routes that need an account.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
}

func NewMiddleware(service *Service, sessionManager *SessionManager, cfg config.Auth) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
	}
}

// Handler resolves the current user from a bearer token or the session
// cookie. The user row is reloaded on every request so role changes apply
// immediately. Anonymous requests continue with DefaultUserID.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyUserID, DefaultUserID)
		c.Set(ContextKeyAuthType, AuthTypeNone)

		if m.config.Mode == config.AuthModeNone || isStaticPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		if user := m.tryBearerAuth(c); user != nil {
			setUserContext(c, user, AuthTypeBearer)
		} else if user := m.trySessionAuth(c); user != nil {
			setUserContext(c, user, AuthTypeSession)
		}
		c.Next()
	}
}

func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.User {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		return nil
	}
	user, err := m.service.ValidateToken(token)
	if err != nil {
		return nil
	}
	return user
}

func (m *Middleware) trySessionAuth(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}
	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}
	user, err := m.service.GetUserByID(userID)
	if err != nil {
		// account removed since login
		_ = m.sessionManager.DestroySession(c.Request)
		return nil
	}
	return user
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func setUserContext(c *gin.Context, user *entities.User, authType AuthType) {
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyUsername, user.Username)
	c.Set(ContextKeyRole, user.Role)
	c.Set(ContextKeyAuthType, authType)
}

func isStaticPath(path string) bool {
	return strings.HasPrefix(path, "/static/") || strings.HasPrefix(path, "/uploads/") || path == "/favicon.ico"
}

// IsAPIRequest distinguishes JSON clients from browsers.
func IsAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	return c.GetHeader("Authorization") != ""
}

// LoginURL is the login page with a return path back to the current page.
func LoginURL(c *gin.Context) string {
	return "/login?next=" + url.QueryEscape(c.Request.URL.RequestURI())
}

// RequireAuth rejects anonymous callers: 401 for API clients, a redirect to
// the login page for browsers.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.config.Mode == config.AuthModeNone || GetUserID(c) != DefaultUserID {
			c.Next()
			return
		}
		if IsAPIRequest(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": ErrAuthRequired.Error(),
				"code":  "unauthorized",
			})
			return
		}
		c.Redirect(http.StatusFound, LoginURL(c))
		c.Abort()
	}
}

// RequireRole admits only the listed roles. Signed-in browsers without the
// role are sent back to the home page; API clients get 403.
func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	allowed := make(map[entities.UserRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		if m.config.Mode == config.AuthModeNone {
			c.Next()
			return
		}

		if GetUserID(c) == DefaultUserID {
			m.RequireAuth()(c)
			return
		}

		if !allowed[GetUserRole(c)] {
			if IsAPIRequest(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "insufficient permissions",
					"code":  "forbidden",
				})
				return
			}
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID returns the signed-in user's ID or DefaultUserID.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return DefaultUserID
}

// GetUser returns the signed-in user, or nil for anonymous requests.
func GetUser(c *gin.Context) *entities.User {
	if u, exists := c.Get(ContextKeyUser); exists {
		if user, ok := u.(*entities.User); ok {
			return user
		}
	}
	return nil
}

func GetUsername(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyUsername); exists {
		if username, ok := name.(string); ok {
			return username
		}
	}
	return ""
}

func GetUserRole(c *gin.Context) entities.UserRole {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}

// IsAuthenticated reports whether a user is signed in.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != DefaultUserID
}

// IsAdmin reports whether the signed-in user has the admin role.
func IsAdmin(c *gin.Context) bool {
	return GetUserRole(c) == entities.UserRoleAdmin
}
