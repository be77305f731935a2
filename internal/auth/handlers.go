package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/audit"
	"github.com/choplife/choplifeib/internal/config"
	"github.com/choplife/choplifeib/internal/entities"
)

var setupMutex sync.Mutex

// isLocalPath reports whether a redirect target stays on this site.
func isLocalPath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	if strings.HasPrefix(path, "//") || strings.Contains(path, "://") || strings.Contains(path, "\\") {
		return false
	}
	return true
}

func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// Renderer draws a named page template.
type Renderer interface {
	HTML(c *gin.Context, status int, name string, data gin.H)
}

// AuthController serves login, logout, sign-up and first-run setup.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	renderer       Renderer
	auditor        *audit.Service
	config         config.Auth
	rateLimiter    *RateLimiter
}

// NewAuthController wires the auth pages. renderer and auditor may be nil;
// without a renderer pages are answered with their data as JSON.
func NewAuthController(service *Service, sessionManager *SessionManager, renderer Renderer, auditor *audit.Service, cfg config.Auth) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		renderer:       renderer,
		auditor:        auditor,
		config:         cfg,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
	}
}

func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout)
	router.GET("/signup", ac.SignupPage)
	router.POST("/signup", ac.Signup)
	router.GET("/setup", ac.SetupPage)
	router.POST("/setup", ac.Setup)
}

// Stop releases the rate limiter's cleanup goroutine.
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

func (ac *AuthController) LoginPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	if hasUsers, _ := ac.service.HasUsers(); !hasUsers {
		c.Redirect(http.StatusFound, "/setup")
		return
	}

	ac.render(c, http.StatusOK, "login.html", gin.H{
		"Title":       "Log in",
		"Next":        sanitizeRedirectPath(c.Query("next")),
		"Error":       c.Query("error"),
		"AllowSignup": ac.service.AllowSignup(),
	})
}

func (ac *AuthController) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	page := func(status int, msg string) {
		ac.render(c, status, "login.html", gin.H{
			"Title":       "Log in",
			"Next":        next,
			"Username":    username,
			"Error":       msg,
			"AllowSignup": ac.service.AllowSignup(),
		})
	}

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, username); !allowed {
		c.Header("Retry-After", retryAfter.String())
		page(http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		return
	}

	user, err := ac.service.Authenticate(username, password)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, username)
		if ac.auditor != nil {
			ac.auditor.LogAuth(0, "login_failed", clientIP, c.Request.UserAgent(), false)
		}
		msg := "Invalid username or password"
		if errors.Is(err, ErrAccountLocked) {
			msg = "Account is locked. Please try again later."
		}
		page(http.StatusUnauthorized, msg)
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, username)

	if err := ac.sessionManager.CreateSession(c.Request, user.ID); err != nil {
		page(http.StatusInternalServerError, "Failed to create session")
		return
	}
	if ac.auditor != nil {
		ac.auditor.LogAuth(user.ID, "login", clientIP, c.Request.UserAgent(), true)
	}

	c.Redirect(http.StatusFound, next)
}

func (ac *AuthController) Logout(c *gin.Context) {
	if userID := GetUserID(c); userID != DefaultUserID && ac.auditor != nil {
		ac.auditor.LogAuth(userID, "logout", c.ClientIP(), c.Request.UserAgent(), true)
	}
	_ = ac.sessionManager.DestroySession(c.Request)
	c.Redirect(http.StatusFound, "/")
}

func (ac *AuthController) SignupPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, "/")
		return
	}
	if !ac.service.AllowSignup() {
		c.Redirect(http.StatusFound, "/login?error="+url.QueryEscape(capitalizeFirst(ErrSignupDisabled.Error())))
		return
	}
	ac.render(c, http.StatusOK, "signup.html", gin.H{
		"Title": "Create an account",
		"Next":  sanitizeRedirectPath(c.Query("next")),
	})
}

func (ac *AuthController) Signup(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")
	fullName := c.PostForm("full_name")
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))

	page := func(status int, msg string) {
		ac.render(c, status, "signup.html", gin.H{
			"Title":    "Create an account",
			"Next":     next,
			"Username": username,
			"Email":    email,
			"FullName": fullName,
			"Error":    msg,
		})
	}

	if password != c.PostForm("confirm_password") {
		page(http.StatusBadRequest, "Passwords do not match")
		return
	}

	user, err := ac.service.Signup(username, email, password, fullName)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrSignupDisabled) {
			status = http.StatusForbidden
		} else if errors.Is(err, ErrUserExists) {
			status = http.StatusConflict
		} else if !isValidationError(err) {
			status = http.StatusInternalServerError
		}
		page(status, accountErrorMessage(err))
		return
	}

	if ac.auditor != nil {
		ac.auditor.LogAuth(user.ID, "signup", c.ClientIP(), c.Request.UserAgent(), true)
	}
	if err := ac.sessionManager.CreateSession(c.Request, user.ID); err != nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.Redirect(http.StatusFound, next)
}

// SetupPage renders the first-run form that creates the initial admin.
func (ac *AuthController) SetupPage(c *gin.Context) {
	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		ac.render(c, http.StatusInternalServerError, "setup.html", gin.H{
			"Title": "Initial setup",
			"Error": "Database error. Please try again.",
		})
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	ac.render(c, http.StatusOK, "setup.html", gin.H{
		"Title": "Initial setup",
		"Error": c.Query("error"),
	})
}

// Setup creates the initial admin. Requests are serialized so two
// concurrent submissions cannot both pass the empty-database check.
func (ac *AuthController) Setup(c *gin.Context) {
	setupMutex.Lock()
	defer setupMutex.Unlock()

	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		ac.render(c, http.StatusInternalServerError, "setup.html", gin.H{
			"Title": "Initial setup",
			"Error": "Database error. Please try again.",
		})
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")

	page := func(status int, msg string) {
		ac.render(c, status, "setup.html", gin.H{
			"Title":    "Initial setup",
			"Username": username,
			"Email":    email,
			"Error":    msg,
		})
	}

	if password != c.PostForm("confirm_password") {
		page(http.StatusBadRequest, "Passwords do not match")
		return
	}

	user, err := ac.service.CreateUser(username, email, password, entities.UserRoleAdmin)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			c.Redirect(http.StatusFound, "/login")
			return
		}
		page(http.StatusBadRequest, accountErrorMessage(err))
		return
	}

	if ac.auditor != nil {
		ac.auditor.LogAuth(user.ID, "setup_admin", c.ClientIP(), c.Request.UserAgent(), true)
	}
	_ = ac.sessionManager.CreateSession(c.Request, user.ID)
	c.Redirect(http.StatusFound, "/admin")
}

func isValidationError(err error) bool {
	for _, target := range []error{
		ErrPasswordTooShort, ErrPasswordTooLong, ErrPasswordRequired,
		ErrUsernameRequired, ErrUsernameInvalid, ErrEmailRequired,
		ErrEmailInvalid, ErrFullNameTooLong, ErrInvalidRole,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// accountErrorMessage turns account-creation errors into form feedback.
func accountErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrPasswordTooShort):
		return "Password must be at least 12 characters"
	case errors.Is(err, ErrPasswordTooLong):
		return "Password exceeds maximum length of 72 characters"
	case errors.Is(err, ErrUserExists), errors.Is(err, ErrSignupDisabled):
		return capitalizeFirst(err.Error())
	case isValidationError(err):
		return capitalizeFirst(err.Error())
	default:
		return "Failed to create account"
	}
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (ac *AuthController) render(c *gin.Context, status int, name string, data gin.H) {
	data["CSRFToken"] = GetCSRFToken(c)
	if ac.renderer == nil {
		c.JSON(status, data)
		return
	}
	ac.renderer.HTML(c, status, name, data)
}

// APITokenController lets signed-in users manage their API token.
type APITokenController struct {
	service *Service
}

func NewAPITokenController(service *Service) *APITokenController {
	return &APITokenController{service: service}
}

func (tc *APITokenController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == DefaultUserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": ErrAuthRequired.Error()})
		return
	}

	token, err := tc.service.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely, it will not be shown again",
	})
}

func (tc *APITokenController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == DefaultUserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": ErrAuthRequired.Error()})
		return
	}

	if err := tc.service.RevokeToken(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}
