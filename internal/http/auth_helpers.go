package http

import (
	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/config"
	"github.com/choplife/choplifeib/internal/entities"
)

// AuthTemplateData holds authentication info for templates.
type AuthTemplateData struct {
	Enabled     bool // Whether auth is enabled (AuthModeLocal)
	LoggedIn    bool
	UserID      uint
	Username    string
	DisplayName string
	Role        entities.UserRole
	IsAdmin     bool
	AllowSignup bool
}

const authTemplateKey = "auth_template_data"

// AuthContextMiddleware injects authentication data into the gin context for templates.
func AuthContextMiddleware(cfg config.Auth) gin.HandlerFunc {
	authEnabled := cfg.Mode == config.AuthModeLocal

	return func(c *gin.Context) {
		data := AuthTemplateData{
			Enabled:     authEnabled,
			AllowSignup: authEnabled && cfg.AllowSignup,
		}

		if user := auth.GetUser(c); user != nil {
			data.LoggedIn = true
			data.UserID = user.ID
			data.Username = user.Username
			data.DisplayName = user.DisplayName()
			data.Role = user.Role
			data.IsAdmin = user.IsAdmin()
		}

		c.Set(authTemplateKey, data)
		c.Next()
	}
}

// GetAuthTemplateData retrieves auth data from context for use in templates.
func GetAuthTemplateData(c *gin.Context) AuthTemplateData {
	if data, ok := c.Get(authTemplateKey); ok {
		if authData, ok := data.(AuthTemplateData); ok {
			return authData
		}
	}
	return AuthTemplateData{}
}
