package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/database/reviews"
	"github.com/choplife/choplifeib/internal/database/users"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
	"github.com/choplife/choplifeib/internal/realtime"
)

// ProfileStore reads and edits the caller's own profile.
type ProfileStore interface {
	GetByID(id uint) (*entities.User, error)
	UpdateProfile(id uint, fullName, avatarURL string) (*entities.User, error)
}

// ReviewHistory lists reviews a user has written.
type ReviewHistory interface {
	ListAll(filter reviews.Filter) ([]entities.Review, int64, error)
}

// Credentials manages the caller's password and API token.
type Credentials interface {
	ChangePassword(userID uint, oldPassword, newPassword string) error
	GenerateToken(userID uint) (string, error)
	RevokeToken(userID uint) error
}

const streamHeartbeat = 25 * time.Second

type profileRequest struct {
	FullName  string `form:"full_name" json:"full_name" binding:"max=128"`
	AvatarURL string `form:"avatar_url" json:"avatar_url" binding:"omitempty,url,max=2048"`
}

type ProfileController struct {
	users       ProfileStore
	reviews     ReviewHistory
	favourites  FavouritesStore
	credentials Credentials
	bus         realtime.Bus
	renderer    *Renderer
	heartbeat   time.Duration
}

func NewProfileController(users ProfileStore, reviews ReviewHistory, favourites FavouritesStore, credentials Credentials, bus realtime.Bus, renderer *Renderer) *ProfileController {
	return &ProfileController{
		users:       users,
		reviews:     reviews,
		favourites:  favourites,
		credentials: credentials,
		bus:         bus,
		renderer:    renderer,
		heartbeat:   streamHeartbeat,
	}
}

// ProfilePage renders the caller's profile, reviews and saved count.
// GET /profile
func (pc *ProfileController) ProfilePage(c *gin.Context) {
	user, err := pc.users.GetByID(auth.GetUserID(c))
	if err != nil {
		pc.renderer.Failure(c, err, "load profile")
		return
	}

	myReviews, reviewTotal, err := pc.reviews.ListAll(reviews.Filter{UserID: user.ID, Limit: 20})
	if err != nil {
		pc.renderer.Failure(c, err, "load profile reviews")
		return
	}

	var favCount int64
	if pc.favourites != nil {
		if favCount, err = pc.favourites.Count(user.ID); err != nil {
			pc.renderer.Failure(c, err, "count favourites")
			return
		}
	}

	pc.renderer.HTML(c, http.StatusOK, "profile.html", gin.H{
		"Title":          "Your profile",
		"User":           user,
		"Profile":        realtime.UpdateFromUser(user),
		"Reviews":        myReviews,
		"ReviewTotal":    reviewTotal,
		"FavouriteCount": favCount,
		"HasToken":       user.TokenHash != "",
		"Token":          c.Query("token"),
	})
}

// UpdateProfile saves the editable profile fields and notifies open sessions.
// POST /profile, PATCH /api/profile
func (pc *ProfileController) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBind(&req); err != nil {
		if isFormPost(c) {
			redirectWithError(c, "/profile", firstValidationMessage(err))
			return
		}
		respondValidationError(c, err)
		return
	}

	user, err := pc.users.UpdateProfile(auth.GetUserID(c), req.FullName, req.AvatarURL)
	if err != nil {
		known := []error{users.ErrNameTooLong, users.ErrInvalidAvatar}
		if isFormPost(c) {
			redirectWithError(c, "/profile", userMessage(err, known...))
			return
		}
		if errors.Is(err, users.ErrNameTooLong) || errors.Is(err, users.ErrInvalidAvatar) {
			respondBadRequest(c, userMessage(err, known...))
			return
		}
		respondInternalError(c, err, "update profile")
		return
	}

	publishProfile(c.Request.Context(), pc.bus, user)

	if isFormPost(c) {
		redirectWithNotice(c, "/profile", "Profile updated")
		return
	}
	c.JSON(http.StatusOK, realtime.UpdateFromUser(user))
}

// ChangePassword handles password change requests.
// POST /profile/password
func (pc *ProfileController) ChangePassword(c *gin.Context) {
	current := c.PostForm("current_password")
	next := c.PostForm("new_password")
	if next != c.PostForm("confirm_password") {
		redirectWithError(c, "/profile", "New passwords do not match")
		return
	}

	err := pc.credentials.ChangePassword(auth.GetUserID(c), current, next)
	switch {
	case err == nil:
		redirectWithNotice(c, "/profile", "Password changed")
	case errors.Is(err, auth.ErrInvalidPassword):
		redirectWithError(c, "/profile", "Current password is incorrect")
	case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong):
		redirectWithError(c, "/profile", capitalize(err.Error()))
	default:
		logging.Component("http").Error().Err(err).Msg("password change failed")
		redirectWithError(c, "/profile", "Failed to change password")
	}
}

// GenerateToken issues a new API token, replacing any existing one. The
// plaintext is shown once.
// POST /profile/token
func (pc *ProfileController) GenerateToken(c *gin.Context) {
	token, err := pc.credentials.GenerateToken(auth.GetUserID(c))
	if err != nil {
		logging.Component("http").Error().Err(err).Msg("token generation failed")
		redirectWithError(c, "/profile", "Failed to generate token")
		return
	}
	pc.renderer.HTML(c, http.StatusOK, "token.html", gin.H{
		"Title": "Your API token",
		"Token": token,
	})
}

// RevokeToken removes the caller's API token.
// POST /profile/token/revoke
func (pc *ProfileController) RevokeToken(c *gin.Context) {
	if err := pc.credentials.RevokeToken(auth.GetUserID(c)); err != nil {
		logging.Component("http").Error().Err(err).Msg("token revoke failed")
		redirectWithError(c, "/profile", "Failed to revoke token")
		return
	}
	redirectWithNotice(c, "/profile", "API token revoked")
}

// GetProfile returns the caller's profile.
// GET /api/profile
func (pc *ProfileController) GetProfile(c *gin.Context) {
	user, err := pc.users.GetByID(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "get profile")
		return
	}
	c.JSON(http.StatusOK, realtime.UpdateFromUser(user))
}

// Stream pushes the caller's profile as server-sent events: the current
// row first, then every update until the client goes away.
// GET /api/profile/stream
func (pc *ProfileController) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.GetUserID(c)

	// subscribe before reading the row so no update falls in between
	updates, err := pc.bus.Subscribe(ctx, userID)
	if err != nil {
		respondInternalError(c, err, "subscribe profile")
		return
	}
	user, err := pc.users.GetByID(userID)
	if err != nil {
		respondInternalError(c, err, "load profile")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("profile", realtime.UpdateFromUser(user))
	c.Writer.Flush()

	heartbeat := time.NewTicker(pc.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.SSEvent("profile", update)
			c.Writer.Flush()
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			c.Writer.Flush()
		}
	}
}

// publishProfile pushes a profile change to the user's open sessions.
// Delivery is best effort.
func publishProfile(ctx context.Context, bus realtime.Bus, user *entities.User) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, realtime.UpdateFromUser(user)); err != nil {
		logging.Component("realtime").Warn().Err(err).Uint("user_id", user.ID).Msg("failed to publish profile update")
	}
}
