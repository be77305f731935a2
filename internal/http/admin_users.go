package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/database/users"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
	"github.com/choplife/choplifeib/internal/realtime"
)

// UserAdmin defines the account operations of the back-office.
type UserAdmin interface {
	List(filter users.Filter) ([]entities.User, int64, error)
	GetByID(id uint) (*entities.User, error)
	SetRole(actorID, id uint, role entities.UserRole) (*entities.User, error)
}

type roleRequest struct {
	Role string `form:"role" json:"role" binding:"required,role"`
}

type AdminUsersController struct {
	users    UserAdmin
	auditor  Auditor
	bus      realtime.Bus
	renderer *Renderer
}

func NewAdminUsersController(users UserAdmin, auditor Auditor, bus realtime.Bus, renderer *Renderer) *AdminUsersController {
	return &AdminUsersController{users: users, auditor: auditor, bus: bus, renderer: renderer}
}

func (uc *AdminUsersController) list(c *gin.Context) ([]entities.User, Pagination, users.Filter, error) {
	page := parsePagination(c, maxPerPage)
	filter := users.Filter{Query: c.Query("q"), Limit: page.PerPage, Offset: page.Offset()}
	if role := entities.UserRole(c.Query("role")); role.IsValid() {
		filter.Role = role
	}
	list, total, err := uc.users.List(filter)
	page.SetTotal(total)
	return list, page, filter, err
}

// ListPage renders the account search.
// GET /admin/users
func (uc *AdminUsersController) ListPage(c *gin.Context) {
	list, page, filter, err := uc.list(c)
	if err != nil {
		uc.renderer.Failure(c, err, "admin users")
		return
	}
	uc.renderer.HTML(c, http.StatusOK, "admin-users.html", gin.H{
		"Title":        "Users",
		"Section":      "users",
		"Users":        list,
		"Filter":       filter,
		"Roles":        entities.Roles,
		"Pagination":   page,
		"EmptyMessage": "No users match your search",
	})
}

// ListUsers is the JSON form of the account search.
// GET /api/admin/users
func (uc *AdminUsersController) ListUsers(c *gin.Context) {
	list, page, _, err := uc.list(c)
	if err != nil {
		respondInternalError(c, err, "list users")
		return
	}
	respondPage(c, list, page)
}

// SetRole changes an account's role, records it and pushes the new profile
// to the user's open pages.
// POST /admin/users/:id/role, PATCH /api/admin/users/:id/role
func (uc *AdminUsersController) SetRole(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req roleRequest
	if err := c.ShouldBind(&req); err != nil {
		if wantsJSON(c) {
			respondValidationError(c, err)
		} else {
			redirectWithError(c, "/admin/users", firstValidationMessage(err))
		}
		return
	}

	target, err := uc.users.GetByID(id)
	if err != nil {
		uc.fail(c, err)
		return
	}
	from := target.Role
	actorID := auth.GetUserID(c)

	user, err := uc.users.SetRole(actorID, id, entities.UserRole(req.Role))
	if err != nil {
		uc.fail(c, err)
		return
	}
	if from != user.Role {
		uc.auditor.LogRoleChange(actorID, user.ID, user.Username, from, user.Role)
		publishProfile(c.Request.Context(), uc.bus, user)
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, user)
		return
	}
	redirectWithNotice(c, backURL(c, "/admin/users"), user.Username+" is now "+user.Role.Label())
}

func (uc *AdminUsersController) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, users.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, users.ErrInvalidRole), errors.Is(err, users.ErrSelfDemote):
		status = http.StatusBadRequest
	default:
		logging.Component("admin").Error().Err(err).Msg("role change failed")
	}
	msg := userMessage(err, users.ErrNotFound, users.ErrInvalidRole, users.ErrSelfDemote)

	if wantsJSON(c) {
		respondError(c, status, msg)
		return
	}
	redirectWithError(c, backURL(c, "/admin/users"), msg)
}
