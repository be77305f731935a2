package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/logging"
)

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps one page of results with its position.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// --- Error Response Helpers ---

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: "bad_request"})
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation failed",
		Code:    "validation",
		Details: validationDetails(err),
	})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: "not_found"})
}

// respondInternalError logs the error and sends a 500. The actual error is
// not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	_ = c.Error(err)
	logging.Component("http").Error().Err(err).Str("op", context).Msg("internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "internal"})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

func respondPage(c *gin.Context, data any, p Pagination) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:       data,
		Total:      p.Total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: p.TotalPages,
		HasMore:    p.HasNext,
	})
}

// --- Parameter Parsing ---

// parseIDParam extracts an unsigned integer ID from URL parameters.
// Responds with a 400 and returns false when it is not a valid ID.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

func parseFloatQuery(c *gin.Context, name string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Query(name)), 64)
	if err != nil {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

// --- Pagination ---

const (
	defaultPerPage = 12
	maxPerPage     = 50
)

// Pagination is the page position derived from ?page= and ?per_page=.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int64
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

func parsePagination(c *gin.Context, perPage int) Pagination {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if n, err := strconv.Atoi(c.Query("per_page")); err == nil && n > 0 {
		perPage = n
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	page := 1
	if n, err := strconv.Atoi(c.Query("page")); err == nil && n > 0 {
		page = n
	}
	return Pagination{Page: page, PerPage: perPage}
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

func (p Pagination) PrevPage() int { return p.Page - 1 }
func (p Pagination) NextPage() int { return p.Page + 1 }

func (p *Pagination) SetTotal(total int64) {
	p.Total = total
	p.TotalPages = int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	p.HasPrev = p.Page > 1
	p.HasNext = p.Page < p.TotalPages
}

// --- Request kind ---

// wantsJSON is true for /api routes and clients that ask for JSON.
func wantsJSON(c *gin.Context) bool {
	return auth.IsAPIRequest(c)
}

// redirectWithError sends a browser back to target with an error banner.
func redirectWithError(c *gin.Context, target, message string) {
	c.Redirect(http.StatusSeeOther, withQuery(target, "error", message))
}

func redirectWithNotice(c *gin.Context, target, message string) {
	c.Redirect(http.StatusSeeOther, withQuery(target, "notice", message))
}

func withQuery(target, key, value string) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + key + "=" + url.QueryEscape(value)
}

// userMessage turns an error into text safe to show on a page.
func userMessage(err error, known ...error) string {
	for _, k := range known {
		if errors.Is(err, k) {
			return capitalize(k.Error())
		}
	}
	return "Something went wrong. Please try again."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
