package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/database/reviews"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
)

// ReviewModerator defines the review writes of the back-office.
type ReviewModerator interface {
	ListAll(filter reviews.Filter) ([]entities.Review, int64, error)
	SetStatus(id uint, status entities.ReviewStatus) (*entities.Review, error)
	Delete(id uint) (*entities.Review, error)
}

type AdminReviewsController struct {
	reviews    ReviewModerator
	aggregates AggregateRefresher
	auditor    Auditor
	renderer   *Renderer
}

func NewAdminReviewsController(reviews ReviewModerator, aggregates AggregateRefresher, auditor Auditor, renderer *Renderer) *AdminReviewsController {
	return &AdminReviewsController{reviews: reviews, aggregates: aggregates, auditor: auditor, renderer: renderer}
}

var reviewStatusTabs = []entities.ReviewStatus{entities.ReviewStatusPublished, entities.ReviewStatusHidden}

// ListPage shows reviews filtered by status and listing type.
// GET /admin/reviews
func (rc *AdminReviewsController) ListPage(c *gin.Context) {
	page := parsePagination(c, maxPerPage)
	filter := reviews.Filter{Limit: page.PerPage, Offset: page.Offset()}
	if status := entities.ReviewStatus(c.Query("status")); status.IsValid() {
		filter.Status = status
	}
	if t, err := entities.ParseListingType(c.Query("type")); err == nil {
		filter.ListingType = t
	}

	list, total, err := rc.reviews.ListAll(filter)
	if err != nil {
		rc.renderer.Failure(c, err, "admin reviews")
		return
	}
	page.SetTotal(total)

	if wantsJSON(c) {
		respondPage(c, list, page)
		return
	}
	rc.renderer.HTML(c, http.StatusOK, "admin-reviews.html", gin.H{
		"Title":        "Reviews",
		"Section":      "reviews",
		"Reviews":      list,
		"Status":       filter.Status,
		"ListingType":  filter.ListingType,
		"StatusTabs":   reviewStatusTabs,
		"Pagination":   page,
		"EmptyMessage": "No reviews match your filters",
	})
}

// SetStatus hides or publishes a review.
// POST /admin/reviews/:id/status
func (rc *AdminReviewsController) SetStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	status := entities.ReviewStatus(c.PostForm("status"))

	review, err := rc.reviews.SetStatus(id, status)
	if err != nil {
		rc.fail(c, err, "review status")
		return
	}

	action := "hide"
	if status == entities.ReviewStatusPublished {
		action = "publish"
	}
	rc.auditor.LogReviewModeration(auth.GetUserID(c), review.ID, action)
	rc.refresh(c, review.Listing())
	rc.done(c, review, "Review "+string(status))
}

// Delete removes a review outright.
// POST /admin/reviews/:id/delete
func (rc *AdminReviewsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	review, err := rc.reviews.Delete(id)
	if err != nil {
		rc.fail(c, err, "review delete")
		return
	}
	rc.auditor.LogReviewModeration(auth.GetUserID(c), review.ID, "delete")
	rc.refresh(c, review.Listing())
	rc.done(c, review, "Review deleted")
}

func (rc *AdminReviewsController) refresh(c *gin.Context, ref entities.ListingRef) {
	if rc.aggregates == nil {
		return
	}
	if err := rc.aggregates.Refresh(c.Request.Context(), ref); err != nil {
		logging.Component("admin").Warn().Err(err).Str("listing", ref.String()).Msg("failed to refresh aggregates")
	}
}

func (rc *AdminReviewsController) done(c *gin.Context, review *entities.Review, msg string) {
	if wantsJSON(c) {
		c.JSON(http.StatusOK, review)
		return
	}
	redirectWithNotice(c, backURL(c, "/admin/reviews"), msg)
}

func (rc *AdminReviewsController) fail(c *gin.Context, err error, op string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, reviews.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, reviews.ErrInvalidStatus):
		status = http.StatusBadRequest
	default:
		logging.Component("admin").Error().Err(err).Str("op", op).Msg("review moderation failed")
	}
	msg := userMessage(err, reviews.ErrNotFound, reviews.ErrInvalidStatus)

	if wantsJSON(c) {
		respondError(c, status, msg)
		return
	}
	redirectWithError(c, backURL(c, "/admin/reviews"), msg)
}
