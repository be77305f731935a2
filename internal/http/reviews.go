package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/database/reviews"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
)

// ReviewStore defines the review writes available to signed-in users.
type ReviewStore interface {
	ReviewReader
	Upsert(review *entities.Review) (bool, error)
	DeleteOwn(id, userID uint) (*entities.Review, error)
}

// AggregateRefresher recomputes a listing's rating and favourite counters.
type AggregateRefresher interface {
	Refresh(ctx context.Context, ref entities.ListingRef) error
}

type reviewRequest struct {
	ListingType string `form:"listing_type" json:"listing_type" binding:"required,listing_type"`
	ListingID   uint   `form:"listing_id" json:"listing_id" binding:"required"`
	Rating      int    `form:"rating" json:"rating" binding:"required,rating"`
	Title       string `form:"title" json:"title" binding:"max=160"`
	Body        string `form:"body" json:"body" binding:"max=2000"`
}

type ReviewsController struct {
	reviews    ReviewStore
	aggregates AggregateRefresher
	pageSize   int
}

func NewReviewsController(reviews ReviewStore, aggregates AggregateRefresher, pageSize int) *ReviewsController {
	return &ReviewsController{reviews: reviews, aggregates: aggregates, pageSize: pageSize}
}

// SubmitReview creates or updates the caller's review of a listing.
// POST /api/reviews
func (rc *ReviewsController) SubmitReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBind(&req); err != nil {
		if isFormPost(c) {
			redirectWithError(c, backURL(c, "/"), firstValidationMessage(err))
			return
		}
		respondValidationError(c, err)
		return
	}

	listingType, _ := entities.ParseListingType(req.ListingType)
	review := &entities.Review{
		UserID:      auth.GetUserID(c),
		ListingType: listingType,
		ListingID:   req.ListingID,
		Rating:      req.Rating,
		Title:       req.Title,
		Body:        req.Body,
	}

	created, err := rc.reviews.Upsert(review)
	if err != nil {
		rc.respondWriteError(c, err, "submit review")
		return
	}
	rc.refresh(c, review.Listing())

	if isFormPost(c) {
		redirectWithNotice(c, backURL(c, "/"), "Thanks! Your review has been saved.")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"review": review, "created": created})
}

// DeleteReview removes the caller's own review.
// DELETE /api/reviews/:id
func (rc *ReviewsController) DeleteReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	review, err := rc.reviews.DeleteOwn(id, auth.GetUserID(c))
	if err != nil {
		rc.respondWriteError(c, err, "delete review")
		return
	}
	rc.refresh(c, review.Listing())

	if isFormPost(c) {
		redirectWithNotice(c, backURL(c, "/"), "Your review has been removed.")
		return
	}
	respondSuccess(c, "review deleted")
}

// ListForListing returns published reviews with the rating breakdown.
// GET /api/places/:id/reviews, GET /api/events/:id/reviews
func (rc *ReviewsController) ListForListing(listingType entities.ListingType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		ref := entities.ListingRef{Type: listingType, ID: id}

		page := parsePagination(c, rc.pageSize)
		list, total, err := rc.reviews.ListForListing(ref, page.PerPage, page.Offset())
		if err != nil {
			respondInternalError(c, err, "list reviews")
			return
		}
		page.SetTotal(total)

		summary, err := rc.reviews.RatingSummary(ref)
		if err != nil {
			respondInternalError(c, err, "rating summary")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data":        publicReviews(list),
			"summary":     summary,
			"total":       page.Total,
			"page":        page.Page,
			"per_page":    page.PerPage,
			"total_pages": page.TotalPages,
			"has_more":    page.HasNext,
		})
	}
}

// PublicReview is a review with the author's display name and no email.
type PublicReview struct {
	entities.Review
	Author string `json:"author"`
}

func publicReviews(list []entities.Review) []PublicReview {
	out := make([]PublicReview, len(list))
	for i := range list {
		out[i] = PublicReview{Review: list[i], Author: list[i].AuthorName()}
	}
	return out
}

func (rc *ReviewsController) refresh(c *gin.Context, ref entities.ListingRef) {
	if rc.aggregates == nil {
		return
	}
	if err := rc.aggregates.Refresh(c.Request.Context(), ref); err != nil {
		// counters catch up on the nightly refresh
		logging.Component("http").Warn().Err(err).Str("listing", ref.String()).Msg("failed to refresh aggregates")
	}
}

func (rc *ReviewsController) respondWriteError(c *gin.Context, err error, op string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, reviews.ErrNotFound), errors.Is(err, reviews.ErrListingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, reviews.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, reviews.ErrInvalidRating), errors.Is(err, reviews.ErrBodyTooLong):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logging.Component("http").Error().Err(err).Str("op", op).Msg("review write failed")
	}
	msg := userMessage(err, reviews.ErrNotFound, reviews.ErrListingNotFound, reviews.ErrNotOwner,
		reviews.ErrInvalidRating, reviews.ErrBodyTooLong)

	if isFormPost(c) {
		redirectWithError(c, backURL(c, "/"), msg)
		return
	}
	if status == http.StatusInternalServerError {
		respondInternalError(c, err, op)
		return
	}
	respondError(c, status, msg)
}

// isFormPost is true for browser form submissions.
func isFormPost(c *gin.Context) bool {
	ct := c.ContentType()
	return !wantsJSONBody(c) && (ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data")
}

func wantsJSONBody(c *gin.Context) bool {
	return c.ContentType() == "application/json" || c.GetHeader("Accept") == "application/json"
}

// backURL is the same-host referer path, or fallback.
func backURL(c *gin.Context, fallback string) string {
	ref := c.Request.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != c.Request.Host) || u.Path == "" {
		return fallback
	}
	return u.Path
}
