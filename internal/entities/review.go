package entities

import "time"

type ReviewStatus string

const (
	ReviewStatusPublished ReviewStatus = "published"
	ReviewStatusHidden    ReviewStatus = "hidden"
)

func (s ReviewStatus) IsValid() bool {
	return s == ReviewStatusPublished || s == ReviewStatusHidden
}

const (
	MinRating        = 1
	MaxRating        = 5
	MaxReviewBodyLen = 2000
)

type Review struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	UserID      uint         `gorm:"uniqueIndex:idx_review_author_listing" json:"user_id"`
	ListingType ListingType  `gorm:"uniqueIndex:idx_review_author_listing;index:idx_review_listing;size:16" json:"listing_type"`
	ListingID   uint         `gorm:"uniqueIndex:idx_review_author_listing;index:idx_review_listing" json:"listing_id"`
	Rating      int          `json:"rating"`
	Title       string       `gorm:"size:160" json:"title,omitempty"`
	Body        string       `gorm:"type:text" json:"body,omitempty"`
	Status      ReviewStatus `gorm:"index;size:16;default:'published'" json:"status"`
	IsVerified  bool         `gorm:"default:false" json:"is_verified"`
	User        User         `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Review) TableName() string {
	return "reviews"
}

func (r *Review) Listing() ListingRef {
	return ListingRef{Type: r.ListingType, ID: r.ListingID}
}

// AuthorName is safe to show publicly; it never exposes the email.
func (r *Review) AuthorName() string {
	if r.User.ID == 0 {
		return "Anonymous"
	}
	return r.User.DisplayName()
}

// RatingSummary is the published-review breakdown for one listing.
type RatingSummary struct {
	Average   float64    `json:"average"`
	Count     int64      `json:"count"`
	Histogram [5]int64   `json:"histogram"` // index 0 is one star
	Listing   ListingRef `json:"listing"`
}

type Favourite struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	UserID      uint        `gorm:"uniqueIndex:idx_favourite_user_listing" json:"user_id"`
	ListingType ListingType `gorm:"uniqueIndex:idx_favourite_user_listing;index:idx_favourite_listing;size:16" json:"listing_type"`
	ListingID   uint        `gorm:"uniqueIndex:idx_favourite_user_listing;index:idx_favourite_listing" json:"listing_id"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (Favourite) TableName() string {
	return "favourites"
}
