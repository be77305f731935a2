package entities

import "time"

// GalleryImage is a photo attached to a place or event.
type GalleryImage struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	ListingType ListingType `gorm:"index:idx_gallery_listing;size:16" json:"listing_type"`
	ListingID   uint        `gorm:"index:idx_gallery_listing" json:"listing_id"`
	URL         string      `gorm:"size:2048" json:"url"`
	StorageKey  string      `gorm:"size:512" json:"-"` // empty for externally hosted images
	Caption     string      `gorm:"size:300" json:"caption,omitempty"`
	Position    int         `json:"position"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (GalleryImage) TableName() string {
	return "gallery_images"
}

func (g *GalleryImage) Listing() ListingRef {
	return ListingRef{Type: g.ListingType, ID: g.ListingID}
}

// Spotlight is a curated banner on the home page.
type Spotlight struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Title       string      `gorm:"size:160" json:"title"`
	Subtitle    string      `gorm:"size:300" json:"subtitle,omitempty"`
	ImageURL    string      `gorm:"size:2048" json:"image_url,omitempty"`
	LinkURL     string      `gorm:"size:2048" json:"link_url,omitempty"`
	ListingType ListingType `gorm:"size:16" json:"listing_type,omitempty"`
	ListingID   *uint       `json:"listing_id,omitempty"`
	Position    int         `json:"position"`
	StartsAt    time.Time   `gorm:"index" json:"starts_at"`
	EndsAt      *time.Time  `json:"ends_at,omitempty"`
	IsActive    bool        `gorm:"index" json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (Spotlight) TableName() string {
	return "spotlights"
}

// IsLive reports whether the spotlight should be shown at the given instant.
func (s *Spotlight) IsLive(now time.Time) bool {
	if !s.IsActive || now.Before(s.StartsAt) {
		return false
	}
	return s.EndsAt == nil || now.Before(*s.EndsAt)
}
