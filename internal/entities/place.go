package entities

import "time"

type PlaceCategory string

const (
	PlaceCategoryRestaurant PlaceCategory = "restaurant"
	PlaceCategoryBar        PlaceCategory = "bar"
	PlaceCategoryLounge     PlaceCategory = "lounge"
	PlaceCategoryCafe       PlaceCategory = "cafe"
	PlaceCategoryHotel      PlaceCategory = "hotel"
	PlaceCategoryAttraction PlaceCategory = "attraction"
	PlaceCategoryShopping   PlaceCategory = "shopping"
	PlaceCategoryNightclub  PlaceCategory = "nightclub"
	PlaceCategoryPark       PlaceCategory = "park"
	PlaceCategoryGallery    PlaceCategory = "gallery"
)

// PlaceCategories is the display order of the filter tabs.
var PlaceCategories = []PlaceCategory{
	PlaceCategoryRestaurant,
	PlaceCategoryBar,
	PlaceCategoryLounge,
	PlaceCategoryCafe,
	PlaceCategoryNightclub,
	PlaceCategoryHotel,
	PlaceCategoryAttraction,
	PlaceCategoryPark,
	PlaceCategoryGallery,
	PlaceCategoryShopping,
}

func (c PlaceCategory) IsValid() bool {
	for _, known := range PlaceCategories {
		if c == known {
			return true
		}
	}
	return false
}

type Place struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	Slug          string        `gorm:"uniqueIndex;size:160" json:"slug"`
	Name          string        `gorm:"index;size:160" json:"name"`
	Category      PlaceCategory `gorm:"index;size:32" json:"category"`
	Description   string        `gorm:"type:text" json:"description,omitempty"`
	Address       string        `gorm:"size:512" json:"address,omitempty"`
	Area          string        `gorm:"index;size:128" json:"area,omitempty"` // e.g. "Bodija", "Ring Road"
	Latitude      *float64      `json:"latitude,omitempty"`
	Longitude     *float64      `json:"longitude,omitempty"`
	PriceRange    int           `gorm:"default:2" json:"price_range"` // 1 (budget) to 4 (premium)
	Phone         string        `gorm:"size:32" json:"phone,omitempty"`
	Website       string        `gorm:"size:2048" json:"website,omitempty"`
	Instagram     string        `gorm:"size:128" json:"instagram,omitempty"`
	OpeningHours  string        `gorm:"size:512" json:"opening_hours,omitempty"`
	CoverImageURL string        `gorm:"size:2048" json:"cover_image_url,omitempty"`
	IsFeatured    bool          `gorm:"index;default:false" json:"is_featured"`
	IsPublished   bool          `gorm:"index" json:"is_published"`
	Aggregates

	Gallery []GalleryImage `gorm:"-" json:"gallery,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Place) TableName() string {
	return "places"
}

// HasCoordinates reports whether the place can be shown on a map.
func (p *Place) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Ref returns the listing reference for this place.
func (p *Place) Ref() ListingRef {
	return ListingRef{Type: ListingTypePlace, ID: p.ID}
}

// PriceLabel renders the price range as naira signs.
func (p Place) PriceLabel() string {
	n := p.PriceRange
	if n < 1 {
		n = 1
	}
	if n > 4 {
		n = 4
	}
	label := ""
	for i := 0; i < n; i++ {
		label += "₦"
	}
	return label
}
