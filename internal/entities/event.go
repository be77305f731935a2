package entities

import "time"

type EventCategory string

const (
	EventCategoryMusic      EventCategory = "music"
	EventCategoryParty      EventCategory = "party"
	EventCategoryComedy     EventCategory = "comedy"
	EventCategoryArt        EventCategory = "art"
	EventCategoryFood       EventCategory = "food"
	EventCategorySports     EventCategory = "sports"
	EventCategoryTech       EventCategory = "tech"
	EventCategoryCulture    EventCategory = "culture"
	EventCategoryReligion   EventCategory = "religion"
	EventCategoryNetworking EventCategory = "networking"
)

var EventCategories = []EventCategory{
	EventCategoryMusic,
	EventCategoryParty,
	EventCategoryComedy,
	EventCategoryArt,
	EventCategoryFood,
	EventCategoryCulture,
	EventCategorySports,
	EventCategoryTech,
	EventCategoryNetworking,
	EventCategoryReligion,
}

func (c EventCategory) IsValid() bool {
	for _, known := range EventCategories {
		if c == known {
			return true
		}
	}
	return false
}

type Event struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	Slug          string        `gorm:"uniqueIndex;size:160" json:"slug"`
	Title         string        `gorm:"index;size:200" json:"title"`
	Category      EventCategory `gorm:"index;size:32" json:"category"`
	Description   string        `gorm:"type:text" json:"description,omitempty"`
	Venue         string        `gorm:"size:200" json:"venue,omitempty"`
	Address       string        `gorm:"size:512" json:"address,omitempty"`
	Latitude      *float64      `json:"latitude,omitempty"`
	Longitude     *float64      `json:"longitude,omitempty"`
	StartsAt      time.Time     `gorm:"index" json:"starts_at"`
	EndsAt        *time.Time    `json:"ends_at,omitempty"`
	CoverImageURL string        `gorm:"size:2048" json:"cover_image_url,omitempty"`
	IsFeatured    bool          `gorm:"index;default:false" json:"is_featured"`
	IsPublished   bool          `gorm:"index" json:"is_published"`
	IsArchived    bool          `gorm:"index;default:false" json:"is_archived"`
	Aggregates

	PlaceID     *uint      `gorm:"index" json:"place_id,omitempty"`
	Place       *Place     `gorm:"foreignKey:PlaceID" json:"place,omitempty"`
	OrganizerID *uint      `gorm:"index" json:"organizer_id,omitempty"`
	Organizer   *Organizer `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`

	TicketTiers []TicketTier   `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"ticket_tiers,omitempty"`
	FAQs        []FAQ          `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"faqs,omitempty"`
	Gallery     []GalleryImage `gorm:"-" json:"gallery,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Event) TableName() string {
	return "events"
}

func (e *Event) Ref() ListingRef {
	return ListingRef{Type: ListingTypeEvent, ID: e.ID}
}

func (e *Event) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// EndTime is EndsAt when set, otherwise StartsAt.
func (e *Event) EndTime() time.Time {
	if e.EndsAt != nil {
		return *e.EndsAt
	}
	return e.StartsAt
}

// IsPast reports whether the event has finished at the given instant.
func (e *Event) IsPast(now time.Time) bool {
	return e.EndTime().Before(now)
}

// LowestPrice returns the cheapest tier price and whether any tier exists.
func (e *Event) LowestPrice() (int64, bool) {
	if len(e.TicketTiers) == 0 {
		return 0, false
	}
	lowest := e.TicketTiers[0].PriceNaira
	for _, t := range e.TicketTiers[1:] {
		if t.PriceNaira < lowest {
			lowest = t.PriceNaira
		}
	}
	return lowest, true
}

type TicketTier struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	EventID     uint       `gorm:"index" json:"event_id"`
	Name        string     `gorm:"size:100" json:"name"`
	Description string     `gorm:"size:500" json:"description,omitempty"`
	PriceNaira  int64      `json:"price_naira"`
	Quantity    int        `json:"quantity,omitempty"` // 0 means not capped
	SalesEndAt  *time.Time `json:"sales_end_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (TicketTier) TableName() string {
	return "ticket_tiers"
}

func (t TicketTier) IsFree() bool {
	return t.PriceNaira == 0
}

type FAQ struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"index" json:"event_id"`
	Question  string    `gorm:"size:500" json:"question"`
	Answer    string    `gorm:"type:text" json:"answer"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

func (FAQ) TableName() string {
	return "event_faqs"
}

type Organizer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:160" json:"name"`
	Email     string    `gorm:"size:255" json:"email,omitempty"`
	Phone     string    `gorm:"size:32" json:"phone,omitempty"`
	Website   string    `gorm:"size:2048" json:"website,omitempty"`
	LogoURL   string    `gorm:"size:2048" json:"logo_url,omitempty"`
	Bio       string    `gorm:"type:text" json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Organizer) TableName() string {
	return "organizers"
}
