// Package events provides database operations for events, their ticket
// tiers, FAQs and organizers.
package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/choplife/choplifeib/internal/database"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/utils"
)

var (
	ErrNotFound          = errors.New("event not found")
	ErrOrganizerNotFound = errors.New("organizer not found")
)

// Lagos is West Africa Time. Nigeria does not observe daylight saving.
var Lagos = time.FixedZone("WAT", 60*60)

type When string

const (
	WhenUpcoming When = "upcoming"
	WhenPast     When = "past"
	WhenToday    When = "today"
	WhenWeekend  When = "weekend"
	WhenAll      When = "all"
)

func ParseWhen(s string) When {
	switch When(s) {
	case WhenPast, WhenToday, WhenWeekend, WhenAll:
		return When(s)
	}
	return WhenUpcoming
}

type Sort string

const (
	SortSoonest Sort = "soonest"
	SortNewest  Sort = "newest"
	SortPopular Sort = "popular"
)

func ParseSort(s string) Sort {
	switch Sort(s) {
	case SortNewest, SortPopular:
		return Sort(s)
	}
	return SortSoonest
}

type Filter struct {
	Category           entities.EventCategory
	Query              string
	When               When
	FeaturedOnly       bool
	IncludeUnpublished bool
	PlaceID            uint
	Sort               Sort
	Limit              int
	Offset             int

	// Now anchors the time windows; zero means time.Now().
	Now time.Time
}

// Repository handles all event database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new events repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns one page of events matching the filter and the total match count.
func (r *Repository) List(filter Filter) ([]entities.Event, int64, error) {
	now := filter.Now
	if now.IsZero() {
		now = time.Now()
	}

	query := r.db.Model(&entities.Event{})
	if !filter.IncludeUnpublished {
		query = query.Where("is_published = ?", true)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.FeaturedOnly {
		query = query.Where("is_featured = ?", true)
	}
	if filter.PlaceID > 0 {
		query = query.Where("place_id = ?", filter.PlaceID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := database.ContainsPattern(q)
		query = query.Where("LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(venue) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\'", like, like, like)
	}

	when := filter.When
	if when == "" {
		when = WhenUpcoming
	}
	switch when {
	case WhenUpcoming:
		query = query.Where("is_archived = ? AND COALESCE(ends_at, starts_at) >= ?", false, dbTime(now))
	case WhenPast:
		query = query.Where("COALESCE(ends_at, starts_at) < ?", dbTime(now))
	case WhenToday:
		start, end := DayWindow(now)
		query = query.Where("starts_at < ? AND COALESCE(ends_at, starts_at) >= ?", dbTime(end), dbTime(start))
	case WhenWeekend:
		start, end := WeekendWindow(now)
		query = query.Where("starts_at < ? AND COALESCE(ends_at, starts_at) >= ?", dbTime(end), dbTime(start))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	switch filter.Sort {
	case SortNewest:
		query = query.Order("created_at DESC")
	case SortPopular:
		query = query.Order("favourite_count DESC").Order("starts_at ASC")
	default:
		if when == WhenPast {
			query = query.Order("starts_at DESC")
		} else {
			query = query.Order("starts_at ASC")
		}
	}
	query = query.Order("id ASC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var events []entities.Event
	err := query.Preload("TicketTiers", func(db *gorm.DB) *gorm.DB {
		return db.Order("price_naira ASC")
	}).Find(&events).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	return events, total, nil
}

// DayWindow returns the Lagos calendar day containing now.
func DayWindow(now time.Time) (time.Time, time.Time) {
	local := now.In(Lagos)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Lagos)
	return start, start.AddDate(0, 0, 1)
}

// WeekendWindow returns Friday 18:00 to Monday 00:00 (Lagos time) of the
// current weekend, or the next one when called Monday to Friday afternoon.
func WeekendWindow(now time.Time) (time.Time, time.Time) {
	dayStart, _ := DayWindow(now)

	// days back to this week's Monday
	offset := (int(dayStart.Weekday()) + 6) % 7
	monday := dayStart.AddDate(0, 0, -offset)

	start := monday.AddDate(0, 0, 4).Add(18 * time.Hour)
	end := monday.AddDate(0, 0, 7)
	return start, end
}

func (r *Repository) GetByID(id uint) (*entities.Event, error) {
	return r.get(r.db.Where("events.id = ?", id))
}

// GetBySlug loads an event with tiers, FAQs, organizer, venue and gallery.
func (r *Repository) GetBySlug(slug string) (*entities.Event, error) {
	return r.get(r.db.Where("events.slug = ?", slug))
}

func (r *Repository) get(query *gorm.DB) (*entities.Event, error) {
	var event entities.Event
	err := query.
		Preload("TicketTiers", func(db *gorm.DB) *gorm.DB { return db.Order("price_naira ASC, id ASC") }).
		Preload("FAQs", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Organizer").
		Preload("Place").
		First(&event).Error
	if err != nil {
		return nil, translate(err)
	}

	err = r.db.Where("listing_type = ? AND listing_id = ?", entities.ListingTypeEvent, event.ID).
		Order("position ASC, id ASC").
		Find(&event.Gallery).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}
	return &event, nil
}

// GetByIDs returns the events with the given ids, in no particular order.
func (r *Repository) GetByIDs(ids []uint) ([]entities.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var events []entities.Event
	err := r.db.Where("id IN ?", ids).Find(&events).Error
	return events, err
}

// Create inserts an event with its ticket tiers and FAQs.
func (r *Repository) Create(event *entities.Event) error {
	slug, err := r.uniqueSlug(event.Slug, event.Title, 0)
	if err != nil {
		return err
	}
	event.Slug = slug
	normalizeTimes(event)

	if err := r.db.Omit("Place", "Organizer").Create(event).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// Update saves the event row and replaces its ticket tiers and FAQs.
func (r *Repository) Update(event *entities.Event) error {
	var count int64
	if err := r.db.Model(&entities.Event{}).Where("id = ?", event.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}

	slug, err := r.uniqueSlug(event.Slug, event.Title, event.ID)
	if err != nil {
		return err
	}
	event.Slug = slug
	normalizeTimes(event)

	if err := r.db.Omit(clause.Associations).Save(event).Error; err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	if err := r.db.Where("event_id = ?", event.ID).Delete(&entities.TicketTier{}).Error; err != nil {
		return fmt.Errorf("failed to replace ticket tiers: %w", err)
	}
	for i := range event.TicketTiers {
		event.TicketTiers[i].ID = 0
		event.TicketTiers[i].EventID = event.ID
	}
	if len(event.TicketTiers) > 0 {
		if err := r.db.Create(&event.TicketTiers).Error; err != nil {
			return fmt.Errorf("failed to replace ticket tiers: %w", err)
		}
	}

	if err := r.db.Where("event_id = ?", event.ID).Delete(&entities.FAQ{}).Error; err != nil {
		return fmt.Errorf("failed to replace faqs: %w", err)
	}
	for i := range event.FAQs {
		event.FAQs[i].ID = 0
		event.FAQs[i].EventID = event.ID
	}
	if len(event.FAQs) > 0 {
		if err := r.db.Create(&event.FAQs).Error; err != nil {
			return fmt.Errorf("failed to replace faqs: %w", err)
		}
	}
	return nil
}

// Delete removes an event and everything attached to it.
func (r *Repository) Delete(id uint) error {
	ref := []any{entities.ListingTypeEvent, id}

	steps := []struct {
		what  string
		query *gorm.DB
		model any
	}{
		{"ticket tiers", r.db.Where("event_id = ?", id), &entities.TicketTier{}},
		{"faqs", r.db.Where("event_id = ?", id), &entities.FAQ{}},
		{"favourites", r.db.Where("listing_type = ? AND listing_id = ?", ref...), &entities.Favourite{}},
		{"reviews", r.db.Where("listing_type = ? AND listing_id = ?", ref...), &entities.Review{}},
		{"gallery", r.db.Where("listing_type = ? AND listing_id = ?", ref...), &entities.GalleryImage{}},
	}
	for _, step := range steps {
		if err := step.query.Delete(step.model).Error; err != nil {
			return fmt.Errorf("failed to delete %s: %w", step.what, err)
		}
	}

	result := r.db.Delete(&entities.Event{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ArchivePast flags every event that finished before now. Events without an
// end time are considered finished once they have started.
func (r *Repository) ArchivePast(now time.Time) (int64, error) {
	result := r.db.Model(&entities.Event{}).
		Where("is_archived = ? AND COALESCE(ends_at, starts_at) < ?", false, dbTime(now)).
		Update("is_archived", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to archive events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// SetFeatured toggles the featured flag.
func (r *Repository) SetFeatured(id uint, featured bool) error {
	return r.setFlag(id, "is_featured", featured)
}

// SetPublished toggles public visibility.
func (r *Repository) SetPublished(id uint, published bool) error {
	return r.setFlag(id, "is_published", published)
}

func (r *Repository) setFlag(id uint, column string, value bool) error {
	result := r.db.Model(&entities.Event{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshAggregates recomputes rating and favourite counters for an event.
func (r *Repository) RefreshAggregates(id uint) error {
	return database.RefreshAggregates(r.db, entities.ListingTypeEvent, id)
}

func (r *Repository) uniqueSlug(requested, title string, selfID uint) (string, error) {
	base := utils.Slugify(title)
	if requested != "" {
		base = utils.Slugify(requested)
	}
	return utils.UniqueSlug(base, func(candidate string) (bool, error) {
		var count int64
		err := r.db.Model(&entities.Event{}).
			Where("slug = ? AND id <> ?", candidate, selfID).
			Count(&count).Error
		return count > 0, err
	})
}

// Times are stored in UTC at second precision so that sqlite's text
// comparison orders them correctly.
func normalizeTimes(event *entities.Event) {
	event.StartsAt = dbTime(event.StartsAt)
	if event.EndsAt != nil {
		end := dbTime(*event.EndsAt)
		event.EndsAt = &end
	}
	for i := range event.TicketTiers {
		if t := event.TicketTiers[i].SalesEndAt; t != nil {
			end := dbTime(*t)
			event.TicketTiers[i].SalesEndAt = &end
		}
	}
}

func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
