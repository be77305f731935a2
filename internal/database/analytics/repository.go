// Package analytics computes the back-office dashboard aggregates.
//
// Queries are built with goqu (sqlite3 dialect) and executed through the
// shared gorm connection.
package analytics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/entities"
)

type Totals struct {
	Places         int64 `json:"places"`
	Events         int64 `json:"events"`
	UpcomingEvents int64 `json:"upcoming_events"`
	Users          int64 `json:"users"`
	Reviews        int64 `json:"reviews"`
	Favourites     int64 `json:"favourites"`
}

// LabelCount is one bar of a chart.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type TopPlace struct {
	ID             uint    `json:"id"`
	Name           string  `json:"name"`
	Slug           string  `json:"slug"`
	FavouriteCount int64   `json:"favourite_count"`
	RatingAverage  float64 `json:"rating_average"`
}

// DayCount is keyed by UTC calendar day, "2006-01-02".
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type Dashboard struct {
	Totals           Totals       `json:"totals"`
	UsersByRole      []LabelCount `json:"users_by_role"`
	ReviewsByRating  []LabelCount `json:"reviews_by_rating"`
	PlacesByCategory []LabelCount `json:"places_by_category"`
	EventsByCategory []LabelCount `json:"events_by_category"`
	TopPlaces        []TopPlace   `json:"top_places"`
	Signups          []DayCount   `json:"signups"`
}

type Repository struct {
	db      *gorm.DB
	dialect goqu.DialectWrapper
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, dialect: goqu.Dialect("sqlite3")}
}

// Dashboard gathers every aggregate shown on the admin home page.
func (r *Repository) Dashboard(now time.Time, signupDays, topN int) (*Dashboard, error) {
	var (
		d   Dashboard
		err error
	)
	if d.Totals, err = r.Totals(now); err != nil {
		return nil, err
	}
	if d.UsersByRole, err = r.UsersByRole(); err != nil {
		return nil, err
	}
	if d.ReviewsByRating, err = r.ReviewsByRating(); err != nil {
		return nil, err
	}
	if d.PlacesByCategory, err = r.PlacesByCategory(); err != nil {
		return nil, err
	}
	if d.EventsByCategory, err = r.EventsByCategory(); err != nil {
		return nil, err
	}
	if d.TopPlaces, err = r.TopPlaces(topN); err != nil {
		return nil, err
	}
	if d.Signups, err = r.SignupsPerDay(now, signupDays); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) Totals(now time.Time) (Totals, error) {
	var t Totals
	counts := []struct {
		dest *int64
		ds   *goqu.SelectDataset
	}{
		{&t.Places, r.dialect.From("places")},
		{&t.Events, r.dialect.From("events")},
		{&t.UpcomingEvents, r.dialect.From("events").Where(
			goqu.C("is_archived").IsFalse(),
			goqu.L("COALESCE(ends_at, starts_at) >= ?", now.UTC().Truncate(time.Second)),
		)},
		{&t.Users, r.dialect.From("users").Where(goqu.C("deleted_at").IsNull())},
		{&t.Reviews, r.dialect.From("reviews")},
		{&t.Favourites, r.dialect.From("favourites")},
	}

	for _, c := range counts {
		if err := r.scalar(c.ds.Select(goqu.COUNT("*")), c.dest); err != nil {
			return t, err
		}
	}
	return t, nil
}

func (r *Repository) UsersByRole() ([]LabelCount, error) {
	rows, err := r.grouped(r.dialect.From("users").Where(goqu.C("deleted_at").IsNull()), "role")
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(entities.Roles))
	for _, role := range entities.Roles {
		labels = append(labels, string(role))
	}
	return zeroFill(labels, rows), nil
}

// ReviewsByRating returns five bars, one to five stars.
func (r *Repository) ReviewsByRating() ([]LabelCount, error) {
	rows, err := r.grouped(r.dialect.From("reviews"), "rating")
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, entities.MaxRating)
	for i := entities.MinRating; i <= entities.MaxRating; i++ {
		labels = append(labels, strconv.Itoa(i))
	}
	return zeroFill(labels, rows), nil
}

func (r *Repository) PlacesByCategory() ([]LabelCount, error) {
	rows, err := r.grouped(r.dialect.From("places"), "category")
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(entities.PlaceCategories))
	for _, c := range entities.PlaceCategories {
		labels = append(labels, string(c))
	}
	return zeroFill(labels, rows), nil
}

func (r *Repository) EventsByCategory() ([]LabelCount, error) {
	rows, err := r.grouped(r.dialect.From("events"), "category")
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(entities.EventCategories))
	for _, c := range entities.EventCategories {
		labels = append(labels, string(c))
	}
	return zeroFill(labels, rows), nil
}

// TopPlaces ranks places by live favourite count.
func (r *Repository) TopPlaces(n int) ([]TopPlace, error) {
	if n <= 0 {
		n = 5
	}
	ds := r.dialect.From(goqu.T("places").As("p")).
		LeftJoin(goqu.T("favourites").As("f"), goqu.On(
			goqu.I("f.listing_id").Eq(goqu.I("p.id")),
			goqu.I("f.listing_type").Eq(string(entities.ListingTypePlace)),
		)).
		Select(
			goqu.I("p.id"),
			goqu.I("p.name"),
			goqu.I("p.slug"),
			goqu.I("p.rating_average"),
			goqu.COUNT(goqu.I("f.id")).As("favourite_count"),
		).
		GroupBy(goqu.I("p.id")).
		Order(goqu.I("favourite_count").Desc(), goqu.I("p.rating_average").Desc(), goqu.I("p.id").Asc()).
		Limit(uint(n))

	var rows []TopPlace
	if err := r.scan(ds, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SignupsPerDay returns one entry per UTC day for the last `days` days
// ending on now's day, including days without signups.
func (r *Repository) SignupsPerDay(now time.Time, days int) ([]DayCount, error) {
	if days <= 0 {
		days = 30
	}
	end := now.UTC()
	first := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	ds := r.dialect.From("users").
		Select(goqu.L("DATE(created_at)").As("day"), goqu.COUNT("*").As("count")).
		Where(goqu.C("deleted_at").IsNull(), goqu.L("DATE(created_at) >= ?", first.Format("2006-01-02"))).
		GroupBy(goqu.L("DATE(created_at)"))

	var rows []DayCount
	if err := r.scan(ds, &rows); err != nil {
		return nil, err
	}
	byDay := make(map[string]int64, len(rows))
	for _, row := range rows {
		byDay[row.Day] = row.Count
	}

	result := make([]DayCount, 0, days)
	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i).Format("2006-01-02")
		result = append(result, DayCount{Day: day, Count: byDay[day]})
	}
	return result, nil
}

func (r *Repository) grouped(ds *goqu.SelectDataset, column string) ([]LabelCount, error) {
	ds = ds.Select(goqu.L("CAST(? AS TEXT)", goqu.C(column)).As("label"), goqu.COUNT("*").As("count")).
		GroupBy(goqu.C(column))
	var rows []LabelCount
	if err := r.scan(ds, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) scalar(ds *goqu.SelectDataset, dest *int64) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if err := r.db.Raw(query, args...).Row().Scan(dest); err != nil {
		return fmt.Errorf("failed to run %q: %w", query, err)
	}
	return nil
}

func (r *Repository) scan(ds *goqu.SelectDataset, dest any) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if err := r.db.Raw(query, args...).Scan(dest).Error; err != nil {
		return fmt.Errorf("failed to run %q: %w", query, err)
	}
	return nil
}

// zeroFill orders rows by labels and adds zero bars for missing labels.
// Rows with labels outside the list are appended at the end.
func zeroFill(labels []string, rows []LabelCount) []LabelCount {
	byLabel := make(map[string]int64, len(rows))
	for _, row := range rows {
		byLabel[row.Label] = row.Count
	}
	result := make([]LabelCount, 0, len(labels))
	known := make(map[string]bool, len(labels))
	for _, label := range labels {
		known[label] = true
		result = append(result, LabelCount{Label: label, Count: byLabel[label]})
	}
	for _, row := range rows {
		if !known[row.Label] && row.Label != "" {
			result = append(result, row)
		}
	}
	return result
}
