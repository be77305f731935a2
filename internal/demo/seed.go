// Package demo fills a database with sample Ibadan listings for local
// development and screenshots.
package demo

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/database"
	"github.com/choplife/choplifeib/internal/database/events"
	"github.com/choplife/choplifeib/internal/database/places"
	"github.com/choplife/choplifeib/internal/database/reviews"
	"github.com/choplife/choplifeib/internal/database/spotlights"
	"github.com/choplife/choplifeib/internal/entities"
)

// Password is shared by every seeded member account.
const Password = "choplife-demo"

// Result counts what Seed created.
type Result struct {
	Users      int
	Places     int
	Events     int
	Reviews    int
	Spotlights int
}

func (r Result) String() string {
	return fmt.Sprintf("%d users, %d places, %d events, %d reviews, %d spotlights",
		r.Users, r.Places, r.Events, r.Reviews, r.Spotlights)
}

// ErrAlreadySeeded is returned when the database already holds places.
var ErrAlreadySeeded = errors.New("database already contains places")

// Seed inserts the sample data. Event dates are laid out relative to now
// so the upcoming and weekend tabs always have content.
func Seed(db *gorm.DB, now time.Time, bcryptCost int) (Result, error) {
	var result Result

	var existing int64
	if err := db.Model(&entities.Place{}).Count(&existing).Error; err != nil {
		return result, err
	}
	if existing > 0 {
		return result, ErrAlreadySeeded
	}

	hash, err := auth.HashPassword(Password, bcryptCost)
	if err != nil {
		return result, err
	}
	members := make([]entities.User, 0, len(sampleUsers))
	for _, u := range sampleUsers {
		u.PasswordHash = hash
		if err := db.Create(&u).Error; err != nil {
			return result, fmt.Errorf("create user %s: %w", u.Username, err)
		}
		members = append(members, u)
	}
	result.Users = len(members)

	placeRepo := places.NewRepository(db)
	created := make(map[string]*entities.Place, len(samplePlaces))
	for i := range samplePlaces {
		p := samplePlaces[i]
		p.IsPublished = true
		if err := placeRepo.Create(&p); err != nil {
			return result, fmt.Errorf("create place %s: %w", p.Name, err)
		}
		created[p.Name] = &p
	}
	result.Places = len(created)

	eventRepo := events.NewRepository(db)
	organizer := &entities.Organizer{
		Name:    "Ibadan Nights Collective",
		Email:   "hello@ibadannights.example",
		Website: "https://ibadannights.example",
		Bio:     "Parties, live music and pop-ups around Ibadan.",
	}
	if err := eventRepo.CreateOrganizer(organizer); err != nil {
		return result, fmt.Errorf("create organizer: %w", err)
	}

	var seededEvents []*entities.Event
	for _, s := range sampleEvents(now) {
		e := s.event
		e.IsPublished = true
		e.OrganizerID = &organizer.ID
		if venue, ok := created[s.venue]; ok {
			e.PlaceID = &venue.ID
			e.Venue = venue.Name
			e.Address = venue.Address
			e.Latitude, e.Longitude = venue.Latitude, venue.Longitude
		}
		if err := eventRepo.Create(&e); err != nil {
			return result, fmt.Errorf("create event %s: %w", e.Title, err)
		}
		seededEvents = append(seededEvents, &e)
	}
	if _, err := eventRepo.ArchivePast(now); err != nil {
		return result, err
	}
	result.Events = len(seededEvents)

	reviewRepo := reviews.NewRepository(db)
	for i, text := range sampleReviews {
		place := created[samplePlaces[i%len(samplePlaces)].Name]
		review := &entities.Review{
			UserID:      members[i%len(members)].ID,
			ListingType: entities.ListingTypePlace,
			ListingID:   place.ID,
			Rating:      text.rating,
			Title:       text.title,
			Body:        text.body,
		}
		if _, err := reviewRepo.Upsert(review); err != nil {
			return result, fmt.Errorf("create review: %w", err)
		}
		result.Reviews++
	}

	spotlightRepo := spotlights.NewRepository(db)
	if len(seededEvents) > 0 {
		first := seededEvents[0]
		s := &entities.Spotlight{
			Title:       first.Title,
			Subtitle:    "This week in Ibadan",
			LinkURL:     "/events/" + first.Slug,
			ListingType: entities.ListingTypeEvent,
			ListingID:   &first.ID,
			StartsAt:    now.Add(-time.Hour),
			IsActive:    true,
		}
		if err := spotlightRepo.Create(s); err != nil {
			return result, fmt.Errorf("create spotlight: %w", err)
		}
		result.Spotlights++
	}

	for _, p := range created {
		if err := database.RefreshAggregates(db, entities.ListingTypePlace, p.ID); err != nil {
			return result, err
		}
	}
	return result, nil
}

func coords(lat, lng float64) (*float64, *float64) {
	return &lat, &lng
}

var sampleUsers = []entities.User{
	{Username: "tolu", Email: "tolu@example.com", FullName: "Tolu Adeyemi", Role: entities.UserRoleVerifiedReviewer},
	{Username: "bisi", Email: "bisi@example.com", FullName: "Bisi Ogunleye", Role: entities.UserRoleUser},
	{Username: "emeka", Email: "emeka@example.com", FullName: "Emeka Obi", Role: entities.UserRoleUser},
}

var samplePlaces = func() []entities.Place {
	list := []struct {
		name, area, address string
		category            entities.PlaceCategory
		price               int
		lat, lng            float64
		hours, description  string
	}{
		{"Amala Skye", "Bodija", "Bodija Market Road, Bodija", entities.PlaceCategoryRestaurant, 1, 7.4352, 3.9133,
			"Mon-Sat 08:00-20:00", "Amala, gbegiri and ewedu served hot from the pot."},
		{"Kokodome", "Ring Road", "Cocoa Mall, Dugbe", entities.PlaceCategoryNightclub, 3, 7.3869, 3.8845,
			"Thu-Sun 21:00-04:00", "Pool-side club with live DJs on weekends."},
		{"Cafe Jade", "Jericho", "Jericho GRA", entities.PlaceCategoryCafe, 2, 7.3985, 3.8691,
			"Daily 07:30-21:00", "Coffee, brunch plates and a quiet garden."},
		{"Agodi Gardens", "Agodi", "Agodi GRA", entities.PlaceCategoryPark, 2, 7.4043, 3.9131,
			"Daily 09:00-18:00", "Water park, picnic lawns and a small zoo."},
		{"Bower's Tower", "Oke-Are", "Oke-Aare Hill", entities.PlaceCategoryAttraction, 1, 7.3833, 3.9167,
			"Daily 09:00-17:00", "Hill-top tower with a view over the brown roofs of the old city."},
		{"The Lounge at Premier", "Mokola", "Premier Hotel, Mokola Hill", entities.PlaceCategoryLounge, 3, 7.4076, 3.8867,
			"Daily 16:00-01:00", "Cocktails and suya with the city lights below."},
	}
	out := make([]entities.Place, 0, len(list))
	for _, p := range list {
		lat, lng := coords(p.lat, p.lng)
		out = append(out, entities.Place{
			Name:         p.name,
			Category:     p.category,
			Area:         p.area,
			Address:      p.address,
			Latitude:     lat,
			Longitude:    lng,
			PriceRange:   p.price,
			OpeningHours: p.hours,
			Description:  p.description,
			IsFeatured:   p.price == 1,
		})
	}
	return out
}()

type seededEvent struct {
	event entities.Event
	venue string
}

func sampleEvents(now time.Time) []seededEvent {
	local := now.In(events.Lagos)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, events.Lagos)
	// next Saturday, or today when today is Saturday
	saturday := day.AddDate(0, 0, (int(time.Saturday)-int(day.Weekday())+7)%7)

	at := func(d time.Time, hour int) time.Time { return d.Add(time.Duration(hour) * time.Hour) }
	end := func(t time.Time, hours int) *time.Time {
		e := t.Add(time.Duration(hours) * time.Hour)
		return &e
	}

	afrobeats := at(saturday, 21)
	brunch := at(saturday.AddDate(0, 0, 1), 11)
	comedy := at(day.AddDate(0, 0, 10), 18)
	past := at(day.AddDate(0, 0, -14), 19)

	return []seededEvent{
		{venue: "Kokodome", event: entities.Event{
			Title: "Afrobeats Saturday", Category: entities.EventCategoryMusic,
			Description: "Three DJs, one pool and the best of Afrobeats until sunrise.",
			StartsAt:    afrobeats, EndsAt: end(afrobeats, 6), IsFeatured: true,
			TicketTiers: []entities.TicketTier{
				{Name: "Regular", PriceNaira: 5000},
				{Name: "VIP", PriceNaira: 20000, Quantity: 50, Description: "Reserved table for four"},
			},
			FAQs: []entities.FAQ{
				{Question: "Is there parking?", Answer: "Yes, inside Cocoa Mall."},
				{Question: "Dress code?", Answer: "Smart casual."},
			},
		}},
		{venue: "Cafe Jade", event: entities.Event{
			Title: "Garden Brunch", Category: entities.EventCategoryFood,
			Description: "Bottomless zobo, small chops and live acoustic sets.",
			StartsAt:    brunch, EndsAt: end(brunch, 4),
			TicketTiers: []entities.TicketTier{{Name: "Entry", PriceNaira: 8000}},
		}},
		{venue: "The Lounge at Premier", event: entities.Event{
			Title: "Laugh Out Loud Ibadan", Category: entities.EventCategoryComedy,
			Description: "Stand-up night featuring the city's funniest new voices.",
			StartsAt:    comedy, EndsAt: end(comedy, 3),
			TicketTiers: []entities.TicketTier{{Name: "Free entry", PriceNaira: 0}},
		}},
		{venue: "Agodi Gardens", event: entities.Event{
			Title: "Ibadan Art Walk", Category: entities.EventCategoryArt,
			Description: "Open-air exhibition of Yoruba contemporary art.",
			StartsAt:    past, EndsAt: end(past, 3),
		}},
	}
}

var sampleReviews = []struct {
	rating      int
	title, body string
}{
	{5, "Best amala in town", "Came hungry, left happy. The gbegiri is unreal."},
	{4, "Great vibes", "Music was loud in the best way. Drinks a bit pricey."},
	{5, "Perfect Sunday spot", "Quiet, good coffee and the staff are lovely."},
	{3, "Okay for kids", "The pools were fun but the queue for food was long."},
	{4, "Worth the climb", "Go early evening for the view."},
	{4, "Classy", "Good cocktails, slow service on a Friday."},
}
