// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into one sub-package per resource:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── dbtest/          # Throwaway sqlite databases for tests
//	├── places/          # Place listings, categories, aggregates
//	├── events/          # Events, ticket tiers, FAQs, organizers
//	├── reviews/         # Reviews and rating summaries
//	├── favourites/      # Per-user favourites
//	├── gallery/         # Gallery images for places and events
//	├── spotlights/      # Home page spotlights
//	├── users/           # Profiles and roles
//	├── analytics/       # Dashboard aggregates (goqu)
//	└── audit/           # Back-office audit log
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./choplife.db")
//
//	placesRepo := places.NewRepository(db.DB)
//	list, total, err := placesRepo.List(places.Filter{Category: entities.PlaceCategoryBar})
//
// Each repository translates gorm.ErrRecordNotFound into its own ErrNotFound.
// Denormalised counters on places and events are recomputed by separate
// queries (RefreshAggregates) rather than inside write transactions.
package database
