// Package interfaces holds compile-time checks for the application's
// extension points.
//
// Consumers declare the narrow interface they need next to the code that
// uses it:
//
//   - PlaceStore, EventStore, ReviewStore, FavouritesStore and the admin
//     stores: internal/http
//   - EventArchiver, MissingCoordinatesLister, Enqueuer: internal/scheduler
//   - AggregateRefresher, PlaceLocator, Geocoder: internal/tasks
//   - Cache (internal/cache), Bus (internal/realtime), Storage
//     (internal/storage)
//
// # Adding a New Storage Backend
//
//  1. Implement storage.Storage in internal/storage/
//
//     type GCS struct { bucket string }
//
//     func (g *GCS) Save(ctx context.Context, key, contentType string, r io.Reader) error
//     func (g *GCS) Delete(ctx context.Context, key string) error
//     func (g *GCS) URL(key string) string
//
//  2. Select it in storage.New from config.Storage.Driver
//
//  3. Add a check to checks.go:
//
//     var _ storage.Storage = (*storage.GCS)(nil)
//
// # Adding a New Database Domain
//
//  1. Create sub-package: internal/database/<domain>/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Declare the interface the handler needs in internal/http and add a
//     compile-time check here.
package interfaces
