// Package spotlights provides database operations for home page spotlights.
package spotlights

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/entities"
)

var ErrNotFound = errors.New("spotlight not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListActive returns spotlights that are switched on and inside their
// display window at now, in position order.
func (r *Repository) ListActive(now time.Time) ([]entities.Spotlight, error) {
	now = now.UTC().Truncate(time.Second)
	var spotlights []entities.Spotlight
	err := r.db.
		Where("is_active = ? AND starts_at <= ? AND (ends_at IS NULL OR ends_at > ?)", true, now, now).
		Order("position ASC, id ASC").
		Find(&spotlights).Error
	return spotlights, err
}

// List returns every spotlight for the back-office.
func (r *Repository) List() ([]entities.Spotlight, error) {
	var spotlights []entities.Spotlight
	err := r.db.Order("position ASC, id ASC").Find(&spotlights).Error
	return spotlights, err
}

func (r *Repository) Create(spotlight *entities.Spotlight) error {
	if spotlight.StartsAt.IsZero() {
		spotlight.StartsAt = time.Now()
	}
	spotlight.StartsAt = spotlight.StartsAt.UTC().Truncate(time.Second)
	if spotlight.EndsAt != nil {
		end := spotlight.EndsAt.UTC().Truncate(time.Second)
		spotlight.EndsAt = &end
	}
	if err := r.db.Create(spotlight).Error; err != nil {
		return fmt.Errorf("failed to create spotlight: %w", err)
	}
	return nil
}

func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.Spotlight{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete spotlight: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
