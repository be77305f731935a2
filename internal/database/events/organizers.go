package events

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/entities"
)

// ListOrganizers returns all organizers ordered by name.
func (r *Repository) ListOrganizers() ([]entities.Organizer, error) {
	var organizers []entities.Organizer
	err := r.db.Order("name ASC").Find(&organizers).Error
	return organizers, err
}

func (r *Repository) GetOrganizer(id uint) (*entities.Organizer, error) {
	var organizer entities.Organizer
	if err := r.db.First(&organizer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizerNotFound
		}
		return nil, err
	}
	return &organizer, nil
}

func (r *Repository) CreateOrganizer(organizer *entities.Organizer) error {
	if err := r.db.Create(organizer).Error; err != nil {
		return fmt.Errorf("failed to create organizer: %w", err)
	}
	return nil
}

func (r *Repository) UpdateOrganizer(organizer *entities.Organizer) error {
	if _, err := r.GetOrganizer(organizer.ID); err != nil {
		return err
	}
	if err := r.db.Save(organizer).Error; err != nil {
		return fmt.Errorf("failed to update organizer: %w", err)
	}
	return nil
}

// DeleteOrganizer removes an organizer and unlinks their events.
func (r *Repository) DeleteOrganizer(id uint) error {
	if err := r.db.Model(&entities.Event{}).Where("organizer_id = ?", id).Update("organizer_id", nil).Error; err != nil {
		return fmt.Errorf("failed to detach events: %w", err)
	}
	result := r.db.Delete(&entities.Organizer{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete organizer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrganizerNotFound
	}
	return nil
}
