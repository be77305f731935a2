package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
)

// Models lists every table managed by AutoMigrate.
var Models = []any{
	&entities.User{},
	&entities.Organizer{},
	&entities.Place{},
	&entities.Event{},
	&entities.TicketTier{},
	&entities.FAQ{},
	&entities.GalleryImage{},
	&entities.Spotlight{},
	&entities.Review{},
	&entities.Favourite{},
	&entities.AuditEvent{},
}

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := Open(dbPath, logger.Warn)
	if err != nil {
		return nil, err
	}

	logging.Component("database").Info().Str("path", dbPath).Msg("database initialized")
	return &Database{DB: db}, nil
}

// Open connects to the sqlite file at dbPath and migrates the schema.
func Open(dbPath string, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
