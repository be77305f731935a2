// Command generate_demo writes a fresh database of sample listings, used for
// screenshots and the public demo.
// Usage: go run ./cmd/generate_demo [-db path/to/demo.db]
package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/choplife/choplifeib/internal/database"
	"github.com/choplife/choplifeib/internal/demo"
	"github.com/choplife/choplifeib/internal/logging"
)

const defaultDemoDatabasePath = "./demo/demo.db"

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	logging.Init("generate_demo", "development", "info")
	log.Info().Str("path", *dbPath).Msg("generating demo database")

	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatal().Err(err).Msg("failed to remove existing demo database")
	}

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create demo directory")
	}

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create database")
	}
	defer db.Close()

	result, err := demo.Seed(db.DB, time.Now(), 10)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed demo database")
	}
	log.Info().Str("created", result.String()).Msg("demo database ready")
}
