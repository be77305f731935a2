package cli

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/choplife/choplifeib/internal/config"
	"github.com/choplife/choplifeib/internal/database"
	"github.com/choplife/choplifeib/internal/demo"
)

type SeedCommand struct {
	DatabasePath string
	Reset        bool
	BcryptCost   int

	now func() time.Time
}

func NewSeedCommand() *SeedCommand {
	return &SeedCommand{now: time.Now}
}

func (cmd *SeedCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.BoolVar(&cmd.Reset, "reset", false, "Delete the database file before seeding")
	fs.IntVar(&cmd.BcryptCost, "bcrypt-cost", 10, "bcrypt cost for the sample member passwords")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s seed [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Fill the database with sample Ibadan places, events and reviews.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s seed\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s seed -db ./demo.db -reset\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *SeedCommand) Run() error {
	if cmd.Reset {
		if err := os.Remove(cmd.DatabasePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove existing database: %w", err)
		}
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := demo.Seed(db.DB, cmd.now(), cmd.BcryptCost)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	fmt.Printf("Seeded %s into %s\n", result, cmd.DatabasePath)
	fmt.Printf("Sample members sign in with password %q\n", demo.Password)
	return nil
}
