package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/config"
	"github.com/choplife/choplifeib/internal/database"
	"github.com/choplife/choplifeib/internal/database/users"
	"github.com/choplife/choplifeib/internal/entities"
)

// CreateAdminCommand adds an administrator without going through /setup.
type CreateAdminCommand struct {
	DatabasePath string
	Username     string
	Email        string
	Password     string
	BcryptCost   int
}

func NewCreateAdminCommand() *CreateAdminCommand {
	return &CreateAdminCommand{}
}

func (cmd *CreateAdminCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.StringVar(&cmd.Username, "username", "", "Username (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password; read from CHOPLIFE_ADMIN_PASSWORD when empty")
	fs.IntVar(&cmd.BcryptCost, "bcrypt-cost", 12, "bcrypt cost factor")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-admin [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create an administrator account.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Password == "" {
		cmd.Password = os.Getenv("CHOPLIFE_ADMIN_PASSWORD")
	}
	if cmd.Username == "" || cmd.Email == "" || cmd.Password == "" {
		fs.Usage()
		return errors.New("username, email and password are required")
	}
	return nil
}

func (cmd *CreateAdminCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	service := auth.NewService(db.DB, config.Auth{BcryptCost: cmd.BcryptCost})
	user, err := service.CreateUser(cmd.Username, cmd.Email, cmd.Password, entities.UserRoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	fmt.Printf("Created administrator %s (id %d)\n", user.Username, user.ID)
	return nil
}

// SetRoleCommand changes a user's role from the shell, e.g. to recover
// from a lost admin account.
type SetRoleCommand struct {
	DatabasePath string
	Username     string
	Role         string
}

func NewSetRoleCommand() *SetRoleCommand {
	return &SetRoleCommand{}
}

func (cmd *SetRoleCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("set-role", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.StringVar(&cmd.Username, "username", "", "Username (required)")
	fs.StringVar(&cmd.Role, "role", "", "admin, verified_reviewer or user (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s set-role -username NAME -role ROLE\n\n", os.Args[0])
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Username == "" || cmd.Role == "" {
		fs.Usage()
		return errors.New("username and role are required")
	}
	if !entities.UserRole(cmd.Role).IsValid() {
		return fmt.Errorf("unknown role %q", cmd.Role)
	}
	return nil
}

func (cmd *SetRoleCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := users.NewRepository(db.DB)
	user, err := repo.GetByUsername(cmd.Username)
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", cmd.Username, err)
	}

	// actor 0 is the shell
	updated, err := repo.SetRole(0, user.ID, entities.UserRole(cmd.Role))
	if err != nil {
		return err
	}

	fmt.Printf("%s is now %s\n", updated.Username, updated.Role.Label())
	return nil
}
