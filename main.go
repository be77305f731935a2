package main

import (
	"fmt"
	"os"

	"github.com/choplife/choplifeib/internal/cli"
	"github.com/choplife/choplifeib/internal/config"
	"github.com/choplife/choplifeib/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	var cmd command
	switch os.Args[1] {
	case "seed":
		cmd = cli.NewSeedCommand()
	case "create-admin":
		cmd = cli.NewCreateAdminCommand()
	case "set-role":
		cmd = cli.NewSetRoleCommand()
	case "version":
		fmt.Printf("choplifeib %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve         Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  seed          Fill the database with sample Ibadan listings\n")
	fmt.Fprintf(os.Stderr, "  create-admin  Create an administrator account\n")
	fmt.Fprintf(os.Stderr, "  set-role      Change a user's role\n")
	fmt.Fprintf(os.Stderr, "  version       Print the build version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
