package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/savepoint/internal/cli"
	"github.com/mrlokans/savepoint/internal/config"
	"github.com/mrlokans/savepoint/internal/entrypoint"
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

	name := os.Args[1]
	args := os.Args[2:]
	cfg := config.NewConfig()

	var cmd command
	switch name {
	case "steam-import":
		cmd = cli.NewSteamImportCommand(cfg)
	case "ignore":
		cmd = cli.NewIgnoreCommand(cfg)
	case "create-user":
		cmd = cli.NewCreateUserCommand(cfg)
	case "version":
		fmt.Printf("savepoint %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	entrypoint.InitLogging(cfg.Log.Level)
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve          Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  steam-import   Import a Steam library and match it against IGDB\n")
	fmt.Fprintf(os.Stderr, "  ignore         Add, remove or list titles skipped by future imports\n")
	fmt.Fprintf(os.Stderr, "  create-user    Create an account (AUTH_MODE=local)\n")
	fmt.Fprintf(os.Stderr, "  version        Print the build version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
