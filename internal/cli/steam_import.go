package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrlokans/savepoint/internal/config"
	"github.com/mrlokans/savepoint/internal/entrypoint"
)

// SteamImportCommand runs one library import from the command line.
type SteamImportCommand struct {
	SteamID      string
	Username     string
	DatabasePath string
	Verbose      bool

	cfg *config.Config
	out io.Writer
}

func NewSteamImportCommand(cfg *config.Config) *SteamImportCommand {
	return &SteamImportCommand{cfg: cfg, out: os.Stdout}
}

func (cmd *SteamImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("steam-import", flag.ContinueOnError)

	fs.StringVar(&cmd.SteamID, "steam-id", "", "Steam ID64 or vanity name (defaults to the user's linked account)")
	fs.StringVar(&cmd.Username, "user", "", "Import for this user (required when AUTH_MODE=local)")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the database file")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "List every failed entry")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s steam-import [-steam-id <id>] [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import a Steam library and match it against the IGDB catalog.\n")
		fmt.Fprintf(os.Stderr, "Running it again is safe: games already in the library are skipped.\n\n")
		fmt.Fprintf(os.Stderr, "Requires STEAM_API_KEY, IGDB_CLIENT_ID and IGDB_CLIENT_SECRET.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *SteamImportCommand) Run() error {
	cfg := *cmd.cfg
	cfg.Database.Path = cmd.DatabasePath

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := entrypoint.NewApp(ctx, &cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	userID, err := app.ResolveUser(ctx, cmd.Username)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.out, "Steam Import")
	fmt.Fprintln(cmd.out, "============")

	report, err := app.Imports.StartImport(ctx, userID, cmd.SteamID)
	if report == nil {
		return err
	}

	fmt.Fprintf(cmd.out, "Run:             %s\n", report.RunID)
	fmt.Fprintf(cmd.out, "Steam account:   %s\n", report.SteamID64)
	fmt.Fprintf(cmd.out, "Entries:         %d\n", report.Total)
	fmt.Fprintf(cmd.out, "Imported:        %d\n", report.Imported)
	fmt.Fprintf(cmd.out, "Already owned:   %d\n", report.SkippedOwned)
	fmt.Fprintf(cmd.out, "Ignored:         %d\n", report.SkippedIgnored)
	fmt.Fprintf(cmd.out, "Failed:          %d\n", report.Failed)
	if report.Unprocessed > 0 {
		fmt.Fprintf(cmd.out, "Not processed:   %d\n", report.Unprocessed)
	}

	if cmd.Verbose && len(report.Failures) > 0 {
		fmt.Fprintln(cmd.out, "\n=== Failures ===")
		for _, f := range report.Failures {
			fmt.Fprintf(cmd.out, "  [%s] %s: %s\n", f.Kind, f.Title, f.Message)
		}
	}

	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(cmd.out, "\nImport interrupted. Run the command again to continue.")
		return nil
	}
	return err
}
