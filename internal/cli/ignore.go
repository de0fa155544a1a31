package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/savepoint/internal/config"
	"github.com/mrlokans/savepoint/internal/entrypoint"
)

// IgnoreCommand manages a user's ignore list.
type IgnoreCommand struct {
	Title        string
	Username     string
	DatabasePath string
	Remove       bool
	List         bool

	cfg *config.Config
	out io.Writer
}

func NewIgnoreCommand(cfg *config.Config) *IgnoreCommand {
	return &IgnoreCommand{cfg: cfg, out: os.Stdout}
}

func (cmd *IgnoreCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("ignore", flag.ContinueOnError)

	fs.StringVar(&cmd.Title, "title", "", "Game title to ignore on future imports")
	fs.StringVar(&cmd.Username, "user", "", "Owner of the ignore list (required when AUTH_MODE=local)")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the database file")
	fs.BoolVar(&cmd.Remove, "remove", false, "Remove the title from the ignore list instead")
	fs.BoolVar(&cmd.List, "list", false, "Print the ignore list")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s ignore -title <title> [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s ignore -list\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Titles are matched after normalization, so \"Celeste™\" and \"celeste\" are the same entry.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if !cmd.List && cmd.Title == "" {
		return fmt.Errorf("required flag -title not provided")
	}
	return nil
}

func (cmd *IgnoreCommand) Run() error {
	cfg := *cmd.cfg
	cfg.Database.Path = cmd.DatabasePath

	ctx := context.Background()
	app, err := entrypoint.NewApp(ctx, &cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	userID, err := app.ResolveUser(ctx, cmd.Username)
	if err != nil {
		return err
	}

	switch {
	case cmd.List:
		entries, err := app.Imports.ListIgnored(ctx, userID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.out, "Ignore list is empty")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.out, "%s (%s)\n", e.Title, e.NormalizedTitle)
		}
	case cmd.Remove:
		if err := app.Imports.UnignoreCandidate(ctx, userID, cmd.Title); err != nil {
			return err
		}
		fmt.Fprintf(cmd.out, "Removed %q from the ignore list\n", cmd.Title)
	default:
		if err := app.Imports.IgnoreCandidate(ctx, userID, cmd.Title); err != nil {
			return err
		}
		fmt.Fprintf(cmd.out, "Ignoring %q on future imports\n", cmd.Title)
	}
	return nil
}
