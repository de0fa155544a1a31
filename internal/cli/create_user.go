package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/savepoint/internal/config"
	"github.com/mrlokans/savepoint/internal/entities"
	"github.com/mrlokans/savepoint/internal/entrypoint"
)

// PasswordEnv lets scripts pass the password without it showing in ps.
const PasswordEnv = "SAVEPOINT_PASSWORD"

// CreateUserCommand adds an account for AUTH_MODE=local.
type CreateUserCommand struct {
	Username     string
	Email        string
	Password     string
	Role         string
	DatabasePath string
	WithToken    bool

	cfg *config.Config
	out io.Writer
}

func NewCreateUserCommand(cfg *config.Config) *CreateUserCommand {
	return &CreateUserCommand{cfg: cfg, out: os.Stdout}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)

	fs.StringVar(&cmd.Username, "username", "", "Login name (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password (or set "+PasswordEnv+")")
	fs.StringVar(&cmd.Role, "role", string(entities.UserRoleMember), "admin or member")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the database file")
	fs.BoolVar(&cmd.WithToken, "token", false, "Also generate an API token and print it")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user -username <name> -email <email> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Password == "" {
		cmd.Password = os.Getenv(PasswordEnv)
	}
	if cmd.Username == "" || cmd.Email == "" {
		return fmt.Errorf("required flags -username and -email not provided")
	}
	return nil
}

func (cmd *CreateUserCommand) Run() error {
	cfg := *cmd.cfg
	cfg.Database.Path = cmd.DatabasePath

	ctx := context.Background()
	app, err := entrypoint.NewApp(ctx, &cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	user, err := app.Auth.CreateUser(ctx, cmd.Username, cmd.Email, cmd.Password, entities.UserRole(cmd.Role))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	fmt.Fprintf(cmd.out, "Created %s user %q (id %d)\n", user.Role, user.Username, user.ID)

	if cmd.WithToken {
		token, err := app.Auth.GenerateToken(ctx, user.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.out, "API token: %s\n", token)
		fmt.Fprintln(cmd.out, "Store it now, it cannot be shown again.")
	}
	return nil
}
