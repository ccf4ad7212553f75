// Importctl is the operator's command line for stockroom: running imports by
// hand, seeding sources and creating admins.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/jdholdren/stockroom/internal/logger"
	"github.com/jdholdren/stockroom/internal/migrations"
	"github.com/jdholdren/stockroom/internal/sqlite"
)

type config struct {
	Database     string        `env:"DATABASE, required"`
	LoggerFormat string        `env:"LOGGER_FORMAT, default=text"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT, default=30s"`
}

// Shared by the subcommands, set up before any of them run.
type deps struct {
	cfg  config
	dbx  *sqlx.DB
	repo sqlite.Repo
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	d := &deps{}

	cmd := &cobra.Command{
		Use:           "importctl",
		Short:         "Operate the stockroom catalog importer",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return d.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if d.dbx == nil {
				return nil
			}
			return d.dbx.Close()
		},
	}

	cmd.AddCommand(
		newImportCommand(d),
		newSeedCommand(d),
		newAdminCommand(d),
	)

	return cmd
}

func (d *deps) open(ctx context.Context) error {
	if err := envconfig.Process(ctx, &d.cfg); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	// Logs go to stderr so reports on stdout stay clean
	slog.SetDefault(logger.New(os.Stderr, d.cfg.LoggerFormat))

	dbx, err := sqlite.Open(d.cfg.Database)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	if err := migrations.Run(dbx); err != nil {
		dbx.Close()
		return fmt.Errorf("error running migrations: %w", err)
	}

	d.dbx = dbx
	d.repo = sqlite.New(dbx)
	return nil
}
