package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/comptoirs/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	envPostgresDSN = "COMPTOIRS_POSTGRES_DSN"
)

// migrator: операции над схемой, которые нужны командам.
type migrator interface {
	MigrateUp(ctx context.Context, steps int) error
	MigrateDown(ctx context.Context, steps int) error
	MigrationStatus(ctx context.Context) (postgres.MigrationState, error)
	Close() error
}

type opener func(ctx context.Context, dsn string) (migrator, error)

func openStore(ctx context.Context, dsn string) (migrator, error) {
	return postgres.Open(ctx, dsn)
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(openStore)
}

func newRootCmdWith(open opener) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the comptoirs PostgreSQL schema",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")

	withStore := func(cmd *cobra.Command, fn func(ctx context.Context, store migrator) error) error {
		resolved, err := resolveDSN(dsn)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
		defer cancel()

		store, err := open(ctx, resolved)
		if err != nil {
			return errors.Wrap(err, "open postgres store")
		}
		defer store.Close()
		return fn(ctx, store)
	}

	cmd.AddCommand(upCmd(withStore), downCmd(withStore), statusCmd(withStore))
	return cmd
}

type storeRunner func(cmd *cobra.Command, fn func(ctx context.Context, store migrator) error) error

func upCmd(run storeRunner) *cobra.Command {
	var steps int
	c := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations (all by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, store migrator) error {
				if err := store.MigrateUp(ctx, steps); err != nil {
					return errors.Wrap(err, "migrate up")
				}
				return printStatus(ctx, cmd.OutOrStdout(), "migrate up ok", store)
			})
		},
	}
	c.Flags().IntVar(&steps, "steps", 0, "number of migrations to apply (0 = all)")
	return c
}

func downCmd(run storeRunner) *cobra.Command {
	var steps int
	c := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (one by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, store migrator) error {
				if err := store.MigrateDown(ctx, steps); err != nil {
					return errors.Wrap(err, "migrate down")
				}
				return printStatus(ctx, cmd.OutOrStdout(), "migrate down ok", store)
			})
		},
	}
	c.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return c
}

func statusCmd(run storeRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, store migrator) error {
				return printStatus(ctx, cmd.OutOrStdout(), "migration status", store)
			})
		},
	}
}

func printStatus(ctx context.Context, w io.Writer, title string, store migrator) error {
	state, err := store.MigrationStatus(ctx)
	if err != nil {
		return errors.Wrap(err, "migration status")
	}
	_, err = fmt.Fprintf(w, "%s: version=%d applied=%d pending=%d\n", title, state.Version, state.Applied, len(state.Pending))
	for _, name := range state.Pending {
		_, _ = fmt.Fprintf(w, "  pending %s\n", name)
	}
	for _, name := range state.Drifted {
		_, _ = fmt.Fprintf(w, "  drifted %s\n", name)
	}
	return err
}

func resolveDSN(flagValue string) (string, error) {
	if dsn := strings.TrimSpace(flagValue); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(os.Getenv(envPostgresDSN)); dsn != "" {
		return dsn, nil
	}
	return "", errors.Errorf("%s (or --dsn) is required", envPostgresDSN)
}
