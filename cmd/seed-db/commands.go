package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/comptoirs/internal/fixtures"
	"github.com/vladislavdragonenkov/comptoirs/internal/storage/postgres"
)

const (
	defaultTimeout = time.Minute
	envPostgresDSN = "COMPTOIRS_POSTGRES_DSN"
)

type seeder interface {
	EnsureSchema(ctx context.Context) error
	Seed(ctx context.Context, ds fixtures.Dataset) (postgres.SeedReport, error)
	Close() error
}

type opener func(ctx context.Context, dsn string) (seeder, error)

func openStore(ctx context.Context, dsn string) (seeder, error) {
	return postgres.Open(ctx, dsn)
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(openStore)
}

// newRootCmdWith: seed-db [--file dataset.yaml]: загружает набор данных;
// без --file используется встроенный набор.
func newRootCmdWith(open opener) *cobra.Command {
	var (
		dsn     string
		file    string
		migrate bool
	)

	cmd := &cobra.Command{
		Use:          "seed-db",
		Short:        "Load a reference dataset into PostgreSQL",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dataset := fixtures.SmallData()
			if file != "" {
				loaded, err := fixtures.LoadYAMLFile(file)
				if err != nil {
					return err
				}
				dataset = loaded
			}

			if strings.TrimSpace(dsn) == "" {
				dsn = strings.TrimSpace(os.Getenv(envPostgresDSN))
			}
			if dsn == "" {
				return errors.Errorf("%s (or --dsn) is required", envPostgresDSN)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			store, err := open(ctx, dsn)
			if err != nil {
				return errors.Wrap(err, "open postgres store")
			}
			defer store.Close()

			if migrate {
				if err := store.EnsureSchema(ctx); err != nil {
					return errors.Wrap(err, "apply migrations")
				}
			}

			report, err := store.Seed(ctx, dataset)
			if err != nil {
				return errors.Wrap(err, "seed")
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"seeded: categories=%d products=%d customers=%d orders=%d lines=%d\n",
				report.Categories, report.Products, report.Customers, report.Orders, report.Lines)
			return err
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML dataset file (default: built-in small dataset)")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply migrations before seeding")
	return cmd
}
