package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"bin-ranges/internal/storage/migrations"
	pgstore "bin-ranges/internal/storage/postgres"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded Postgres and ClickHouse migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
	cmd.Flags().String("postgres-dsn", "", "PostgreSQL connection string (overrides storage.postgres_dsn)")
	cmd.Flags().String("clickhouse-dsn", "", "ClickHouse connection string (overrides storage.clickhouse_dsn)")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	_ = v.BindPFlag("storage.postgres_dsn", cmd.Flags().Lookup("postgres-dsn"))
	_ = v.BindPFlag("storage.clickhouse_dsn", cmd.Flags().Lookup("clickhouse-dsn"))

	pgDSN := v.GetString("storage.postgres_dsn")
	chDSN := v.GetString("storage.clickhouse_dsn")
	if pgDSN == "" && chDSN == "" {
		return errors.New("nothing to migrate: set storage.postgres_dsn and/or storage.clickhouse_dsn")
	}

	if pgDSN != "" {
		pool, err := pgstore.NewPool(ctx, pgDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		pool.Close()
		if err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		slog.Info("postgres migrations applied", "files", applied)
	}

	if chDSN != "" {
		applied, err := migrations.RunClickhouseMigrations(ctx, chDSN)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		slog.Info("clickhouse migrations applied", "files", applied)
	}
	return nil
}
