package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/musafirlabs/wahapipe/internal/config"
)

var migrationsDir string

func resolveMigrationsDir() string {
	if migrationsDir != "" {
		return migrationsDir
	}
	if v := os.Getenv("WAHAPIPE_MIGRATIONS_DIR"); v != "" {
		return v
	}
	exe, err := os.Executable()
	if err != nil {
		return "migrations"
	}
	return filepath.Join(filepath.Dir(exe), "migrations")
}

func newMigrator() (*migrate.Migrate, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cfg.UsesPostgres() {
		return nil, fmt.Errorf("WAHAPIPE_POSTGRES_DSN is not set (SQLite mode needs no migrations)")
	}

	m, err := migrate.New("file://"+resolveMigrationsDir(), cfg.Database.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration management (Postgres mode)",
	}

	cmd.PersistentFlags().StringVar(&migrationsDir, "migrations-dir", "", "path to migrations directory (default: ./migrations)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrator()
			if err != nil {
				return err
			}
			if err := m.Up(); err != nil && err != migrate.ErrNoChange {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrator()
			if err != nil {
				return err
			}
			if err := m.Steps(-1); err != nil {
				return err
			}
			fmt.Println("rolled back one migration")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrator()
			if err != nil {
				return err
			}
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Printf("version %d (dirty=%v)\n", v, dirty)
			return nil
		},
	})

	return cmd
}
