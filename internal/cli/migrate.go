package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/99minutos/account-system/internal/infrastructure/db/postgres"
	"github.com/99minutos/account-system/internal/pkg/config"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL migrations",
		Long: `migrate applies the embedded schema migrations to POSTGRES_DSN.
serve also migrates on start; this command exists for deploy pipelines that
run schema changes separately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.StoreDriver != config.DriverPostgres {
				return fmt.Errorf("migrate requires STORE_DRIVER=postgres, got %q", cfg.StoreDriver)
			}

			db, err := postgres.Open(cmd.Context(), cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			return postgres.Migrate(cmd.Context(), db, log)
		},
	}
}
