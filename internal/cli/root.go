package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/99minutos/account-system/internal/pkg/config"
	"github.com/99minutos/account-system/pkg/logger"
)

// lookuper is a test seam for the environment.
var lookuper envconfig.Lookuper = envconfig.OsLookuper()

var (
	cfg *config.Config
	log zerolog.Logger
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "accountd",
		Short: "User account and authentication service",
		Long: `accountd registers users, issues bearer tokens and serves account
administration over HTTP.

All commands read their configuration from the environment (JWT_SECRET,
STORE_DRIVER, MONGO_URI, POSTGRES_DSN, REDIS_ADDR, ...).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadWith(cmd.Context(), lookuper)
			if err != nil {
				return err
			}
			cfg = loaded
			log = logger.New(logger.Options{
				Level:   cfg.LogLevel,
				Pretty:  cfg.Development(),
				Output:  cmd.ErrOrStderr(),
				Service: "accountd",
			})
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newCreateAdminCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
