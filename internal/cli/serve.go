package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/99minutos/account-system/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.Build(ctx, cfg, log, app.Options{})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("http server listening")
				errCh <- a.Echo.Start(":" + cfg.Port)
			}()

			var serveErr error
			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					serveErr = err
				}
			case <-ctx.Done():
				log.Info().Msg("shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := a.Echo.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("http shutdown")
			}
			if err := a.Close(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("release resources")
			}
			log.Info().Msg("stopped")
			return serveErr
		},
	}
}
