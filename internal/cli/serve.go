package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"devicelink/internal/platform/config"
	"devicelink/internal/platform/httpserver"
	httptransport "devicelink/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "serve",
		Short:             "Serve the format and resolve endpoints over HTTP",
		Args:              cobra.NoArgs,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if err := applyFlags(cmd.Flags(), &cfg); err != nil {
				return err
			}
			ctx := cmd.Context()

			d, err := a.buildDeps(ctx, cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			router := httptransport.NewRouter(httptransport.New(d.cascade, a.logger), d.registry)
			srv := httpserver.New(cfg.Server.Addr, router)

			errCh := make(chan error, 1)
			go func() {
				a.logger.InfoContext(ctx, "starting devicelink", "addr", cfg.Server.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			a.logger.InfoContext(ctx, "shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String(flagAddr, config.Default().Server.Addr, "Listen address.")
	registerLookupFlags(cmd.Flags())
	return cmd
}
