package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/storage"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr     string
		storeURL string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve review overlays over HTTP",
		Long: `Serve GET and PUT /jobs/{jobId}/review backed by a review store.

Point other installations at it with --canonical-url http://host:port.`,
		Example: "  assetlens serve --addr :8080 --store s3://reviews/prod",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			eng, err := a.engine(cmd)
			if err != nil {
				return err
			}
			defer closeEngine(cmd, eng, &err)

			store := eng.Local
			if storeURL != "" {
				if store, err = storage.Open(cmd.Context(), storeURL, eng.AWSOptions()); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           storage.ReviewHandler(store, eng.Logger),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				eng.Logger.Info("review server listening", "addr", addr, "store", store)
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

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			eng.Logger.Info("review server stopping")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&storeURL, "store", "", "Backing review store URL (default: the local review directory)")
	return cmd
}
