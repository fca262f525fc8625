package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/entrhq/estate/pkg/server"
)

const shutdownTimeout = 10 * time.Second

var (
	serveAddr   string
	serveAPIKey string
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "archive",
	Short:   "Serve the archive API over HTTP",
	Long: `Serve the JSON API used by the desktop shell. The archive root can be
set before starting with "estate init" or at runtime through
PUT /api/config/archive-root. Prometheus metrics are exposed on /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		addr := serveAddr
		if addr == "" {
			addr = a.cfg.Get().ListenAddr
		}

		// A configured root is prepared again on every start so temp files
		// from an earlier crash are gone before the first request.
		if root := a.cfg.Get().ArchiveRoot; root != "" {
			if err := a.prepare(root); err != nil {
				return fmt.Errorf("archive root %s: %w", root, err)
			}
		}

		srv, err := server.New(server.Options{
			Config: a.cfg,
			Open: func(root string) (*server.Backend, error) {
				store, err := a.openStore(root)
				if err != nil {
					return nil, err
				}
				return &server.Backend{
					People:     store,
					Recordings: a.openImporter(store, serveAPIKey),
				}, nil
			},
			Prepare:  a.prepare,
			Logger:   a.logger.Component("server"),
			Metrics:  a.metrics,
			Gatherer: a.registry,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		httpSrv := server.NewHTTPServer(addr, srv.Handler())
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.logger.Infof("listening on %s", addr)
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", addr)
			if path := a.logger.LogPath(); path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Logging to %s (session %s)\n", path, a.logger.SessionID())
			}
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			a.logger.Infof("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, 127.0.0.1:8765)")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", os.Getenv("OPENAI_API_KEY"), "OpenAI API key, used when the config has none")
}
