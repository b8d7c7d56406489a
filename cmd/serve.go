package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"donation-nodes/pkg/host"
	"donation-nodes/services/trigger"
)

const shutdownTimeout = 5 * time.Second

var serveFlags struct {
	noPoll bool
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the poller",
		Long: `Starts the HTTP API under /api/v1 and, unless --no-poll is given, a poller
that offers every polling instance a turn on each tick. Stops gracefully on
SIGINT or SIGTERM.`,
		RunE: runServe,
	}
	cmd.Flags().BoolVar(&serveFlags.noPoll, "no-poll", false, "serve the API without running the poller")
	return cmd
}

// newRouter mounts the trigger API and wraps it with CORS and request logging.
func newRouter(a *app) http.Handler {
	mainRouter := mux.NewRouter()
	apiRouter := mainRouter.PathPrefix(trigger.BasePath).Subrouter()
	trigger.NewService(a.runtime, a.client).LoadRoutes(apiRouter)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins(a.cfg.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	)(mainRouter)

	return handlers.LoggingHandler(os.Stdout, corsHandler)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, rootFlags.config)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if !serveFlags.noPoll {
		poller := host.NewPoller(a.runtime, host.LogSink{Logger: a.logger}, a.cfg.Poll.Tick, a.logger)
		g.Go(func() error { return poller.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Could not stop server gracefully", "error", err)
			return srv.Close()
		}
		return nil
	})

	return g.Wait()
}
