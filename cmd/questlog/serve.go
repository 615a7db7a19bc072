package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the daily materializer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
}

// serve blocks until ctx is cancelled or the listener fails, then drains
// in-flight requests.
func (c *cli) serve(ctx context.Context) error {
	app, st, err := c.openApp()
	if err != nil {
		return err
	}
	defer st.Close()

	srv := &http.Server{
		Addr:              c.cfg.Server.Addr,
		Handler:           app.Handler,
		ReadHeaderTimeout: c.cfg.Server.ReadHeaderTimeout.Duration,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Scheduler.Run(gctx)
		return nil
	})
	g.Go(func() error {
		c.log.Info("server_listening", "addr", srv.Addr, "driver", c.cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		c.log.Info("server_shutting_down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
