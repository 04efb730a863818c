package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/gokite/internal/bridge"
	"github.com/me/gokite/internal/config"
	"github.com/me/gokite/internal/scheduler"
	"github.com/me/gokite/internal/server"
)

func newServeCmd() *cobra.Command {
	defaults := config.DefaultRunConfig()
	var addr, catchUp string
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Fire an application's schedules as time passes and serve the status API",
		Long: `Run the application's schedules in-process as their cron firings fall due,
and serve a read-only status API (jobs, schedules, partitions, health) plus
Prometheus metrics on /metrics.

Firings missed while the process was down are not replayed unless
--catch-up names the time to replay from.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Addr = addr
			cfg.PollInterval = poll

			loopCfg := scheduler.Config{PollInterval: cfg.PollInterval}
			if catchUp != "" {
				t, err := bridge.ParseNominalTime(catchUp)
				if err != nil {
					return err
				}
				loopCfg.CatchUp = t
			}

			ctx, stop := commandContext(cmd)
			defer stop()

			s, err := openSession(ctx, true)
			if err != nil {
				return err
			}
			defer s.Close()

			local, err := bridge.NewLocal(s.runtime(), nil)
			if err != nil {
				return err
			}
			defer func() {
				if err := local.Close(); err != nil {
					logger.Warn("engine shutdown incomplete", "error", err)
				}
			}()

			loop := scheduler.NewLoop(local, loopCfg, logger)
			srv := server.New(s.jobs, s.store, logger,
				server.WithApplication(s.app),
				server.WithEngine(s.engine),
				server.WithMetrics(s.metrics),
				server.WithScheduler(loop),
			)
			httpServer := &http.Server{
				Addr:              cfg.Addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			loopDone := make(chan error, 1)
			go func() { loopDone <- loop.Start(ctx) }()

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("server starting", "addr", cfg.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
			}()

			var runErr error
			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case runErr = <-serveErr:
				logger.Error("server failed", "error", runErr)
				stop()
			}

			// Stop the scheduler before the HTTP server.
			if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("scheduler stopped", "error", err)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return err
			}
			logger.Info("server stopped")
			return runErr
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaults.Addr, "Listen address")
	cmd.Flags().DurationVar(&poll, "poll", defaults.PollInterval, "Scheduler poll interval")
	cmd.Flags().StringVar(&catchUp, "catch-up", "", "Replay firings since this time on start")

	return cmd
}
