package console

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agrione/offline-sync/pkg/config"
	"github.com/agrione/offline-sync/pkg/root"
	"github.com/agrione/offline-sync/pkg/schedule"
	"github.com/agrione/offline-sync/pkg/telemetry"
	"github.com/agrione/offline-sync/pkg/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:     "sync:run",
	Aliases: []string{"daemon"},
	Short:   "Probe connectivity and replay queued actions until stopped",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		if cfg.Log.Traces {
			tp, err := telemetry.InitTracer(cfg.App.Name, nil)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize tracer")
			}
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					log.Error().Err(err).Msg("Error shutting down tracer")
				}
			}()
		}

		// Handle SIGINT/SIGTERM
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := Bootstrap(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing connections")
			}
		}()

		kernel := schedule.NewKernel(app.Lock)
		if err := kernel.Register(cfg.Connectivity.Interval, func(ctx context.Context) {
			app.Prober.Probe(ctx)
		}, schedule.Named("connectivity:probe"), schedule.WithoutOverlapping()); err != nil {
			return err
		}
		if err := kernel.Register(cfg.Sync.Interval, func(ctx context.Context) {
			app.Service.SyncAll(ctx)
		}, schedule.Named("queue:sync"), schedule.WithoutOverlapping()); err != nil {
			return err
		}

		var server *http.Server
		if cfg.HTTP.Enabled {
			server = &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           web.NewWebService(app.Service, app.Notices, app.Registry.Types()).Handler(log.Logger),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				log.Info().Str("addr", cfg.HTTP.Addr).Msg("Control API listening")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("Control API stopped")
					stop()
				}
			}()
		}

		kernel.Start(ctx)
		status := app.Service.Status()
		log.Info().
			Bool("online", status.Online).
			Int("pending", status.Pending).
			Msg("Sync daemon started")

		<-ctx.Done()
		log.Info().Msg("Shutting down sync daemon...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if server != nil {
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Error shutting down control API")
			}
		}
		if err := kernel.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Scheduled jobs did not finish in time")
		}
		log.Info().Msg("Sync daemon stopped.")
		return nil
	},
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	telemetry.SetGlobalLogger(cfg.Log.Level, cfg.Log.Format)
	return cfg
}

func init() {
	root.GetRoot().AddCommand(runCmd)
}
