package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/radiograb/internal/app"
	"github.com/radiograb/internal/config"
	"github.com/radiograb/internal/propagation"
	"github.com/radiograb/pkg/logger"
)

var (
	cfgFile    string
	healthAddr string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "radiograb-scheduler",
		Short: "Recording scheduler daemon for radiograb",
		Long: `Keeps one cron job per active show and starts the recording tool when
a show goes on air. Shows changed through the CLI or API are picked up on
the next resync, or at once when schedule updates arrive over AMQP.`,
		RunE:         runScheduler,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.Flags().StringVar(&healthAddr, "health-addr", "", "health and metrics listen address (default :$PORT or :10000)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting radiograb scheduler")

	a, err := app.New(cfg, log, app.Options{WithRecorder: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Recorder.Run(ctx, cfg.Recorder.ResyncInterval)
	})

	// Edits published by the CLI and API land here when the scheduler collaborator speaks AMQP
	if cfg.Propagation.Scheduler.Mode == config.ModeAMQP {
		consumer := propagation.NewScheduleConsumer(
			cfg.Propagation.AMQP.URL,
			cfg.Propagation.AMQP.SchedulerQueue,
			a.Recorder.RescheduleShow,
			log,
		)
		g.Go(func() error {
			return consumer.Run(ctx)
		})
	}

	health := newHealthServer(resolveHealthAddr(), a)
	g.Go(func() error {
		log.Info().Str("addr", health.Addr).Msg("Health check server starting")
		if err := health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return health.Shutdown(context.Background())
	})

	err = g.Wait()
	log.Info().Msg("Scheduler stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func resolveHealthAddr() string {
	if healthAddr != "" {
		return healthAddr
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}
	return ":" + port
}

// newHealthServer serves liveness and metrics for the daemon
func newHealthServer(addr string, a *app.App) *http.Server {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK %d shows scheduled", a.Recorder.Len())
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("radiograb scheduler"))
	})

	return &http.Server{Addr: addr, Handler: r}
}
