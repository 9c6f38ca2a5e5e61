package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	bnhttp "github.com/Strob0t/buildnotify/internal/adapter/http"
	bnnats "github.com/Strob0t/buildnotify/internal/adapter/nats"
	"github.com/Strob0t/buildnotify/internal/adapter/natskv"
	"github.com/Strob0t/buildnotify/internal/adapter/otel"
	"github.com/Strob0t/buildnotify/internal/adapter/postgres"
	"github.com/Strob0t/buildnotify/internal/adapter/ristretto"
	"github.com/Strob0t/buildnotify/internal/adapter/tiered"
	"github.com/Strob0t/buildnotify/internal/adapter/ws"
	"github.com/Strob0t/buildnotify/internal/config"
	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/middleware"
	"github.com/Strob0t/buildnotify/internal/port/cache"
	"github.com/Strob0t/buildnotify/internal/resilience"
	"github.com/Strob0t/buildnotify/internal/service"
)

const (
	serviceName     = "buildnotify"
	shutdownTimeout = 10 * time.Second
	lastBuildBucket = "BUILDNOTIFY_LAST_BUILDS"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Accept build events over HTTP and NATS and dispatch them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, flush, err := setup(opts)
			if err != nil {
				return err
			}
			defer flush()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := serve(ctx, cfg); err != nil {
				slog.Error("fatal", "error", err)
				return err
			}
			return nil
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"channels", len(cfg.Channels),
		"nats", cfg.NATS.Enabled,
	)

	// --- Telemetry ---

	shutdownOTel, err := otel.Init(ctx, cfg.OTel, serviceName)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	store := postgres.NewStore(pool)

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()
	var lastBuilds cache.Cache = l1

	checks := map[string]bnhttp.HealthCheck{"postgres": pool.Ping}

	var queue *bnnats.Queue
	if cfg.NATS.Enabled {
		queue, err = bnnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() {
			if err := queue.Drain(); err != nil {
				slog.Warn("nats drain", "error", err)
			}
		}()
		checks["nats"] = func(context.Context) error {
			if !queue.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		}

		// Replicas share the newest build per project through NATS KV.
		kv, err := queue.KeyValue(ctx, lastBuildBucket, cfg.Cache.TTL)
		if err != nil {
			return err
		}
		lastBuilds = tiered.New(l1, natskv.New(kv), cfg.Cache.TTL)
	}

	// --- Services ---

	hub := ws.NewHub()
	breakers := resilience.NewSet(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)

	channels, err := service.BuildChannels(cfg.Channels)
	if err != nil {
		return err
	}

	dispatcher := service.NewDispatcher(notification.Composer{
		BaseURL: cfg.Notify.BaseURL,
		Texts:   cfg.Notify.Texts,
	}, breakers, metrics)

	notifySvc := service.NewNotificationService(dispatcher, channels)
	notifySvc.SetStore(store)
	notifySvc.SetBroadcaster(hub)

	buildSvc := service.NewBuildEventService(notifySvc, store)
	buildSvc.SetCache(lastBuilds, cfg.Cache.TTL)
	buildSvc.SetBroadcaster(hub)
	buildSvc.SetMetrics(metrics)

	if queue != nil {
		notifySvc.SetQueue(queue)

		cancelSub, err := buildSvc.StartSubscriber(ctx, queue)
		if err != nil {
			return fmt.Errorf("build subscriber: %w", err)
		}
		defer cancelSub()
	}

	// --- HTTP ---

	handlers := &bnhttp.Handlers{
		Builds:   buildSvc,
		Notify:   notifySvc,
		Store:    store,
		Breakers: breakers,
		Checks:   checks,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(bnhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(otel.HTTPMiddleware(serviceName))
	r.Use(bnhttp.CORS(cfg.Server.CORSOrigin))

	r.Get("/ws", hub.HandleWS)
	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))
		bnhttp.MountRoutes(r, handlers, cfg.Webhook)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr, "senders", len(channels))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
