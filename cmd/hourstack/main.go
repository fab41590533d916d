package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	hshttp "github.com/hourstack/hourstack/internal/adapter/http"
	hsnats "github.com/hourstack/hourstack/internal/adapter/nats"
	"github.com/hourstack/hourstack/internal/adapter/otel"
	"github.com/hourstack/hourstack/internal/adapter/postgres"
	"github.com/hourstack/hourstack/internal/adapter/ristretto"
	"github.com/hourstack/hourstack/internal/adapter/tiered"
	"github.com/hourstack/hourstack/internal/adapter/ws"
	"github.com/hourstack/hourstack/internal/config"
	"github.com/hourstack/hourstack/internal/domain/plan"
	"github.com/hourstack/hourstack/internal/logger"
	"github.com/hourstack/hourstack/internal/middleware"
	"github.com/hourstack/hourstack/internal/port/cache"
	"github.com/hourstack/hourstack/internal/port/messagequeue"
	"github.com/hourstack/hourstack/internal/resilience"
	"github.com/hourstack/hourstack/internal/service"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "migrate":
			exitOn(runMigrate(args[1:]))
			return
		case "cycle-reset":
			exitOn(runCycleReset(args[1:]))
			return
		case "clients":
			exitOn(runListClients(args[1:]))
			return
		case "serve":
		case "help", "--help", "-h":
			printHelp()
			return
		default:
			printHelp()
			exitOn(fmt.Errorf("unknown command: %s", args[0]))
			return
		}
	}

	exitOn(runServe())
}

func exitOn(err error) {
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: hourstack [command]

Commands:
  serve         Run the API server (default)
  migrate       Apply, roll back, or inspect database migrations
  cycle-reset   Run one billing cycle reset sweep and exit
  clients       List clients and their usage
  help          Show this help message
`)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	otelShutdown, err := otel.Setup(ctx, cfg.Logging.Service, cfg.OTel.Endpoint, cfg.OTel.Enabled)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("otel shutdown failed", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
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

	queue, err := hsnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	// Summary cache: ristretto L1 in front of a JetStream KV L2 so
	// invalidations propagate across instances.
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()

	var summaryCache cache.Cache = l1
	if l2, err := queue.NewKVCache(ctx, "hourstack_summaries", cfg.Cache.SummaryTTL); err != nil {
		slog.Warn("kv cache unavailable, running with L1 only", "error", err)
	} else {
		summaryCache = tiered.New(l1, l2, cfg.Cache.SummaryTTL)
	}

	// --- Services ---
	hub := ws.NewHub()
	store := postgres.NewStore(pool)
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	publisher := service.NewPublisher(queue, breaker)
	catalog := plan.NewCatalog(cfg.Billing.Plans)

	usageSvc := service.NewUsageService(store, summaryCache, cfg.Cache.SummaryTTL, hub, metrics)
	taskSvc := service.NewTaskService(store, usageSvc, publisher, hub, metrics)
	billingSvc := service.NewBillingService(store, catalog, usageSvc, metrics)
	cycleSvc := service.NewCycleService(store, usageSvc, hub, metrics)
	clientSvc := service.NewClientService(store)

	// Billing events also arrive over the queue (internal relays).
	cancelBilling, err := queue.Subscribe(ctx, messagequeue.SubjectBillingEvents, billingSvc.HandleMessage)
	if err != nil {
		return fmt.Errorf("billing subscriber: %w", err)
	}
	defer cancelBilling()

	cycleSvc.StartScheduler(ctx, cfg.Cycle.ResetInterval)

	// --- HTTP ---
	handlers := &hshttp.Handlers{
		Tasks:   taskSvc,
		Usage:   usageSvc,
		Clients: clientSvc,
		Billing: billingSvc,
		Cycle:   cycleSvc,
		Hub:     hub,
		Queue:   queue,
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(hshttp.CORS(cfg.Server.CORSOrigin))
	r.Use(hshttp.SecurityHeaders)
	r.Use(hshttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.Identity)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(limiter.Handler)
	if cfg.OTel.Enabled {
		r.Use(otel.HTTPMiddleware)
	}

	hshttp.MountRoutes(r, handlers, cfg.Billing.WebhookSecret)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
