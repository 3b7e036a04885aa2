package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"perfhub/internal/domain/audit"
	"perfhub/internal/domain/auth"
	"perfhub/internal/domain/evaluations"
	"perfhub/internal/domain/feedback"
	"perfhub/internal/domain/frameworks"
	"perfhub/internal/domain/goals"
	"perfhub/internal/domain/notifications"
	"perfhub/internal/domain/reports"
	"perfhub/internal/domain/tasks"
	"perfhub/internal/platform/cache"
	"perfhub/internal/platform/config"
	"perfhub/internal/platform/crypto"
	"perfhub/internal/platform/db"
	"perfhub/internal/platform/email"
	"perfhub/internal/platform/jobs"
	"perfhub/internal/platform/logger"
	"perfhub/internal/platform/metrics"
	"perfhub/internal/transport/http/api"
	audithandler "perfhub/internal/transport/http/handlers/audit"
	authhandler "perfhub/internal/transport/http/handlers/auth"
	evaluationshandler "perfhub/internal/transport/http/handlers/evaluations"
	feedbackhandler "perfhub/internal/transport/http/handlers/feedback"
	frameworkshandler "perfhub/internal/transport/http/handlers/frameworks"
	goalshandler "perfhub/internal/transport/http/handlers/goals"
	jobshandler "perfhub/internal/transport/http/handlers/jobs"
	notificationshandler "perfhub/internal/transport/http/handlers/notifications"
	reportshandler "perfhub/internal/transport/http/handlers/reports"
	taskshandler "perfhub/internal/transport/http/handlers/tasks"
	"perfhub/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Logger  *zap.Logger
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Jobs    *jobs.Service
	Metrics *metrics.Collector
	Router  http.Handler
}

// directory is what the app needs from a user store: lookups for sessions and
// handlers, plus writes for seeding.
type directory interface {
	auth.Directory
	db.AccountWriter
}

// New wires every service and handler. Without DATABASE_URL all stores are
// in memory; without REDIS_ADDR session revocations and rate limit windows
// are kept in process.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	app := &App{Config: cfg, Logger: log}

	scope, err := auth.ParseManagerScope(cfg.ManagerScope)
	if err != nil {
		return nil, err
	}

	catalog, err := frameworks.Load(cfg.FrameworksFile)
	if err != nil {
		return nil, err
	}

	sealer, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return nil, err
	}

	var (
		users         directory
		taskStore     tasks.StoreAPI
		evalStore     evaluations.StoreAPI
		feedbackStore feedback.StoreAPI
		goalStore     goals.StoreAPI
		notifyStore   notifications.StoreAPI
		auditStore    audit.StoreAPI
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		app.DB = pool
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, cfg.MigrationsDir, log); err != nil {
				app.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		if err := catalog.Attach(ctx, frameworks.NewStore(pool)); err != nil {
			app.Close()
			return nil, err
		}
		users = auth.NewStore(pool)
		taskStore = tasks.NewStore(pool)
		evalStore = evaluations.NewStore(pool)
		feedbackStore = &feedback.Store{DB: pool, Cipher: sealer}
		goalStore = goals.NewStore(pool)
		notifyStore = notifications.NewStore(pool)
		auditStore = audit.NewStore(pool)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		users = auth.NewMemoryDirectory()
		taskStore = tasks.NewMemoryStore()
		evalStore = evaluations.NewMemoryStore()
		feedbackStore = feedback.NewMemoryStore()
		goalStore = goals.NewMemoryStore()
		notifyStore = notifications.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
	}

	if cfg.RunSeed {
		if err := db.Seed(ctx, users, cfg, log); err != nil {
			app.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	var (
		revocations auth.RevocationStore   = auth.NewMemoryRevocations()
		rateCounter middleware.RateCounter = cache.NewMemoryCounter()
	)
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	if client != nil {
		app.Redis = client
		revocations = auth.NewRedisRevocations(client)
		rateCounter = cache.NewRedisCounter(client)
	}

	collector := metrics.New()
	app.Metrics = collector

	authService := auth.NewService(users, revocations, cfg.JWTSecret, cfg.TokenTTL, scope, log)

	notifyService := notifications.New(notifyStore, email.New(cfg, log), log)
	notifyService.Emails = authService
	notifyService.EmailEnabled = cfg.EmailEnabled
	notifyService.DefaultFrom = cfg.EmailFrom

	taskService := tasks.NewService(taskStore, log)
	taskService.Frameworks = catalog
	taskService.Notify = notifyService
	taskService.Metrics = collector

	evalService := evaluations.NewService(evalStore, catalog, log)
	evalService.Notify = notifyService

	feedbackService := feedback.NewService(feedbackStore, log)
	feedbackService.Notify = notifyService

	goalService := goals.NewService(goalStore, log)
	goalService.Notify = notifyService

	reportService := reports.NewService(taskService, evalService, log)
	auditService := audit.New(auditStore, log)

	app.Jobs = jobs.New(taskService, cfg.RollupInterval, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(chimw.Recoverer)
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Session(authService, scope, log))
	router.Use(middleware.Audit(auditService, log))
	router.Use(middleware.RateLimit(rateCounter, cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(rateCounter, cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", app.handleReady)
	if cfg.MetricsEnabled {
		router.Handle("/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authService, log).RegisterRoutes(r)
		taskshandler.NewHandler(taskService, users, log).RegisterRoutes(r)
		frameworkshandler.NewHandler(catalog, log).RegisterRoutes(r)
		evaluationshandler.NewHandler(evalService, log).RegisterRoutes(r)
		feedbackhandler.NewHandler(feedbackService, log).RegisterRoutes(r)
		goalshandler.NewHandler(goalService, log).RegisterRoutes(r)
		notificationshandler.NewHandler(notifyService, log).RegisterRoutes(r)
		reportshandler.NewHandler(reportService, authService, log).RegisterRoutes(r)
		jobshandler.NewHandler(app.Jobs, log).RegisterRoutes(r)
		audithandler.NewHandler(auditService, log).RegisterRoutes(r)
	})
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Fail(w, http.StatusNotFound, "not_found", "route not found", middleware.GetRequestID(r.Context()))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Fail(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", middleware.GetRequestID(r.Context()))
	})

	app.Router = router
	return app, nil
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if a.DB != nil {
		if err := a.DB.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Close releases the database pool and redis client. Safe to call more than once.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("redis close failed", zap.Error(err))
		}
		a.Redis = nil
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

// Run loads configuration, starts background jobs and serves HTTP until
// SIGINT or SIGTERM.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	zap.ReplaceGlobals(app.Logger)

	app.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("perfhub server listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
