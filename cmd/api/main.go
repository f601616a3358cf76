package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/family-fund-api/api/swagger"
	"github.com/noah-isme/family-fund-api/internal/handler"
	"github.com/noah-isme/family-fund-api/internal/middleware"
	"github.com/noah-isme/family-fund-api/internal/repository"
	"github.com/noah-isme/family-fund-api/internal/service"
	"github.com/noah-isme/family-fund-api/pkg/cache"
	"github.com/noah-isme/family-fund-api/pkg/config"
	"github.com/noah-isme/family-fund-api/pkg/database"
	"github.com/noah-isme/family-fund-api/pkg/events"
	"github.com/noah-isme/family-fund-api/pkg/jobs"
	"github.com/noah-isme/family-fund-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/family-fund-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/family-fund-api/pkg/middleware/requestid"
	"github.com/noah-isme/family-fund-api/pkg/storage"
)

// @title Family Fund API
// @version 1.0.0
// @description Assistance cases, disbursements and member dues for a family fund
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	stores, db, err := openStores(ctx, cfg, logr)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
	}
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, "family-fund")
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && cacheRepo != nil)

	publisher, err := newPublisher(cfg, logr)
	if err != nil {
		return err
	}
	defer publisher.Close()

	eventQueue := jobs.NewQueue("events", nil, jobs.QueueConfig{
		Workers:    cfg.Events.Workers,
		MaxRetries: cfg.Events.Retries,
		RetryDelay: time.Second,
		Logger:     logr,
	})
	eventSvc := service.NewEventService(publisher, eventQueue, metrics, logr)
	eventQueue.Handle(eventSvc.JobType(), eventSvc.HandleJob)
	eventQueue.Start(ctx)
	defer eventQueue.Stop()

	authSvc := service.NewAuthService(stores.Users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(stores.Users, validate, logr)
	if cfg.Seed.AdminEmail != "" && cfg.Seed.AdminPassword != "" {
		if _, created, err := userSvc.EnsureSuperAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword, cfg.Seed.AdminName); err != nil {
			return fmt.Errorf("seed superadmin: %w", err)
		} else if created {
			logr.Info("superadmin created", zap.String("email", cfg.Seed.AdminEmail))
		}
	}

	ledgerSvc := service.NewLedgerService(stores.Beneficiaries, stores.Cases, service.LedgerDeps{
		Audit:   stores.Users,
		Events:  eventSvc,
		Cache:   cacheSvc,
		Metrics: metrics,
	}, validate, logr)
	memberSvc := service.NewMemberService(stores.Members, stores.Payments, stores.Users, cacheSvc, service.MemberDefaults{
		TakafulMonthly: cfg.Dues.TakafulDefault,
		PlusMonthly:    cfg.Dues.PlusDefault,
	}, validate, logr)
	duesSvc := service.NewDuesService(stores.Members, stores.Payments, cacheSvc, metrics, validate, logr)
	reportSvc := service.NewReportService(stores.Cases, stores.Members, stores.Payments, cacheSvc, logr, service.ReportServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	files, err := storage.NewLocalStorage(cfg.Exports.Dir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}
	exportQueue := jobs.NewQueue("exports", nil, jobs.QueueConfig{
		Workers:    cfg.Exports.Workers,
		MaxRetries: 2,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	exportSvc := service.NewExportService(reportSvc, files, storage.NewDownloadSigner(cfg.Exports.SigningSecret, cfg.Exports.TTL), exportQueue, service.ExportConfig{
		APIPrefix:  cfg.APIPrefix,
		ResultTTL:  cfg.Exports.TTL,
		MaxRetries: 2,
	}, logr)
	exportQueue.Handle(exportSvc.JobType(), exportSvc.HandleJob)
	exportQueue.Start(ctx)
	defer exportQueue.Stop()
	go exportSvc.StartCleanup(ctx, time.Hour)

	if cfg.Dues.Enabled {
		go duesSvc.Run(ctx, cfg.Dues.Interval)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	ops := handler.NewMetricsHandler(metrics, func() error {
		if db == nil {
			return nil
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(userSvc),
		Beneficiaries: handler.NewBeneficiaryHandler(ledgerSvc),
		Cases:         handler.NewCaseHandler(ledgerSvc),
		Members:       handler.NewMemberHandler(memberSvc, duesSvc),
		Reports:       handler.NewReportHandler(reportSvc, exportSvc),
		Exports:       handler.NewExportHandler(exportSvc),
	}, handler.RouterDeps{Tokens: authSvc, Audit: stores.Users, Logger: logr})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.StorageDriver)
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

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStores returns the configured repositories. db is nil in memory mode.
func openStores(ctx context.Context, cfg *config.Config, logr *zap.Logger) (repository.Set, *sqlx.DB, error) {
	if cfg.StorageDriver == config.StorageMemory {
		logr.Warn("using in-memory storage, data is lost on restart")
		return repository.NewMemoryStore().Set(), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return repository.Set{}, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db); err != nil {
			_ = db.Close()
			return repository.Set{}, nil, err
		}
	}
	return repository.NewPostgresSet(db), db, nil
}

func newPublisher(cfg *config.Config, logr *zap.Logger) (events.Publisher, error) {
	if cfg.Events.AMQPURL == "" {
		return events.NewLogPublisher(logr), nil
	}
	publisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logr)
	if err != nil {
		return nil, fmt.Errorf("connect amqp: %w", err)
	}
	return publisher, nil
}
