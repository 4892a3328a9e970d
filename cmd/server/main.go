package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appidentity "github.com/backoffice/prdesk/internal/application/identity"
	apppricing "github.com/backoffice/prdesk/internal/application/pricing"
	"github.com/backoffice/prdesk/internal/infrastructure/auth"
	"github.com/backoffice/prdesk/internal/infrastructure/config"
	"github.com/backoffice/prdesk/internal/infrastructure/fixture"
	"github.com/backoffice/prdesk/internal/infrastructure/logger"
	"github.com/backoffice/prdesk/internal/infrastructure/metrics"
	"github.com/backoffice/prdesk/internal/infrastructure/persistence"
	"github.com/backoffice/prdesk/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	var (
		configPath string
		seed       bool
	)
	flag.StringVar(&configPath, "config", "", "Path to a config file (default: config.toml lookup)")
	flag.BoolVar(&seed, "seed", false, "Create demo accounts and pricing requests before serving")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting prdesk server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.AutoMigrate || cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	users := persistence.NewGormUserRepository(db.DB)
	requests := persistence.NewGormPricingRequestRepository(db.DB)

	if seed {
		seeder := fixture.NewSeeder(users, requests, fixture.NewGenerator(uint64(time.Now().UnixNano())), log)
		if _, err := seeder.Seed(context.Background(), cfg.Seed.Count); err != nil {
			log.Fatal("Failed to seed demo data", zap.Error(err))
		}
		log.Info("Demo accounts ready",
			zap.Strings("emails", []string{fixture.DemoSalesEmail, fixture.DemoAnalystEmail, fixture.DemoAnalyst2Email}),
			zap.String("password", fixture.DemoPassword))
	}

	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		redisBlacklist, err := auth.NewRedisTokenBlacklist(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = redisBlacklist.Close() }()
		blacklist = redisBlacklist
		log.Info("Token blacklist backed by Redis", zap.String("addr", cfg.Redis.Addr()))
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
		log.Info("Token blacklist kept in memory")
	}

	m := metrics.New()
	m.RegisterStateGauge(requests.CountByState, log)

	jwtService := auth.NewJWTService(cfg.JWT)
	engine := router.New(router.Dependencies{
		Logger:    log,
		HTTP:      cfg.HTTP,
		JWT:       jwtService,
		Blacklist: blacklist,
		Auth:      appidentity.NewAuthService(users, jwtService, blacklist, log),
		Workflow:  apppricing.NewWorkflowService(requests, m, log),
		Metrics:   m,
		Health:    db,
		Version:   version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
