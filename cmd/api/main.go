package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pulsemsp/pulse/internal/application/reportsvc"
	"github.com/pulsemsp/pulse/internal/application/scoresvc"
	"github.com/pulsemsp/pulse/internal/application/syncsvc"
	"github.com/pulsemsp/pulse/internal/config"
	"github.com/pulsemsp/pulse/internal/domain/adapters"
	"github.com/pulsemsp/pulse/internal/domain/citations"
	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/domain/reports"
	"github.com/pulsemsp/pulse/internal/domain/scoring"
	"github.com/pulsemsp/pulse/internal/domain/syncerrors"
	"github.com/pulsemsp/pulse/internal/domain/syncruns"
	"github.com/pulsemsp/pulse/internal/infra/adapters/cwpsa"
	"github.com/pulsemsp/pulse/internal/infra/adapters/immy"
	"github.com/pulsemsp/pulse/internal/infra/adapters/m365"
	openaigen "github.com/pulsemsp/pulse/internal/infra/ai/openai"
	"github.com/pulsemsp/pulse/internal/infra/cache"
	mysqlp "github.com/pulsemsp/pulse/internal/infra/db/mysql"
	postgresp "github.com/pulsemsp/pulse/internal/infra/db/postgres"
	"github.com/pulsemsp/pulse/internal/infra/httpserver"
	"github.com/pulsemsp/pulse/internal/infra/render"
	minioStore "github.com/pulsemsp/pulse/internal/infra/storage"
	"github.com/pulsemsp/pulse/internal/middleware"
)

func main() {
	_ = godotenv.Load()

	log := config.NewLogger()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.WithError(err).Fatal("config load error")
	}

	ctx := context.Background()

	var db *sql.DB
	var store entities.Store
	var reportRepo reports.Repository
	var runRepo syncruns.Repository
	var errRepo syncerrors.Repository

	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.WithError(err).Fatal("postgres connect error")
		}
		store = postgresp.NewStoreRepository(db)
		reportRepo = postgresp.NewReportRepository(db)
		runRepo = postgresp.NewSyncRunRepository(db)
		errRepo = postgresp.NewSyncErrorRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.WithError(err).Fatal("mysql connect error")
		}
		store = mysqlp.NewStoreRepository(db)
		reportRepo = mysqlp.NewReportRepository(db)
		runRepo = mysqlp.NewSyncRunRepository(db)
		errRepo = mysqlp.NewSyncErrorRepository(db)
	}
	defer db.Close()

	artifacts, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
		log,
	)
	if err != nil {
		log.WithError(err).Fatal("minio init error")
	}

	var scoreCache scoring.Cache
	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		scoreCache = redisCache
		checkers["redis"] = middleware.CheckFunc(redisCache.Ping)
	} else {
		mem := cache.NewMemory()
		defer mem.Close()
		scoreCache = mem
	}

	adapterSet := make(map[entities.Source]adapters.Adapter)
	creds := make(map[entities.Source]adapters.Credentials)
	for name, vc := range cfg.Vendors {
		switch entities.Source(name) {
		case entities.SourceCWPSA:
			adapterSet[entities.SourceCWPSA] = cwpsa.New(vc.BaseURL)
			creds[entities.SourceCWPSA] = vc.Credentials
		case entities.SourceImmy:
			adapterSet[entities.SourceImmy] = immy.New(vc.BaseURL)
			creds[entities.SourceImmy] = vc.Credentials
		case entities.SourceM365:
			adapterSet[entities.SourceM365] = m365.New(vc.BaseURL)
			creds[entities.SourceM365] = vc.Credentials
		default:
			log.WithField("vendor", name).Warn("unknown vendor in config, skipping")
		}
	}

	syncSvc := &syncsvc.Service{
		Store:    store,
		Runs:     runRepo,
		Errors:   errRepo,
		Adapters: adapterSet,
		Creds:    creds,
		Log:      log,
		Clock:    syncsvc.SystemClock{},
	}

	scoreSvc := &scoresvc.Service{
		Store:    store,
		Cache:    scoreCache,
		CacheTTL: time.Duration(cfg.Scores.CacheTTLSeconds) * time.Second,
		Log:      log,
		Clock:    scoresvc.SystemClock{},
	}

	reportSvc := &reportsvc.Service{
		Store:     store,
		Reports:   reportRepo,
		Scores:    scoreSvc,
		Generator: openaigen.NewGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
		Validator: citations.NewValidator(),
		Renderer:  render.NewHTML(),
		Artifacts: artifacts,
		Log:       log,
		Clock:     reportsvc.SystemClock{},
	}

	handler := httpserver.NewRouter(syncSvc, scoreSvc, reportSvc, cfg.APIKeys, cfg.Server.RateLimit, checkers, log)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}
