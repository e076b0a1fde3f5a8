package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/special-ed-api/api/swagger"
	"github.com/noah-isme/special-ed-api/internal/handler"
	internalmiddleware "github.com/noah-isme/special-ed-api/internal/middleware"
	"github.com/noah-isme/special-ed-api/internal/models"
	"github.com/noah-isme/special-ed-api/internal/registry"
	"github.com/noah-isme/special-ed-api/internal/repository"
	"github.com/noah-isme/special-ed-api/internal/service"
	"github.com/noah-isme/special-ed-api/pkg/cache"
	"github.com/noah-isme/special-ed-api/pkg/config"
	"github.com/noah-isme/special-ed-api/pkg/database"
	"github.com/noah-isme/special-ed-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/special-ed-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/special-ed-api/pkg/middleware/requestid"
)

// @title Special Education Data API
// @version 1.0.0
// @description Spreadsheet uploads and row editing for the special-education dashboard
// @BasePath /
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewWarehouse(ctx, cfg.Warehouse)
	if err != nil {
		logr.Fatal("failed to connect to warehouse", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, cfg.RowCache)
	if err != nil {
		logr.Warn("row cache disabled", zap.Error(err))
	}

	entities := registry.New(cfg.Warehouse.Namespaces)
	for _, name := range entities.Names() {
		loc, _ := entities.Resolve(name)
		logr.Debug("entity registered", zap.String("entity", name), zap.String("table", loc.String()))
	}

	validate := validator.New()
	models.RegisterValidators(validate)

	warehouseRepo := repository.NewWarehouseRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	rowCache := service.NewRowCache(cacheRepo, metricsSvc, cfg.RowCache.TTL, logr, cfg.RowCache.Enabled && redisClient != nil)
	recordSvc := service.NewRecordService(entities, recordRepo, rowCache, validate, metricsSvc, logr)
	reconcileSvc := service.NewReconcileService(entities, warehouseRepo, rowCache, metricsSvc, logr)
	exportSvc := service.NewExportService(entities, recordSvc, logr)

	readiness := map[string]handler.Pinger{
		"warehouse": warehouseRepo,
		"cache":     cacheRepo,
	}
	routes := handler.Routes{
		Records: handler.NewRecordHandler(recordSvc),
		Uploads: handler.NewUploadHandler(reconcileSvc, cfg.Upload.MaxFileSizeBytes),
		Exports: handler.NewExportHandler(exportSvc),
		Fetch:   handler.NewFetchHandler(recordSvc, entities),
		Metrics: handler.NewMetricsHandler(metricsSvc, cfg.BackendURL, readiness),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	routes.Register(r, entities.Names())

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "project", cfg.Warehouse.Project)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
