package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"trading-journal-backend/internal/config"
	handler "trading-journal-backend/internal/handlers"
	"trading-journal-backend/internal/inference"
	"trading-journal-backend/internal/middleware"
	"trading-journal-backend/internal/quota"
	"trading-journal-backend/internal/ratelimit"
	"trading-journal-backend/internal/repository"
	"trading-journal-backend/internal/services/cleanup"
	"trading-journal-backend/internal/services/finalize"
	"trading-journal-backend/internal/services/ingest"
	"trading-journal-backend/internal/services/session"
	"trading-journal-backend/internal/services/staging"
)

// storeTxRunner adapts the repository transaction helper to the finalization
// service's TxRunner port.
type storeTxRunner struct {
	store *repository.Store
}

func (r storeTxRunner) InTx(ctx context.Context, fn func(ctx context.Context, tx finalize.Datastore) error) error {
	return r.store.InTx(ctx, func(txCtx context.Context, tx *repository.Store) error {
		return fn(txCtx, tx)
	})
}

// RegisterRoutes wires repositories, services and handlers onto the engine
// and returns the cleanup monitor so main can schedule it.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config) *cleanup.Monitor {
	store := repository.NewStore(db)

	uploadService := ingest.NewService(store, inference.NewHeuristicEngine(), cfg.SessionWindow)
	finalizeService := finalize.NewService(
		store,
		storeTxRunner{store: store},
		quota.ForURL(cfg.UsageServiceURL),
		cfg.SessionWindow,
		cfg.StagingTTL,
	)
	stagingService := staging.NewService(store, cfg.StagingTTL)
	monitor := cleanup.NewMonitor(stagingService, store)

	limiter := ratelimit.NewMemory(cfg.UploadRateLimit, time.Hour)

	tracker := session.NewTracker(store, cfg.SessionWindow)
	ingestionHandler := handler.NewIngestionHandler(uploadService, finalizeService, store, tracker, limiter)
	adminHandler := handler.NewAdminHandler(store, stagingService)
	cronHandler := handler.NewCronHandler(monitor)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Ingestion routes
	ingestion := api.Group("/ingestion")
	ingestion.Use(middleware.JWTAuth([]byte(cfg.JWTSecret)))
	ingestion.POST("/upload", ingestionHandler.Upload)
	ingestion.POST("/finalize-mappings", ingestionHandler.FinalizeMappings)
	ingestion.GET("/batches/:batchId", ingestionHandler.GetBatchProgress)

	// Admin review routes
	admin := api.Group("/admin")
	admin.Use(middleware.JWTAuth([]byte(cfg.JWTSecret)))
	admin.GET("/ingest-checks", adminHandler.ListIngestChecks)
	admin.POST("/formats/:formatId/approve", adminHandler.ApproveFormat)
	admin.POST("/formats/:formatId/reject", adminHandler.RejectFormat)

	// Cron routes, gated by the shared cron secret
	cron := r.Group("/cron")
	cron.Use(middleware.CronAuth(cfg.CronSecret))
	cron.POST("/cleanup-staging", cronHandler.RunCleanup)
	cron.GET("/cleanup-staging", cronHandler.CleanupStatus)

	return monitor
}
