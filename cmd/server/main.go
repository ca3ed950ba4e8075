package main

import (
	"log"
	"time"

	"trading-journal-backend/internal/config"
	"trading-journal-backend/internal/models"
	"trading-journal-backend/internal/routes"
	"trading-journal-backend/internal/services/cleanup"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg := config.Load()
	db := config.InitDB(cfg)

	db.AutoMigrate(
		&models.Broker{},
		&models.BrokerFormat{},
		&models.ImportBatch{},
		&models.CsvUploadLog{},
		&models.AiIngestToCheck{},
		&models.AiIngestFeedbackItem{},
		&models.StagedOrder{},
		&models.Order{},
		&models.Trade{},
		&models.StagingMetric{},
	)

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	monitor := routes.RegisterRoutes(r, db, cfg)

	if _, err := cleanup.StartScheduler(cfg.CleanupSchedule, monitor); err != nil {
		log.Fatalf("failed to start cleanup scheduler: %v", err)
	}

	r.Run(":" + cfg.Port)
}
