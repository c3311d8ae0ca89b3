package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/config"
	"github.com/ablaqll/pmpk-website-sub000/shared/metrics"
	"github.com/ablaqll/pmpk-website-sub000/shared/revalidate"
	"github.com/ablaqll/pmpk-website-sub000/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}
	config.SetupLogging()
	cfg := config.Load()

	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	interval := 30 * time.Second
	if v := os.Getenv("RETRY_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			interval = d
		}
	}

	webhook := revalidate.NewClient(cfg.RevalidateURL, cfg.RevalidateSecret)
	retryConsumer := NewRetryConsumer(db, webhook, interval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Gin router
	router := gin.Default()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Retry consumer is healthy", gin.H{"service": "retry-consumer"})
	})

	// Retry statistics endpoint
	router.GET("/stats", func(c *gin.Context) {
		stats, err := retryConsumer.GetRetryStats(c.Request.Context())
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to load retry statistics")
			return
		}
		utils.OKResponse(c, "Retry statistics retrieved successfully", stats)
	})
	router.GET("/metrics", metrics.Handler())

	// Start retry consumer in background
	go retryConsumer.Run(ctx)

	port := os.Getenv("RETRY_CONSUMER_PORT")
	if port == "" {
		port = "8085"
	}

	logrus.Infof("Retry Consumer starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start Retry Consumer:", err)
	}
}
