package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

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

	if cfg.KafkaBroker == "" {
		log.Fatal("KAFKA_BROKER must be set")
	}

	// Initialize database connection
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	webhook := revalidate.NewClient(cfg.RevalidateURL, cfg.RevalidateSecret)
	if cfg.RevalidateURL == "" {
		logrus.Warn("REVALIDATE_URL not set, every event will be stored for retry")
	}

	kafkaConsumer := NewKafkaConsumer(cfg.KafkaBroker, cfg.ContentEventsTopic, db, webhook)
	defer kafkaConsumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go kafkaConsumer.Run(ctx)

	// Initialize Gin router
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Revalidator is healthy", nil)
	})
	router.GET("/status", func(c *gin.Context) {
		utils.OKResponse(c, "Revalidation status retrieved successfully", webhook.GetStatus())
	})
	router.GET("/metrics", metrics.Handler())

	port := os.Getenv("REVALIDATOR_SERVICE_PORT")
	if port == "" {
		port = "8004"
	}

	logrus.Infof("Revalidator starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start revalidator:", err)
	}
}
