package main

import (
	"context"
	"log"

	"github.com/ablaqll/pmpk-website-sub000/shared/cms"
	"github.com/ablaqll/pmpk-website-sub000/shared/config"
	"github.com/ablaqll/pmpk-website-sub000/shared/events"
	"github.com/ablaqll/pmpk-website-sub000/shared/storage"
	"github.com/ablaqll/pmpk-website-sub000/shared/utils"
	"github.com/go-redis/redis/v8"
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

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	tokens, err := utils.NewTokenIssuer(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatal("Failed to initialize session tokens:", err)
	}

	// Redis only backs logout; without it tokens live until they expire
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = utils.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logrus.Warnf("Failed to connect to Redis, session revocation disabled: %v", err)
		} else {
			defer redisClient.Close()
		}
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.KafkaBroker != "" {
		producer := events.NewKafkaProducer(cfg.KafkaBroker, cfg.ContentEventsTopic)
		defer producer.Close()
		publisher = producer
	} else {
		logrus.Info("KAFKA_BROKER not set, content events disabled")
	}

	var cmsClient *cms.Client
	if cfg.CMS.Enabled() {
		cmsClient = cms.NewClient(cfg.CMS)
	}

	var uploader storage.Uploader
	if s3Uploader, err := storage.NewS3Uploader(cfg.S3); err == nil {
		uploader = s3Uploader
	} else {
		logrus.Warnf("Uploads disabled: %v", err)
	}

	srv := newServer(dependencies{
		DB:          db,
		Config:      cfg,
		Tokens:      tokens,
		Revocations: utils.NewRevocationStore(redisClient),
		Publisher:   publisher,
		CMS:         cmsClient,
		Uploader:    uploader,
	})

	logrus.Infof("CMS service starting on port %s", cfg.Port)
	if err := srv.routes().Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start CMS service:", err)
	}
}
