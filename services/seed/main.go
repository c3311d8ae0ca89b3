package main

import (
	"context"
	"log"
	"os"

	"github.com/ablaqll/pmpk-website-sub000/shared/config"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}
	config.SetupLogging()
	cfg := config.Load()

	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	opts := options{
		ClientSlug:    cfg.DefaultClientSlug,
		ClientName:    cfg.DefaultClientName,
		AdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
		AdminName:     os.Getenv("SEED_ADMIN_NAME"),
	}
	if err := seed(context.Background(), db, opts); err != nil {
		log.Fatal("Seeding failed:", err)
	}
	logrus.Info("Seeding complete")
}
