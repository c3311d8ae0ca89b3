package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/ablaqll/pmpk-website-sub000/shared/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type options struct {
	ClientSlug    string
	ClientName    string
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// seed creates the default client and, when credentials are given, a super
// admin. Existing rows are left untouched so the command can run on every deploy.
func seed(ctx context.Context, db *gorm.DB, opts options) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := seedClient(tx, opts); err != nil {
			return err
		}
		if opts.AdminEmail == "" {
			logrus.Info("SEED_ADMIN_EMAIL not set, skipping super admin")
			return nil
		}
		return seedAdmin(tx, opts)
	})
}

func seedClient(tx *gorm.DB, opts options) error {
	var client models.Client
	err := tx.Unscoped().Where("slug = ?", opts.ClientSlug).First(&client).Error
	if err == nil {
		logrus.Infof("Client %s already exists", opts.ClientSlug)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up client: %w", err)
	}

	client = models.Client{
		ID:       uuid.New(),
		Slug:     opts.ClientSlug,
		Name:     models.Localized{Ru: opts.ClientName, Kk: opts.ClientName, En: opts.ClientName},
		IsActive: true,
	}
	if err := tx.Create(&client).Error; err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	logrus.WithField("client_id", client.ID).Infof("Created client %s", client.Slug)
	return nil
}

func seedAdmin(tx *gorm.DB, opts options) error {
	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))

	var existing int64
	if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to look up admin: %w", err)
	}
	if existing > 0 {
		logrus.Infof("User %s already exists", email)
		return nil
	}

	hash, err := utils.HashPassword(opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("invalid SEED_ADMIN_PASSWORD: %w", err)
	}
	name := opts.AdminName
	if name == "" {
		name = "Administrator"
	}

	admin := models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		Role:         models.RoleSuperAdmin,
		PasswordHash: hash,
	}
	if err := tx.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	logrus.WithField("user_id", admin.ID).Infof("Created super admin %s", email)
	return nil
}
