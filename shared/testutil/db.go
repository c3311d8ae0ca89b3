// Package testutil provides in-memory stores and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with the full schema
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// CreateClient inserts an active client with the given slug
func CreateClient(t *testing.T, db *gorm.DB, slug string) models.Client {
	t.Helper()

	client := models.Client{
		ID:       uuid.New(),
		Slug:     slug,
		Name:     models.Localized{Ru: "Клиент " + slug, En: "Client " + slug},
		IsActive: true,
	}
	require.NoError(t, db.Create(&client).Error)
	return client
}

// CreateUser inserts a user; passwordHash may be empty for token-only tests
func CreateUser(t *testing.T, db *gorm.DB, email string, role models.UserRole, clientID *uuid.UUID, passwordHash string) models.User {
	t.Helper()

	if passwordHash == "" {
		passwordHash = "!"
	}
	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         email,
		Role:         role,
		ClientID:     clientID,
		PasswordHash: passwordHash,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// SuperAdmin returns a caller identity with the super admin role
func SuperAdmin() *models.UserInfo {
	return &models.UserInfo{ID: uuid.New(), Email: "root@example.com", Role: models.RoleSuperAdmin}
}

// Member returns a caller bound to clientID with role
func Member(role models.UserRole, clientID uuid.UUID) *models.UserInfo {
	id := clientID
	return &models.UserInfo{ID: uuid.New(), Email: string(role) + "@example.com", Role: role, ClientID: &id}
}
