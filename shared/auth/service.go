package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/metrics"
	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/ablaqll/pmpk-website-sub000/shared/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Revoker invalidates a session token id until it expires
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// LoginResult is returned to the dashboard after a successful login
type LoginResult struct {
	User      *models.UserInfo `json:"user"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// Service verifies credentials and issues session tokens
type Service struct {
	db      *gorm.DB
	tokens  *utils.TokenIssuer
	revoker Revoker
}

func NewService(db *gorm.DB, tokens *utils.TokenIssuer, revoker Revoker) *Service {
	return &Service{db: db, tokens: tokens, revoker: revoker}
}

// Login accepts an email or a login name. Every failure returns the same
// error so the response does not reveal which identifiers exist.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)

	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ? OR login = ?", strings.ToLower(identifier), identifier).
		First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.FromStore(err, "user")
		}
		utils.BurnPasswordCheck(password)
		metrics.LoginAttemptsTotal.WithLabelValues("unknown_user").Inc()
		return nil, apperrors.Unauthorized(apperrors.InvalidCredentials)
	}

	if !utils.VerifyPassword(password, user.PasswordHash) {
		metrics.LoginAttemptsTotal.WithLabelValues("bad_password").Inc()
		return nil, apperrors.Unauthorized(apperrors.InvalidCredentials)
	}

	info := user.Info()
	token, expiresAt, err := s.tokens.Issue(info)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).UpdateColumn("last_login_at", now).Error; err != nil {
		logrus.WithField("user_id", user.ID).WithError(err).Warn("Failed to record last login")
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User logged in")
	return &LoginResult{User: info, Token: token, ExpiresAt: expiresAt}, nil
}

// Me returns the stored profile of the caller
func (s *Service) Me(ctx context.Context, caller *models.UserInfo) (*models.User, error) {
	if caller == nil {
		return nil, apperrors.ErrUnauthorized
	}
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Client").First(&user, "id = ?", caller.ID).Error; err != nil {
		return nil, apperrors.FromStore(err, "user")
	}
	return &user, nil
}

// Refresh replaces the role and client binding carried by a token with the
// stored ones, so a role change applies to sessions already issued. A user
// that no longer exists is unauthorized.
func (s *Service) Refresh(ctx context.Context, caller *models.UserInfo) (*models.UserInfo, error) {
	if caller == nil {
		return nil, apperrors.ErrUnauthorized
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", caller.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, apperrors.FromStore(err, "user")
	}

	info := user.Info()
	info.TokenID = caller.TokenID
	info.ExpiresAt = caller.ExpiresAt
	if info.Role != caller.Role {
		logrus.WithFields(logrus.Fields{
			"user_id":     user.ID,
			"token_role":  caller.Role,
			"stored_role": info.Role,
		}).Debug("Session role differs from stored role")
	}
	return info, nil
}

// ChangePassword replaces the caller's password after verifying the old one
func (s *Service) ChangePassword(ctx context.Context, caller *models.UserInfo, oldPassword, newPassword string) error {
	if caller == nil {
		return apperrors.ErrUnauthorized
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", caller.ID).Error; err != nil {
		return apperrors.FromStore(err, "user")
	}
	if !utils.VerifyPassword(oldPassword, user.PasswordHash) {
		return apperrors.Unauthorized(apperrors.InvalidCredentials)
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooShort) {
			return apperrors.Validation(err.Error())
		}
		return apperrors.Internal(err)
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("password_hash", hash).Error; err != nil {
		return apperrors.FromStore(err, "user")
	}
	return nil
}

// Logout revokes the caller's current token
func (s *Service) Logout(ctx context.Context, caller *models.UserInfo) error {
	if caller == nil {
		return apperrors.ErrUnauthorized
	}
	if s.revoker == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, caller.TokenID, caller.ExpiresAt); err != nil {
		return apperrors.Unavailable("Logout is temporarily unavailable", err)
	}
	return nil
}
