package tenant

import (
	"context"
	"errors"
	"strings"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Resolution is the outcome of a lenient lookup
type Resolution struct {
	Client   *models.Client `json:"client"`
	Fallback bool           `json:"fallback"`
}

// Resolver maps a slug (or nothing) to the client that owns a request
type Resolver struct {
	db          *gorm.DB
	defaultSlug string
	fallback    models.Client
}

func NewResolver(db *gorm.DB, defaultSlug, defaultName string) *Resolver {
	return &Resolver{
		db:          db,
		defaultSlug: defaultSlug,
		fallback: models.Client{
			Slug:     defaultSlug,
			Name:     models.Localized{Ru: defaultName, Kk: defaultName, En: defaultName},
			IsActive: true,
		},
	}
}

// Resolve returns the active client with slug, or the default client for an
// empty slug. Inactive clients are reported as not found.
func (r *Resolver) Resolve(ctx context.Context, slug string) (*models.Client, error) {
	return r.lookup(ctx, slug, true)
}

// ResolveOrFallback never fails. A missing or inactive client or an
// unreachable store yields the configured fallback identity.
func (r *Resolver) ResolveOrFallback(ctx context.Context, slug string) Resolution {
	client, err := r.Resolve(ctx, slug)
	if err == nil {
		return Resolution{Client: client}
	}

	if !errors.Is(err, apperrors.ErrNotFound) {
		logrus.WithField("slug", slug).WithError(err).Warn("Client lookup failed, using fallback")
	}
	fallback := r.fallback
	return Resolution{Client: &fallback, Fallback: true}
}

// ResolveID picks the active client for a public request: an explicit id
// wins, otherwise the slug (or the default) is resolved.
func (r *Resolver) ResolveID(ctx context.Context, clientID *uuid.UUID, slug string) (uuid.UUID, error) {
	if clientID != nil && *clientID != uuid.Nil {
		active, err := r.IsActive(ctx, *clientID)
		if err != nil {
			return uuid.Nil, err
		}
		if !active {
			return uuid.Nil, apperrors.ErrNotFound
		}
		return *clientID, nil
	}
	client, err := r.Resolve(ctx, slug)
	if err != nil {
		return uuid.Nil, err
	}
	return client.ID, nil
}

// ResolveAdminID is ResolveID for administrative requests, which still
// reach inactive clients. An explicit id is returned as given; the scoped
// repository authorizes it.
func (r *Resolver) ResolveAdminID(ctx context.Context, clientID *uuid.UUID, slug string) (uuid.UUID, error) {
	if clientID != nil && *clientID != uuid.Nil {
		return *clientID, nil
	}
	client, err := r.lookup(ctx, slug, false)
	if err != nil {
		return uuid.Nil, err
	}
	return client.ID, nil
}

// IsActive reports whether clientID names an existing, active client
func (r *Resolver) IsActive(ctx context.Context, clientID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Client{}).
		Where("id = ? AND is_active = ?", clientID, true).
		Count(&n).Error
	if err != nil {
		return false, apperrors.FromStore(err, "client")
	}
	return n > 0, nil
}

func (r *Resolver) lookup(ctx context.Context, slug string, activeOnly bool) (*models.Client, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = r.defaultSlug
	}

	tx := r.db.WithContext(ctx).Where("slug = ?", slug)
	if activeOnly {
		tx = tx.Where("is_active = ?", true)
	}
	var client models.Client
	if err := tx.First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.FromStore(err, "client")
	}
	return &client, nil
}
