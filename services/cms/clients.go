package main

import (
	"context"
	"strings"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/ablaqll/pmpk-website-sub000/shared/repository"
	"github.com/ablaqll/pmpk-website-sub000/shared/rpc"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
)

type slugParams struct {
	Slug string `json:"slug" binding:"omitempty,slug"`
}

type createClientParams struct {
	Slug             string           `json:"slug" binding:"omitempty,slug,max=100"`
	Name             models.Localized `json:"name"`
	ShortName        string           `json:"shortName" binding:"max=100"`
	Address          models.Localized `json:"address"`
	Phone            string           `json:"phone" binding:"max=50"`
	Email            string           `json:"email" binding:"omitempty,email"`
	Website          string           `json:"website" binding:"omitempty,url"`
	LogoURL          string           `json:"logoUrl"`
	DirectorName     models.Localized `json:"directorName"`
	DirectorBio      models.Localized `json:"directorBio"`
	DirectorPhotoURL string           `json:"directorPhotoUrl"`
}

type updateClientParams struct {
	ID   uuid.UUID          `json:"id" binding:"required"`
	Data models.ClientPatch `json:"data"`
}

type setActiveParams struct {
	ID     uuid.UUID `json:"id" binding:"required"`
	Active *bool     `json:"active" binding:"required"`
}

func requireSuperAdmin(caller *models.UserInfo) error {
	if !caller.IsSuperAdmin() {
		return apperrors.Forbidden("Super admin access required")
	}
	return nil
}

func (s *server) registerClientProcedures() {
	// The public site always gets an identity, even with an empty store
	s.rpc.Query("clients.resolve", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[slugParams](call)
		if err != nil {
			return nil, err
		}
		return s.resolver.ResolveOrFallback(call.Ctx, p.Slug), nil
	})

	s.rpc.Query("clients.bySlug", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[slugParams](call)
		if err != nil {
			return nil, err
		}
		if p.Slug == "" {
			return nil, apperrors.Validation("Slug is required")
		}
		client, err := s.resolver.Resolve(call.Ctx, p.Slug)
		return nullIfMissing(client, err)
	})

	s.rpc.ProtectedQuery("clients.list", func(call *rpc.Call) (any, error) {
		return s.listClients(call.Ctx, call.Caller)
	})

	s.rpc.ProtectedQuery("clients.get", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[idParams](call)
		if err != nil {
			return nil, err
		}
		if !call.Caller.MayActOn(p.ID) {
			return nil, apperrors.ErrForbidden
		}
		var client models.Client
		err = s.db.WithContext(call.Ctx).First(&client, "id = ?", p.ID).Error
		return nullIfMissing(&client, apperrors.FromStore(err, "client"))
	})

	s.rpc.ProtectedMutation("clients.create", func(call *rpc.Call) (any, error) {
		if err := requireSuperAdmin(call.Caller); err != nil {
			return nil, err
		}
		p, err := rpc.Bind[createClientParams](call)
		if err != nil {
			return nil, err
		}
		return s.createClient(call.Ctx, p)
	})

	s.rpc.ProtectedMutation("clients.update", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[updateClientParams](call)
		if err != nil {
			return nil, err
		}
		if !call.Caller.CanManageClient(p.ID) {
			return nil, apperrors.Forbidden("Only client administrators may change the client")
		}
		columns, err := repository.Changes(&p.Data, s.db.NamingStrategy)
		if err != nil {
			return nil, apperrors.Validation(err.Error())
		}
		return s.updateClient(call.Ctx, p.ID, columns)
	})

	s.rpc.ProtectedMutation("clients.setActive", func(call *rpc.Call) (any, error) {
		if err := requireSuperAdmin(call.Caller); err != nil {
			return nil, err
		}
		p, err := rpc.Bind[setActiveParams](call)
		if err != nil {
			return nil, err
		}
		return s.updateClient(call.Ctx, p.ID, map[string]any{"is_active": *p.Active})
	})

	s.rpc.ProtectedMutation("clients.delete", func(call *rpc.Call) (any, error) {
		if err := requireSuperAdmin(call.Caller); err != nil {
			return nil, err
		}
		p, err := rpc.Bind[idParams](call)
		if err != nil {
			return nil, err
		}
		if err := s.deleteClient(call.Ctx, p.ID); err != nil {
			return nil, err
		}
		return deleted(), nil
	})
}

func (s *server) listClients(ctx context.Context, caller *models.UserInfo) ([]models.Client, error) {
	tx := s.db.WithContext(ctx).Order("slug ASC")
	switch {
	case caller.IsSuperAdmin():
	case caller.Role.IsClientScoped() && caller.ClientID != nil:
		tx = tx.Where("id = ?", *caller.ClientID)
	default:
		return nil, apperrors.ErrForbidden
	}

	clients := make([]models.Client, 0)
	if err := tx.Find(&clients).Error; err != nil {
		return nil, apperrors.FromStore(err, "client")
	}
	return clients, nil
}

func (s *server) createClient(ctx context.Context, p *createClientParams) (*models.Client, error) {
	name := p.Name
	if strings.TrimSpace(name.Ru) == "" && strings.TrimSpace(name.En) == "" && strings.TrimSpace(name.Kk) == "" {
		return nil, apperrors.Validation("Name is required")
	}

	clientSlug := p.Slug
	if clientSlug == "" {
		clientSlug = slug.Make(firstNonEmpty(name.En, name.Ru, name.Kk))
	}
	if !rpc.IsSlug(clientSlug) {
		return nil, apperrors.Validation("Slug must be a lowercase slug")
	}

	// Soft-deleted clients keep their slug reserved
	var taken int64
	if err := s.db.WithContext(ctx).Unscoped().Model(&models.Client{}).Where("slug = ?", clientSlug).Count(&taken).Error; err != nil {
		return nil, apperrors.FromStore(err, "client")
	}
	if taken > 0 {
		return nil, apperrors.Conflict("Slug already exists")
	}

	client := &models.Client{
		ID:               uuid.New(),
		Slug:             clientSlug,
		Name:             name,
		ShortName:        p.ShortName,
		Address:          p.Address,
		Phone:            p.Phone,
		Email:            p.Email,
		Website:          p.Website,
		LogoURL:          p.LogoURL,
		DirectorName:     p.DirectorName,
		DirectorBio:      p.DirectorBio,
		DirectorPhotoURL: p.DirectorPhotoURL,
		IsActive:         true,
	}
	if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
		return nil, apperrors.FromStore(err, "client")
	}

	logrus.WithFields(logrus.Fields{"client_id": client.ID, "slug": client.Slug}).Info("Client created")
	return client, nil
}

func (s *server) updateClient(ctx context.Context, id uuid.UUID, columns map[string]any) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		return nil, apperrors.FromStore(err, "client")
	}

	columns["updated_at"] = time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&client).Updates(columns).Error; err != nil {
		return nil, apperrors.FromStore(err, "client")
	}
	if err := s.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		return nil, apperrors.FromStore(err, "client")
	}
	return &client, nil
}

// deleteClient soft-deletes a client that nothing references any more
func (s *server) deleteClient(ctx context.Context, id uuid.UUID) error {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		return apperrors.FromStore(err, "client")
	}

	var users int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("client_id = ?", id).Count(&users).Error; err != nil {
		return apperrors.FromStore(err, "user")
	}
	if users > 0 {
		return apperrors.Conflict("Client still has users")
	}

	for _, model := range models.All() {
		if _, scoped := model.(repository.Entity); !scoped {
			continue
		}
		var n int64
		if err := s.db.WithContext(ctx).Model(model).Where("client_id = ?", id).Count(&n).Error; err != nil {
			return apperrors.FromStore(err, "content")
		}
		if n > 0 {
			return apperrors.Conflict("Client still has content")
		}
	}

	if err := s.db.WithContext(ctx).Delete(&client).Error; err != nil {
		return apperrors.FromStore(err, "client")
	}
	logrus.WithField("client_id", id).Info("Client deleted")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
