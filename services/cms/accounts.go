package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/ablaqll/pmpk-website-sub000/shared/rpc"
	"github.com/ablaqll/pmpk-website-sub000/shared/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type loginParams struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Password   string `json:"password" binding:"required"`
}

type changePasswordParams struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

type listUsersParams struct {
	ClientID *uuid.UUID `json:"clientId"`
}

type createUserParams struct {
	Email    string          `json:"email" binding:"required,email"`
	Login    string          `json:"login" binding:"omitempty,max=100"`
	Name     string          `json:"name" binding:"max=255"`
	Password string          `json:"password" binding:"required,min=8"`
	Role     models.UserRole `json:"role" binding:"required,oneof=super_admin client_admin editor user"`
	ClientID *uuid.UUID      `json:"clientId"`
}

type updateRoleParams struct {
	ID       uuid.UUID       `json:"id" binding:"required"`
	Role     models.UserRole `json:"role" binding:"required,oneof=super_admin client_admin editor user"`
	ClientID *uuid.UUID      `json:"clientId"`
}

func (s *server) registerAuthProcedures() {
	s.rpc.Mutation("auth.login", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[loginParams](call)
		if err != nil {
			return nil, err
		}
		identifier := p.Identifier
		if identifier == "" {
			identifier = p.Email
		}
		if strings.TrimSpace(identifier) == "" {
			return nil, apperrors.Validation("Identifier is required")
		}
		return s.auth.Login(call.Ctx, identifier, p.Password)
	})

	s.rpc.ProtectedQuery("auth.me", func(call *rpc.Call) (any, error) {
		return s.auth.Me(call.Ctx, call.Caller)
	})

	s.rpc.ProtectedMutation("auth.logout", func(call *rpc.Call) (any, error) {
		if err := s.auth.Logout(call.Ctx, call.Caller); err != nil {
			return nil, err
		}
		return map[string]bool{"success": true}, nil
	})

	s.rpc.ProtectedMutation("auth.changePassword", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[changePasswordParams](call)
		if err != nil {
			return nil, err
		}
		if err := s.auth.ChangePassword(call.Ctx, call.Caller, p.OldPassword, p.NewPassword); err != nil {
			return nil, err
		}
		return map[string]bool{"success": true}, nil
	})
}

func (s *server) registerUserProcedures() {
	s.rpc.ProtectedQuery("users.list", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[listUsersParams](call)
		if err != nil {
			return nil, err
		}
		return s.listUsers(call.Ctx, call.Caller, p.ClientID)
	})

	s.rpc.ProtectedMutation("users.create", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[createUserParams](call)
		if err != nil {
			return nil, err
		}
		return s.createUser(call.Ctx, call.Caller, p)
	})

	s.rpc.ProtectedMutation("users.updateRole", func(call *rpc.Call) (any, error) {
		if err := requireSuperAdmin(call.Caller); err != nil {
			return nil, err
		}
		p, err := rpc.Bind[updateRoleParams](call)
		if err != nil {
			return nil, err
		}
		return s.updateRole(call.Ctx, call.Caller, p)
	})
}

func (s *server) listUsers(ctx context.Context, caller *models.UserInfo, clientID *uuid.UUID) ([]models.User, error) {
	tx := s.db.WithContext(ctx).Order("email ASC")
	switch {
	case caller.IsSuperAdmin():
		if clientID != nil {
			tx = tx.Where("client_id = ?", *clientID)
		}
	case caller.IsClientAdmin() && caller.ClientID != nil:
		if clientID != nil && *clientID != *caller.ClientID {
			return nil, apperrors.ErrForbidden
		}
		tx = tx.Where("client_id = ?", *caller.ClientID)
	default:
		return nil, apperrors.Forbidden("User management requires an administrator")
	}

	users := make([]models.User, 0)
	if err := tx.Find(&users).Error; err != nil {
		return nil, apperrors.FromStore(err, "user")
	}
	return users, nil
}

func (s *server) createUser(ctx context.Context, caller *models.UserInfo, p *createUserParams) (*models.User, error) {
	switch {
	case caller.IsSuperAdmin():
	case caller.IsClientAdmin() && caller.ClientID != nil:
		// Client admins only add editors to their own client
		if p.Role != models.RoleEditor || (p.ClientID != nil && *p.ClientID != *caller.ClientID) {
			return nil, apperrors.Forbidden("Client admins may only create editors of their own client")
		}
		p.ClientID = caller.ClientID
	default:
		return nil, apperrors.Forbidden("User management requires an administrator")
	}

	user := &models.User{
		ID:       uuid.New(),
		Email:    strings.ToLower(strings.TrimSpace(p.Email)),
		Name:     strings.TrimSpace(p.Name),
		Role:     p.Role,
		ClientID: p.ClientID,
	}
	if p.Login != "" {
		login := p.Login
		user.Login = &login
	}
	if !user.ValidateBinding() {
		return nil, apperrors.Validation("Role " + string(p.Role) + " requires a clientId")
	}
	if user.ClientID != nil {
		if err := s.requireClient(ctx, *user.ClientID); err != nil {
			return nil, err
		}
	}

	var taken int64
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", user.Email)
	if user.Login != nil {
		q = q.Or("login = ?", *user.Login)
	}
	if err := q.Count(&taken).Error; err != nil {
		return nil, apperrors.FromStore(err, "user")
	}
	if taken > 0 {
		return nil, apperrors.Conflict("User already exists")
	}

	hash, err := utils.HashPassword(p.Password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooShort) {
			return nil, apperrors.Validation(err.Error())
		}
		return nil, apperrors.Internal(err)
	}
	user.PasswordHash = hash

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, apperrors.FromStore(err, "user")
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role, "created_by": caller.ID}).Info("User created")
	return user, nil
}

func (s *server) updateRole(ctx context.Context, caller *models.UserInfo, p *updateRoleParams) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", p.ID).Error; err != nil {
		return nil, apperrors.FromStore(err, "user")
	}
	if user.ID == caller.ID && p.Role != models.RoleSuperAdmin {
		return nil, apperrors.Validation("Super admins cannot demote themselves")
	}

	user.Role = p.Role
	user.ClientID = p.ClientID
	if !p.Role.IsClientScoped() && p.Role != models.RoleUser {
		user.ClientID = nil
	}
	if !user.ValidateBinding() {
		return nil, apperrors.Validation("Role " + string(p.Role) + " requires a clientId")
	}
	if user.ClientID != nil {
		if err := s.requireClient(ctx, *user.ClientID); err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"role":       user.Role,
		"client_id":  user.ClientID,
		"updated_at": time.Now().UTC(),
	}).Error
	if err != nil {
		return nil, apperrors.FromStore(err, "user")
	}
	// Open sessions pick up the new role on their next protected call
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role, "changed_by": caller.ID}).Info("User role changed")
	return &user, nil
}

func (s *server) requireClient(ctx context.Context, clientID uuid.UUID) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", clientID).Count(&n).Error; err != nil {
		return apperrors.FromStore(err, "client")
	}
	if n == 0 {
		return apperrors.Validation("Client does not exist")
	}
	return nil
}
