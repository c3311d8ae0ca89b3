package main

import (
	"encoding/json"
	"errors"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/content"
	"github.com/ablaqll/pmpk-website-sub000/shared/repository"
	"github.com/ablaqll/pmpk-website-sub000/shared/rpc"
	"github.com/google/uuid"
)

type listParams struct {
	ClientID   *uuid.UUID `json:"clientId"`
	ClientSlug string     `json:"clientSlug" binding:"omitempty,slug"`
	Category   string     `json:"category"`
	Department string     `json:"department"`
	Kind       string     `json:"kind"`
	Limit      int        `json:"limit" binding:"omitempty,min=1,max=100"`
	Offset     int        `json:"offset" binding:"omitempty,min=0"`
}

func (p *listParams) query() repository.Query {
	filters := make(map[string]string)
	for name, value := range map[string]string{
		"category":   p.Category,
		"department": p.Department,
		"kind":       p.Kind,
	} {
		if value != "" {
			filters[name] = value
		}
	}
	return repository.Query{Filters: filters, Limit: p.Limit, Offset: p.Offset}
}

type idParams struct {
	ID uuid.UUID `json:"id" binding:"required"`
}

type updateParams[P any] struct {
	ID   uuid.UUID `json:"id" binding:"required"`
	Data P         `json:"data"`
}

type setPublishedParams struct {
	ID        uuid.UUID `json:"id" binding:"required"`
	Published *bool     `json:"published" binding:"required"`
}

// adminClientID picks the client an administrative list works on: an
// explicit id, then the caller's own client, then the slug or default
func (s *server) adminClientID(call *rpc.Call, p *listParams) (uuid.UUID, error) {
	if p.ClientID == nil && p.ClientSlug == "" && call.Caller != nil && call.Caller.ClientID != nil {
		return *call.Caller.ClientID, nil
	}
	return s.resolver.ResolveAdminID(call.Ctx, p.ClientID, p.ClientSlug)
}

// nullIfMissing turns a read-by-id miss into a null result
func nullIfMissing[T any](item *T, err error) (any, error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// succeeded adds "success": true to the fields of an updated item
func succeeded(item any, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, apperrors.Internal(err)
	}
	fields["success"] = json.RawMessage("true")
	return fields, nil
}

func deleted() map[string]bool {
	return map[string]bool{"success": true}
}

// registerContent exposes the public and administrative procedures of one
// content kind under its schema's prefix. P is the partial-update shape.
// view, when set, is applied to items returned by public procedures.
func registerContent[P any, T any, PT interface {
	*T
	repository.Entity
}](s *server, repo *repository.Scoped[T, PT], view func(T) T) {
	prefix := repo.Schema().Entity
	public := func(item *T) *T {
		if view != nil && item != nil {
			v := view(*item)
			return &v
		}
		return item
	}
	lister := content.ListerFor(repo, view)
	s.store.Register(prefix, lister)

	s.rpc.Query(prefix+".listPublished", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[listParams](call)
		if err != nil {
			return nil, err
		}
		clientID, err := s.resolver.ResolveID(call.Ctx, p.ClientID, p.ClientSlug)
		if err != nil {
			return nil, err
		}
		return lister(call.Ctx, clientID, p.query())
	})

	s.rpc.Query(prefix+".getById", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[idParams](call)
		if err != nil {
			return nil, err
		}
		item, err := repo.GetPublished(call.Ctx, p.ID)
		if err == nil {
			active, activeErr := s.resolver.IsActive(call.Ctx, PT(item).GetClientID())
			if activeErr != nil {
				return nil, activeErr
			}
			if !active {
				return nil, nil
			}
		}
		return nullIfMissing(public(item), err)
	})

	s.rpc.ProtectedQuery(prefix+".list", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[listParams](call)
		if err != nil {
			return nil, err
		}
		clientID, err := s.adminClientID(call, p)
		if err != nil {
			return nil, err
		}
		return repo.List(call.Ctx, call.Caller, clientID, p.query())
	})

	s.rpc.ProtectedQuery(prefix+".get", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[idParams](call)
		if err != nil {
			return nil, err
		}
		item, err := repo.Get(call.Ctx, call.Caller, p.ID)
		return nullIfMissing(item, err)
	})

	s.rpc.ProtectedMutation(prefix+".create", func(call *rpc.Call) (any, error) {
		item, err := rpc.Bind[T](call)
		if err != nil {
			return nil, err
		}
		return repo.Create(call.Ctx, call.Caller, item)
	})

	s.rpc.ProtectedMutation(prefix+".update", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[updateParams[P]](call)
		if err != nil {
			return nil, err
		}
		return succeeded(repo.Update(call.Ctx, call.Caller, p.ID, &p.Data))
	})

	s.rpc.ProtectedMutation(prefix+".setPublished", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[setPublishedParams](call)
		if err != nil {
			return nil, err
		}
		return succeeded(repo.SetPublished(call.Ctx, call.Caller, p.ID, *p.Published))
	})

	s.rpc.ProtectedMutation(prefix+".delete", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[idParams](call)
		if err != nil {
			return nil, err
		}
		if err := repo.Delete(call.Ctx, call.Caller, p.ID); err != nil {
			return nil, err
		}
		return deleted(), nil
	})
}
