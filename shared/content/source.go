package content

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/cms"
	"github.com/ablaqll/pmpk-website-sub000/shared/repository"
	"github.com/ablaqll/pmpk-website-sub000/shared/tenant"
	"github.com/google/uuid"
)

const (
	SourceStore = "store"
	SourceCMS   = "cms"
)

// Request selects published content of one kind for one client
type Request struct {
	Entity     string
	ClientSlug string
	Filters    map[string]string
	Limit      int
}

// Source is the common read interface over the relational store and the
// hosted content service
type Source interface {
	Name() string
	ListPublished(ctx context.Context, req Request) (any, error)
}

// Lister reads published items of one kind for a client
type Lister func(ctx context.Context, clientID uuid.UUID, q repository.Query) (any, error)

// StoreSource serves content from the scoped repositories
type StoreSource struct {
	resolver *tenant.Resolver
	listers  map[string]Lister
}

func NewStoreSource(resolver *tenant.Resolver) *StoreSource {
	return &StoreSource{resolver: resolver, listers: make(map[string]Lister)}
}

// Register makes entity readable through the source
func (s *StoreSource) Register(entity string, lister Lister) {
	s.listers[entity] = lister
}

// ListerFor adapts a scoped repository to a Lister. A non-nil view is
// applied to every item before it leaves the source.
func ListerFor[T any, PT interface {
	*T
	repository.Entity
}](repo *repository.Scoped[T, PT], view func(T) T) Lister {
	return func(ctx context.Context, clientID uuid.UUID, q repository.Query) (any, error) {
		items, err := repo.ListPublished(ctx, clientID, q)
		if err != nil || view == nil {
			return items, err
		}
		for i := range items {
			items[i] = view(items[i])
		}
		return items, nil
	}
}

func (s *StoreSource) Name() string { return SourceStore }

// Entities lists the registered kinds
func (s *StoreSource) Entities() []string {
	names := make([]string, 0, len(s.listers))
	for name := range s.listers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *StoreSource) ListPublished(ctx context.Context, req Request) (any, error) {
	lister, ok := s.listers[req.Entity]
	if !ok {
		return nil, apperrors.Validation(fmt.Sprintf("unknown content kind %q", req.Entity))
	}
	clientID, err := s.resolver.ResolveID(ctx, nil, req.ClientSlug)
	if err != nil {
		return nil, err
	}
	return lister(ctx, clientID, repository.Query{Filters: req.Filters, Limit: req.Limit})
}

// CMSSource serves content from the hosted structured-content service.
// Documents are expected to carry a clientSlug field and an isPublished flag.
type CMSSource struct {
	client      *cms.Client
	defaultSlug string
}

func NewCMSSource(client *cms.Client, defaultSlug string) *CMSSource {
	return &CMSSource{client: client, defaultSlug: defaultSlug}
}

func (s *CMSSource) Name() string { return SourceCMS }

func (s *CMSSource) ListPublished(ctx context.Context, req Request) (any, error) {
	slug := req.ClientSlug
	if slug == "" {
		slug = s.defaultSlug
	}
	limit := req.Limit
	if limit <= 0 || limit > repository.MaxLimit {
		limit = repository.MaxLimit
	}

	query := fmt.Sprintf(
		`*[_type == $type && clientSlug == $slug && isPublished == true] | order(coalesce(date, _createdAt) desc)[0...%d]`,
		limit,
	)
	result, err := s.client.Query(ctx, query, map[string]any{"type": req.Entity, "slug": slug})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(result), nil
}

// Sources picks a Source by name
type Sources map[string]Source

func (s Sources) Get(name string) (Source, error) {
	if name == "" {
		name = SourceStore
	}
	src, ok := s[name]
	if !ok {
		return nil, apperrors.Validation(fmt.Sprintf("content source %q is not available", name))
	}
	return src, nil
}
