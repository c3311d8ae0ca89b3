package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/events"
	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Entity is implemented by pointers to every client-scoped content model
type Entity interface {
	schema.Tabler
	GetID() uuid.UUID
	SetID(uuid.UUID)
	GetClientID() uuid.UUID
	Published() bool
	GetPublishedAt() *time.Time
	SetPublishedAt(*time.Time)
	SetTimestamps(created, updated time.Time)
}

// Scoped is the access-scoped query layer for one content kind. Public reads
// only ever see published rows of one client; administrative reads and all
// mutations require a caller allowed to act on the row's client.
type Scoped[T any, PT interface {
	*T
	Entity
}] struct {
	db        *gorm.DB
	schema    Schema
	publisher events.Publisher
	now       func() time.Time
}

func NewScoped[T any, PT interface {
	*T
	Entity
}](db *gorm.DB, s Schema, publisher events.Publisher) *Scoped[T, PT] {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Scoped[T, PT]{
		db:        db,
		schema:    s,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *Scoped[T, PT]) Schema() Schema {
	return r.schema
}

func (r *Scoped[T, PT]) what() string {
	return r.schema.Entity + " item"
}

// ListPublished returns the client's public items
func (r *Scoped[T, PT]) ListPublished(ctx context.Context, clientID uuid.UUID, q Query) ([]T, error) {
	tx := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Where(r.schema.FlagColumn+" = ?", true)
	return r.find(tx, q)
}

// GetPublished returns one item only if it is public
func (r *Scoped[T, PT]) GetPublished(ctx context.Context, id uuid.UUID) (*T, error) {
	var item T
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where(r.schema.FlagColumn+" = ?", true).
		First(&item).Error
	if err != nil {
		return nil, apperrors.FromStore(err, r.what())
	}
	return &item, nil
}

// List returns every item of the client regardless of publication state
func (r *Scoped[T, PT]) List(ctx context.Context, caller *models.UserInfo, clientID uuid.UUID, q Query) ([]T, error) {
	if err := authorize(caller, clientID); err != nil {
		return nil, err
	}
	return r.find(r.db.WithContext(ctx).Where("client_id = ?", clientID), q)
}

// Get returns one item in any state
func (r *Scoped[T, PT]) Get(ctx context.Context, caller *models.UserInfo, id uuid.UUID) (*T, error) {
	if err := preflight(caller); err != nil {
		return nil, err
	}
	return r.load(ctx, caller, id)
}

// Create inserts item on behalf of caller
func (r *Scoped[T, PT]) Create(ctx context.Context, caller *models.UserInfo, item *T) (*T, error) {
	if err := authorize(caller, PT(item).GetClientID()); err != nil {
		return nil, err
	}
	if err := r.insert(ctx, item); err != nil {
		return nil, err
	}
	r.emit(events.EventCreated, PT(item), &caller.ID)
	return item, nil
}

// Insert stores item without an authorization check. It exists for public
// submissions, which callers must force into an unpublished state.
func (r *Scoped[T, PT]) Insert(ctx context.Context, item *T) error {
	if err := r.insert(ctx, item); err != nil {
		return err
	}
	r.emit(events.EventCreated, PT(item), nil)
	return nil
}

// Update applies the non-nil fields of patch
func (r *Scoped[T, PT]) Update(ctx context.Context, caller *models.UserInfo, id uuid.UUID, patch any) (*T, error) {
	if err := preflight(caller); err != nil {
		return nil, err
	}
	columns, err := Changes(patch, r.db.NamingStrategy)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	return r.apply(ctx, caller, id, columns)
}

// SetPublished moves an item between draft and published
func (r *Scoped[T, PT]) SetPublished(ctx context.Context, caller *models.UserInfo, id uuid.UUID, published bool) (*T, error) {
	if err := preflight(caller); err != nil {
		return nil, err
	}
	return r.apply(ctx, caller, id, map[string]any{r.schema.FlagColumn: published})
}

// Delete removes an item permanently
func (r *Scoped[T, PT]) Delete(ctx context.Context, caller *models.UserInfo, id uuid.UUID) error {
	if err := preflight(caller); err != nil {
		return err
	}
	item, err := r.load(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(item).Error; err != nil {
		return apperrors.FromStore(err, r.what())
	}
	r.emit(events.EventDeleted, PT(item), &caller.ID)
	return nil
}

// Count returns the number of items of the client in any state
func (r *Scoped[T, PT]) Count(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(new(T)).Where("client_id = ?", clientID).Count(&n).Error
	if err != nil {
		return 0, apperrors.FromStore(err, r.what())
	}
	return n, nil
}

func (r *Scoped[T, PT]) find(tx *gorm.DB, q Query) ([]T, error) {
	for name, value := range q.Filters {
		if value == "" {
			continue
		}
		if !r.schema.allowsFilter(name) {
			return nil, apperrors.Validation(fmt.Sprintf("unknown filter %q", name))
		}
		tx = tx.Where(name+" = ?", value)
	}
	for _, order := range r.schema.orderBy() {
		tx = tx.Order(order)
	}
	if q.Limit > 0 {
		limit := q.Limit
		if limit > MaxLimit {
			limit = MaxLimit
		}
		tx = tx.Limit(limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}

	items := make([]T, 0)
	if err := tx.Find(&items).Error; err != nil {
		return nil, apperrors.FromStore(err, r.what())
	}
	return items, nil
}

// load fetches a row and checks the caller may act on its client
func (r *Scoped[T, PT]) load(ctx context.Context, caller *models.UserInfo, id uuid.UUID) (*T, error) {
	var item T
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, apperrors.FromStore(err, r.what())
	}
	if !caller.MayActOn(PT(&item).GetClientID()) {
		return nil, apperrors.ErrForbidden
	}
	return &item, nil
}

func (r *Scoped[T, PT]) insert(ctx context.Context, item *T) error {
	p := PT(item)
	if err := clientExists(ctx, r.db, p.GetClientID()); err != nil {
		return err
	}

	now := r.now()
	p.SetID(uuid.New())
	p.SetTimestamps(now, now)
	p.SetPublishedAt(nil)
	if p.Published() {
		p.SetPublishedAt(&now)
	}

	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return apperrors.FromStore(err, r.what())
	}
	return nil
}

func (r *Scoped[T, PT]) apply(ctx context.Context, caller *models.UserInfo, id uuid.UUID, columns map[string]any) (*T, error) {
	item, err := r.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	wasPublished := PT(item).Published()

	now := r.now()
	if publish, ok := columns[r.schema.FlagColumn].(bool); ok && publish && PT(item).GetPublishedAt() == nil {
		columns["published_at"] = now
	}
	columns["updated_at"] = now

	if err := r.db.WithContext(ctx).Model(item).Updates(columns).Error; err != nil {
		return nil, apperrors.FromStore(err, r.what())
	}

	var updated T
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&updated).Error; err != nil {
		return nil, apperrors.FromStore(err, r.what())
	}

	eventType := events.EventUpdated
	switch isPublished := PT(&updated).Published(); {
	case isPublished && !wasPublished:
		eventType = events.EventPublished
	case !isPublished && wasPublished:
		eventType = events.EventUnpublished
	}
	r.emit(eventType, PT(&updated), &caller.ID)
	return &updated, nil
}

func (r *Scoped[T, PT]) emit(eventType events.EventType, item PT, actorID *uuid.UUID) {
	event := events.NewContentEvent(eventType, r.schema.Entity, item.GetClientID(), item.GetID(), actorID)
	if err := r.publisher.Publish(event); err != nil {
		logrus.WithFields(logrus.Fields{
			"entity":   r.schema.Entity,
			"item_id":  item.GetID(),
			"event_id": event.ID,
		}).WithError(err).Warn("Content event not published")
	}
}

// preflight rejects callers that can act on no client at all, before any
// store access
func preflight(caller *models.UserInfo) error {
	if caller == nil {
		return apperrors.ErrUnauthorized
	}
	switch caller.Role {
	case models.RoleSuperAdmin:
		return nil
	case models.RoleClientAdmin, models.RoleEditor:
		if caller.ClientID != nil {
			return nil
		}
	}
	return apperrors.ErrForbidden
}

func authorize(caller *models.UserInfo, clientID uuid.UUID) error {
	if err := preflight(caller); err != nil {
		return err
	}
	if !caller.MayActOn(clientID) {
		return apperrors.ErrForbidden
	}
	return nil
}

func clientExists(ctx context.Context, db *gorm.DB, clientID uuid.UUID) error {
	if clientID == uuid.Nil {
		return apperrors.Validation("clientId is required")
	}
	var n int64
	if err := db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", clientID).Count(&n).Error; err != nil {
		return apperrors.FromStore(err, "client")
	}
	if n == 0 {
		return apperrors.Validation("Client does not exist")
	}
	return nil
}
