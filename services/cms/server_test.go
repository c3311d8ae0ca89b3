package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/config"
	"github.com/ablaqll/pmpk-website-sub000/shared/middleware"
	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/ablaqll/pmpk-website-sub000/shared/rpc"
	"github.com/ablaqll/pmpk-website-sub000/shared/testutil"
	"github.com/ablaqll/pmpk-website-sub000/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUploader struct {
	keys []string
	body string
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	data, _ := io.ReadAll(body)
	u.keys = append(u.keys, key)
	u.body = string(data)
	return "https://files.example.com/" + key, nil
}

type harness struct {
	t        *testing.T
	db       *gorm.DB
	handler  http.Handler
	tokens   *utils.TokenIssuer
	uploader *fakeUploader
	client   models.Client
}

func newHarness(t *testing.T) *harness {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	tokens, err := utils.NewTokenIssuer(strings.Repeat("k", 32), time.Hour)
	require.NoError(t, err)

	uploader := &fakeUploader{}
	srv := newServer(dependencies{
		DB: db,
		Config: &config.AppConfig{
			DefaultClientSlug: "pmpk",
			DefaultClientName: "ПМПК",
			CORSOrigins:       []string{"*"},
		},
		Tokens:      tokens,
		Revocations: utils.NewRevocationStore(nil),
		Uploader:    uploader,
	})

	return &harness{
		t:        t,
		db:       db,
		handler:  srv.routes(),
		tokens:   tokens,
		uploader: uploader,
		client:   testutil.CreateClient(t, db, "pmpk"),
	}
}

// token stores a user row for info, unless one exists, and signs a session
// for it
func (h *harness) token(info *models.UserInfo) string {
	var n int64
	require.NoError(h.t, h.db.Model(&models.User{}).Where("id = ?", info.ID).Count(&n).Error)
	if n == 0 {
		require.NoError(h.t, h.db.Create(&models.User{
			ID:           info.ID,
			Email:        info.ID.String() + "@example.com",
			Name:         info.Email,
			Role:         info.Role,
			ClientID:     info.ClientID,
			PasswordHash: "!",
		}).Error)
	}
	token, _, err := h.tokens.Issue(info)
	require.NoError(h.t, err)
	return token
}

// call runs one procedure and decodes its result into out when non-nil
func (h *harness) call(token, method string, params any, out any) (int, *rpc.Error) {
	raw, err := json.Marshal(map[string]any{"method": method, "params": params})
	require.NoError(h.t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/rpc", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(middleware.SessionHeader, token)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)

	var res rpc.Response
	require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	if out != nil && res.Error == nil {
		require.NoError(h.t, json.Unmarshal(res.Result, out))
	}
	return w.Code, res.Error
}

func (h *harness) count(model any) int64 {
	var n int64
	require.NoError(h.t, h.db.Model(model).Count(&n).Error)
	return n
}

func TestContentProcedures(t *testing.T) {
	h := newHarness(t)
	other := testutil.CreateClient(t, h.db, "other")
	admin := h.token(testutil.SuperAdmin())
	editor := h.token(testutil.Member(models.RoleEditor, h.client.ID))

	var created models.News
	status, rpcErr := h.call(editor, "news.create", map[string]any{
		"clientId":    h.client.ID,
		"title":       map[string]string{"ru": "Новость", "en": "News"},
		"isPublished": false,
	}, &created)
	require.Nil(t, rpcErr)
	require.Equal(t, http.StatusOK, status)

	t.Run("should hide drafts from public procedures", func(t *testing.T) {
		var items []models.News
		_, rpcErr := h.call("", "news.listPublished", map[string]any{}, &items)
		require.Nil(t, rpcErr)
		assert.Empty(t, items)

		var item *models.News
		_, rpcErr = h.call("", "news.getById", map[string]any{"id": created.ID}, &item)
		require.Nil(t, rpcErr)
		assert.Nil(t, item)
	})

	t.Run("should publish and expose the item", func(t *testing.T) {
		var published models.News
		_, rpcErr := h.call(editor, "news.setPublished", map[string]any{"id": created.ID, "published": true}, &published)
		require.Nil(t, rpcErr)
		require.NotNil(t, published.PublishedAt)

		var items []models.News
		_, rpcErr = h.call("", "news.listPublished", map[string]any{"clientSlug": "pmpk"}, &items)
		require.Nil(t, rpcErr)
		require.Len(t, items, 1)
		assert.Equal(t, "News", items[0].Title.En)
	})

	t.Run("should apply a partial update", func(t *testing.T) {
		var updated models.News
		_, rpcErr := h.call(editor, "news.update", map[string]any{
			"id":   created.ID,
			"data": map[string]any{"category": "events"},
		}, &updated)
		require.Nil(t, rpcErr)
		assert.Equal(t, "events", updated.Category)
		assert.Equal(t, "Новость", updated.Title.Ru)

		var ack struct {
			ID      uuid.UUID `json:"id"`
			Success bool      `json:"success"`
		}
		_, rpcErr = h.call(editor, "news.update", map[string]any{
			"id":   created.ID,
			"data": map[string]any{"category": "events"},
		}, &ack)
		require.Nil(t, rpcErr)
		assert.True(t, ack.Success)
		assert.Equal(t, created.ID, ack.ID)
	})

	t.Run("should forbid cross-tenant writes without changing rows", func(t *testing.T) {
		before := h.count(&models.News{})
		status, rpcErr := h.call(editor, "news.create", map[string]any{"clientId": other.ID}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, apperrors.CodeForbidden, rpcErr.Code)
		assert.Equal(t, before, h.count(&models.News{}))

		otherEditor := h.token(testutil.Member(models.RoleEditor, other.ID))
		_, rpcErr = h.call(otherEditor, "news.delete", map[string]any{"id": created.ID}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, apperrors.CodeForbidden, rpcErr.Code)
	})

	t.Run("should require a session for admin procedures", func(t *testing.T) {
		status, rpcErr := h.call("", "news.list", map[string]any{}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, http.StatusUnauthorized, status)

		status, rpcErr = h.call("garbage", "news.list", map[string]any{}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("should list drafts of the caller's client", func(t *testing.T) {
		_, rpcErr := h.call(admin, "staff.create", map[string]any{"clientId": h.client.ID, "fullName": map[string]string{"ru": "Иванова"}}, nil)
		require.Nil(t, rpcErr)

		var staff []models.Employee
		_, rpcErr = h.call(editor, "staff.list", map[string]any{}, &staff)
		require.Nil(t, rpcErr)
		require.Len(t, staff, 1)
		assert.False(t, staff[0].IsActive)
	})

	t.Run("should reject unknown filters", func(t *testing.T) {
		status, rpcErr := h.call("", "governance.listPublished", map[string]any{"category": "x"}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("should delete", func(t *testing.T) {
		_, rpcErr := h.call(admin, "news.delete", map[string]any{"id": created.ID}, nil)
		require.Nil(t, rpcErr)
		assert.Zero(t, h.count(&models.News{}))
	})
}

func TestFeedbackProcedures(t *testing.T) {
	h := newHarness(t)
	editor := h.token(testutil.Member(models.RoleEditor, h.client.ID))

	var submitted struct {
		ID uuid.UUID `json:"id"`
	}
	_, rpcErr := h.call("", "feedback.submit", map[string]any{
		"authorName":  "Айгуль",
		"authorEmail": "Parent@Mail.kz",
		"question":    "Как записаться на консультацию?",
		"locale":      "ru",
	}, &submitted)
	require.Nil(t, rpcErr)

	var stored models.Feedback
	require.NoError(t, h.db.First(&stored, "id = ?", submitted.ID).Error)
	assert.False(t, stored.IsPublished)
	assert.Equal(t, "parent@mail.kz", stored.AuthorEmail)
	assert.Equal(t, h.client.ID, stored.ClientID)

	t.Run("should reject invalid submissions", func(t *testing.T) {
		status, rpcErr := h.call("", "feedback.submit", map[string]any{"authorName": "x", "authorEmail": "nope"}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, rpcErr.Message, "Question is required")
	})

	t.Run("should answer, publish and hide contact details", func(t *testing.T) {
		var answered models.Feedback
		_, rpcErr := h.call(editor, "feedback.answer", map[string]any{
			"id":      submitted.ID,
			"answer":  map[string]string{"ru": "По телефону"},
			"publish": true,
		}, &answered)
		require.Nil(t, rpcErr)
		assert.True(t, answered.IsPublished)
		require.NotNil(t, answered.AnsweredAt)
		require.NotNil(t, answered.AnsweredByID)

		var faq []models.Feedback
		_, rpcErr = h.call("", "feedback.listPublished", map[string]any{}, &faq)
		require.Nil(t, rpcErr)
		require.Len(t, faq, 1)
		assert.Equal(t, "По телефону", faq[0].Answer.Ru)
		assert.Empty(t, faq[0].AuthorEmail)

		var one models.Feedback
		_, rpcErr = h.call("", "feedback.getById", map[string]any{"id": submitted.ID}, &one)
		require.Nil(t, rpcErr)
		assert.Empty(t, one.AuthorEmail)
	})
}

func TestClientProcedures(t *testing.T) {
	h := newHarness(t)
	admin := h.token(testutil.SuperAdmin())
	clientAdmin := h.token(testutil.Member(models.RoleClientAdmin, h.client.ID))

	t.Run("should fall back for unknown slugs", func(t *testing.T) {
		var res struct {
			Client   models.Client `json:"client"`
			Fallback bool          `json:"fallback"`
		}
		_, rpcErr := h.call("", "clients.resolve", map[string]any{"slug": "missing"}, &res)
		require.Nil(t, rpcErr)
		assert.True(t, res.Fallback)
		assert.Equal(t, "ПМПК", res.Client.Name.Ru)

		var client *models.Client
		_, rpcErr = h.call("", "clients.bySlug", map[string]any{"slug": "missing"}, &client)
		require.Nil(t, rpcErr)
		assert.Nil(t, client)
	})

	t.Run("should create with a generated slug", func(t *testing.T) {
		var created models.Client
		_, rpcErr := h.call(admin, "clients.create", map[string]any{
			"name": map[string]string{"en": "Almaty Center", "ru": "Алматинский центр"},
		}, &created)
		require.Nil(t, rpcErr)
		assert.Equal(t, "almaty-center", created.Slug)
		assert.True(t, created.IsActive)

		status, rpcErr := h.call(admin, "clients.create", map[string]any{
			"slug": "almaty-center",
			"name": map[string]string{"en": "Again"},
		}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("should restrict creation to super admins", func(t *testing.T) {
		_, rpcErr := h.call(clientAdmin, "clients.create", map[string]any{"name": map[string]string{"en": "Mine"}}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, apperrors.CodeForbidden, rpcErr.Code)
	})

	t.Run("should let a client admin update only their client", func(t *testing.T) {
		var updated models.Client
		_, rpcErr := h.call(clientAdmin, "clients.update", map[string]any{
			"id":   h.client.ID,
			"data": map[string]any{"phone": "+7 727 000 00 00"},
		}, &updated)
		require.Nil(t, rpcErr)
		assert.Equal(t, "+7 727 000 00 00", updated.Phone)
		assert.Equal(t, "pmpk", updated.Slug)

		var list []models.Client
		_, rpcErr = h.call(clientAdmin, "clients.list", nil, &list)
		require.Nil(t, rpcErr)
		require.Len(t, list, 1)
		assert.Equal(t, h.client.ID, list[0].ID)
	})

	t.Run("should keep editors from changing the client record", func(t *testing.T) {
		editor := h.token(testutil.Member(models.RoleEditor, h.client.ID))
		status, rpcErr := h.call(editor, "clients.update", map[string]any{
			"id":   h.client.ID,
			"data": map[string]any{"phone": "+7 000"},
		}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, http.StatusForbidden, status)

		var client models.Client
		require.NoError(t, h.db.First(&client, "id = ?", h.client.ID).Error)
		assert.Equal(t, "+7 727 000 00 00", client.Phone)
	})

	t.Run("should refuse to delete a referenced client", func(t *testing.T) {
		testutil.CreateUser(t, h.db, "editor@pmpk.kz", models.RoleEditor, &h.client.ID, "")
		status, rpcErr := h.call(admin, "clients.delete", map[string]any{"id": h.client.ID}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("should soft delete an unreferenced client", func(t *testing.T) {
		empty := testutil.CreateClient(t, h.db, "empty")
		_, rpcErr := h.call(admin, "clients.delete", map[string]any{"id": empty.ID}, nil)
		require.Nil(t, rpcErr)

		var client *models.Client
		_, rpcErr = h.call("", "clients.bySlug", map[string]any{"slug": "empty"}, &client)
		require.Nil(t, rpcErr)
		assert.Nil(t, client)
	})
}

func TestAuthProcedures(t *testing.T) {
	h := newHarness(t)
	hash, err := utils.HashPassword("correct horse")
	require.NoError(t, err)
	testutil.CreateUser(t, h.db, "admin@pmpk.kz", models.RoleClientAdmin, &h.client.ID, hash)

	t.Run("should give identical errors for unknown users and bad passwords", func(t *testing.T) {
		_, unknown := h.call("", "auth.login", map[string]any{"email": "nobody@pmpk.kz", "password": "whatever1"}, nil)
		_, wrong := h.call("", "auth.login", map[string]any{"email": "admin@pmpk.kz", "password": "whatever1"}, nil)
		require.NotNil(t, unknown)
		require.NotNil(t, wrong)
		assert.Equal(t, unknown, wrong)
		assert.Equal(t, apperrors.InvalidCredentials, wrong.Message)
	})

	t.Run("should log in and resolve the session", func(t *testing.T) {
		var res struct {
			Token string          `json:"token"`
			User  models.UserInfo `json:"user"`
		}
		_, rpcErr := h.call("", "auth.login", map[string]any{"identifier": "ADMIN@pmpk.kz", "password": "correct horse"}, &res)
		require.Nil(t, rpcErr)
		require.NotEmpty(t, res.Token)
		assert.Equal(t, models.RoleClientAdmin, res.User.Role)

		var me models.User
		_, rpcErr = h.call(res.Token, "auth.me", nil, &me)
		require.Nil(t, rpcErr)
		assert.Equal(t, "admin@pmpk.kz", me.Email)
		require.NotNil(t, me.Client)
		assert.Equal(t, "pmpk", me.Client.Slug)
	})
}

func TestUserProcedures(t *testing.T) {
	h := newHarness(t)
	other := testutil.CreateClient(t, h.db, "other")
	admin := h.token(testutil.SuperAdmin())
	clientAdmin := h.token(testutil.Member(models.RoleClientAdmin, h.client.ID))

	t.Run("should let client admins create editors of their own client", func(t *testing.T) {
		var user models.User
		_, rpcErr := h.call(clientAdmin, "users.create", map[string]any{
			"email": "editor@pmpk.kz", "password": "password1", "role": "editor",
		}, &user)
		require.Nil(t, rpcErr)
		require.NotNil(t, user.ClientID)
		assert.Equal(t, h.client.ID, *user.ClientID)

		_, rpcErr = h.call(clientAdmin, "users.create", map[string]any{
			"email": "x@pmpk.kz", "password": "password1", "role": "editor", "clientId": other.ID,
		}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, apperrors.CodeForbidden, rpcErr.Code)

		_, rpcErr = h.call(clientAdmin, "users.create", map[string]any{
			"email": "y@pmpk.kz", "password": "password1", "role": "super_admin",
		}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, apperrors.CodeForbidden, rpcErr.Code)
	})

	t.Run("should enforce the role binding", func(t *testing.T) {
		status, rpcErr := h.call(admin, "users.create", map[string]any{
			"email": "z@pmpk.kz", "password": "password1", "role": "client_admin",
		}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("should reject duplicate emails", func(t *testing.T) {
		status, rpcErr := h.call(admin, "users.create", map[string]any{
			"email": "editor@pmpk.kz", "password": "password1", "role": "user",
		}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("should change roles as super admin only", func(t *testing.T) {
		var users []models.User
		_, rpcErr := h.call(clientAdmin, "users.list", nil, &users)
		require.Nil(t, rpcErr)
		require.Len(t, users, 2)
		var editor models.User
		for _, u := range users {
			if u.Email == "editor@pmpk.kz" {
				editor = u
			}
		}
		require.NotEqual(t, uuid.Nil, editor.ID)

		_, rpcErr = h.call(clientAdmin, "users.updateRole", map[string]any{"id": editor.ID, "role": "user"}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, apperrors.CodeForbidden, rpcErr.Code)

		var updated models.User
		_, rpcErr = h.call(admin, "users.updateRole", map[string]any{
			"id": editor.ID, "role": "client_admin", "clientId": other.ID,
		}, &updated)
		require.Nil(t, rpcErr)
		assert.Equal(t, models.RoleClientAdmin, updated.Role)
		assert.Equal(t, other.ID, *updated.ClientID)
	})
}

func TestDemotionAppliesToOpenSessions(t *testing.T) {
	h := newHarness(t)
	admin := h.token(testutil.SuperAdmin())
	info := testutil.Member(models.RoleEditor, h.client.ID)
	editor := h.token(info)

	_, rpcErr := h.call(editor, "news.create", map[string]any{"clientId": h.client.ID}, nil)
	require.Nil(t, rpcErr)

	_, rpcErr = h.call(admin, "users.updateRole", map[string]any{"id": info.ID, "role": "user"}, nil)
	require.Nil(t, rpcErr)

	t.Run("should forbid writes with a token issued before the demotion", func(t *testing.T) {
		before := h.count(&models.News{})
		status, rpcErr := h.call(editor, "news.create", map[string]any{"clientId": h.client.ID}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, before, h.count(&models.News{}))
	})

	t.Run("should forbid uploads with the old token", func(t *testing.T) {
		w := upload(h, editor, h.client.ID.String(), "order.pdf")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, h.uploader.keys)
	})

	t.Run("should reject tokens of users that no longer exist", func(t *testing.T) {
		require.NoError(t, h.db.Where("id = ?", info.ID).Delete(&models.User{}).Error)
		status, rpcErr := h.call(editor, "news.list", map[string]any{}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestInactiveClient(t *testing.T) {
	h := newHarness(t)
	admin := h.token(testutil.SuperAdmin())

	var item models.News
	_, rpcErr := h.call(admin, "news.create", map[string]any{
		"clientId":    h.client.ID,
		"title":       map[string]string{"ru": "Новость"},
		"isPublished": true,
	}, &item)
	require.Nil(t, rpcErr)

	_, rpcErr = h.call(admin, "clients.setActive", map[string]any{"id": h.client.ID, "active": false}, nil)
	require.Nil(t, rpcErr)

	t.Run("should stop serving public content", func(t *testing.T) {
		var items []models.News
		status, rpcErr := h.call("", "news.listPublished", map[string]any{"clientSlug": "pmpk"}, &items)
		require.NotNil(t, rpcErr)
		assert.Equal(t, http.StatusNotFound, status)

		_, rpcErr = h.call("", "news.listPublished", map[string]any{"clientId": h.client.ID}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, apperrors.CodeNotFound, rpcErr.Code)

		var got *models.News
		_, rpcErr = h.call("", "news.getById", map[string]any{"id": item.ID}, &got)
		require.Nil(t, rpcErr)
		assert.Nil(t, got)

		_, rpcErr = h.call("", "content.get", map[string]any{"entity": "news"}, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, apperrors.CodeNotFound, rpcErr.Code)
	})

	t.Run("should resolve to the fallback identity", func(t *testing.T) {
		var res struct {
			Fallback bool `json:"fallback"`
		}
		_, rpcErr := h.call("", "clients.resolve", map[string]any{"slug": "pmpk"}, &res)
		require.Nil(t, rpcErr)
		assert.True(t, res.Fallback)
	})

	t.Run("should keep the content reachable for administrators", func(t *testing.T) {
		var items []models.News
		_, rpcErr := h.call(admin, "news.list", map[string]any{"clientSlug": "pmpk"}, &items)
		require.Nil(t, rpcErr)
		assert.Len(t, items, 1)
	})

	t.Run("should serve content again once reactivated", func(t *testing.T) {
		_, rpcErr := h.call(admin, "clients.setActive", map[string]any{"id": h.client.ID, "active": true}, nil)
		require.Nil(t, rpcErr)

		var items []models.News
		_, rpcErr = h.call("", "news.listPublished", map[string]any{}, &items)
		require.Nil(t, rpcErr)
		assert.Len(t, items, 1)
	})
}

func TestContentGet(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.db.Create(&models.Vacancy{
		ContentBase: models.ContentBase{ID: uuid.New(), ClientID: h.client.ID},
		Title:       models.Localized{Ru: "Психолог"},
		Department:  "consulting",
		IsActive:    true,
	}).Error)

	var items []models.Vacancy
	_, rpcErr := h.call("", "content.get", map[string]any{"entity": "vacancies", "department": "consulting"}, &items)
	require.Nil(t, rpcErr)
	require.Len(t, items, 1)

	_, rpcErr = h.call("", "content.get", map[string]any{"entity": "vacancies", "source": "cms"}, nil)
	require.NotNil(t, rpcErr)
	assert.Equal(t, apperrors.CodeBadRequest, rpcErr.Code)
}

func upload(h *harness, token, clientID, filename string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(h.t, form.WriteField("clientId", clientID))
	part, err := form.CreateFormFile("file", filename)
	require.NoError(h.t, err)
	_, _ = part.Write([]byte("%PDF-1.4"))
	require.NoError(h.t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	if token != "" {
		req.Header.Set(middleware.SessionHeader, token)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func TestUpload(t *testing.T) {
	h := newHarness(t)
	other := testutil.CreateClient(t, h.db, "other")
	editor := h.token(testutil.Member(models.RoleEditor, h.client.ID))

	t.Run("should require a session", func(t *testing.T) {
		w := upload(h, "", h.client.ID.String(), "order.pdf")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("should forbid other clients", func(t *testing.T) {
		w := upload(h, editor, other.ID.String(), "order.pdf")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, h.uploader.keys)
	})

	t.Run("should reject disallowed types", func(t *testing.T) {
		w := upload(h, editor, h.client.ID.String(), "run.exe")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should store under the client prefix", func(t *testing.T) {
		w := upload(h, editor, h.client.ID.String(), "order.pdf")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var res utils.APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		data := res.Data.(map[string]any)
		assert.True(t, strings.HasPrefix(data["key"].(string), "clients/"+h.client.ID.String()+"/"))
		assert.True(t, strings.HasSuffix(data["url"].(string), ".pdf"))
		assert.Equal(t, "%PDF-1.4", h.uploader.body)
	})
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"up"`)
}
