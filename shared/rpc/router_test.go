package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/middleware"
	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoParams struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"omitempty,slug"`
}

func testRouter(caller *models.UserInfo) (*gin.Engine, *int) {
	gin.SetMode(gin.TestMode)
	calls := 0
	r := NewRouter()
	r.Query("echo.get", func(call *Call) (any, error) {
		calls++
		p, err := Bind[echoParams](call)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	r.Query("echo.null", func(call *Call) (any, error) { return nil, nil })
	r.Query("echo.fail", func(call *Call) (any, error) {
		return nil, errors.New("connection refused to 10.0.0.5")
	})
	r.ProtectedMutation("echo.whoami", func(call *Call) (any, error) {
		calls++
		return call.Caller.Email, nil
	})

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if caller != nil {
			middleware.SetCaller(c, caller)
		}
	})
	engine.POST("/api/rpc", r.HandlePost)
	engine.GET("/api/rpc/:method", r.HandleGet)
	return engine, &calls
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, []byte) {
	req := httptest.NewRequest(http.MethodPost, "/api/rpc", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w, w.Body.Bytes()
}

func TestDispatchSingle(t *testing.T) {
	h, _ := testRouter(nil)

	t.Run("should return the result with the request id", func(t *testing.T) {
		w, body := post(t, h, `{"id":7,"method":"echo.get","params":{"name":"x"}}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":7,"result":{"name":"x","slug":""}}`, string(body))
	})

	t.Run("should encode a missing item as a null result", func(t *testing.T) {
		_, body := post(t, h, `{"id":1,"method":"echo.null"}`)
		assert.JSONEq(t, `{"id":1,"result":null}`, string(body))
	})

	t.Run("should report unknown procedures", func(t *testing.T) {
		w, body := post(t, h, `{"method":"nope.list"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, string(body), `"NOT_FOUND"`)
	})

	t.Run("should reject invalid input before the handler body", func(t *testing.T) {
		w, body := post(t, h, `{"method":"echo.get","params":{"slug":"Not A Slug"}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var res Response
		require.NoError(t, json.Unmarshal(body, &res))
		assert.Equal(t, apperrors.CodeBadRequest, res.Error.Code)
		assert.Contains(t, res.Error.Message, "Name is required")
		assert.Contains(t, res.Error.Message, "Slug must be a lowercase slug")
	})

	t.Run("should hide internal error details", func(t *testing.T) {
		w, body := post(t, h, `{"method":"echo.fail"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, string(body), "10.0.0.5")
		assert.Contains(t, string(body), "Internal server error")
	})

	t.Run("should reject malformed bodies", func(t *testing.T) {
		w, _ := post(t, h, `{"method":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProtectedProcedures(t *testing.T) {
	t.Run("should fail unauthorized without running the handler", func(t *testing.T) {
		h, calls := testRouter(nil)
		w, body := post(t, h, `{"method":"echo.whoami"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, string(body), `"UNAUTHORIZED"`)
		assert.Zero(t, *calls)
	})

	t.Run("should pass the caller to the handler", func(t *testing.T) {
		h, _ := testRouter(&models.UserInfo{ID: uuid.New(), Email: "e@pmpk.kz", Role: models.RoleSuperAdmin})
		_, body := post(t, h, `{"method":"echo.whoami"}`)
		assert.JSONEq(t, `{"result":"e@pmpk.kz"}`, string(body))
	})
}

func TestRefreshCallers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	caller := &models.UserInfo{ID: uuid.New(), Email: "e@pmpk.kz", Role: models.RoleEditor}

	build := func(refresh CallerRefresher) (http.Handler, *int) {
		refreshed := 0
		r := NewRouter()
		r.RefreshCallers(func(ctx context.Context, c *models.UserInfo) (*models.UserInfo, error) {
			refreshed++
			return refresh(ctx, c)
		})
		r.Query("echo.public", func(call *Call) (any, error) { return "ok", nil })
		r.ProtectedQuery("echo.role", func(call *Call) (any, error) { return call.Caller.Role, nil })

		engine := gin.New()
		engine.Use(func(c *gin.Context) { middleware.SetCaller(c, caller) })
		engine.POST("/api/rpc", r.HandlePost)
		return engine, &refreshed
	}

	t.Run("should run protected procedures with the refreshed caller", func(t *testing.T) {
		h, refreshed := build(func(_ context.Context, c *models.UserInfo) (*models.UserInfo, error) {
			fresh := *c
			fresh.Role = models.RoleUser
			return &fresh, nil
		})
		_, body := post(t, h, `{"method":"echo.role"}`)
		assert.JSONEq(t, `{"result":"user"}`, string(body))
		assert.Equal(t, 1, *refreshed)

		_, body = post(t, h, `{"method":"echo.public"}`)
		assert.JSONEq(t, `{"result":"ok"}`, string(body))
		assert.Equal(t, 1, *refreshed)
	})

	t.Run("should fail the call when the refresh fails", func(t *testing.T) {
		h, _ := build(func(context.Context, *models.UserInfo) (*models.UserInfo, error) {
			return nil, apperrors.ErrUnauthorized
		})
		w, body := post(t, h, `{"method":"echo.role"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, string(body), `"UNAUTHORIZED"`)
	})
}

func TestBatch(t *testing.T) {
	h, _ := testRouter(nil)

	w, body := post(t, h, `[
		{"id":"a","method":"echo.get","params":{"name":"first"}},
		{"id":"b","method":"echo.whoami"},
		{"id":"c","method":"echo.get","params":{"name":"third"}}
	]`)
	assert.Equal(t, http.StatusOK, w.Code)

	var res []Response
	require.NoError(t, json.Unmarshal(body, &res))
	require.Len(t, res, 3)
	assert.JSONEq(t, `"a"`, string(res[0].ID))
	assert.JSONEq(t, `{"name":"first","slug":""}`, string(res[0].Result))
	assert.Equal(t, apperrors.CodeUnauthorized, res[1].Error.Code)
	assert.JSONEq(t, `{"name":"third","slug":""}`, string(res[2].Result))

	w, _ = post(t, h, `[]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGet(t *testing.T) {
	h, _ := testRouter(&models.UserInfo{ID: uuid.New(), Email: "e@pmpk.kz", Role: models.RoleSuperAdmin})

	req := httptest.NewRequest(http.MethodGet, "/api/rpc/echo.get?input="+url.QueryEscape(`{"name":"q"}`), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":{"name":"q","slug":""}}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/rpc/echo.whoami", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterSlugValidation(t *testing.T) {
	v := validator.New()
	require.NoError(t, registerSlugValidation(v))
	assert.NoError(t, v.Var("pmpk-almaty", "slug"))
	assert.Error(t, v.Var("Not A Slug", "slug"))
}

func TestIsSlug(t *testing.T) {
	assert.True(t, IsSlug("pmpk"))
	assert.True(t, IsSlug("pmpk-almaty-2"))
	assert.False(t, IsSlug("PMPK"))
	assert.False(t, IsSlug("-pmpk"))
	assert.False(t, IsSlug("pmpk--x"))
	assert.False(t, IsSlug(""))
}
