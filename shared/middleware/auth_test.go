package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/ablaqll/pmpk-website-sub000/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

type revocations struct {
	ids map[string]bool
	err error
}

func (r revocations) IsRevoked(_ context.Context, id string) (bool, error) {
	return r.ids[id], r.err
}

func newRouter(am *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(am.IdentityGate())
	r.GET("/whoami", func(c *gin.Context) {
		caller := CallerFromContext(c.Request.Context())
		if caller == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, caller.Email)
	})
	r.GET("/private", am.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserInfoFromContext(c).Email)
	})
	return r
}

func do(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func issue(t *testing.T, issuer *utils.TokenIssuer) (string, *models.UserInfo) {
	clientID := uuid.New()
	user := &models.UserInfo{ID: uuid.New(), Email: "editor@example.com", Role: models.RoleEditor, ClientID: &clientID}
	token, _, err := issuer.Issue(user)
	require.NoError(t, err)
	return token, user
}

func TestIdentityGate(t *testing.T) {
	issuer, err := utils.NewTokenIssuer(secret, time.Hour)
	require.NoError(t, err)

	t.Run("should resolve the caller from the session header", func(t *testing.T) {
		token, _ := issue(t, issuer)
		w := do(newRouter(NewAuthMiddleware(issuer, nil)), "/whoami", map[string]string{SessionHeader: token})
		assert.Equal(t, "editor@example.com", w.Body.String())
	})

	t.Run("should accept a bearer token", func(t *testing.T) {
		token, _ := issue(t, issuer)
		w := do(newRouter(NewAuthMiddleware(issuer, nil)), "/whoami", map[string]string{"Authorization": "Bearer " + token})
		assert.Equal(t, "editor@example.com", w.Body.String())
	})

	t.Run("should continue anonymously on a bad token", func(t *testing.T) {
		token, _ := issue(t, issuer)
		tampered := token[:len(token)-2] + strings.Repeat("x", 2)
		for _, value := range []string{"garbage", tampered} {
			w := do(newRouter(NewAuthMiddleware(issuer, nil)), "/whoami", map[string]string{SessionHeader: value})
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "anonymous", w.Body.String())
		}
	})

	t.Run("should continue anonymously on a token signed with another secret", func(t *testing.T) {
		other, err := utils.NewTokenIssuer(strings.Repeat("z", 32), time.Hour)
		require.NoError(t, err)
		token, _ := issue(t, other)
		w := do(newRouter(NewAuthMiddleware(issuer, nil)), "/whoami", map[string]string{SessionHeader: token})
		assert.Equal(t, "anonymous", w.Body.String())
	})

	t.Run("should treat revoked tokens as anonymous", func(t *testing.T) {
		token, _ := issue(t, issuer)
		caller, err := issuer.Verify(token)
		require.NoError(t, err)

		am := NewAuthMiddleware(issuer, revocations{ids: map[string]bool{caller.TokenID: true}})
		w := do(newRouter(am), "/whoami", map[string]string{SessionHeader: token})
		assert.Equal(t, "anonymous", w.Body.String())
	})

	t.Run("should treat a failing revocation store as anonymous", func(t *testing.T) {
		token, _ := issue(t, issuer)
		am := NewAuthMiddleware(issuer, revocations{err: errors.New("redis down")})
		w := do(newRouter(am), "/whoami", map[string]string{SessionHeader: token})
		assert.Equal(t, "anonymous", w.Body.String())
	})
}

func TestRequireAuth(t *testing.T) {
	issuer, err := utils.NewTokenIssuer(secret, time.Hour)
	require.NoError(t, err)
	r := newRouter(NewAuthMiddleware(issuer, nil))

	w := do(r, "/private", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")

	token, _ := issue(t, issuer)
	w = do(r, "/private", map[string]string{SessionHeader: token})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://pmpk.kz"}))
	r.POST("/api/rpc", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/rpc", nil)
	req.Header.Set("Origin", "https://pmpk.kz")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://pmpk.kz", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), SessionHeader)
}
