package cms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/config"
	"github.com/ablaqll/pmpk-website-sub000/shared/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	var gotPath, gotQuery, gotSlug, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		gotSlug = r.URL.Query().Get("$slug")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ms":3,"result":[{"_id":"a"}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.CMSConfig{BaseURL: srv.URL, Dataset: "production", APIVersion: "2024-01-01", Token: "tok"})
	res, err := c.Query(context.Background(), `*[_type == "news" && client == $slug]`, map[string]any{"slug": "pmpk"})
	require.NoError(t, err)

	assert.JSONEq(t, `[{"_id":"a"}]`, string(res))
	assert.Equal(t, "/v2024-01-01/data/query/production", gotPath)
	assert.Equal(t, `*[_type == "news" && client == $slug]`, gotQuery)
	assert.Equal(t, `"pmpk"`, gotSlug)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestQueryBreaker(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(config.CMSConfig{BaseURL: srv.URL, Dataset: "production", APIVersion: "v1"})
	for i := 0; i < 5; i++ {
		_, err := c.Query(context.Background(), "*", nil)
		assert.ErrorIs(t, err, &apperrors.Error{Code: apperrors.CodeServiceUnavailable})
	}
	assert.Equal(t, utils.StateOpen, c.State())

	_, err := c.Query(context.Background(), "*", nil)
	assert.ErrorIs(t, err, utils.ErrCircuitOpen)
	assert.Equal(t, int32(5), atomic.LoadInt32(&hits))
}
