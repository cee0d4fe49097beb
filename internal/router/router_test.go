package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ratengine.dev/ratengine/internal/pathmatch"
)

func TestRouter_BasicDispatch(t *testing.T) {
	rt := New()
	require.NoError(t, rt.Get("/users/<int:id>", func(w http.ResponseWriter, r *http.Request, p pathmatch.Params) {
		w.Write([]byte("user=" + p["id"]))
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user=42", rec.Body.String())
}

func TestRouter_NotFound(t *testing.T) {
	rt := New()
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_HeadFallsBackToGet(t *testing.T) {
	rt := New()
	require.NoError(t, rt.Get("/ping", func(w http.ResponseWriter, r *http.Request, _ pathmatch.Params) {
		w.Write([]byte("pong"))
	}))

	req := httptest.NewRequest(http.MethodHead, "/ping", nil)
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_HeadFallbackDisabledGlobally(t *testing.T) {
	rt := New()
	require.NoError(t, rt.Get("/ping", func(w http.ResponseWriter, r *http.Request, _ pathmatch.Params) {
		w.Write([]byte("pong"))
	}))
	rt.EnableHeadFallback(false)

	req := httptest.NewRequest(http.MethodHead, "/ping", nil)
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_HeadFallbackWhitelistAllowsListedPrefix(t *testing.T) {
	rt := New()
	require.NoError(t, rt.Get("/api/public/info", func(w http.ResponseWriter, r *http.Request, _ pathmatch.Params) {
		w.Write([]byte("public"))
	}))
	require.NoError(t, rt.Get("/static/files/test.txt", func(w http.ResponseWriter, r *http.Request, _ pathmatch.Params) {
		w.Write([]byte("static"))
	}))
	rt.EnableHeadFallback(true, "/api/public", "/static")

	req := httptest.NewRequest(http.MethodHead, "/api/public/info", nil)
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodHead, "/static/files/test.txt", nil)
	rec = httptest.NewRecorder()
	rt.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_HeadFallbackWhitelistRejectsUnlistedPath(t *testing.T) {
	rt := New()
	require.NoError(t, rt.Get("/api/private/data", func(w http.ResponseWriter, r *http.Request, _ pathmatch.Params) {
		w.Write([]byte("secret"))
	}))
	rt.EnableHeadFallback(true, "/api/public", "/static")

	req := httptest.NewRequest(http.MethodHead, "/api/private/data", nil)
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	rt := New()
	rt.SetCORSPolicy(&CORSPolicy{AllowedOrigins: []string{"https://example.com"}, AllowedMethods: []string{"GET", "POST"}})

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_CORSRejectsUnknownOrigin(t *testing.T) {
	rt := New()
	rt.SetCORSPolicy(&CORSPolicy{AllowedOrigins: []string{"https://example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_WildcardSubdomainOrigin(t *testing.T) {
	c := &CORSPolicy{AllowedOrigins: []string{"*.example.com"}}
	assert.True(t, c.originAllowed("https://api.example.com"))
	assert.False(t, c.originAllowed("https://example.org"))
}

func TestRouter_Routes_SortedForIntrospection(t *testing.T) {
	rt := New()
	require.NoError(t, rt.Post("/b", func(http.ResponseWriter, *http.Request, pathmatch.Params) {}))
	require.NoError(t, rt.Get("/a", func(http.ResponseWriter, *http.Request, pathmatch.Params) {}))

	routes := rt.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "/a", routes[0].Pattern)
	assert.Equal(t, "/b", routes[1].Pattern)
}
