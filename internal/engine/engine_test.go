package engine

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ratengine.dev/ratengine/internal/pathmatch"
)

func TestBuilder_BuildDefaults(t *testing.T) {
	e, err := NewBuilder().Build()
	require.NoError(t, err)
	require.NotNil(t, e.Router())
	require.NotNil(t, e.GRPC())
}

func TestEngine_MetricsServesPrometheusFormat(t *testing.T) {
	e, err := NewBuilder().Build()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.Metrics().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ratengine_engine_active_connections")
}

func TestEngine_RouterRegistersBeforeStart(t *testing.T) {
	e, err := NewBuilder().Build()
	require.NoError(t, err)
	require.NoError(t, e.Router().Get("/ping", func(w http.ResponseWriter, r *http.Request, _ pathmatch.Params) {
		w.Write([]byte("pong"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.Router().ServeHTTP(rec, req)
	assert.Equal(t, "pong", rec.Body.String())
}
