package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/rudderhq/rudder/internal/app"
	testutil "github.com/rudderhq/rudder/internal/database/testutil"
)

type staticRunner struct{}

func (staticRunner) Run(_ context.Context, _ ...string) ([]byte, error) {
	return []byte("{}"), nil
}

func testConfig() *app.Config {
	cfg := &app.Config{}
	cfg.Server.Port = 8960
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Prometheus.Endpoint = "/metrics"
	return cfg
}

func TestNewRouterValidatesDependencies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.MustOpenTestDB(t)

	_, err := NewRouter(nil, staticRunner{}, testConfig())
	require.Error(t, err)

	_, err = NewRouter(db, nil, testConfig())
	require.Error(t, err)

	_, err = NewRouter(db, staticRunner{}, nil)
	require.Error(t, err)
}

func TestNewRouterServesHealthAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.MustOpenTestDB(t)

	router, err := NewRouter(db, staticRunner{}, testConfig())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRouterOmitsMetricsWhenDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.MustOpenTestDB(t)

	cfg := testConfig()
	cfg.Monitoring.Prometheus.Enabled = false

	router, err := NewRouter(db, staticRunner{}, cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
