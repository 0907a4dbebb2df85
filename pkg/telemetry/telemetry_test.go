package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTelemetryDisabled(t *testing.T) {
	telem, err := New(Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, telem.IsEnabled())
	assert.NoError(t, telem.Shutdown(context.Background()))
}

func TestNewTelemetryEnabledWithoutExporters(t *testing.T) {
	telem, err := New(Config{Enabled: true, ServiceName: "test-service"})
	require.NoError(t, err)
	assert.True(t, telem.IsEnabled())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, telem.Shutdown(ctx))
}

func TestMetricsHandlerServesPrometheusFormat(t *testing.T) {
	telem := &Telemetry{}
	rec := httptest.NewRecorder()
	telem.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDefaultPrometheusPort(t *testing.T) {
	assert.Equal(t, 9090, DefaultPrometheusPort())
}
