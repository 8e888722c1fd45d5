package middleware_test

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/module-progress-console/internal/middleware"
	"github.com/maxviazov/module-progress-console/internal/repository"
)

func newObservedEngine(t *testing.T, logs *bytes.Buffer, reg *prometheus.Registry) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zerolog.New(logs)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(logger, middleware.NewMetrics(reg)), middleware.ErrorHandler(logger))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(repository.ErrNotFound)
		c.Abort()
	})
	r.GET("/written", func(c *gin.Context) {
		c.String(http.StatusAccepted, "already answered")
		_ = c.Error(errors.New("late failure"))
	})
	return r
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	r := newObservedEngine(t, &bytes.Buffer{}, prometheus.NewRegistry())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	_, err := uuid.Parse(w.Header().Get(middleware.HeaderRequestID))
	assert.NoError(t, err, "a uuid request id is minted when absent")

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(middleware.HeaderRequestID, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(middleware.HeaderRequestID))
}

func TestRequestLogger_LogsAndCounts(t *testing.T) {
	logs := &bytes.Buffer{}
	reg := prometheus.NewRegistry()
	r := newObservedEngine(t, logs, reg)

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, logs.String(), `"request_id":"req-1"`)
	assert.Contains(t, logs.String(), `"route":"/ok"`)
	assert.Contains(t, logs.String(), `"status":200`)

	n, err := testutil.GatherAndCount(reg, "module_progress_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestErrorHandler_RendersRecordedError(t *testing.T) {
	r := newObservedEngine(t, &bytes.Buffer{}, prometheus.NewRegistry())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestErrorHandler_KeepsWrittenResponse(t *testing.T) {
	r := newObservedEngine(t, &bytes.Buffer{}, prometheus.NewRegistry())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/written", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "already answered", w.Body.String())
}
