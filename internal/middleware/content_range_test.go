package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/module-progress-console/internal/middleware"
	"github.com/maxviazov/module-progress-console/internal/repository"
)

func fixedCount(n int) repository.Counter {
	return repository.CounterFunc(func(context.Context) (int, error) { return n, nil })
}

func failingCount(err error) repository.Counter {
	return repository.CounterFunc(func(context.Context) (int, error) { return 0, err })
}

// recordingEngine mounts ContentRange in front of a handler that records
// what it saw, so ordering and call counts can be asserted.
type recordingEngine struct {
	*gin.Engine
	calls       int
	headerOnRun string
}

func newRecordingEngine(counter repository.Counter) *recordingEngine {
	gin.SetMode(gin.TestMode)
	e := &recordingEngine{Engine: gin.New()}
	e.Use(middleware.ErrorHandler(zerolog.Nop()))
	e.GET("/courses", middleware.ContentRange("courses", counter), func(c *gin.Context) {
		e.calls++
		e.headerOnRun = c.Writer.Header().Get(middleware.HeaderContentRange)
		c.Header("X-Handler", "seen")
		c.String(http.StatusTeapot, "body from handler")
	})
	return e
}

func (e *recordingEngine) get() *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/courses", nil))
	return w
}

func TestNewDescriptor(t *testing.T) {
	cases := []struct {
		total int
		want  string
	}{
		{5, "courses 0-4/5"},
		{1, "courses 0-0/1"},
		{0, "courses 0-0/0"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, middleware.NewDescriptor("courses", tc.total).String())
		})
	}
}

func TestNewDescriptor_FullExtentForAnySize(t *testing.T) {
	for n := 1; n <= 200; n++ {
		d := middleware.NewDescriptor("courses", n)
		require.Equal(t, fmt.Sprintf("courses 0-%d/%d", n-1, n), d.String())
	}
}

func TestNewDescriptor_EmptyIsWellFormed(t *testing.T) {
	d := middleware.NewDescriptor("courses", 0)
	assert.GreaterOrEqual(t, d.Start, 0)
	assert.GreaterOrEqual(t, d.End, d.Start)
	assert.Equal(t, 0, d.Total)
}

func TestContentRange_Scenarios(t *testing.T) {
	cases := []struct {
		name  string
		items []string
		want  string
	}{
		{"five_items", []string{"A", "B", "C", "D", "E"}, "courses 0-4/5"},
		{"one_item", []string{"A"}, "courses 0-0/1"},
		{"empty", []string{}, "courses 0-0/0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newRecordingEngine(fixedCount(len(tc.items)))
			w := e.get()

			assert.Equal(t, tc.want, w.Header().Get(middleware.HeaderContentRange))
			assert.Equal(t, 1, e.calls, "next stage runs exactly once")
			assert.Equal(t, tc.want, e.headerOnRun, "header is set before the next stage runs")
		})
	}
}

func TestContentRange_LeavesResponseAlone(t *testing.T) {
	e := newRecordingEngine(fixedCount(3))
	w := e.get()

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "body from handler", w.Body.String())
	assert.Equal(t, "seen", w.Header().Get("X-Handler"))
	assert.Equal(t, "courses 0-2/3", w.Header().Get(middleware.HeaderContentRange))
}

func TestContentRange_RecountsEveryRequest(t *testing.T) {
	n := 0
	counter := repository.CounterFunc(func(context.Context) (int, error) {
		n++
		return n, nil
	})
	e := newRecordingEngine(counter)

	assert.Equal(t, "courses 0-0/1", e.get().Header().Get(middleware.HeaderContentRange))
	assert.Equal(t, "courses 0-1/2", e.get().Header().Get(middleware.HeaderContentRange))
	assert.Equal(t, 2, e.calls)
}

func TestContentRange_CounterFailure(t *testing.T) {
	cases := []struct {
		name    string
		counter repository.Counter
	}{
		{"plain_error", failingCount(errors.New("disk on fire"))},
		{"already_unavailable", failingCount(repository.Unavailable(errors.New("redis down")))},
		{"negative_size", fixedCount(-1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newRecordingEngine(tc.counter)
			w := e.get()

			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			assert.Contains(t, w.Body.String(), "data_unavailable")
			assert.Empty(t, w.Header().Get(middleware.HeaderContentRange), "no header on failure")
			assert.Equal(t, 0, e.calls, "next stage is never reached")
		})
	}
}

func TestContentRange_FailureIsRecordedOnContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/courses", nil)

	middleware.ContentRange("courses", failingCount(errors.New("boom")))(c)

	assert.True(t, c.IsAborted())
	require.Len(t, c.Errors, 1)
	assert.ErrorIs(t, c.Errors.Last().Err, repository.ErrDataUnavailable)
	assert.Empty(t, w.Header().Get(middleware.HeaderContentRange))
}
