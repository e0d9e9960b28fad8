package graceful

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestDrainWaitsForCriticalTasks(t *testing.T) {
	var finished atomic.Bool
	GoCritical(context.Background(), "test-run", func(context.Context) {
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, Drain(ctx))
	require.True(t, finished.Load())
}

func TestDrainTimesOut(t *testing.T) {
	release := make(chan struct{})
	GoCritical(context.Background(), "stuck-run", func(context.Context) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, Drain(ctx), context.DeadlineExceeded)
}

func TestGinRequestTracker(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinRequestTracker())

	var observed int64
	r.GET("/", func(c *gin.Context) {
		observed = atomic.LoadInt64(&inFlightRequests)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, int64(1), observed)
	require.Equal(t, int64(0), atomic.LoadInt64(&inFlightRequests))
}

func TestDraining(t *testing.T) {
	require.False(t, IsDraining())
	SetDraining()
	require.True(t, IsDraining())
	draining.Store(false)
}
