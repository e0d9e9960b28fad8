package graceful

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/gptbots-qa/agent-tester/common/logger"
)

var (
	inFlightRequests int64
	backgroundRuns   int64
	draining         atomic.Bool

	wg sync.WaitGroup
)

// BeginRequest increments the in-flight request counter and returns the matching decrement.
func BeginRequest() func() {
	atomic.AddInt64(&inFlightRequests, 1)
	return func() {
		atomic.AddInt64(&inFlightRequests, -1)
	}
}

// GinRequestTracker counts requests so streaming runs are waited for during shutdown.
func GinRequestTracker() gin.HandlerFunc {
	return func(c *gin.Context) {
		done := BeginRequest()
		defer done()
		c.Next()
	}
}

// GoCritical runs fn in a tracked goroutine. Background test runs use it so a
// SIGTERM waits for them to persist before the database is closed.
func GoCritical(ctx context.Context, name string, fn func(context.Context)) {
	atomic.AddInt64(&backgroundRuns, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer atomic.AddInt64(&backgroundRuns, -1)

		start := time.Now()
		logger.Logger.Debug("critical task start", zap.String("name", name))
		fn(ctx)
		logger.Logger.Debug("critical task done",
			zap.String("name", name), zap.Duration("elapsed", time.Since(start)))
	}()
}

// Drain waits for tracked tasks and in-flight requests, bounded by ctx.
func Drain(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	tasksDone := false
	for {
		if tasksDone && atomic.LoadInt64(&inFlightRequests) == 0 {
			logger.Logger.Info("graceful drain complete")
			return nil
		}

		select {
		case <-ctx.Done():
			logger.Logger.Error("graceful drain timeout",
				zap.Int64("in_flight_requests", atomic.LoadInt64(&inFlightRequests)),
				zap.Int64("background_runs", atomic.LoadInt64(&backgroundRuns)))
			return ctx.Err()
		case <-done:
			tasksDone = true
			done = nil
		case <-ticker.C:
			logger.Logger.Debug("draining...",
				zap.Int64("in_flight_requests", atomic.LoadInt64(&inFlightRequests)),
				zap.Int64("background_runs", atomic.LoadInt64(&backgroundRuns)))
		}
	}
}

// SetDraining flips the draining flag to true.
func SetDraining() { draining.Store(true) }

// IsDraining reports whether new runs should be refused.
func IsDraining() bool { return draining.Load() }
