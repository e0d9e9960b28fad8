package router

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/gptbots-qa/agent-tester/common/config"
	"github.com/gptbots-qa/agent-tester/common/graceful"
	"github.com/gptbots-qa/agent-tester/controller"
	"github.com/gptbots-qa/agent-tester/middleware"
)

// SetRouter mounts the API. Compression is limited to the history group since
// it would buffer the event stream of POST /api/tests.
func SetRouter(server *gin.Engine, runner *controller.TestRunner) {
	server.Use(cors.New(corsConfig(config.CORSAllowOrigins)))

	api := server.Group("/api")
	api.Use(middleware.PanicRecover(), graceful.GinRequestTracker())
	api.GET("/status", controller.GetStatus(runner))

	tests := api.Group("/tests")
	{
		tests.POST("", runner.StartTestRun)
		tests.GET("/runs/:runId", runner.GetRun)
		tests.GET("/runs/:runId/events", runner.GetRunEvents)
		tests.DELETE("/runs/:runId", runner.CancelRun)
	}

	history := api.Group("/history")
	history.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		history.GET("/:id", controller.GetHistory)
		history.GET("/:id/download", controller.DownloadHistoryReport)
	}
}

func corsConfig(allowOrigins string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Accept", "Authorization")
	cfg.ExposeHeaders = []string{"Content-Disposition", "X-Run-Id"}

	var origins []string
	for _, origin := range strings.Split(allowOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
