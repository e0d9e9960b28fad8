package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gptbots-qa/agent-tester/common"
	"github.com/gptbots-qa/agent-tester/common/client"
	"github.com/gptbots-qa/agent-tester/common/config"
	"github.com/gptbots-qa/agent-tester/common/graceful"
	"github.com/gptbots-qa/agent-tester/common/logger"
	"github.com/gptbots-qa/agent-tester/controller"
	"github.com/gptbots-qa/agent-tester/middleware"
	"github.com/gptbots-qa/agent-tester/model"
	"github.com/gptbots-qa/agent-tester/monitor"
	"github.com/gptbots-qa/agent-tester/relay/adaptor/gptbots"
	relaycontroller "github.com/gptbots-qa/agent-tester/relay/controller"
	"github.com/gptbots-qa/agent-tester/router"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	common.Init()
	logger.SetupLogger()
	logger.SetupEnhancedLogger(ctx)
	logger.StartLogRetentionCleaner(ctx, config.LogRetentionDays, logger.LogDir)

	logger.Logger.Info("agent tester started", zap.String("version", common.Version))

	if config.GinMode != gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	model.InitDB()
	defer func() {
		if err := model.CloseDB(); err != nil {
			logger.Logger.Error("failed to close database", zap.Error(err))
		}
	}()
	model.StartHistoryRetentionCleaner(ctx, config.HistoryRetentionDays)

	if err := common.InitRedisClient(); err != nil {
		logger.Logger.Fatal("failed to initialize Redis", zap.Error(err))
	}

	if config.EnablePrometheusMetrics {
		if err := monitor.InitPrometheusMonitoring(prometheus.DefaultRegisterer, common.Version, runtime.Version()); err != nil {
			logger.Logger.Fatal("failed to initialize Prometheus monitoring", zap.Error(err))
		}
		logger.Logger.Info("Prometheus monitoring initialized")
	}

	client.Init()

	var rdb redis.Cmdable
	if common.IsRedisEnabled() {
		rdb = common.RDB
	}
	orchestrator := relaycontroller.NewOrchestrator(
		gptbots.NewClient(client.HTTPClient, config.AgentRequestTimeout),
		model.NewHistoryStore(model.DB),
		relaycontroller.WithReportDir(config.ReportOutputDir),
	)
	runner := controller.NewTestRunner(orchestrator, relaycontroller.NewRegistry(config.RunStateTTL, rdb))

	logLevel := glog.LevelInfo
	if config.DebugEnabled {
		logLevel = glog.LevelDebug
	}

	server := gin.New()
	server.RedirectTrailingSlash = false
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(logLevel.String()),
			gmw.WithLogger(logger.Logger.Named("gin")),
		),
	)
	server.Use(middleware.RequestId())

	if config.EnablePrometheusMetrics {
		server.GET("/metrics", gin.WrapH(promhttp.Handler()))
		logger.Logger.Info("Prometheus metrics endpoint available at /metrics")
	}

	router.SetRouter(server, runner)

	port := config.ServerPort
	if port == "" {
		port = strconv.Itoa(*common.Port)
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           server,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		logger.Logger.Info("server started", zap.String("address", "http://localhost:"+port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdown(srv)
}

// shutdown stops accepting runs, waits for in-flight and background runs to
// persist, then closes the listener.
func shutdown(srv *http.Server) {
	logger.Logger.Info("shutdown signal received, draining test runs")
	graceful.SetDraining()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(config.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := graceful.Drain(ctx); err != nil {
		logger.Logger.Warn("drain did not finish before timeout", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Warn("http server shutdown", zap.Error(err))
	}
	logger.Logger.Info("server stopped")
}
