package config

import (
	"strings"
	"time"

	"github.com/gptbots-qa/agent-tester/common/env"
)

var (
	// ServerPort overrides the --port flag when running inside container or PaaS environments.
	ServerPort = strings.TrimSpace(env.String("PORT", ""))
	// GinMode allows forcing Gin into release mode (or other modes) without recompiling.
	GinMode = strings.TrimSpace(env.String("GIN_MODE", ""))

	// DebugEnabled toggles verbose structured logging when DEBUG=true.
	DebugEnabled = env.Bool("DEBUG", false)
	// DebugSQLEnabled toggles per-query SQL logging when DEBUG_SQL=true.
	DebugSQLEnabled = env.Bool("DEBUG_SQL", false)
	// OnlyOneLogFile writes every day into the same log file when true.
	OnlyOneLogFile = env.Bool("ONLY_ONE_LOG_FILE", false)
	// LogRetentionDays deletes log files older than this many days; zero keeps them forever.
	LogRetentionDays = env.Int("LOG_RETENTION_DAYS", 0)
	// LogPushAPI defines the webhook endpoint for escalated log alerts.
	LogPushAPI = env.String("LOG_PUSH_API", "")
	// LogPushType labels outbound log alerts so downstream processors can route them.
	LogPushType = env.String("LOG_PUSH_TYPE", "")
	// LogPushToken authenticates outbound log alert requests.
	LogPushToken = env.String("LOG_PUSH_TOKEN", "")

	// SQLDSN provides the history store DSN; empty indicates that SQLite should be used.
	SQLDSN = strings.TrimSpace(env.String("SQL_DSN", ""))
	// SQLitePath specifies the SQLite database file path when SQL_DSN is absent.
	SQLitePath = env.String("SQLITE_PATH", "agent-tester.db")
	// SQLiteBusyTimeout configures SQLite busy timeout in milliseconds to mitigate locking errors.
	SQLiteBusyTimeout = env.Int("SQLITE_BUSY_TIMEOUT", 3000)
	// SQLMaxIdleConns controls the history store pool's idle connection count.
	SQLMaxIdleConns = env.Int("SQL_MAX_IDLE_CONNS", 20)
	// SQLMaxOpenConns bounds the connection pool shared by every concurrent run.
	SQLMaxOpenConns = env.Int("SQL_MAX_OPEN_CONNS", 100)
	// SQLMaxLifetimeSeconds sets how long database connections live before being recycled (seconds).
	SQLMaxLifetimeSeconds = env.Int("SQL_MAX_LIFETIME", 300)

	// RedisConnString defines the Redis connection string; leaving it empty keeps run state process-local.
	RedisConnString = strings.TrimSpace(env.String("REDIS_CONN_STRING", ""))
	// RedisMasterName enables Redis sentinel/cluster discovery when provided.
	RedisMasterName = strings.TrimSpace(env.String("REDIS_MASTER_NAME", ""))
	// RedisPassword supplies the Redis authentication password when required.
	RedisPassword = env.String("REDIS_PASSWORD", "")
	// RunStateTTL controls how long finished run snapshots stay queryable.
	RunStateTTL = env.Duration("RUN_STATE_TTL", time.Hour)

	// EnablePrometheusMetrics exposes the /metrics endpoint for Prometheus scrapers when true.
	EnablePrometheusMetrics = env.Bool("ENABLE_PROMETHEUS_METRICS", true)
	// ShutdownTimeoutSec bounds how long shutdown waits for background runs (seconds).
	ShutdownTimeoutSec = env.Int("SHUTDOWN_TIMEOUT", 360)

	// AgentRequestTimeout bounds each outbound agent request. Zero disables the bound.
	AgentRequestTimeout = env.Duration("AGENT_REQUEST_TIMEOUT", 60*time.Second)
	// GPTBotsSGBaseURL is the routed base URL for agents in the SG region.
	GPTBotsSGBaseURL = strings.TrimSuffix(env.String("GPTBOTS_SG_BASE_URL", "https://api.gptbots.ai"), "/")
	// GPTBotsCNBaseURL is the routed base URL for agents in the CN region.
	GPTBotsCNBaseURL = strings.TrimSuffix(env.String("GPTBOTS_CN_BASE_URL", "https://api.gptbots.cn"), "/")

	// DefaultRPM is used by sequential runs that do not specify rpm.
	DefaultRPM = env.Int("DEFAULT_RPM", 60)
	// DefaultConcurrency is the batch size of parallel runs that do not specify maxConcurrency.
	DefaultConcurrency = env.Int("DEFAULT_CONCURRENCY", 2)
	// ParallelBatchPause is the flat pause inserted between parallel batches.
	ParallelBatchPause = time.Duration(env.Int("PARALLEL_BATCH_PAUSE_MS", 1000)) * time.Millisecond
	// MaxConcurrency caps maxConcurrency submitted by callers.
	MaxConcurrency = env.Int("MAX_CONCURRENCY", 20)

	// MaxUploadSizeMB limits the size of uploaded spreadsheets.
	MaxUploadSizeMB = env.Int("MAX_UPLOAD_SIZE_MB", 20)
	// MaxQuestions rejects spreadsheets that would exceed the run's wall-clock budget.
	MaxQuestions = env.Int("MAX_QUESTIONS", 2000)

	// HistoryRetentionDays deletes run records older than this many days; zero keeps them forever.
	HistoryRetentionDays = env.Int("HISTORY_RETENTION_DAYS", 0)

	// ReportOutputDir, when set, receives a copy of every rendered report after persistence.
	ReportOutputDir = strings.TrimSpace(env.String("REPORT_OUTPUT_DIR", ""))

	// CORSAllowOrigins is a comma separated list of allowed origins; "*" allows all.
	CORSAllowOrigins = env.String("CORS_ALLOW_ORIGINS", "*")
)
