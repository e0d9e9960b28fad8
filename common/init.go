package common

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/Laisky/zap"

	"github.com/gptbots-qa/agent-tester/common/logger"
)

var Version = "v0.0.0"

var StartTime = time.Now().Unix()

var (
	Port   = flag.Int("port", 3000, "the listening port")
	LogDir = flag.String("log-dir", "./logs", "specify the log directory")
)

func Init() {
	flag.Parse()

	if *LogDir == "" {
		return
	}

	lg := logger.Logger.With(zap.String("log_dir", *LogDir))
	expanded, err := filepath.Abs(expandLogDirPath(*LogDir))
	if err != nil {
		lg.Fatal("failed to get absolute log dir", zap.Error(err))
	}
	if err = os.MkdirAll(expanded, 0o777); err != nil {
		lg.Fatal("failed to create log dir", zap.Error(err))
	}

	logger.LogDir = expanded
	*LogDir = expanded
	lg.Info("set log dir", zap.String("resolved", expanded))
}
