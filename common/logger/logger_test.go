package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gptbots-qa/agent-tester/common/config"
)

func TestSetupEnhancedLoggerWithoutAlertPusher(t *testing.T) {
	config.LogPushAPI = ""
	SetupEnhancedLogger(context.Background())
	require.NotNil(t, Logger)
	Logger.Info("logger configured")
}

func TestSetupLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()
	LogDir = dir
	ResetSetupLogOnceForTests()
	t.Cleanup(func() {
		LogDir = ""
		ResetSetupLogOnceForTests()
	})

	SetupLogger()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRemoveExpiredLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.log")
	fresh := filepath.Join(dir, "fresh.log")
	other := filepath.Join(dir, "keep.txt")
	for _, p := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	stale := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(old, stale, stale))
	require.NoError(t, os.Chtimes(other, stale, stale))

	removed, err := removeExpiredLogs(dir, time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = os.Stat(old)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	require.NoError(t, err)
	_, err = os.Stat(other)
	require.NoError(t, err)
}
