package model

import (
	"context"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/gptbots-qa/agent-tester/common"
)

const (
	sqliteBusyRetryAttempts  = 5
	sqliteBusyRetryBaseDelay = 20 * time.Millisecond
)

var sqliteBusyMessages = []string{
	"database is locked",
	"database table is locked",
	"database is busy",
}

// runWithSQLiteBusyRetry retries op with linear backoff while SQLite reports a lock.
// Other backends run op exactly once.
func runWithSQLiteBusyRetry(ctx context.Context, op func() error) error {
	if !common.UsingSQLite.Load() {
		return op()
	}

	err := op()
	for attempt := 1; attempt <= sqliteBusyRetryAttempts && isSQLiteBusy(err); attempt++ {
		timer := time.NewTimer(time.Duration(attempt) * sqliteBusyRetryBaseDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrap(err, "context canceled while waiting for SQLite lock")
		case <-timer.C:
		}
		err = op()
	}

	if isSQLiteBusy(err) {
		return errors.Wrap(err, "SQLite remained busy after retries")
	}
	return err
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range sqliteBusyMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
