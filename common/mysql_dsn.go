package common

import (
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gosqlmysql "github.com/go-sql-driver/mysql"
)

// NormalizeMySQLDSN accepts either a go-sql-driver DSN or a mysql:// URL and returns a
// driver DSN with parseTime=true. Without an explicit loc the location is UTC.
func NormalizeMySQLDSN(dsn string) (string, error) {
	normalized := dsn
	if strings.HasPrefix(strings.ToLower(dsn), "mysql://") {
		var err error
		if normalized, err = mysqlURLToDSN(dsn); err != nil {
			return "", errors.Wrap(err, "convert mysql:// DSN")
		}
	}

	cfg, err := gosqlmysql.ParseDSN(normalized)
	if err != nil {
		return "", errors.Wrap(err, "parse MySQL DSN")
	}
	cfg.ParseTime = true
	if _, ok := cfg.Params["loc"]; !ok && !hasQueryKey(normalized, "loc") {
		cfg.Loc = time.UTC
	}

	return cfg.FormatDSN(), nil
}

func mysqlURLToDSN(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if parsed.Host == "" {
		return "", errors.New("mysql DSN missing host")
	}

	cfg := gosqlmysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = parsed.Host
	cfg.DBName = strings.TrimPrefix(parsed.Path, "/")
	if parsed.User != nil {
		cfg.User = parsed.User.Username()
		cfg.Passwd, _ = parsed.User.Password()
	}

	dsn := cfg.FormatDSN()
	if parsed.RawQuery != "" {
		if strings.Contains(dsn, "?") {
			dsn += "&" + parsed.RawQuery
		} else {
			dsn += "?" + parsed.RawQuery
		}
	}
	return dsn, nil
}

func hasQueryKey(dsn, key string) bool {
	idx := strings.Index(dsn, "?")
	if idx == -1 {
		return false
	}
	values, err := url.ParseQuery(dsn[idx+1:])
	if err != nil {
		return false
	}
	_, ok := values[key]
	return ok
}
