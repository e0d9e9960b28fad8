package env

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// String returns the trimmed value of env, or defaultValue when unset or blank.
func String(env string, defaultValue string) string {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return defaultValue
	}
	return v
}

func Int(env string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return defaultValue
	}
	num, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return num
}

func Float64(env string, defaultValue float64) float64 {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return defaultValue
	}
	num, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return num
}

// Bool accepts "true"/"1"/"yes" (case-insensitive) as true and "false"/"0"/"no" as false.
func Bool(env string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(env))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

// Duration parses values such as "1500ms" or "2m". A bare integer is read as seconds.
func Duration(env string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
