// Package config loads the console configuration from PUSHDASH_* environment
// variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	Environment string
	APIURL      string
	DataDir     string
	DBPath      string

	HTTPTimeoutSec int
	TLSSkipVerify  bool

	// ListPollSec is the cadence of the push rule table's background
	// refresh. The backend updates push counters asynchronously, so the
	// table re-fetches its current page on this interval.
	ListPollSec int
}

func FromEnv() Config {
	dataDir := stringOrDefault("PUSHDASH_DATA_DIR", defaultDataDir())
	return Config{
		Environment:    stringOrDefault("PUSHDASH_ENV", "development"),
		APIURL:         stringOrDefault("PUSHDASH_API_URL", "http://localhost:8080"),
		DataDir:        dataDir,
		DBPath:         stringOrDefault("PUSHDASH_DB_PATH", filepath.Join(dataDir, "pushdash.sqlite")),
		HTTPTimeoutSec: intOrDefault("PUSHDASH_HTTP_TIMEOUT_SECONDS", 30),
		TLSSkipVerify:  boolOrDefault("PUSHDASH_TLS_SKIP_VERIFY", false),
		ListPollSec:    intOrDefault("PUSHDASH_LIST_POLL_SECONDS", 60),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pushdash"
	}
	return filepath.Join(home, ".pushdash")
}

func stringOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func boolOrDefault(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
