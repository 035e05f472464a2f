package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/apicatalog/internal/output"
)

// ApplyEnvOverrides overrides cfg fields with environment variables that are
// set. It runs after the config file and before explicit flags are restored,
// so the precedence is flags > env > file > defaults.
func ApplyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	if v := strings.TrimSpace(os.Getenv("APICATALOG_URL")); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("APICATALOG_OUTPUT")); v != "" {
		cfg.OutputPath = v
	}
	if v := strings.TrimSpace(os.Getenv("APICATALOG_FORMAT")); v != "" {
		f, err := output.ParseFormat(v)
		if err != nil {
			return fmt.Errorf("APICATALOG_FORMAT: %w", err)
		}
		cfg.Format = f
	}
	if v := strings.TrimSpace(os.Getenv("APICATALOG_USER_AGENT")); v != "" {
		cfg.UserAgent = v
	}
	if v := strings.TrimSpace(os.Getenv("APICATALOG_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("APICATALOG_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v := strings.TrimSpace(os.Getenv("APICATALOG_ATTEMPTS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("APICATALOG_ATTEMPTS: %w", err)
		}
		if n <= 0 {
			return fmt.Errorf("APICATALOG_ATTEMPTS: must be positive, got %d", n)
		}
		cfg.MaxAttempts = n
	}
	if v := strings.TrimSpace(os.Getenv("CACHE_DIR")); v != "" {
		cfg.CacheDir = v
	}
	if v := strings.TrimSpace(os.Getenv("CACHE_MAX_AGE")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_MAX_AGE: %w", err)
		}
		cfg.CacheMaxAge = d
	}

	setBool := func(dst *bool, envKey string) {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(envKey))) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	ignoreRobots := !cfg.RespectRobots
	setBool(&ignoreRobots, "ROBOTS_IGNORE")
	cfg.RespectRobots = !ignoreRobots
	return nil
}
