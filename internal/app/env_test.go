package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/apicatalog/internal/output"
)

// LoadEnvFiles reads KEY=VALUE pairs and populates the process environment.
func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("FOO", "")
	t.Setenv("BAR", "")
	t.Setenv("BAZ", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nFOO=alpha\nexport BAR=\"beta gamma\"\nBAZ='x=y'\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}

	if got := os.Getenv("FOO"); got != "alpha" {
		t.Fatalf("FOO=%q, want alpha", got)
	}
	if got := os.Getenv("BAR"); got != "beta gamma" {
		t.Fatalf("BAR=%q, want unquoted value", got)
	}
	if got := os.Getenv("BAZ"); got != "x=y" {
		t.Fatalf("BAZ=%q, want x=y", got)
	}
}

// Later files override earlier ones when loading multiple dotenv files.
func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
	t.Setenv("K", "")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}

	if err := LoadEnvFiles(a, filepath.Join(dir, "missing"), b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
}

func TestApplyEnvOverrides_FromEnv(t *testing.T) {
	t.Setenv("APICATALOG_URL", "https://docs.example.org/api/")
	t.Setenv("APICATALOG_OUTPUT", "out/catalog.yaml")
	t.Setenv("APICATALOG_FORMAT", "yaml")
	t.Setenv("APICATALOG_USER_AGENT", "custom/1.0")
	t.Setenv("CACHE_DIR", "/tmp/apicatalog-cache")
	t.Setenv("CACHE_MAX_AGE", "2h")
	t.Setenv("CACHE_CLEAR", "yes")
	t.Setenv("ROBOTS_IGNORE", "true")
	t.Setenv("VERBOSE", "1")

	cfg := Config{RespectRobots: true}
	if err := ApplyEnvOverrides(&cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides: %v", err)
	}
	if cfg.URL != "https://docs.example.org/api/" {
		t.Fatalf("URL=%q", cfg.URL)
	}
	if cfg.OutputPath != "out/catalog.yaml" || cfg.Format != output.FormatYAML {
		t.Fatalf("output=%q format=%q", cfg.OutputPath, cfg.Format)
	}
	if cfg.UserAgent != "custom/1.0" {
		t.Fatalf("UserAgent=%q", cfg.UserAgent)
	}
	if cfg.CacheDir != "/tmp/apicatalog-cache" || cfg.CacheMaxAge != 2*time.Hour || !cfg.CacheClear {
		t.Fatalf("cache settings not applied: %+v", cfg)
	}
	if cfg.RespectRobots {
		t.Fatalf("ROBOTS_IGNORE=true should disable robots checks")
	}
	if !cfg.Verbose {
		t.Fatalf("VERBOSE=1 should enable verbose")
	}
}

func TestApplyEnvOverrides_UnsetLeavesConfig(t *testing.T) {
	t.Setenv("APICATALOG_URL", "")
	t.Setenv("ROBOTS_IGNORE", "")
	t.Setenv("CACHE_MAX_AGE", "")

	cfg := Config{URL: DefaultURL, RespectRobots: true, CacheMaxAge: time.Minute}
	if err := ApplyEnvOverrides(&cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides: %v", err)
	}
	if cfg.URL != DefaultURL || !cfg.RespectRobots || cfg.CacheMaxAge != time.Minute {
		t.Fatalf("unexpected change: %+v", cfg)
	}
}

func TestApplyEnvOverrides_MalformedValues(t *testing.T) {
	cases := map[string]string{
		"APICATALOG_FORMAT":   "xml",
		"APICATALOG_TIMEOUT":  "soon",
		"APICATALOG_ATTEMPTS": "many",
		"CACHE_MAX_AGE":       "not-a-duration",
	}
	for key, val := range cases {
		for k := range cases {
			t.Setenv(k, "")
		}
		t.Setenv(key, val)
		var cfg Config
		err := ApplyEnvOverrides(&cfg)
		if err == nil || !strings.Contains(err.Error(), key) {
			t.Fatalf("%s=%q: expected error naming the variable, got %v", key, val, err)
		}
	}
	for k := range cases {
		t.Setenv(k, "")
	}
	t.Setenv("APICATALOG_ATTEMPTS", "0")
	var cfg Config
	if err := ApplyEnvOverrides(&cfg); err == nil {
		t.Fatalf("expected error for non-positive attempts")
	}
}
