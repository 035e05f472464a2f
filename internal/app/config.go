package app

import (
	"time"

	"github.com/hyperifyio/apicatalog/internal/catalog"
	"github.com/hyperifyio/apicatalog/internal/output"
)

// Defaults shared by flag parsing and config file overlay.
const (
	DefaultURL         = "https://rest.ensembl.org/"
	DefaultCacheDir    = ".apicatalog-cache"
	DefaultTimeout     = 15 * time.Second
	DefaultMaxAttempts = 2
)

// Config holds runtime configuration for one extraction run.
type Config struct {
	URL string
	// OutputPath is the explicit destination; empty derives one from URL.
	OutputPath   string
	Format       output.Format
	SkipManifest bool

	// HTTP
	UserAgent     string
	Timeout       time.Duration
	MaxAttempts   int
	RespectRobots bool
	// AllowPrivateHosts permits robots.txt lookups against loopback and
	// private addresses, as used for locally served documentation.
	AllowPrivateHosts bool

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	CacheMaxEntries  int

	// Selectors overrides DefaultSelectors field by field when non-nil.
	Selectors *catalog.Selectors

	Verbose bool

	// ConfigPath and EnvFiles record where the configuration came from.
	ConfigPath string
	EnvFiles   []string
}
