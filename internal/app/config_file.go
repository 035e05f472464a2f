package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/apicatalog/internal/catalog"
	"github.com/hyperifyio/apicatalog/internal/fetch"
	"github.com/hyperifyio/apicatalog/internal/output"
)

// FileConfig is the single-file configuration schema.
type FileConfig struct {
	URL    string `yaml:"url" json:"url"`
	Output string `yaml:"output" json:"output"`
	Format string `yaml:"format" json:"format"`

	SkipManifest bool `yaml:"skipManifest" json:"skipManifest"`

	HTTP struct {
		UserAgent    string        `yaml:"userAgent" json:"userAgent"`
		Timeout      time.Duration `yaml:"timeout" json:"timeout"`
		Attempts     int           `yaml:"attempts" json:"attempts"`
		IgnoreRobots bool          `yaml:"ignoreRobots" json:"ignoreRobots"`
	} `yaml:"http" json:"http"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		MaxEntries  int           `yaml:"maxEntries" json:"maxEntries"`
	} `yaml:"cache" json:"cache"`

	Selectors struct {
		Group       string `yaml:"group" json:"group"`
		Row         string `yaml:"row" json:"row"`
		Footer      string `yaml:"footer" json:"footer"`
		Resource    string `yaml:"resource" json:"resource"`
		Link        string `yaml:"link" json:"link"`
		Description string `yaml:"description" json:"description"`
	} `yaml:"selectors" json:"selectors"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig fills fields of cfg that are unset or still at their flag
// default from fc, so explicit flags keep precedence.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	if (cfg.URL == "" || cfg.URL == DefaultURL) && fc.URL != "" {
		cfg.URL = fc.URL
	}
	if cfg.OutputPath == "" && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if (cfg.Format == "" || cfg.Format == output.FormatJSON) && fc.Format != "" {
		f, err := output.ParseFormat(fc.Format)
		if err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		cfg.Format = f
	}
	if !cfg.SkipManifest && fc.SkipManifest {
		cfg.SkipManifest = true
	}

	if (cfg.UserAgent == "" || cfg.UserAgent == fetch.DefaultUserAgent) && fc.HTTP.UserAgent != "" {
		cfg.UserAgent = fc.HTTP.UserAgent
	}
	if (cfg.Timeout == 0 || cfg.Timeout == DefaultTimeout) && fc.HTTP.Timeout > 0 {
		cfg.Timeout = fc.HTTP.Timeout
	}
	if (cfg.MaxAttempts == 0 || cfg.MaxAttempts == DefaultMaxAttempts) && fc.HTTP.Attempts > 0 {
		cfg.MaxAttempts = fc.HTTP.Attempts
	}
	if fc.HTTP.IgnoreRobots {
		cfg.RespectRobots = false
	}

	if (cfg.CacheDir == "" || cfg.CacheDir == DefaultCacheDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if cfg.CacheMaxEntries == 0 && fc.Cache.MaxEntries > 0 {
		cfg.CacheMaxEntries = fc.Cache.MaxEntries
	}

	s := fc.Selectors
	if s.Group != "" || s.Row != "" || s.Footer != "" || s.Resource != "" || s.Link != "" || s.Description != "" {
		sel := catalog.Selectors{}
		if cfg.Selectors != nil {
			sel = *cfg.Selectors
		}
		pick := func(dst *string, v string) {
			if *dst == "" && v != "" {
				*dst = v
			}
		}
		pick(&sel.Group, s.Group)
		pick(&sel.Row, s.Row)
		pick(&sel.Footer, s.Footer)
		pick(&sel.Fields.Resource, s.Resource)
		pick(&sel.Fields.Link, s.Link)
		pick(&sel.Fields.Description, s.Description)
		cfg.Selectors = &sel
	}

	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
	return nil
}

// ValidateConfig rejects configurations that cannot produce a run.
func ValidateConfig(cfg Config) error {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return errors.New("config: url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: invalid url: %w", err)
	}
	if s := strings.ToLower(u.Scheme); (s != "http" && s != "https") || u.Host == "" {
		return fmt.Errorf("config: url must be absolute http(s), got %q", raw)
	}
	if _, err := output.ParseFormat(string(cfg.Format)); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Timeout < 0 || cfg.MaxAttempts < 0 || cfg.CacheMaxAge < 0 || cfg.CacheMaxEntries < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	return nil
}
