// Package app wires configuration, fetching, extraction, and output into a
// single catalog run.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/apicatalog/internal/cache"
	"github.com/hyperifyio/apicatalog/internal/catalog"
	"github.com/hyperifyio/apicatalog/internal/fetch"
	"github.com/hyperifyio/apicatalog/internal/output"
	"github.com/hyperifyio/apicatalog/internal/robots"
)

type App struct {
	cfg        Config
	httpClient *http.Client
	httpCache  *cache.HTTPCache
	robots     *robots.Manager
	fetcher    *fetch.Client
	builder    *catalog.Builder
	writer     *output.Writer
}

// Result summarizes one run.
type Result struct {
	Catalog     *catalog.Catalog
	Stats       catalog.Stats
	Destination string
	FromCache   bool
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.Format == "" {
		cfg.Format = output.FormatJSON
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = fetch.DefaultUserAgent
	}

	a := &App{cfg: cfg, httpClient: newHTTPClient(cfg.Timeout)}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
				log.Warn().Err(err).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Dur("maxAge", cfg.CacheMaxAge).Msg("cache purged")
			}
		}
		if cfg.CacheMaxEntries > 0 {
			if _, err := cache.EnforceLimits(cfg.CacheDir, 0, cfg.CacheMaxEntries); err != nil {
				log.Warn().Err(err).Msg("cache limits failed")
			}
		}
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}

	if cfg.RespectRobots {
		a.robots = &robots.Manager{
			HTTPClient:        a.httpClient,
			Cache:             a.httpCache,
			UserAgent:         cfg.UserAgent,
			AllowPrivateHosts: cfg.AllowPrivateHosts,
		}
	}
	a.fetcher = &fetch.Client{
		HTTPClient:        a.httpClient,
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       cfg.MaxAttempts,
		PerRequestTimeout: cfg.Timeout,
		Cache:             a.httpCache,
		BypassCache:       cfg.CacheClear,
	}
	a.builder = &catalog.Builder{Selectors: cfg.Selectors, Logger: &log.Logger}
	a.writer = &output.Writer{
		Destination:  cfg.OutputPath,
		Format:       cfg.Format,
		SkipManifest: cfg.SkipManifest,
	}
	return a, nil
}

// Close releases idle connections.
func (a *App) Close() {
	if a.httpClient != nil {
		a.httpClient.CloseIdleConnections()
	}
}

// Run fetches the configured page, builds the catalog, and writes it out.
func (a *App) Run(ctx context.Context) error {
	_, err := a.Extract(ctx)
	return err
}

// Extract is Run returning the run summary.
func (a *App) Extract(ctx context.Context) (*Result, error) {
	start := time.Now()
	pageURL := a.cfg.URL

	if a.robots != nil {
		dec, err := a.robots.Check(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !dec.Allowed {
			return nil, fmt.Errorf("%s: %w", pageURL, robots.ErrDisallowed)
		}
		if dec.CrawlDelay != nil && *dec.CrawlDelay > 0 {
			log.Debug().Dur("delay", *dec.CrawlDelay).Str("source", dec.Source.String()).Msg("robots crawl delay")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(*dec.CrawlDelay):
			}
		}
	}

	page, res, err := a.fetcher.Page(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("url", pageURL).Int("bytes", len(res.Body)).Bool("fromCache", res.FromCache).Msg("fetched")

	cat, stats, err := a.builder.BuildWithStats(page)
	if err != nil {
		return nil, err
	}

	dest, err := a.writer.Write(cat, output.RunInfo{
		Body:      res.Body,
		HTTPCache: a.httpCache != nil,
		FromCache: res.FromCache,
	})
	if err != nil {
		return nil, err
	}

	ev := log.Info().Str("url", pageURL).Int("endpoints", len(cat.Endpoints)).Str("out", dest).Dur("elapsed", time.Since(start))
	if cat.APIVersion != nil {
		ev = ev.Str("version", *cat.APIVersion)
	}
	ev.Msg("catalog written")

	return &Result{Catalog: cat, Stats: stats, Destination: dest, FromCache: res.FromCache}, nil
}
