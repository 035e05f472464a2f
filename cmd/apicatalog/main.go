package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/apicatalog/internal/app"
	"github.com/hyperifyio/apicatalog/internal/fetch"
	"github.com/hyperifyio/apicatalog/internal/output"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, showVersion, err := loadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Error().Err(err).Msg("configuration")
		os.Exit(1)
	}
	if showVersion {
		fmt.Printf("apicatalog %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

// loadConfig parses args and layers them over dotenv files, the environment,
// and an optional config file. Flags given explicitly win over everything.
func loadConfig(args []string) (app.Config, bool, error) {
	fs := flag.NewFlagSet("apicatalog", flag.ContinueOnError)

	var (
		pageURL      string
		outputPath   string
		format       string
		configPath   string
		envFiles     string
		cacheDir     string
		cacheMaxAge  time.Duration
		cacheClear   bool
		cacheStrict  bool
		userAgent    string
		timeout      time.Duration
		attempts     int
		ignoreRobots bool
		allowPrivate bool
		skipManifest bool
		verbose      bool
		showVersion  bool
	)

	fs.StringVar(&pageURL, "url", app.DefaultURL, "Documentation page to extract endpoints from")
	fs.StringVar(&outputPath, "output", "", "Output file (default derived from -url)")
	fs.StringVar(&format, "format", string(output.FormatJSON), "Output format: json, yaml, or pdf")
	fs.StringVar(&configPath, "config", "", "Path to YAML or JSON config file")
	fs.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files to load")
	fs.StringVar(&cacheDir, "cache.dir", app.DefaultCacheDir, "HTTP cache directory (empty disables)")
	fs.DurationVar(&cacheMaxAge, "cache.maxAge", 0, "Purge cache entries older than this before running")
	fs.BoolVar(&cacheClear, "cache.clear", false, "Clear the cache directory before running")
	fs.BoolVar(&cacheStrict, "cache.strictPerms", false, "Create cache files with 0600/0700 permissions")
	fs.StringVar(&userAgent, "ua", fetch.DefaultUserAgent, "User-Agent header")
	fs.DurationVar(&timeout, "timeout", app.DefaultTimeout, "Per-request timeout")
	fs.IntVar(&attempts, "attempts", app.DefaultMaxAttempts, "Fetch attempts including the first")
	fs.BoolVar(&ignoreRobots, "robots.ignore", false, "Do not consult robots.txt")
	fs.BoolVar(&allowPrivate, "robots.allowPrivate", false, "Allow robots.txt lookups on private or loopback hosts")
	fs.BoolVar(&skipManifest, "manifest.skip", false, "Do not write the manifest sidecar")
	fs.BoolVar(&verbose, "v", false, "Verbose logging")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return app.Config{}, false, err
	}
	if showVersion {
		return app.Config{}, true, nil
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	files := splitList(envFiles)
	if err := app.LoadEnvFiles(files...); err != nil {
		return app.Config{}, false, err
	}

	f, err := output.ParseFormat(format)
	if err != nil {
		return app.Config{}, false, fmt.Errorf("-format: %w", err)
	}
	flags := app.Config{
		URL:               pageURL,
		OutputPath:        outputPath,
		Format:            f,
		SkipManifest:      skipManifest,
		UserAgent:         userAgent,
		Timeout:           timeout,
		MaxAttempts:       attempts,
		RespectRobots:     !ignoreRobots,
		AllowPrivateHosts: allowPrivate,
		CacheDir:          cacheDir,
		CacheMaxAge:       cacheMaxAge,
		CacheClear:        cacheClear,
		CacheStrictPerms:  cacheStrict,
		Verbose:           verbose,
		ConfigPath:        configPath,
		EnvFiles:          files,
	}

	cfg := flags
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return app.Config{}, false, fmt.Errorf("load config file %s: %w", configPath, err)
		}
		if err := app.ApplyFileConfig(&cfg, fc); err != nil {
			return app.Config{}, false, err
		}
	}
	if err := app.ApplyEnvOverrides(&cfg); err != nil {
		return app.Config{}, false, err
	}
	restoreExplicitFlags(&cfg, flags, set)
	return cfg, false, nil
}

// restoreExplicitFlags puts back values given on the command line so they
// take precedence over environment and config file.
func restoreExplicitFlags(cfg *app.Config, flags app.Config, set map[string]bool) {
	for name := range set {
		switch name {
		case "url":
			cfg.URL = flags.URL
		case "output":
			cfg.OutputPath = flags.OutputPath
		case "format":
			cfg.Format = flags.Format
		case "cache.dir":
			cfg.CacheDir = flags.CacheDir
		case "cache.maxAge":
			cfg.CacheMaxAge = flags.CacheMaxAge
		case "cache.clear":
			cfg.CacheClear = flags.CacheClear
		case "cache.strictPerms":
			cfg.CacheStrictPerms = flags.CacheStrictPerms
		case "ua":
			cfg.UserAgent = flags.UserAgent
		case "timeout":
			cfg.Timeout = flags.Timeout
		case "attempts":
			cfg.MaxAttempts = flags.MaxAttempts
		case "robots.ignore":
			cfg.RespectRobots = flags.RespectRobots
		case "robots.allowPrivate":
			cfg.AllowPrivateHosts = flags.AllowPrivateHosts
		case "manifest.skip":
			cfg.SkipManifest = flags.SkipManifest
		case "v":
			cfg.Verbose = flags.Verbose
		}
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			list = append(list, v)
		}
	}
	return list
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}
