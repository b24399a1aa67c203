// Package cli implements the chartforge command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/chartforge/pkg/buildinfo"
	"github.com/matzehuels/chartforge/pkg/cache"
	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/config"
	"github.com/matzehuels/chartforge/pkg/generative"
	"github.com/matzehuels/chartforge/pkg/pipeline"
	"github.com/matzehuels/chartforge/pkg/raster"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is resolved once in the root pre-run hook.
	Config *config.Config

	configFile string
	noCache    bool
	redisAddr  string

	catalog *catalog.Catalog
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Chartforge turns plain-language requests into chart documents",
		Long:         `Chartforge selects a chart family for a plain-language request, synthesizes a matching dataset, asks a generative model for rendering instructions (falling back to built-in templates), and writes a self-contained HTML chart that can be rasterized to PNG.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default: ./chartforge.toml if present)")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the generative response cache")
	flags.StringVar(&c.redisAddr, "redis", "", "use a Redis cache at this address instead of the file cache")

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.batchCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.catalogCommand())
	root.AddCommand(c.dataCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

func (c *CLI) loadConfig() error {
	if c.Config != nil {
		return nil
	}
	cfg, err := config.Load(config.LoadOptions{ConfigFile: c.configFile})
	if err != nil {
		return err
	}
	if c.redisAddr != "" {
		cfg.RedisAddr = c.redisAddr
	}
	c.Config = cfg
	c.Logger.Debug("configuration loaded",
		"model", cfg.Model, "credential", cfg.HasCredential(), "documents", cfg.DocumentsRoot)
	return nil
}

// settings returns the loaded configuration, or defaults when a command runs
// without the root pre-run hook (tests).
func (c *CLI) settings() *config.Config {
	if c.Config == nil {
		c.Config = config.Default()
	}
	return c.Config
}

// =============================================================================
// Factories
// =============================================================================

// loadCatalog reads the catalog once. An empty CatalogRoot selects the
// embedded catalog.
func (c *CLI) loadCatalog() (*catalog.Catalog, error) {
	if c.catalog != nil {
		return c.catalog, nil
	}
	root := c.settings().CatalogRoot
	if root == "" {
		c.catalog = catalog.Default()
		return c.catalog, nil
	}
	cat, err := catalog.Load(root)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("catalog loaded", "root", root, "families", len(cat.Families()))
	c.catalog = cat
	return cat, nil
}

// newCache returns the response cache selected by flags and config. A cache
// that cannot be opened degrades to no caching.
func (c *CLI) newCache(ctx context.Context) cache.Cache {
	cfg := c.settings()
	if c.noCache {
		return cache.NewNullCache()
	}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{Addr: cfg.RedisAddr})
		if err != nil {
			c.Logger.Warn("redis cache unavailable, caching disabled", "addr", cfg.RedisAddr, "error", err)
			return cache.NewNullCache()
		}
		return rc
	}
	fc, err := cache.NewFileCache(cfg.CacheDir)
	if err != nil {
		c.Logger.Warn("file cache unavailable, caching disabled", "dir", cfg.CacheDir, "error", err)
		return cache.NewNullCache()
	}
	return fc
}

// newRunner creates a pipeline runner for CLI use. The returned closer
// releases the cache.
func (c *CLI) newRunner(ctx context.Context, sidecar bool) (*pipeline.Runner, func(), error) {
	cfg := c.settings()
	cat, err := c.loadCatalog()
	if err != nil {
		return nil, nil, err
	}

	store := c.newCache(ctx)
	gen, err := generative.New(ctx, cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	if gen == nil {
		c.Logger.Info("no generative credential configured, using built-in templates")
	}

	runner := pipeline.NewRunner(cat, gen, pipeline.RunnerOptions{
		DocumentsRoot: cfg.DocumentsRoot,
		Sidecar:       sidecar,
		Attempts:      cfg.GenerativeAttempts,
		Backoff:       cfg.GenerativeBackoff,
		Timeout:       cfg.GenerativeTimeout,
		Logger:        c.Logger,
	})
	return runner, func() { _ = store.Close() }, nil
}

// newConverter creates a raster converter backed by headless Chromium.
func (c *CLI) newConverter(opts raster.Options) *raster.Converter {
	cfg := c.settings()
	if opts.Width == 0 && opts.Height == 0 {
		opts.Width, opts.Height = cfg.RasterWidth, cfg.RasterHeight
	}
	if opts.Timeout == 0 {
		opts.Timeout = cfg.RasterTimeout
	}
	if opts.Logger == nil {
		opts.Logger = c.Logger
	}
	return raster.NewConverter(raster.RodLauncher{NoSandbox: true}, opts)
}
