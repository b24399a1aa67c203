// Package config loads chartforge settings into an explicit [Config] value.
//
// Sources, in increasing priority:
//
//  1. built-in defaults
//  2. an optional chartforge.{toml,yaml,json} file in the project root (or
//     the file named by --config)
//  3. a .env file in the project root
//  4. CHARTFORGE_* environment variables
//
// The generative credential additionally falls back to GEMINI_API_KEY and
// GOOGLE_API_KEY. A missing credential is not an error: the pipeline then
// uses template instructions for every request.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppName names the config file, env prefix and cache directory.
const AppName = "chartforge"

const envPrefix = "CHARTFORGE"

// Config is the fully resolved configuration. It is built once by the CLI
// and passed down; library packages never read the environment themselves.
type Config struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`

	DocumentsRoot string `mapstructure:"documents_root"`
	ImagesRoot    string `mapstructure:"images_root"`
	CatalogRoot   string `mapstructure:"catalog_root"`
	ProjectRoot   string `mapstructure:"project_root"`
	CacheDir      string `mapstructure:"cache_dir"`
	RedisAddr     string `mapstructure:"redis_addr"`
	CachePrefix   string `mapstructure:"cache_prefix"`

	GenerativeTimeout     time.Duration `mapstructure:"generative_timeout"`
	GenerativeAttempts    int           `mapstructure:"generative_attempts"`
	GenerativeBackoff     time.Duration `mapstructure:"generative_backoff"`
	GenerativeConcurrency int           `mapstructure:"generative_concurrency"`
	CacheTTL              time.Duration `mapstructure:"cache_ttl"`

	BatchParallelism int `mapstructure:"batch_parallelism"`

	RasterWidth   int           `mapstructure:"raster_width"`
	RasterHeight  int           `mapstructure:"raster_height"`
	RasterTimeout time.Duration `mapstructure:"raster_timeout"`
}

// Defaults for [Config].
const (
	DefaultModel                 = "gemini-2.0-flash"
	DefaultTemperature           = 0.3
	DefaultDocumentsRoot         = "charts"
	DefaultImagesRoot            = "chart_pngs"
	DefaultGenerativeTimeout     = 30 * time.Second
	DefaultGenerativeAttempts    = 3
	DefaultGenerativeBackoff     = time.Second
	DefaultGenerativeConcurrency = 2
	DefaultCacheTTL              = 7 * 24 * time.Hour
	DefaultBatchParallelism      = 4
	DefaultRasterWidth           = 1280
	DefaultRasterHeight          = 720
	DefaultRasterTimeout         = 30 * time.Second
)

// LoadOptions controls where [Load] looks.
type LoadOptions struct {
	// ProjectRoot is searched for chartforge.* and .env. Empty means the
	// working directory.
	ProjectRoot string

	// ConfigFile, when set, is read instead of searching ProjectRoot. Unlike
	// the searched file it must exist.
	ConfigFile string
}

// Load resolves a [Config] from all sources and validates it.
func Load(opts LoadOptions) (*Config, error) {
	root := opts.ProjectRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		root = wd
	}

	v := viper.New()
	setDefaults(v, root)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName(AppName)
		v.AddConfigPath(root)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	dotenv, err := readDotenv(filepath.Join(root, ".env"))
	if err != nil {
		return nil, err
	}
	applyDotenv(v, dotenv)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = firstSet(dotenv, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	cfg.resolvePaths(root)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns a validated Config built from defaults only.
func Default() *Config {
	root, _ := os.Getwd()
	v := viper.New()
	setDefaults(v, root)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.resolvePaths(root)
	return &cfg
}

// HasCredential reports whether a generative service key is configured.
func (c *Config) HasCredential() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Validate checks ranges that would otherwise surface as confusing runtime
// failures.
func (c *Config) Validate() error {
	switch {
	case c.Model == "":
		return errors.New("model cannot be empty")
	case c.Temperature < 0 || c.Temperature > 2:
		return fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature)
	case c.GenerativeTimeout <= 0:
		return fmt.Errorf("generative_timeout must be positive, got %v", c.GenerativeTimeout)
	case c.GenerativeAttempts < 1:
		return fmt.Errorf("generative_attempts must be at least 1, got %d", c.GenerativeAttempts)
	case c.GenerativeConcurrency < 1:
		return fmt.Errorf("generative_concurrency must be at least 1, got %d", c.GenerativeConcurrency)
	case c.BatchParallelism < 1:
		return fmt.Errorf("batch_parallelism must be at least 1, got %d", c.BatchParallelism)
	case c.RasterWidth <= 0 || c.RasterHeight <= 0:
		return fmt.Errorf("raster size must be positive, got %dx%d", c.RasterWidth, c.RasterHeight)
	case c.RasterTimeout <= 0:
		return fmt.Errorf("raster_timeout must be positive, got %v", c.RasterTimeout)
	}
	return nil
}

// DefaultCacheDir returns $XDG_CACHE_HOME/chartforge or ~/.cache/chartforge.
func DefaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

func setDefaults(v *viper.Viper, root string) {
	cacheDir, _ := DefaultCacheDir()

	v.SetDefault("api_key", "")
	v.SetDefault("model", DefaultModel)
	v.SetDefault("temperature", DefaultTemperature)
	v.SetDefault("documents_root", DefaultDocumentsRoot)
	v.SetDefault("images_root", DefaultImagesRoot)
	v.SetDefault("catalog_root", "")
	v.SetDefault("project_root", root)
	v.SetDefault("cache_dir", cacheDir)
	v.SetDefault("redis_addr", "")
	v.SetDefault("cache_prefix", "")
	v.SetDefault("generative_timeout", DefaultGenerativeTimeout)
	v.SetDefault("generative_attempts", DefaultGenerativeAttempts)
	v.SetDefault("generative_backoff", DefaultGenerativeBackoff)
	v.SetDefault("generative_concurrency", DefaultGenerativeConcurrency)
	v.SetDefault("cache_ttl", DefaultCacheTTL)
	v.SetDefault("batch_parallelism", DefaultBatchParallelism)
	v.SetDefault("raster_width", DefaultRasterWidth)
	v.SetDefault("raster_height", DefaultRasterHeight)
	v.SetDefault("raster_timeout", DefaultRasterTimeout)
}

// readDotenv parses a .env file without touching the process environment.
// A missing file yields an empty map.
func readDotenv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return values, nil
}

// applyDotenv layers CHARTFORGE_* entries from .env above the config file
// but below real environment variables.
func applyDotenv(v *viper.Viper, dotenv map[string]string) {
	prefix := envPrefix + "_"
	for name, value := range dotenv {
		if !strings.HasPrefix(name, prefix) || value == "" {
			continue
		}
		if os.Getenv(name) != "" {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, prefix))
		v.Set(key, value)
	}
}

func firstSet(dotenv map[string]string, names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
		if val := dotenv[name]; val != "" {
			return val
		}
	}
	return ""
}

func (c *Config) resolvePaths(root string) {
	if c.ProjectRoot == "" {
		c.ProjectRoot = root
	}
	c.DocumentsRoot = under(c.ProjectRoot, c.DocumentsRoot)
	c.ImagesRoot = under(c.ProjectRoot, c.ImagesRoot)
	if c.CatalogRoot != "" {
		c.CatalogRoot = under(c.ProjectRoot, c.CatalogRoot)
	}
}

func under(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
