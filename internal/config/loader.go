// Package config provides centralized configuration management for the
// Murphy's Laws server. Values are layered with viper:
// defaults, then an optional YAML file, then .env files (godotenv), then
// MURPHYS_* environment variables with the legacy unprefixed names as
// fallbacks.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/pathfinder"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/murphyslaws/murphys-laws/internal/appid"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// envAliases maps config keys to the environment variables consulted for
// them, in precedence order. The unprefixed names are what existing
// deployments already set.
var envAliases = map[string][]string{
	"environment":               {appid.EnvPrefix + "ENV", "NODE_ENV"},
	"server.host":               {appid.EnvPrefix + "SERVER_HOST", appid.EnvPrefix + "HOST", "HOST"},
	"server.port":               {appid.EnvPrefix + "SERVER_PORT", appid.EnvPrefix + "PORT", "PORT"},
	"cors.allowed_origins":      {appid.EnvPrefix + "ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
	"error_tracking.dsn":        {appid.EnvPrefix + "SENTRY_DSN", "SENTRY_DSN"},
	"store.path":                {appid.EnvPrefix + "DB_PATH"},
	"store.url":                 {appid.EnvPrefix + "DB_URL"},
	"store.auth_token":          {appid.EnvPrefix + "DB_AUTH_TOKEN"},
	"logging.level":             {appid.EnvPrefix + "LOG_LEVEL"},
	"logging.profile":           {appid.EnvPrefix + "LOG_PROFILE"},
	"metrics.enabled":           {appid.EnvPrefix + "METRICS_ENABLED"},
	"metrics.port":              {appid.EnvPrefix + "METRICS_PORT"},
	"rate_limit.sweep_interval": {appid.EnvPrefix + "RATE_LIMIT_SWEEP_INTERVAL"},
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("cors.allowed_origins", "*")

	v.SetDefault("rate_limit.sweep_interval", "1m")

	v.SetDefault("og_image.cache_max_age", "24h")
	v.SetDefault("og_image.cache_max_size", 500)

	v.SetDefault("error_tracking.dsn", "")
	v.SetDefault("error_tracking.traces_sample_rate", 0.1)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)
}

// BindEnv wires the prefixed environment and the legacy aliases into v.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(strings.TrimSuffix(appid.EnvPrefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envAliases {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// LoadDotEnv loads each existing file into the process environment. Files
// that do not exist are skipped; variables already set are left alone, so
// earlier files win over later ones.
func LoadDotEnv(paths ...string) ([]string, error) {
	var loaded []string
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("load env file %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

// DotEnvPaths lists the default .env files: the one at the repository root
// (nearest go.mod or .git above start) first, then the one in start itself.
// Outside a repository only start/.env is returned.
func DotEnvPaths(start string) []string {
	local := filepath.Join(start, ".env")
	root, err := pathfinder.FindRepositoryRoot(start, []string{"go.mod", ".git"}, pathfinder.WithMaxDepth(10))
	if err != nil || filepath.Clean(root) == filepath.Clean(start) {
		return []string{local}
	}
	return []string{filepath.Join(root, ".env"), local}
}

// WorkingDirDotEnvPaths is DotEnvPaths for the current directory.
func WorkingDirDotEnvPaths() []string {
	cwd, err := os.Getwd()
	if err != nil {
		return []string{".env"}
	}
	return DotEnvPaths(cwd)
}

// Load decodes v into a Config, normalizes it and makes it the current
// configuration.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalize(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	setConfig(cfg)
	return cfg, nil
}

func normalize(cfg *Config) {
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.CORS.AllowedOrigins = ParseAllowedOrigins(cfg.CORS.AllowedOrigins...)

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
}

// ParseAllowedOrigins flattens comma-separated origin lists, trimming blanks.
// An empty result means every origin is allowed.
func ParseAllowedOrigins(values ...string) []string {
	var origins []string
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			if origin := strings.TrimSpace(part); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigDir returns the XDG-compliant config directory.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir(appid.ConfigName)
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := DefaultConfigDir()
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(appid.ConfigName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + appid.BinaryName + ".db"
	}
	return filepath.Join(dataDir, appid.BinaryName+".db")
}
