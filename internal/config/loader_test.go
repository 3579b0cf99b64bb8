package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable the loader consults so the host
// environment cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, names := range envAliases {
		for _, name := range names {
			t.Setenv(name, "")
			require.NoError(t, os.Unsetenv(name))
		}
	}
}

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	require.NoError(t, BindEnv(v))
	return v
}

func TestLoad(t *testing.T) {
	t.Run("LoadDefaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("XDG_DATA_HOME", t.TempDir())

		cfg, err := Load(newViper(t))
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "development", cfg.Environment)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 8787, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, time.Minute, cfg.RateLimit.SweepInterval)
		assert.Equal(t, 24*time.Hour, cfg.OGImage.CacheMaxAge)
		assert.Equal(t, 500, cfg.OGImage.CacheMaxSize)
		assert.Equal(t, 0.1, cfg.ErrorTracking.TracesSampleRate)
		assert.Empty(t, cfg.ErrorTracking.DSN)
		assert.Equal(t, "libsql", cfg.Store.Driver)
		assert.NotEmpty(t, cfg.Store.Path)
		assert.True(t, cfg.Metrics.Enabled)
		assert.False(t, cfg.IsProduction())

		assert.Same(t, cfg, GetConfig())
	})

	t.Run("LegacyEnvironmentNames", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("HOST", "0.0.0.0")
		t.Setenv("PORT", "9999")
		t.Setenv("ALLOWED_ORIGINS", "https://murphys-laws.com, https://www.murphys-laws.com")
		t.Setenv("SENTRY_DSN", "https://key@sentry.example/1")
		t.Setenv("NODE_ENV", "Production")

		cfg, err := Load(newViper(t))
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9999, cfg.Server.Port)
		assert.Equal(t, []string{"https://murphys-laws.com", "https://www.murphys-laws.com"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "https://key@sentry.example/1", cfg.ErrorTracking.DSN)
		assert.True(t, cfg.IsProduction())
	})

	t.Run("PrefixedNamesWin", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "9999")
		t.Setenv("MURPHYS_SERVER_PORT", "7000")
		t.Setenv("MURPHYS_OG_IMAGE_CACHE_MAX_SIZE", "10")

		cfg, err := Load(newViper(t))
		require.NoError(t, err)

		assert.Equal(t, 7000, cfg.Server.Port)
		assert.Equal(t, 10, cfg.OGImage.CacheMaxSize)
	})

	t.Run("BlankOriginsFallBackToWildcard", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ALLOWED_ORIGINS", " , ")

		cfg, err := Load(newViper(t))
		require.NoError(t, err)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	})

	t.Run("YAMLFileLayer", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
cors:
  allowed_origins:
    - http://localhost:5173
rate_limit:
  sweep_interval: 30s
`), 0o600))

		v := newViper(t)
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())

		cfg, err := Load(v)
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, 30*time.Second, cfg.RateLimit.SweepInterval)
	})

	t.Run("InvalidPortRejected", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MURPHYS_SERVER_PORT", "70000")

		_, err := Load(newViper(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.port")
	})
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "root.env")
	second := filepath.Join(dir, "local.env")
	require.NoError(t, os.WriteFile(first, []byte("PORT=8100\nHOST=10.0.0.1\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("PORT=8200\nALLOWED_ORIGINS=http://a.test\n"), 0o600))

	loaded, err := LoadDotEnv(first, filepath.Join(dir, "missing.env"), second)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, loaded)

	cfg, err := Load(newViper(t))
	require.NoError(t, err)
	assert.Equal(t, 8100, cfg.Server.Port, "earlier file wins")
	assert.Equal(t, "10.0.0.1", cfg.Server.Host)
	assert.Equal(t, []string{"http://a.test"}, cfg.CORS.AllowedOrigins)
}

func TestParseAllowedOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, ParseAllowedOrigins())
	assert.Equal(t, []string{"*"}, ParseAllowedOrigins("", " , "))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, ParseAllowedOrigins("http://a.test, http://b.test"))
	assert.Equal(t, []string{"http://a.test", "http://b.test", "http://c.test"},
		ParseAllowedOrigins("http://a.test", " http://b.test,http://c.test "))
}

func TestDotEnvPaths(t *testing.T) {
	root := t.TempDir()
	// The repository search stops at the home directory.
	t.Setenv("HOME", filepath.Dir(root))
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.test\n"), 0o600))
	nested := filepath.Join(root, "cmd", "murphys")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, []string{
		filepath.Join(root, ".env"),
		filepath.Join(nested, ".env"),
	}, DotEnvPaths(nested))

	assert.Equal(t, []string{filepath.Join(root, ".env")}, DotEnvPaths(root))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8787},
			RateLimit: RateLimitConfig{SweepInterval: time.Minute},
			OGImage:   OGImageConfig{CacheMaxAge: time.Hour, CacheMaxSize: 1},
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.OGImage.CacheMaxSize = 0
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.ErrorTracking.TracesSampleRate = 1.5
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.RateLimit.SweepInterval = 0
	require.Error(t, cfg.Validate())

	var nilCfg *Config
	require.Error(t, nilCfg.Validate())
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	assert.Equal(t, "murphys.db", filepath.Base(DefaultStorePath()))
	assert.Equal(t, "config.yaml", filepath.Base(DefaultConfigPath()))
}
