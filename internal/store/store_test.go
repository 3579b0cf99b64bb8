package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/murphyslaws/murphys-laws/internal/config"
	"github.com/stretchr/testify/require"
)

func TestBuildLibsqlDSN(t *testing.T) {
	t.Run("URLUsesRawValue", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://murphys.turso.io",
			AuthToken: "token123",
		}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://murphys.turso.io?authToken=token123", dsn)
	})

	t.Run("URLWithExistingQuery", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://murphys.turso.io?foo=bar",
			AuthToken: "token123",
		}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://murphys.turso.io?authToken=token123&foo=bar", dsn)
	})

	t.Run("PathWithFilePrefix", func(t *testing.T) {
		cfg := config.StoreConfig{Path: "file:./murphys.db"}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "file:./murphys.db", dsn)
	})

	t.Run("PathMissing", func(t *testing.T) {
		cfg := config.StoreConfig{}

		_, err := buildLibsqlDSN(cfg)
		require.Error(t, err)
	})

	t.Run("MemoryPath", func(t *testing.T) {
		cfg := config.StoreConfig{Path: ":memory:"}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, ":memory:", dsn)
	})
	t.Run("PlainPathGetsFilePrefix", func(t *testing.T) {
		dir := t.TempDir()
		cfg := config.StoreConfig{Path: filepath.Join(dir, "data", "murphys.db")}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "file:"+filepath.Join(dir, "data", "murphys.db"), dsn)
		require.DirExists(t, filepath.Join(dir, "data"))
	})
}

func TestIsLocalFile(t *testing.T) {
	require.True(t, isLocalFile("file:/tmp/murphys.db"))
	require.False(t, isLocalFile(":memory:"))
	require.False(t, isLocalFile("libsql://murphys.turso.io"))
}

func TestNilStore(t *testing.T) {
	var s *Store
	require.NoError(t, s.Close())
	require.Empty(t, s.Driver())

	_, err := s.GetLaw(context.Background(), 1)
	require.Error(t, err)
	_, err = s.Ping(context.Background())
	require.Error(t, err)
	require.Error(t, s.Migrate(context.Background()))
	_, err = s.LawOfTheDay(context.Background(), time.Now())
	require.Error(t, err)
}
