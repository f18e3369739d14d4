package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/aws-s3.db", cfg.Database.Path)
	require.Equal(t, "http://localhost:9000", cfg.Upstream.URL)
	require.Equal(t, 5*time.Minute, cfg.Auth.PresignExpiry)
	require.False(t, cfg.Auth.AllowAnonymous)
	require.True(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9999
database:
  driver: postgres
  host: db.internal
  user: gateway
  database: signatures
upstream:
  url: http://storage.internal:9000
auth:
  allow_anonymous: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9999, cfg.Server.Port)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, "http://storage.internal:9000", cfg.Upstream.URL)
	require.True(t, cfg.Auth.AllowAnonymous)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	t.Run("bad port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("bad driver", func(t *testing.T) {
		cfg := base()
		cfg.Database.Driver = "oracle"
		require.Error(t, cfg.Validate())
	})

	t.Run("missing sqlite path", func(t *testing.T) {
		cfg := base()
		cfg.Database.Path = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("missing upstream", func(t *testing.T) {
		cfg := base()
		cfg.Upstream.URL = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("bad encryption key length", func(t *testing.T) {
		cfg := base()
		cfg.Auth.EncryptionKey = "tooshort"
		require.Error(t, cfg.Validate())
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := base()
		cfg.Logging.Level = "verbose"
		require.Error(t, cfg.Validate())
	})
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p",
		Database: "d", SSLMode: "disable",
	}
	require.Equal(t, "host=localhost port=5432 user=u password=p dbname=d sslmode=disable", cfg.DSN())
}

func TestGetEncryptionKey(t *testing.T) {
	cfg := AuthConfig{EncryptionKey: "0123456789abcdef0123456789abcdef"}
	key, err := cfg.GetEncryptionKey()
	require.NoError(t, err)
	require.Len(t, key, 32)

	cfg.EncryptionKey = strings.Repeat("ab", 32)
	key, err = cfg.GetEncryptionKey()
	require.NoError(t, err)
	require.Len(t, key, 32)

	cfg.EncryptionKey = "short"
	_, err = cfg.GetEncryptionKey()
	require.Error(t, err)

	cfg.EncryptionKey = strings.Repeat("zz", 32)
	_, err = cfg.GetEncryptionKey()
	require.Error(t, err)
}
