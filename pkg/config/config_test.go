package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "nf_session", cfg.Auth.CookieName)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.SessionTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NETFUSION_PORT", "8181")
	t.Setenv("NETFUSION_STORE_DRIVER", "postgres")
	t.Setenv("NETFUSION_STORE_DSN", "postgres://localhost/netfusion")
	t.Setenv("NETFUSION_JWT_EXP_MIN", "60")
	t.Setenv("NETFUSION_CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8181", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/netfusion", cfg.Store.DSN)
	assert.Equal(t, time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netfusion.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9999"
store:
  driver: sqlite
  dsn: /tmp/test.db
auth:
  jwt_secret: file-secret
`), 0o644))
	t.Setenv("NETFUSION_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "/tmp/test.db", cfg.Store.DSN)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netfusion.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9999\"\n"), 0o644))
	t.Setenv("NETFUSION_CONFIG", path)
	t.Setenv("NETFUSION_PORT", "7777")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7777", cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	t.Run("same ports rejected", func(t *testing.T) {
		cfg := defaults()
		cfg.Server.HealthPort = cfg.Server.Port
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad driver rejected", func(t *testing.T) {
		cfg := defaults()
		cfg.Store.Driver = "mysql"
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty dsn rejected", func(t *testing.T) {
		cfg := defaults()
		cfg.Store.DSN = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("defaults valid", func(t *testing.T) {
		assert.NoError(t, defaults().Validate())
	})
}
