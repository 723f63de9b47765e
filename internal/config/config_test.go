package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
http_addr: ":9000"
db_path: /var/lib/pledgeboard/db.sqlite
jwt_secret: file-secret-0123456789
token_ttl: 2h
admins: [Lucas, " ana "]
log_format: json
`)
	t.Setenv("HTTP_ADDR", ":9100")
	t.Setenv("SEED_DEMO", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.HTTPAddr, "environment wins over the file")
	assert.Equal(t, "/var/lib/pledgeboard/db.sqlite", cfg.DBPath)
	assert.Equal(t, "./web/static", cfg.StaticPath, "unset keys keep their defaults")
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.SeedDemo)
	assert.Equal(t, []string{"lucas", "ana"}, cfg.Admins)
	assert.True(t, cfg.IsAdmin("LUCAS"))
	assert.False(t, cfg.IsAdmin("rafa"))
	assert.False(t, cfg.IsAdmin(""))
	assert.NoError(t, cfg.Validate())
}

func TestLoad_AdminsFromEnv(t *testing.T) {
	t.Setenv("ADMINS", "root,Ops")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "ops"}, cfg.Admins)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "http_addr: [unclosed"))
	assert.Error(t, err)

	t.Setenv("TOKEN_TTL", "soon")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")

	cfg.JWTSecret = "0123456789abcdef"
	cfg.LogFormat = "xml"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_format")

	cfg.LogFormat = "text"
	assert.NoError(t, cfg.Validate())
}
