package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNew_missingFileUsesDefaults(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	t.Setenv("WALLET_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	t.Setenv("WALLET_MODE", "")

	cfg, err := New("")
	require.NoError(err)
	assert.Equal(Default(), cfg)
	assert.Equal("https://seanmcapp.herokuapp.com", cfg.BaseURL())
}

func TestNew_yaml(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	t.Setenv("WALLET_CONFIG", writeConfig(t, `
mode: development
api:
  development_url: http://127.0.0.1:9999
  timeout: 3s
session:
  ttl: 30m
storage:
  driver: memory
`))
	t.Setenv("WALLET_MODE", "")

	cfg, err := New("")
	require.NoError(err)
	assert.Equal(ModeDevelopment, cfg.Mode)
	assert.Equal("http://127.0.0.1:9999", cfg.BaseURL())
	assert.Equal(3*time.Second, cfg.API.Timeout)
	assert.Equal(30*time.Minute, cfg.Session.TTL)
	assert.Equal("memory", cfg.Storage.Driver)
	assert.Empty(cfg.Storage.Path)
	assert.Equal("https://seanmcapp.herokuapp.com", cfg.API.ProductionURL)
	assert.Equal(8123, cfg.Server.Port)
}

func TestNew_modePrecedence(t *testing.T) {
	t.Setenv("WALLET_CONFIG", writeConfig(t, "mode: development\n"))

	t.Setenv("WALLET_MODE", "production")
	cfg, err := New("")
	require.NoError(t, err)
	assert.Equal(t, ModeProduction, cfg.Mode)

	cfg, err = New(ModeDevelopment)
	require.NoError(t, err)
	assert.Equal(t, ModeDevelopment, cfg.Mode)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL())
}

func TestNew_invalidYAML(t *testing.T) {
	t.Setenv("WALLET_CONFIG", writeConfig(t, "mode: [development\n"))

	_, err := New("")
	assert.Error(t, err)
}
