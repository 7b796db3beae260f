package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"testbin"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestLoadConfig_Defaults(t *testing.T) {
	withArgs(t)

	cfg := LoadConfig()
	assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoadConfig_JSONThenFlags(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"server_endpoint_addr": "auth.example:9000",
		"request_timeout":      "30s",
	})

	t.Run("json only", func(t *testing.T) {
		withArgs(t, "-config", path)
		cfg := LoadConfig()
		assert.Equal(t, "auth.example:9000", cfg.ServerEndpointAddr)
		assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	})

	t.Run("flags win", func(t *testing.T) {
		withArgs(t, "-c", path, "-a", "localhost:7000", "-t", "5")
		cfg := LoadConfig()
		assert.Equal(t, "localhost:7000", cfg.ServerEndpointAddr)
		assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	})
}

func TestParseJson_PartialFileKeepsDefaults(t *testing.T) {
	path := writeTempJSON(t, map[string]any{"server_endpoint_addr": "x:1"})
	withArgs(t, "-c", path)

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, "x:1", cfg.ServerEndpointAddr)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestParseJson_BadFilePanics(t *testing.T) {
	withArgs(t, "-c", filepath.Join(t.TempDir(), "missing.json"))
	assert.Panics(t, func() { parseJson(&Config{}) })
}
